package ppu

import "image"

// Screen dimensions
const (
	Width  = 256
	Height = 240
)

// Frame is a completed picture of packed 0x00RRGGBB pixels
type Frame struct {
	Pixels [Width * Height]uint32
}

// NewFrame creates a black frame
func NewFrame() *Frame {
	return &Frame{}
}

// Pixel returns the packed color at (x, y)
func (f *Frame) Pixel(x, y int) uint32 {
	return f.Pixels[y*Width+x]
}

// Set stores a packed color at (x, y)
func (f *Frame) Set(x, y int, rgb uint32) {
	f.Pixels[y*Width+x] = rgb
}

// Clone returns an independent copy of the frame
func (f *Frame) Clone() *Frame {
	c := *f
	return &c
}

// RGBA converts the frame to an image for encoding or scaling
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	for i, rgb := range f.Pixels {
		img.Pix[i*4+0] = uint8(rgb >> 16)
		img.Pix[i*4+1] = uint8(rgb >> 8)
		img.Pix[i*4+2] = uint8(rgb)
		img.Pix[i*4+3] = 0xFF
	}
	return img
}
