package debug

import (
	"encoding/binary"
	"hash/crc32"

	"nescore/internal/ppu"
)

// FrameHash returns the CRC32 (IEEE) of the frame's packed RGB pixels,
// each stored as four little-endian bytes.
func FrameHash(frame *ppu.Frame) uint32 {
	buf := make([]byte, 4*len(frame.Pixels))
	for i, pixel := range frame.Pixels {
		binary.LittleEndian.PutUint32(buf[i*4:], pixel)
	}
	return crc32.ChecksumIEEE(buf)
}
