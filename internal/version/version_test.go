package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestGetDetailedVersion(t *testing.T) {
	saved := Version
	defer func() { Version = saved }()

	Version = "1.2.3"
	s := GetDetailedVersion()
	if !strings.HasPrefix(s, "nescore version 1.2.3") {
		t.Errorf("Expected version prefix, got %q", s)
	}
	if !strings.HasSuffix(s, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Expected platform suffix, got %q", s)
	}
	if GetVersion() != "1.2.3" {
		t.Errorf("Expected tagged version, got %s", GetVersion())
	}
}

func TestShortCommit(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0123456789abcdef", "0123456"},
		{"abc", "abc"},
	}
	for _, test := range tests {
		if got := shortCommit(test.in); got != test.want {
			t.Errorf("shortCommit(%q): expected %q, got %q", test.in, test.want, got)
		}
	}
}

func TestWriteBuildInfo(t *testing.T) {
	var out bytes.Buffer
	WriteBuildInfo(&out)
	for _, label := range []string{"Version:", "Git Commit:", "Go Version:", "Platform:"} {
		if !strings.Contains(out.String(), label) {
			t.Errorf("Expected %q in build info:\n%s", label, out.String())
		}
	}
}
