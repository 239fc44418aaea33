package media

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		path      string
		shouldErr bool
	}{
		{`C:\Users\op\Downloads\Fedora-Workstation-Live-x86_64-40.iso`, false},
		{`D:\images\FEDORA.ISO`, false},
		{`s3://mirror-bucket/fedora/40/Fedora.iso`, false},
		{`/home/op/fedora.iso`, false},
		{``, true},
		{`   `, true},
		{`C:\Downloads\fedora.img`, true},
		{`C:\Downloads\fedora`, true},
		{`C:\iso.d\readme.txt`, true},
		{"C:\\Downloads\\fed\nora.iso", true},
		{"C:\\Downloads\\fedora.iso\x00.txt", true},
	}

	for _, tt := range tests {
		err := v.ValidatePath(tt.path)
		if tt.shouldErr && err == nil {
			t.Errorf("expected error for path: %q", tt.path)
		}
		if !tt.shouldErr && err != nil {
			t.Errorf("unexpected error for path %q: %v", tt.path, err)
		}
	}
}

func TestValidateFits(t *testing.T) {
	v := NewValidator()
	const gib = 1 << 30

	if err := v.ValidateFits(2*gib, 6*gib); err != nil {
		t.Errorf("expected 2GiB image to fit 6GiB partition, got: %v", err)
	}
	if err := v.ValidateFits(6*gib, 6*gib); err != nil {
		t.Errorf("expected exact fit to pass, got: %v", err)
	}
	if err := v.ValidateFits(7*gib, 6*gib); err == nil {
		t.Error("expected error for 7GiB image on 6GiB partition")
	}
	if err := v.ValidateFits(7*gib, 0); err != nil {
		t.Errorf("unknown capacity must not reject, got: %v", err)
	}
}

func TestFileSHA256AndInspect(t *testing.T) {
	content := []byte("not really an iso")
	path := filepath.Join(t.TempDir(), "fedora.iso")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])

	got, err := FileSHA256(path)
	if err != nil {
		t.Fatalf("FileSHA256: %v", err)
	}
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Size != uint64(len(content)) {
		t.Errorf("size %d, want %d", info.Size, len(content))
	}

	if _, err := Inspect(t.TempDir()); err == nil {
		t.Error("expected error when inspecting a directory")
	}
}

func TestMatchChecksum(t *testing.T) {
	sum := sha256.Sum256([]byte("x"))
	hexSum := hex.EncodeToString(sum[:])

	if err := MatchChecksum("SHA256:"+strings.ToUpper(hexSum), hexSum); err != nil {
		t.Errorf("expected match, got: %v", err)
	}

	other := sha256.Sum256([]byte("y"))
	if err := MatchChecksum(hexSum, hex.EncodeToString(other[:])); err == nil {
		t.Error("expected mismatch error")
	}

	if _, err := NormalizeChecksum("abc"); err == nil {
		t.Error("expected length error")
	}
	if _, err := NormalizeChecksum(strings.Repeat("zz", 32)); err == nil {
		t.Error("expected hex error")
	}
}
