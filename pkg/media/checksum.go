package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/oneclickfedora/installer/pkg/errors"
)

// Info describes a local image file.
type Info struct {
	Path string
	Size uint64
}

// Inspect returns the size of the image at path.
func Inspect(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, errors.Wrap(err, "failed to stat image")
	}
	if fi.IsDir() {
		return Info{}, fmt.Errorf("%s is a directory", path)
	}
	return Info{Path: path, Size: uint64(fi.Size())}, nil
}

// FileSHA256 returns the hex SHA-256 digest of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open image")
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", errors.Wrap(err, "failed to read image")
	}

	sum := hex.EncodeToString(h.Sum(nil))
	slog.Info("media_checksum", "path", path, "size_mb", n/1024/1024, "sha256", sum[:16]+"...")
	return sum, nil
}

// NormalizeChecksum accepts a SHA-256 digest in hex with an optional
// "sha256:" prefix and returns it lower-cased.
func NormalizeChecksum(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "sha256:")
	if len(s) != sha256.Size*2 {
		return "", fmt.Errorf("sha256 checksum must be %d hex characters, got %d", sha256.Size*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("sha256 checksum is not hex: %w", err)
	}
	return s, nil
}

// MatchChecksum compares an expected digest with an actual one.
func MatchChecksum(expected, actual string) error {
	want, err := NormalizeChecksum(expected)
	if err != nil {
		return err
	}
	got, err := NormalizeChecksum(actual)
	if err != nil {
		return err
	}
	if want != got {
		slog.Error("media_checksum_mismatch", "expected", want, "actual", got)
		return fmt.Errorf("checksum mismatch: expected %s, got %s", want, got)
	}
	return nil
}
