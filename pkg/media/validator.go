// Package media validates installation images before they are staged onto
// the new partition.
package media

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ImageExtension is the only accepted image file extension.
const ImageExtension = ".iso"

// Validator checks operator-supplied image locations and sizes.
type Validator struct {
	extension string
}

// NewValidator creates a validator for ISO images.
func NewValidator() *Validator {
	return &Validator{extension: ImageExtension}
}

// ValidatePath rejects locations that cannot name an ISO image: empty
// values, control characters and any extension other than .iso. It works
// on local paths and s3:// URIs alike.
func (v *Validator) ValidatePath(location string) error {
	if strings.TrimSpace(location) == "" {
		return fmt.Errorf("image path is empty")
	}

	for _, r := range location {
		if unicode.IsControl(r) {
			slog.Warn("media_path_rejected", "reason", "control_character")
			return fmt.Errorf("image path contains a control character")
		}
	}

	// path.Ext on a backslash path still sees the final extension.
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(location, `\`, "/")))
	if ext != v.extension {
		slog.Warn("media_path_rejected", "path", location, "reason", "extension", "extension", ext)
		return fmt.Errorf("not an ISO image (expected %s): %s", v.extension, location)
	}

	return nil
}

// ValidateFits checks that an image of imageSize bytes fits on a volume of
// capacity bytes.
func (v *Validator) ValidateFits(imageSize, capacity uint64) error {
	if capacity == 0 {
		return nil
	}
	if imageSize > capacity {
		slog.Warn("media_too_large", "image_size", imageSize, "capacity", capacity)
		return fmt.Errorf("image is %s but the Linux partition holds only %s",
			humanize.IBytes(imageSize), humanize.IBytes(capacity))
	}
	return nil
}
