package validate

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// Upload size limits.
const (
	MaxImageSize = 5 << 20
	MaxVideoSize = 100 << 20
)

// UploadKind restricts what an upload may contain.
type UploadKind int

const (
	// Image accepts JPEG, PNG and WebP.
	Image UploadKind = iota
	// ImageOrVideo additionally accepts MP4.
	ImageOrVideo
)

var (
	imageTypes = []string{"image/jpeg", "image/png", "image/webp"}
	videoTypes = []string{"video/mp4"}
)

// Upload checks content sniffed from its bytes, not its file name, and
// returns the detected content type.
func Upload(name string, content []byte, kind UploadKind) (string, error) {
	if len(content) == 0 {
		return "", invalid("upload", []FieldError{{Field: "file", Message: fmt.Sprintf("%s is empty", name)}})
	}

	detected := mimetype.Detect(content)

	if is(detected, imageTypes) {
		if len(content) > MaxImageSize {
			return "", tooLarge(name, len(content), MaxImageSize)
		}
		return detected.String(), nil
	}
	if kind == ImageOrVideo && is(detected, videoTypes) {
		if len(content) > MaxVideoSize {
			return "", tooLarge(name, len(content), MaxVideoSize)
		}
		return detected.String(), nil
	}

	allowed := "JPEG, PNG or WebP images"
	if kind == ImageOrVideo {
		allowed += " or MP4 video"
	}
	return "", invalid("upload", []FieldError{{
		Field:   "file",
		Message: fmt.Sprintf("%s is %s; only %s are accepted", name, detected.String(), allowed),
	}})
}

func is(m *mimetype.MIME, types []string) bool {
	for _, t := range types {
		if m.Is(t) {
			return true
		}
	}
	return false
}

func tooLarge(name string, size, limit int) error {
	return invalid("upload", []FieldError{{
		Field: "file",
		Message: fmt.Sprintf("%s is %s; the limit is %s",
			name, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit))),
	}})
}
