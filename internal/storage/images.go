package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageBytes is the default per-file upload ceiling.
const MaxImageBytes int64 = 5 * 1024 * 1024

// RejectionError explains why a file was refused before upload.
type RejectionError struct {
	FileName string
	Reason   string
}

func (e *RejectionError) Error() string {
	return e.FileName + " " + e.Reason
}

// CheckImage accepts a file when its content type is image/* and its size is
// within limit. An empty contentType is resolved by sniffing data.
func CheckImage(name, contentType string, data []byte, limit int64) error {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	if !IsImageType(contentType) {
		return &RejectionError{FileName: name, Reason: "is not an image file"}
	}
	if limit > 0 && int64(len(data)) > limit {
		return TooLarge(name, limit)
	}
	return nil
}

// TooLarge is the rejection for a file over limit.
func TooLarge(name string, limit int64) error {
	return &RejectionError{FileName: name, Reason: fmt.Sprintf("is too large (max %s)", formatLimit(limit))}
}

// IsImageType reports whether a MIME type (parameters allowed) is an image.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// ObjectName derives a random, collision-resistant object name that keeps the
// original file extension. When the name has no extension the sniffed one is used.
func ObjectName(original string, data []byte, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" || !objectNamePattern.MatchString("x"+ext) {
		ext = mimetype.Detect(data).Extension()
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d%s", random, now.UnixMilli(), ext)
}

func formatLimit(limit int64) string {
	const mb = 1024 * 1024
	if limit%mb == 0 {
		return fmt.Sprintf("%dMB", limit/mb)
	}
	return fmt.Sprintf("%d bytes", limit)
}
