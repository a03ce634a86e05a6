package storage

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/uzeed/uzeed/app/models"
)

const (
	MaxImageBytes int64 = 10 << 20
	MaxVideoBytes int64 = 100 << 20
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

var allowedImageMime = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

var allowedVideoMime = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
}

// SniffedMedia is the result of inspecting the first bytes of an upload.
type SniffedMedia struct {
	MediaType string // IMAGE or VIDEO
	MIME      string
	Ext       string
}

// ValidateMedia detects the real type from head and rejects anything that is
// not a whitelisted image or video. SVG and HTML never pass, whatever the
// file name says.
func ValidateMedia(filename string, head []byte, size int64) (*SniffedMedia, error) {
	detected := mimetype.Detect(head)
	mime := detected.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	var out *SniffedMedia
	if ext, ok := allowedImageMime[mime]; ok {
		out = &SniffedMedia{MediaType: models.MediaTypeImage, MIME: mime, Ext: ext}
	} else if ext, ok := allowedVideoMime[mime]; ok {
		out = &SniffedMedia{MediaType: models.MediaTypeVideo, MIME: mime, Ext: ext}
	} else {
		return nil, ErrUnsupportedType
	}

	limit := MaxImageBytes
	if out.MediaType == models.MediaTypeVideo {
		limit = MaxVideoBytes
	}
	if size > limit {
		return nil, ErrFileTooLarge
	}

	// keep the client's extension when it agrees with the detected type
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && extMatches(mime, ext) {
		out.Ext = ext
	}
	return out, nil
}

func extMatches(mime, ext string) bool {
	switch mime {
	case "image/jpeg":
		return ext == ".jpg" || ext == ".jpeg"
	default:
		return allowedImageMime[mime] == ext || allowedVideoMime[mime] == ext
	}
}
