package upload

import (
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge = errors.New("file exceeds size limit")
	ErrBadType      = errors.New("file type not allowed")
)

// Content types accepted for deliverable artifacts.
var DeliverableTypes = []string{
	"application/pdf",
	"application/zip",
	"application/x-zip-compressed",
	"video/mp4",
	"video/mpeg",
	"video/quicktime",
	"video/x-msvideo",
	"video/webm",
}

// Content types accepted for bid videos.
var VideoTypes = []string{
	"video/mp4",
	"video/mpeg",
	"video/quicktime",
	"video/x-msvideo",
	"video/webm",
}

// Saver writes accepted uploads to a directory and hands back the public
// retrieval path. Declared content type and size are checked before
// anything touches disk.
type Saver struct {
	Dir          string // on-disk directory
	PublicPrefix string // URL prefix of the served directory
	MaxSize      int64
	AllowedTypes []string
}

// NewDeliverableSaver accepts pdf/zip/video files up to 100 MB.
func NewDeliverableSaver(dir string) *Saver {
	return &Saver{
		Dir:          dir,
		PublicPrefix: "/uploads",
		MaxSize:      100 << 20,
		AllowedTypes: DeliverableTypes,
	}
}

// NewBidVideoSaver accepts video files up to 50 MB, in their own folder.
func NewBidVideoSaver(dir string) *Saver {
	return &Saver{
		Dir:          filepath.Join(dir, "bid-videos"),
		PublicPrefix: "/uploads/bid-videos",
		MaxSize:      50 << 20,
		AllowedTypes: VideoTypes,
	}
}

func (s *Saver) typeAllowed(contentType string) bool {
	for _, t := range s.AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Save stores the upload under a random name, keeping the original
// extension, and returns the public path.
func (s *Saver) Save(r io.Reader, origName, contentType string, size int64) (string, error) {
	if size > s.MaxSize {
		return "", ErrFileTooLarge
	}
	if !s.typeAllowed(contentType) {
		return "", ErrBadType
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.New().String() + filepath.Ext(origName)
	dst, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(r, s.MaxSize)); err != nil {
		return "", err
	}
	return path.Join(s.PublicPrefix, name), nil
}
