// Package documents stores uploaded files and produces the link recorded
// on the case sheet.
package documents

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize caps one uploaded document.
const MaxFileSize = 10 << 20

var (
	// ErrEmpty is returned when no file content was sent.
	ErrEmpty = errors.New("no file chosen")
	// ErrTooLarge is returned for files above MaxFileSize.
	ErrTooLarge = errors.New("file too large")
	// ErrType is returned for extensions outside the allowed set.
	ErrType = errors.New("unsupported file type")
)

var allowedExt = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".doc":  true,
	".docx": true,
}

// Uploader writes files under dir and links them below publicURL/files.
type Uploader struct {
	dir       string
	publicURL string
}

// NewUploader creates dir if needed.
func NewUploader(dir, publicURL string) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploader{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Dir returns the storage directory served under /files.
func (u *Uploader) Dir() string {
	return u.dir
}

// Save stores fh under a random name and returns its public link.
func (u *Uploader) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Size == 0 {
		return "", ErrEmpty
	}
	if fh.Size > MaxFileSize {
		return "", ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		return "", ErrType
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(u.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create stored file: %w", err)
	}
	if _, err := io.Copy(dst, io.LimitReader(src, MaxFileSize)); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write stored file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close stored file: %w", err)
	}
	return u.publicURL + "/files/" + name, nil
}
