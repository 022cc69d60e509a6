// Package storage keeps uploaded cover images on the local filesystem and
// maps them to public URLs served under /uploads.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidImage is returned when the content is not an accepted image.
	ErrInvalidImage = errors.New("only image files are allowed")
)

// allowedTypes are the sniffed MIME types accepted as covers.
var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// LocalStore writes files below Dir and exposes them under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, urlPrefix string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/"), MaxBytes: maxBytes}, nil
}

// Save stores an uploaded multipart file and returns its public URL.
func (s *LocalStore) Save(fh *multipart.FileHeader) (string, error) {
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return "", ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.SaveReader(f)
}

// SaveReader sniffs the content of r, rejects anything that is not an
// accepted image and writes it under a random name with the detected
// extension.
func (s *LocalStore) SaveReader(r io.Reader) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return "", ErrInvalidImage
	}
	// DetectReader consumed the header.
	seeker, ok := r.(io.Seeker)
	if !ok {
		return "", errors.New("upload reader must be seekable")
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := uuid.NewString() + mt.Extension()
	full := filepath.Join(s.Dir, name)
	out, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.MaxBytes > 0 && n > s.MaxBytes {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		if errors.Is(err, ErrFileTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write file: %w", err)
	}
	return path.Join(s.URLPrefix, name), nil
}

// Remove deletes the file behind a URL previously returned by Save.  URLs
// outside URLPrefix are ignored and a missing file is not an error.
func (s *LocalStore) Remove(publicURL string) error {
	if !strings.HasPrefix(publicURL, s.URLPrefix+"/") {
		return nil
	}
	name := path.Base(publicURL)
	if name == "." || name == "/" || name == ".." {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
