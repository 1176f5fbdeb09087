package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxFileSize = 10 * 1024 * 1024 // 10 MB

// AllowedMimeTypes lists the image formats accepted for avatars and covers.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store persists an object under key and returns its public URL.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Uploader stages multipart files on local disk and pushes them to a Store.
// A staged file is removed once Upload returns, whatever the outcome.
type Uploader struct {
	store   Store
	tempDir string
	maxSize int64
	now     func() time.Time
}

func NewUploader(store Store, tempDir string) *Uploader {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Uploader{store: store, tempDir: tempDir, maxSize: MaxFileSize, now: time.Now}
}

// Stage copies an incoming multipart file into the temp directory and returns
// its local path.
func (u *Uploader) Stage(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(u.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	dst, err := os.CreateTemp(u.tempDir, "upload-*"+safeExt(fh.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return dst.Name(), nil
}

// Upload validates the staged file at localPath, stores it and returns the
// durable URL. The local file is always removed.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	if localPath == "" {
		return "", ErrMissingFile
	}
	defer func() { _ = os.Remove(localPath) }()

	f, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrMissingFile
		}
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat staged file: %w", err)
	}
	if info.Size() == 0 {
		return "", ErrEmptyFile
	}
	if info.Size() > u.maxSize {
		return "", ErrFileTooLarge
	}

	// Detect MIME type from the first 512 bytes
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	mimeType := strings.Split(http.DetectContentType(buf[:n]), ";")[0]
	if !AllowedMimeTypes[mimeType] {
		return "", ErrInvalidMimeType
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind staged file: %w", err)
	}

	now := u.now().UTC()
	key := fmt.Sprintf("%d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), mimeToExt(mimeType))
	url, err := u.store.Put(ctx, key, f, info.Size(), mimeType)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return url, nil
}

// Discard removes staged files that will not be uploaded. Empty paths and
// already removed files are ignored.
func (u *Uploader) Discard(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.Remove(p)
	}
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 6 {
		return ""
	}
	for _, r := range strings.TrimPrefix(ext, ".") {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func mimeToExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
