package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultLocalDir   = "./uploads"
	DefaultPublicBase = "/static/uploads"
)

// LocalStore writes objects below a directory that the HTTP server exposes
// under publicBase.
type LocalStore struct {
	baseDir    string
	publicBase string
}

func NewLocalStore(baseDir, publicBase string) *LocalStore {
	if baseDir == "" {
		baseDir = DefaultLocalDir
	}
	if publicBase == "" {
		publicBase = DefaultPublicBase
	}
	return &LocalStore{baseDir: baseDir, publicBase: strings.TrimRight(publicBase, "/")}
}

func (s *LocalStore) Dir() string        { return s.baseDir }
func (s *LocalStore) PublicBase() string { return s.publicBase }

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	absPath := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	dst, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(absPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return s.publicBase + "/" + filepath.ToSlash(rel), nil
}
