// Package media stores uploaded item media and returns the public URL.
package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

type Store interface {
	Store(ctx context.Context, file *multipart.FileHeader, kind Kind) (string, error)
	Remove(ctx context.Context, url string) error
}

// DiskStore writes files under Root/<kind>/ and serves them from BaseURL.
// It is the local development fallback when Cloudinary is not configured.
type DiskStore struct {
	Root    string
	BaseURL string
}

func NewDiskStore(root, baseURL string) *DiskStore {
	return &DiskStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *DiskStore) Store(ctx context.Context, file *multipart.FileHeader, kind Kind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(s.Root, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close media file: %w", err)
	}
	return s.BaseURL + "/" + path.Join(string(kind), name), nil
}

func (s *DiskStore) Remove(_ context.Context, url string) error {
	rel := strings.TrimPrefix(url, s.BaseURL+"/")
	if rel == url || strings.Contains(rel, "..") {
		return fmt.Errorf("media url %q is not served by this store", url)
	}
	if err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}
