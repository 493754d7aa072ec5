// Package storage stores uploaded product and review media.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Uploader stores a file and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, contentType, folder string) (string, error)
}

// MediaType classifies a MIME type as "video" or "image"
func MediaType(contentType string) string {
	if strings.HasPrefix(contentType, "video/") {
		return "video"
	}
	return "image"
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}

func objectName(folder, contentType string) string {
	return fmt.Sprintf("%s/%s-%s%s", folder, uuid.New().String(), time.Now().Format("20060102150405"), extension(contentType))
}

// LocalUploader writes files under a directory served at baseURL
type LocalUploader struct {
	dir     string
	baseURL string
}

func NewLocalUploader(dir, baseURL string) *LocalUploader {
	return &LocalUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir is the root directory files are written under
func (u *LocalUploader) Dir() string {
	return u.dir
}

func (u *LocalUploader) Upload(_ context.Context, file io.Reader, contentType, folder string) (string, error) {
	name := objectName(folder, contentType)
	path := filepath.Join(u.dir, filepath.FromSlash(name))

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file on server: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s", u.baseURL, name), nil
}
