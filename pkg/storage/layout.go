package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Directory names under the storage root. Everything derived from one upload
// lives under a single storageKey folder inside each of these.
const (
	uploadsDir    = "uploads"
	hlsDir        = "hls"
	thumbnailsDir = "thumbnails"

	publicPrefix = "storage"
)

// Layout resolves the deterministic directory scheme for raw uploads,
// transcoded renditions and thumbnails below one storage root.
type Layout struct {
	root string
}

// NewLayout create a Layout rooted at root
func NewLayout(root string) (*Layout, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	return &Layout{root: abs}, nil
}

// Root returns the absolute storage root
func (l *Layout) Root() string {
	return l.root
}

// UploadsDir returns the absolute raw upload directory
func (l *Layout) UploadsDir() string {
	return filepath.Join(l.root, uploadsDir)
}

// HlsDir returns the absolute rendition directory
func (l *Layout) HlsDir() string {
	return filepath.Join(l.root, hlsDir)
}

// ThumbnailsDir returns the absolute thumbnail directory
func (l *Layout) ThumbnailsDir() string {
	return filepath.Join(l.root, thumbnailsDir)
}

// EnsureBase creates the top level storage directories
func (l *Layout) EnsureBase() error {
	for _, dir := range []string{l.UploadsDir(), l.HlsDir(), l.ThumbnailsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureUploadFolder creates uploads/<storageKey> and returns its absolute path
func (l *Layout) EnsureUploadFolder(storageKey string) (string, error) {
	dir := filepath.Join(l.UploadsDir(), storageKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload folder: %w", err)
	}
	return dir, nil
}

// EnsureHlsFolder creates hls/<storageKey> and returns its absolute path
func (l *Layout) EnsureHlsFolder(storageKey string) (string, error) {
	dir := filepath.Join(l.HlsDir(), storageKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create hls folder: %w", err)
	}
	return dir, nil
}

// EnsureThumbnailFolder creates thumbnails/<storageKey> and returns its absolute path
func (l *Layout) EnsureThumbnailFolder(storageKey string) (string, error) {
	dir := filepath.Join(l.ThumbnailsDir(), storageKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail folder: %w", err)
	}
	return dir, nil
}

// ResetHlsFolder removes any previous rendition output for storageKey and
// recreates the empty folder. Retried jobs overwrite, never append.
func (l *Layout) ResetHlsFolder(storageKey string) (string, error) {
	dir := filepath.Join(l.HlsDir(), storageKey)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to reset hls folder: %w", err)
	}
	return l.EnsureHlsFolder(storageKey)
}

// RemoveUploadFolder deletes uploads/<storageKey> recursively, missing is fine
func (l *Layout) RemoveUploadFolder(storageKey string) error {
	if storageKey == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(l.UploadsDir(), storageKey))
}

// RemoveFile deletes one file by relative path, missing is fine
func (l *Layout) RemoveFile(relativePath string) error {
	err := os.Remove(l.ToAbsolute(relativePath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ToAbsolute resolves a layout-relative path below the storage root
func (l *Layout) ToAbsolute(relativePath string) string {
	return filepath.Join(l.root, filepath.FromSlash(relativePath))
}

// RelativeUploadPath returns uploads/<storageKey>/<fileName>
func RelativeUploadPath(storageKey, fileName string) string {
	return path.Join(uploadsDir, storageKey, fileName)
}

// RelativeHlsPath returns hls/<storageKey>[/<fileName>]
func RelativeHlsPath(storageKey string, fileName ...string) string {
	parts := append([]string{hlsDir, storageKey}, fileName...)
	return path.Join(parts...)
}

// RelativeThumbnailPath returns thumbnails/<storageKey>/<fileName>
func RelativeThumbnailPath(storageKey, fileName string) string {
	return path.Join(thumbnailsDir, storageKey, fileName)
}

// PublicURL maps a layout-relative path to its client-facing URL
func PublicURL(relativePath string) string {
	return "/" + path.Join(publicPrefix, strings.TrimLeft(relativePath, "/"))
}
