package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"elearning_video_service/pkg/database"
)

// RenditionPublisher mirrors a finished rendition folder into object
// storage so a CDN can front it. Local disk remains authoritative.
type RenditionPublisher interface {
	PublishHlsFolder(ctx context.Context, storageKey, dir string) error
}

type minioRenditionPublisher struct {
	client database.MinIOClientRepo
}

// NewMinioRenditionPublisher create a publisher over a minio client
func NewMinioRenditionPublisher(client database.MinIOClientRepo) RenditionPublisher {
	return &minioRenditionPublisher{client: client}
}

func (p *minioRenditionPublisher) PublishHlsFolder(ctx context.Context, storageKey, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read rendition dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		localPath := filepath.Join(dir, entry.Name())
		objectName := fmt.Sprintf("hls/%s/%s", storageKey, entry.Name())
		if err := p.client.UploadFile(ctx, objectName, localPath, hlsContentType(entry.Name())); err != nil {
			return fmt.Errorf("upload %s: %w", objectName, err)
		}
	}
	return nil
}

func hlsContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/MP2T"
	default:
		return "application/octet-stream"
	}
}

type nopRenditionPublisher struct{}

// NewNopRenditionPublisher used when publication is disabled
func NewNopRenditionPublisher() RenditionPublisher {
	return nopRenditionPublisher{}
}

func (nopRenditionPublisher) PublishHlsFolder(context.Context, string, string) error {
	return nil
}
