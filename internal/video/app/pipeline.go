package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"elearning_video_service/internal/video/domain"
	"elearning_video_service/internal/video/repository"
	"elearning_video_service/pkg/logger"
	"elearning_video_service/pkg/storage"

	"go.uber.org/zap"
)

// Pipeline turns one uploaded asset into its full rendition set
type Pipeline interface {
	Process(ctx context.Context, video *domain.VideoAsset) (*domain.FinalizeResult, error)
}

type transcodePipeline struct {
	layout    *storage.Layout
	executor  TranscodeExecutor
	videoRepo repository.VideoRepo
	publisher RenditionPublisher
}

// NewTranscodePipeline create the pipeline with its collaborators injected
func NewTranscodePipeline(layout *storage.Layout,
	executor TranscodeExecutor,
	videoRepo repository.VideoRepo,
	publisher RenditionPublisher,
) Pipeline {
	return &transcodePipeline{
		layout:    layout,
		executor:  executor,
		videoRepo: videoRepo,
		publisher: publisher,
	}
}

// Process runs the whole transcode for one asset:
//  1. resolve and check the original file
//  2. reset the rendition folder (duplicate deliveries overwrite cleanly)
//  3. render each profile of the ladder, in order, one at a time
//  4. assemble and write the master playlist
//  5. probe the container duration (failure here is swallowed)
//  6. persist the ready state in one atomic row write
//
// Any error in steps 1-4 aborts the job; the caller records the failure and
// drives the retry policy.
func (p *transcodePipeline) Process(ctx context.Context, video *domain.VideoAsset) (*domain.FinalizeResult, error) {
	if video.StorageKey == "" {
		return nil, fmt.Errorf("%w: asset %d has no storage key", domain.ErrInputMissing, video.ID)
	}

	inputPath := p.layout.ToAbsolute(video.OriginalPath)
	if _, err := os.Stat(inputPath); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInputMissing, video.OriginalPath)
	}

	outputDir, err := p.layout.ResetHlsFolder(video.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: layout reset: %v", domain.ErrTranscodeFailed, err)
	}

	variants := make([]domain.Variant, 0, len(domain.VariantProfiles))
	for _, profile := range domain.VariantProfiles {
		playlistName, err := p.executor.Transcode(ctx, inputPath, profile, outputDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTranscodeFailed, err)
		}

		relativePath := storage.RelativeHlsPath(video.StorageKey, playlistName)
		variants = append(variants, domain.Variant{
			Resolution:         profile.Resolution,
			ResolutionLabel:    profile.ResolutionLabel,
			Bandwidth:          profile.Bandwidth,
			PlaylistPath:       relativePath,
			PublicPlaylistPath: storage.PublicURL(relativePath),
		})
	}

	masterContent := BuildMasterPlaylist(variants)
	masterPath := filepath.Join(outputDir, "master.m3u8")
	if err := os.WriteFile(masterPath, []byte(masterContent), 0644); err != nil {
		return nil, fmt.Errorf("%w: write master playlist: %v", domain.ErrTranscodeFailed, err)
	}

	duration := p.probeDuration(ctx, video, inputPath)

	result := &domain.FinalizeResult{
		Variants:           variants,
		HlsDirectory:       storage.RelativeHlsPath(video.StorageKey),
		MasterPlaylistPath: storage.PublicURL(storage.RelativeHlsPath(video.StorageKey, "master.m3u8")),
		DurationSeconds:    duration,
	}

	// Mirroring renditions to the object bucket is best effort, the local
	// tree stays the source of truth.
	if err := p.publisher.PublishHlsFolder(ctx, video.StorageKey, outputDir); err != nil {
		logger.Log.Warn("rendition publication failed",
			zap.Uint("video_id", video.ID),
			zap.Error(err),
		)
	}

	if err := p.videoRepo.Finalize(video.ID, *result); err != nil {
		return nil, fmt.Errorf("finalize asset %d: %w", video.ID, err)
	}

	return result, nil
}

// probeDuration step 5, recovered locally on failure per the contract:
// a broken probe never fails an otherwise good transcode.
func (p *transcodePipeline) probeDuration(ctx context.Context, video *domain.VideoAsset, inputPath string) *int {
	seconds, err := p.executor.Probe(ctx, inputPath)
	if err != nil {
		logger.Log.Warn("duration probe failed, leaving duration empty",
			zap.Uint("video_id", video.ID),
			zap.Error(err),
		)
		return nil
	}
	rounded := int(math.Round(seconds))
	return &rounded
}

// BuildMasterPlaylist renders the master playlist: one stream entry per
// variant in profile order, pointing at the sub-playlist by bare file name.
func BuildMasterPlaylist(variants []domain.Variant) string {
	lines := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
	}
	for _, v := range variants {
		lines = append(lines,
			fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s", v.Bandwidth, v.ResolutionLabel),
			filepath.Base(v.PlaylistPath),
		)
	}
	return strings.Join(lines, "\n") + "\n"
}
