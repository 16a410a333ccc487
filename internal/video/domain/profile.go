package domain

import "fmt"

// VariantProfile one rendition target. Bandwidth is the playback estimate
// written into the master playlist, not the raw video bitrate.
type VariantProfile struct {
	Resolution      string
	Height          int
	VideoBitrate    string
	AudioBitrate    string
	Bandwidth       int
	ResolutionLabel string
}

// VariantProfiles the fixed ladder, processed in order. Sequential per job;
// concurrency comes from running more workers, not parallel profiles.
var VariantProfiles = []VariantProfile{
	{
		Resolution:      "240p",
		Height:          240,
		VideoBitrate:    "400k",
		AudioBitrate:    "64k",
		Bandwidth:       550000,
		ResolutionLabel: "426x240",
	},
	{
		Resolution:      "480p",
		Height:          480,
		VideoBitrate:    "800k",
		AudioBitrate:    "96k",
		Bandwidth:       1200000,
		ResolutionLabel: "854x480",
	},
	{
		Resolution:      "720p",
		Height:          720,
		VideoBitrate:    "2000k",
		AudioBitrate:    "128k",
		Bandwidth:       2800000,
		ResolutionLabel: "1280x720",
	},
}

// PlaylistFileName sub-playlist file name for this profile
func (p VariantProfile) PlaylistFileName() string {
	return p.Resolution + ".m3u8"
}

// SegmentFilePattern numbered segment pattern for this profile
func (p VariantProfile) SegmentFilePattern() string {
	return fmt.Sprintf("%s_%%03d.ts", p.Resolution)
}
