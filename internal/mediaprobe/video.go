package mediaprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog/log"
)

// CheckFFprobeAvailable checks if ffprobe is available in the system PATH.
func CheckFFprobeAvailable() error {
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		return fmt.Errorf("ffprobe not found in PATH: video aspect detection will be unavailable. Install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)")
	}
	log.Debug().Str("path", path).Msg("ffprobe found")
	return nil
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Tags         map[string]string `json:"tags"`
	SideDataList []struct {
		Rotation float64 `json:"rotation"`
	} `json:"side_data_list"`
}

// VideoDimensions runs ffprobe against a local path or an http(s) URL and
// returns the display dimensions of the first video stream.
func VideoDimensions(ctx context.Context, source string) (Dimensions, error) {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return Dimensions{}, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-select_streams", "v:0",
		"-show_streams",
		source,
	)
	output, err := cmd.Output()
	if err != nil {
		return Dimensions{}, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseFFprobe(output)
}

func parseFFprobe(output []byte) (Dimensions, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return Dimensions{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" || stream.Width == 0 || stream.Height == 0 {
			continue
		}
		d := Dimensions{Width: stream.Width, Height: stream.Height}
		if isQuarterTurn(streamRotation(stream)) {
			d.Width, d.Height = d.Height, d.Width
		}
		return d, nil
	}
	return Dimensions{}, fmt.Errorf("no video stream found")
}

// streamRotation reads rotation from the display matrix side data (newer
// ffprobe) or the legacy "rotate" tag.
func streamRotation(s ffprobeStream) int {
	for _, sd := range s.SideDataList {
		if sd.Rotation != 0 {
			return int(sd.Rotation)
		}
	}
	if v, ok := s.Tags["rotate"]; ok {
		if deg, err := strconv.Atoi(v); err == nil {
			return deg
		}
	}
	return 0
}

func isQuarterTurn(deg int) bool {
	deg = ((deg % 360) + 360) % 360
	return deg == 90 || deg == 270
}
