package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the ffmpeg yt-dlp will run for --extract-audio.
//
// yt-dlp uses --ffmpeg-location when given, which may name the binary or the
// directory holding it, and otherwise resolves "ffmpeg" from PATH. location is
// the value notebrief passes as --ffmpeg-location; empty means PATH.
func CheckFFmpeg(location string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used by yt-dlp to extract audio",
		Optional:    true,
	}

	location = strings.TrimSpace(location)
	if location == "" {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			result.Command = "ffmpeg"
			result.Detail = `binary "ffmpeg" not found on PATH`
			return result
		}
		result.Command = path
		result.Available = true
		return result
	}

	candidate := location
	if info, err := os.Stat(location); err == nil && info.IsDir() {
		candidate = filepath.Join(location, executableFile("ffmpeg"))
	}
	result.Command = candidate
	info, err := os.Stat(candidate)
	if err != nil || !isExecutable(info) {
		result.Detail = fmt.Sprintf("scraper.ffmpeg_location: no executable ffmpeg at %s", candidate)
		return result
	}
	result.Available = true
	return result
}

func executableFile(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
