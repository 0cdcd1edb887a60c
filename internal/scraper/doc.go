// Package scraper wraps the yt-dlp command line tool.
//
// It covers the two things notebrief needs from a video site: listing the
// entries of a playlist without downloading them (used to build batch
// manifests) and extracting audio tracks into a download directory (used by
// the multi-source digest). Command execution goes through the Executor seam
// so tests can script yt-dlp output.
package scraper
