package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"notebrief/internal/batch"
	"notebrief/internal/config"
	"notebrief/internal/scraper"
	"notebrief/internal/services"
)

type playlistFlags struct {
	url   string
	limit int
}

func (f *playlistFlags) register(cmd *cobra.Command, limitHelp string) {
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "Playlist URL (defaults to batch.playlist_url)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, limitHelp)
}

func (f *playlistFlags) resolve(cfg *config.Config, defaultLimit int) (string, int, error) {
	url := strings.TrimSpace(f.url)
	if url == "" {
		url = cfg.Batch.PlaylistURL
	}
	if url == "" {
		return "", 0, services.Wrap(services.ErrConfiguration, "cli", "playlist",
			"no playlist URL; pass --url or set batch.playlist_url", nil)
	}
	limit := f.limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return url, limit, nil
}

func (c *commandContext) scraperClient() (scraper.Scraper, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	s, err := c.newScraper(cfg.Scraper, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var flags playlistFlags
	var output string
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "List a playlist and write its entries as the URL manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := ctx.scraperClient()
			if err != nil {
				return err
			}
			url, limit, err := flags.resolve(cfg, cfg.Batch.PlaylistLimit)
			if err != nil {
				return err
			}
			items, err := s.ListPlaylistItems(cmd.Context(), url, limit)
			if err != nil {
				return err
			}

			entries := make([]batch.Entry, 0, len(items))
			rows := make([][]string, 0, len(items))
			for i, item := range items {
				entries = append(entries, batch.Entry{Title: item.Title, URL: item.URL})
				rows = append(rows, []string{strconv.Itoa(i + 1), item.Title, item.URL})
			}
			path := strings.TrimSpace(output)
			if path == "" {
				path = cfg.Paths.Manifest
			}
			if err := batch.WriteManifest(path, entries); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"#", "Title", "URL"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft}))
			}
			fmt.Fprintf(out, "Wrote %d entries to %s\n", len(entries), path)
			return nil
		},
	}
	flags.register(cmd, "Maximum entries to list (defaults to batch.playlist_limit)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Manifest path (defaults to paths.manifest)")
	return cmd
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var flags playlistFlags
	var dir string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download playlist audio for a digest analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := ctx.scraperClient()
			if err != nil {
				return err
			}
			url, limit, err := flags.resolve(cfg, cfg.Batch.DownloadLimit)
			if err != nil {
				return err
			}
			target := strings.TrimSpace(dir)
			if target == "" {
				target = cfg.Paths.DownloadDir
			}
			files, err := s.DownloadAudio(cmd.Context(), url, limit, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, file := range files {
				fmt.Fprintf(out, "  %s\n", filepath.Base(file))
			}
			fmt.Fprintf(out, "Downloaded %d audio files to %s\n", len(files), target)
			return nil
		},
	}
	flags.register(cmd, "Number of playlist entries to download (defaults to batch.download_limit)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Target directory (defaults to paths.download_dir)")
	return cmd
}
