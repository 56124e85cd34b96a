// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/zenodo-sync/internal/layout"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

// materialize fetches the full detail of versionID and downloads each of its
// files into dir. It returns the number of files written. A failed file is
// logged and counted; its siblings are still attempted.
func (f *Fetcher) materialize(ctx context.Context, versionID, dir string, log *zap.Logger, stats *types.RunStats) int {
	// The versions list does not carry usable file links, so every version
	// costs one detail request.
	detail, err := f.api.Record(ctx, versionID)
	if err != nil {
		log.Error("fetching version detail failed", zap.Error(err))
		return 0
	}
	if len(detail.Files) == 0 {
		log.Info("version has no files")
		return 0
	}

	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		log.Error("creating files directory failed", zap.String("dir", dir), zap.Error(err))
		stats.FailedFiles += len(detail.Files)
		return 0
	}

	written := 0
	for _, entry := range detail.Files {
		size, err := f.download(ctx, entry, dir)
		if err != nil {
			log.Error("downloading file failed", zap.String("file", entry.Name), zap.Error(err))
			stats.FailedFiles++
			continue
		}
		log.Info("downloaded file", zap.String("file", entry.Name), zap.Int64("bytes", size))
		stats.Files++
		written++
	}
	return written
}

// download streams entry into a temporary file in dir and renames it into
// place once the transfer completed.
func (f *Fetcher) download(ctx context.Context, entry types.FileEntry, dir string) (int64, error) {
	if entry.DownloadURL == "" {
		return 0, fmt.Errorf("file %q has no download link", entry.Name)
	}
	dest, err := layout.FilePath(dir, entry.Name)
	if err != nil {
		return 0, err
	}

	tmp, err := afero.TempFile(f.fs, dir, ".download-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, copyErr := f.api.Download(ctx, entry.DownloadURL, tmp)
	closeErr := tmp.Close()
	if copyErr != nil {
		f.fs.Remove(tmpPath)
		return n, copyErr
	}
	if closeErr != nil {
		f.fs.Remove(tmpPath)
		return n, fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := f.fs.Rename(tmpPath, dest); err != nil {
		f.fs.Remove(tmpPath)
		return n, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}
