// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch mirrors a community's records, their version histories, and
// their files into a local tree.
//
// The traversal is strictly sequential: pagination, then per record the
// version list, then per version the metadata documents and the file
// downloads. Failures below the pagination level are logged and counted but
// never stop the run.
package fetch

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/zenodo-sync/pkg/types"
)

// API is the subset of the Zenodo client the traversal needs.
type API interface {
	Records(ctx context.Context, communityID string, page, size int) iter.Seq[types.Record]
	Versions(ctx context.Context, id string) ([]types.Version, error)
	Record(ctx context.Context, id string) (types.Record, error)
	Download(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

// Tree writes the on-disk documents for records and versions.
type Tree interface {
	WriteRecord(rec types.Record) (string, error)
	WriteVersion(rec types.Record, v types.Version) (string, error)
	FilesDir(versionDir string) string
}

// Recorder is notified after each version has been processed. The catalog
// implements it.
type Recorder interface {
	RecordVersion(ctx context.Context, entry types.CatalogEntry) error
}

// Options control a single run.
type Options struct {
	CommunityID string
	Page        int
	PageSize    int
	DryRun      bool
}

// Fetcher drives the traversal.
type Fetcher struct {
	api      API
	tree     Tree
	fs       afero.Fs
	log      *zap.Logger
	opts     Options
	recorder Recorder
}

// New returns a Fetcher. fs is where downloaded files are written; it must
// be the same filesystem tree writes to.
func New(api API, tree Tree, fs afero.Fs, log *zap.Logger, opts Options) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	return &Fetcher{api: api, tree: tree, fs: fs, log: log, opts: opts}
}

// WithRecorder attaches a Recorder and returns f.
func (f *Fetcher) WithRecorder(r Recorder) *Fetcher {
	f.recorder = r
	return f
}

// Run walks the community and returns the accumulated statistics.
func (f *Fetcher) Run(ctx context.Context) types.RunStats {
	var stats types.RunStats
	start := time.Now()

	f.log.Info("fetch started",
		zap.String("community_id", f.opts.CommunityID),
		zap.Int("page_size", f.opts.PageSize),
		zap.Bool("dry_run", f.opts.DryRun))

	for rec := range f.api.Records(ctx, f.opts.CommunityID, f.opts.Page, f.opts.PageSize) {
		f.processRecord(ctx, rec, &stats)
	}

	f.log.Info("fetch complete",
		zap.Int("records", stats.Records),
		zap.Int("versions", stats.Versions),
		zap.Int("files", stats.Files),
		zap.Int("failed_records", stats.FailedRecords),
		zap.Int("failed_files", stats.FailedFiles),
		zap.Duration("elapsed", time.Since(start)))
	return stats
}

func (f *Fetcher) processRecord(ctx context.Context, rec types.Record, stats *types.RunStats) {
	log := f.log.With(zap.String("record_id", rec.ID), zap.String("concept_id", rec.ConceptID))
	stats.Records++

	if _, err := f.tree.WriteRecord(rec); err != nil {
		log.Error("writing record failed", zap.Error(err))
		stats.FailedRecords++
		return
	}

	versions, ok := f.resolveVersions(ctx, rec, log)
	if !ok {
		stats.FailedRecords++
		return
	}

	for _, v := range versions {
		f.processVersion(ctx, rec, v, log, stats)
	}
}

// resolveVersions lists rec's versions. A record without any version is
// returned as its own single version. The boolean is false when the list
// could not be fetched.
func (f *Fetcher) resolveVersions(ctx context.Context, rec types.Record, log *zap.Logger) ([]types.Version, bool) {
	versions, err := f.api.Versions(ctx, rec.ID)
	if err != nil {
		log.Error("fetching versions failed, skipping record", zap.Error(err))
		return nil, false
	}
	if len(versions) == 0 {
		log.Info("no versions listed, using the record itself")
		return []types.Version{rec.AsVersion()}, true
	}
	log.Info("resolved versions", zap.Int("versions", len(versions)))
	return versions, true
}

func (f *Fetcher) processVersion(ctx context.Context, rec types.Record, v types.Version, log *zap.Logger, stats *types.RunStats) {
	log = log.With(zap.String("version_id", v.ID), zap.String("version", v.Label))

	dir, err := f.tree.WriteVersion(rec, v)
	if err != nil {
		log.Error("writing version failed", zap.Error(err))
		return
	}
	stats.Versions++

	downloaded := 0
	if f.opts.DryRun {
		log.Info("dry run, skipping file downloads")
	} else {
		downloaded = f.materialize(ctx, v.ID, f.tree.FilesDir(dir), log, stats)
	}

	if f.recorder != nil {
		entry := types.CatalogEntry{
			RecordID:  rec.ID,
			ConceptID: rec.ConceptID,
			Title:     rec.Title,
			VersionID: v.ID,
			Label:     v.Label,
			Dir:       dir,
			Files:     downloaded,
		}
		if err := f.recorder.RecordVersion(ctx, entry); err != nil {
			log.Warn("catalog update failed", zap.Error(err))
		}
	}
}
