// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zenodo

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/pdiddy/zenodo-sync/pkg/types"
)

// DefaultPageSize is used when a walk is started with a non-positive size.
const DefaultPageSize = 1000

// Records walks the community collection page by page starting at page and
// yields every record in server order. The walk ends at the first empty
// page. A failed page is logged and ends the walk; records already yielded
// stay yielded. Pages are never retried.
func (c *Client) Records(ctx context.Context, communityID string, page, size int) iter.Seq[types.Record] {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return func(yield func(types.Record) bool) {
		for p := page; ; p++ {
			records, err := c.SearchRecords(ctx, communityID, p, size)
			if err != nil {
				c.log.Error("fetching records page failed, ending walk",
					zap.String("community_id", communityID),
					zap.Int("page", p),
					zap.Error(err))
				return
			}
			if len(records) == 0 {
				c.log.Debug("empty page, walk complete",
					zap.String("community_id", communityID),
					zap.Int("page", p))
				return
			}
			c.log.Info("fetched records page",
				zap.String("community_id", communityID),
				zap.Int("page", p),
				zap.Int("records", len(records)))
			for _, r := range records {
				if !yield(r) {
					return
				}
			}
		}
	}
}
