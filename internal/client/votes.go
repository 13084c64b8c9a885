package client

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/idgames/internal/debuglog"
	"github.com/pders01/idgames/internal/idgames"
)

const maxConcurrentLookups = 5

// TitleLookup resolves a file id to a title without going to the network.
type TitleLookup interface {
	LookupTitle(fileID int) (string, bool)
}

// FixVoteTitles fills in the title of every vote that has none, first from
// lookup (which may be nil) and otherwise by fetching the file. It returns
// how many titles were filled in. Votes whose file cannot be fetched keep
// an empty title.
func (c *Client) FixVoteTitles(ctx context.Context, votes []*idgames.VoteEntry, lookup TitleLookup) int {
	var fixed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	for _, v := range votes {
		if v.Title != "" {
			continue
		}
		if lookup != nil {
			if title, ok := lookup.LookupTitle(v.FileID); ok && title != "" {
				v.Title = title
				fixed.Add(1)
				continue
			}
		}

		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			resp := c.Do(gctx, c.FileRequest(v.FileID))
			if resp.HasError() {
				debuglog.Debugf("vote %d: file %d lookup failed: %s", v.ID, v.FileID, resp.ErrorMessage)
				return nil
			}
			files := resp.Files()
			if len(files) == 0 {
				return nil
			}
			v.Title = files[0].DisplayTitle()
			fixed.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	return int(fixed.Load())
}
