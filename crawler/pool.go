package crawler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"
)

var ErrInterrupted = errors.New("crawl interrupted")

const (
	DefaultPollInterval	=	60 * time.Second

	// Walker read-ahead per worker
	entriesPerWorker	=	64
)

type PoolConfig struct {
	Workers			int				// 0 - number of CPUs
	PollInterval	time.Duration	// interval of progress reports, 0 - default
}

// Crawl walks the tree under root and processes all found entries by the pool of
// workers. Each worker opens its own catalog session using factory. If ctx is done
// before the crawl is finished, Crawl returns ErrInterrupted immediately without
// waiting for workers, the already stored records are kept
func Crawl(ctx context.Context, volume, root string, factory dbms.Factory,
		ex *Extractor, pc *PoolConfig) (*types.CmdRV, error) {
	workers := pc.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	poll := pc.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	// Identifier to distinguish messages of concurrent crawls
	session := uuid.NewString()[:8]

	log.I("(Crawler:%s) Crawling %q as volume %q by %d workers", session, root, volume, workers)

	g, gctx := errgroup.WithContext(ctx)
	entries := ListTree(gctx, volume, root, workers * entriesPerWorker)

	// Each worker owns its return value
	rvs := make([]*types.CmdRV, workers)
	for i := range rvs {
		i := i
		rvs[i] = types.NewCmdRV()
		g.Go(func() error {
			return worker(gctx, session, i, entries, factory, ex, rvs[i])
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	started := time.Now()
	for {
		select {
			case err := <-done:
				rv := types.NewCmdRV().Merge(rvs...)
				logProgress(session, ex.Stats(), started, "finished")

				if err != nil {
					if ctx.Err() != nil {
						return rv, ErrInterrupted
					}
					return rv, fmt.Errorf("(Crawler:Crawl) crawl of %q failed: %w", root, err)
				}

				log.I("(Crawler:%s) Crawl of %q finished: %s", session, root, rv)

				return rv, nil

			case <-ticker.C:
				logProgress(session, ex.Stats(), started, "in progress")

			case <-ctx.Done():
				// Do not wait for workers
				logProgress(session, ex.Stats(), started, "interrupted")
				log.W("(Crawler:%s) Crawl of %q interrupted, the catalog is incomplete", session, root)

				return nil, ErrInterrupted
		}
	}
}

func worker(ctx context.Context, session string, id int, entries <-chan Entry,
		factory dbms.Factory, ex *Extractor, rv *types.CmdRV) error {
	// Session is never shared with other workers
	cat, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("(Crawler:worker#%d) cannot open catalog session: %w", id, err)
	}
	defer func() {
		// Use separate context, ctx may be already done
		if err := cat.Close(context.Background()); err != nil {
			log.E("(Crawler:%s) Worker #%d cannot close catalog session: %v", session, id, err)
		}
	}()

	log.D("(Crawler:%s) Worker #%d started", session, id)

	for {
		select {
			case <-ctx.Done():
				return ctx.Err()
			case ent, ok := <-entries:
				if !ok {
					log.D("(Crawler:%s) Worker #%d finished: %s", session, id, rv)
					return nil
				}

				if err := ex.Process(ctx, cat, ent, rv); err != nil {
					return fmt.Errorf("(Crawler:worker#%d) %w", id, err)
				}
		}
	}
}

func logProgress(session string, st *Stats, started time.Time, state string) {
	log.I("(Crawler:%s) Crawl %s: %d entries processed, %s hashed, elapsed %s",
		session, state, st.Entries.Load(), humanize.IBytes(uint64(st.Hashed.Load())),
		time.Since(started).Round(time.Second))
}
