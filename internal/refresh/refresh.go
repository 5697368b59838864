// Package refresh re-fetches the three dashboard tables. Each table is
// fetched on its own goroutine; a failure in one never holds back or
// rolls back the others.
package refresh

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"dartdash/internal/row"
)

// Fetcher loads the raw dataset for one table.
type Fetcher interface {
	FetchRows(ctx context.Context, table row.Context) ([]row.Raw, error)
}

// Result is the outcome of one table fetch.
type Result struct {
	Table row.Context
	Rows  []row.Row
	Err   error
}

// Sink receives every completed fetch. It is called from the fetching
// goroutine.
type Sink func(Result)

// Coordinator fans a refresh out to all tables and tracks row counts.
type Coordinator struct {
	fetcher  Fetcher
	defaults row.Defaults
	sink     Sink

	mu     sync.Mutex
	counts map[row.Context]int
	loaded map[row.Context]bool
	wg     sync.WaitGroup
}

// NewCoordinator creates a coordinator. sink may be nil.
func NewCoordinator(fetcher Fetcher, defaults row.Defaults, sink Sink) *Coordinator {
	return &Coordinator{
		fetcher:  fetcher,
		defaults: defaults,
		sink:     sink,
		counts:   map[row.Context]int{},
		loaded:   map[row.Context]bool{},
	}
}

// RefreshAll starts a silent re-fetch of every table and returns
// immediately.
func (c *Coordinator) RefreshAll(ctx context.Context) {
	for _, table := range row.Contexts {
		c.wg.Add(1)
		go func(table row.Context) {
			defer c.wg.Done()
			c.refreshOne(ctx, table)
		}(table)
	}
}

// Refresh re-fetches one table synchronously.
func (c *Coordinator) Refresh(ctx context.Context, table row.Context) Result {
	return c.refreshOne(ctx, table)
}

func (c *Coordinator) refreshOne(ctx context.Context, table row.Context) Result {
	raws, err := c.fetcher.FetchRows(ctx, table)
	result := Result{Table: table, Err: err}
	if err != nil {
		glog.Warningf("refresh %s table: %v", table, err)
	} else {
		result.Rows = row.ResolveAll(table, raws, c.defaults)
		c.mu.Lock()
		c.counts[table] = len(raws)
		c.loaded[table] = true
		c.mu.Unlock()
	}
	if c.sink != nil {
		c.sink(result)
	}
	return result
}

// Wait blocks until every refresh started so far has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Count is the row count of the last successful fetch of table. ok is
// false until the table has loaded once.
func (c *Coordinator) Count(table row.Context) (n int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[table], c.loaded[table]
}
