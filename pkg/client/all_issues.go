package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/jira-stub/pkg/fixture"
)

// pageResult is the outcome of fetching the page starting at StartAt.
type pageResult struct {
	Index  int
	Issues []fixture.Document
	Err    error
}

// AllIssues fetches every issue of a board, pageSize issues per request.
// The first page is fetched alone to learn the total; the remaining pages
// are fetched by up to MaxConcurrency workers and reassembled in order.
// Any page failure, or cancellation of ctx, fails the whole call.
func (c *Client) AllIssues(ctx context.Context, boardID, pageSize int64) ([]fixture.Document, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive (got %d)", pageSize)
	}
	start := time.Now()

	first, err := c.Issues(ctx, boardID, 0, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	total := first.Total
	if int64(len(first.Issues)) >= total {
		c.logger.Debug().
			Int64("board_id", boardID).
			Int("issues", len(first.Issues)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Issues, nil
	}

	pageCount := int((total + pageSize - 1) / pageSize)
	pages := make([][]fixture.Document, pageCount)
	fetched := make([]bool, pageCount)
	pages[0], fetched[0] = first.Issues, true

	c.logger.Info().
		Int64("board_id", boardID).
		Int64("total", total).
		Int("pages", pageCount).
		Msg("Starting parallel page fetch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan int, pageCount-1)
	for i := 1; i < pageCount; i++ {
		queue <- i
	}
	close(queue)

	results := make(chan pageResult, pageCount-1)
	workers := min(c.config.MaxConcurrency, pageCount-1)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go c.pageWorker(ctx, boardID, pageSize, queue, results, &wg, w)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	for result := range results {
		if result.Err != nil {
			if len(errs) == 0 {
				cancel()
			}
			errs = append(errs, fmt.Errorf("page at %d: %w", int64(result.Index)*pageSize, result.Err))
			continue
		}
		pages[result.Index], fetched[result.Index] = result.Issues, true
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	// Workers stop without a result once ctx is done.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextCancelled, err)
	}
	if missing := slices.Index(fetched, false); missing >= 0 {
		return nil, fmt.Errorf("page at %d was not fetched", int64(missing)*pageSize)
	}

	all := make([]fixture.Document, 0, total)
	for _, page := range pages {
		all = append(all, page...)
	}

	c.logger.Info().
		Int64("board_id", boardID).
		Int("issues", len(all)).
		Int("pages", pageCount).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return all, nil
}

// pageWorker fetches pages from the queue until it drains or ctx is done.
func (c *Client) pageWorker(ctx context.Context, boardID, pageSize int64, queue <-chan int, results chan<- pageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for index := range queue {
		if ctx.Err() != nil {
			c.logger.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		pageCtx, cancel := context.WithTimeout(ctx, c.config.PageTimeout)
		page, err := c.Issues(pageCtx, boardID, int64(index)*pageSize, pageSize)
		cancel()

		// results is buffered for every page, so sends never block.
		results <- pageResult{Index: index, Issues: page.Issues, Err: err}
		if err != nil {
			return
		}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		c.logger.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
