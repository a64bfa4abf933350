// Package decode converts raw fixed-width records into typed rows. This
// file implements the optional data-parallel decode stage. Rows have no
// cross-row dependencies, so the raw line stream is partitioned into
// batches decoded by worker goroutines; batches are merged back by
// sequence number, so the output is identical to a sequential decode,
// including which error surfaces first.
package decode

import (
	"bufio"
	"context"
	"io"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/errhandling"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/schema"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
)

// batchSize is the number of raw lines handed to a worker at once.
const batchSize = 8192

// batch is a contiguous run of raw lines.
type batch struct {
	seq       int
	startLine int
	lines     []string
}

// decoded is the result of decoding one batch.
type decoded struct {
	seq  int
	rows []table.Row
	err  error
}

// All decodes the full stream into a table. With workers <= 1 it streams
// sequentially; otherwise it decodes batches in parallel with a stable
// merge by source line index.
func All(ctx context.Context, r io.Reader, vintages *schema.VintageTable, workers int) (*table.Table, error) {
	if workers <= 1 {
		return table.Build(NewReader(r, vintages))
	}
	return parallel(ctx, r, vintages, workers)
}

// parallel runs the batch producer, workers, and ordered collection.
func parallel(ctx context.Context, r io.Reader, vintages *schema.VintageTable, workers int) (*table.Table, error) {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan batch, workers)
	results := make(chan decoded, workers)

	g.Go(func() error {
		defer close(jobs)
		return produceBatches(gctx, r, jobs)
	})

	wg, wctx := errgroup.WithContext(gctx)
	for i := 0; i < workers; i++ {
		wg.Go(func() error {
			return decodeBatches(wctx, vintages, jobs, results)
		})
	}
	g.Go(func() error {
		defer close(results)
		return wg.Wait()
	})

	// Stable merge in the caller's goroutine: batches may complete out of
	// order, so buffer until the next sequence number arrives. On a decode
	// failure, keep draining so the lowest-line error wins deterministically.
	var (
		pending  = make(map[int]decoded)
		rows     []table.Row
		firstErr *errhandling.DecodeError
	)
	next := 0
	for d := range results {
		pending[d.seq] = d
		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if cur.err != nil {
				firstErr = lowerError(firstErr, cur.err)
				continue
			}
			if firstErr == nil {
				rows = append(rows, cur.rows...)
			}
		}
	}
	// Late out-of-order errors can still precede buffered ones by line.
	for _, d := range sortedPending(pending) {
		if d.err != nil {
			firstErr = lowerError(firstErr, d.err)
		}
	}

	if err := g.Wait(); err != nil {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return table.FromRows(rows)
}

// produceBatches scans raw lines into fixed-size batches. Blank lines are
// not emitted until a later non-blank line is seen, so a run of blanks at
// end of file is tolerated no matter where it falls relative to a batch
// boundary, matching the sequential reader's scan-ahead.
func produceBatches(ctx context.Context, r io.Reader, jobs chan<- batch) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	seq := 0
	lines := make([]string, 0, batchSize)
	startLine := 1
	pendingBlanks := 0

	flush := func() error {
		if len(lines) == 0 {
			return nil
		}
		b := batch{seq: seq, startLine: startLine, lines: lines}
		select {
		case jobs <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
		seq++
		startLine += len(b.lines)
		lines = make([]string, 0, batchSize)
		return nil
	}

	add := func(l string) error {
		lines = append(lines, l)
		if len(lines) == batchSize {
			return flush()
		}
		return nil
	}

	for sc.Scan() {
		raw := strings.TrimRight(sc.Text(), "\r")
		if raw == "" {
			pendingBlanks++
			continue
		}
		for ; pendingBlanks > 0; pendingBlanks-- {
			if err := add(""); err != nil {
				return err
			}
		}
		if err := add(raw); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return flush()
}

// decodeBatches decodes batches until the job channel closes.
// Decode errors are reported as results, not worker failures, so the
// merge can pick the earliest offending line.
func decodeBatches(ctx context.Context, vintages *schema.VintageTable, jobs <-chan batch, results chan<- decoded) error {
	rd := &Reader{vintages: vintages}
	for b := range jobs {
		out := decoded{seq: b.seq, rows: make([]table.Row, 0, len(b.lines))}
		for i, raw := range b.lines {
			rd.line = b.startLine + i
			if raw == "" {
				out.err = errhandling.NewDecodeError(rd.line, "", "blank record")
				out.rows = nil
				break
			}
			row, err := rd.decodeLine(raw)
			if err != nil {
				out.err = err
				out.rows = nil
				break
			}
			out.rows = append(out.rows, row)
		}
		select {
		case results <- out:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// lowerError returns the error with the lower source line.
func lowerError(cur *errhandling.DecodeError, candidate error) *errhandling.DecodeError {
	de, ok := candidate.(*errhandling.DecodeError)
	if !ok {
		if cur != nil {
			return cur
		}
		// Non-decode errors from a worker are wrapped at line 0 so they
		// still abort the run.
		return errhandling.NewDecodeError(0, "", candidate.Error())
	}
	if cur == nil || de.Line < cur.Line {
		return de
	}
	return cur
}

// sortedPending returns buffered out-of-order results in sequence order.
func sortedPending(pending map[int]decoded) []decoded {
	out := make([]decoded, 0, len(pending))
	for _, d := range pending {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
