package movement

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/inkhouse/bookstock/pkg/logger"
	"github.com/inkhouse/bookstock/pkg/metrics"
)

// DefaultBatchSize is the sub-batch size when the caller does not set one.
const DefaultBatchSize = 50

// BatchOptions control validation and failure semantics for a batch.
type BatchOptions struct {
	// ValidateFirst validates every item before committing anything. With
	// ContinueOnError false, any failure aborts the batch with zero commits.
	ValidateFirst bool
	// ContinueOnError commits passing items and records failing ones.
	ContinueOnError bool
	// DryRun validates only; zero writes.
	DryRun bool
	// BatchSize is the sub-batch chunk size; items within a chunk commit
	// independently and may run concurrently.
	BatchSize int
}

// DefaultBatchOptions returns the documented defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{ValidateFirst: true, BatchSize: DefaultBatchSize}
}

// BatchItemResult is one successful item, tagged with its input index.
type BatchItemResult struct {
	Index      int     `json:"index"`
	Result     *Result `json:"-"`
	MovementID string  `json:"movement_id,omitempty"`
	DryRun     bool    `json:"dry_run,omitempty"`
}

// BatchItemError is one failed item, tagged with its input index.
type BatchItemError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// BatchResult is the ephemeral response for one batch. Always satisfies
// SuccessCount + FailureCount == TotalRequested; Results and Errors preserve
// input order via the index tags regardless of completion order.
type BatchResult struct {
	TotalRequested int               `json:"total_requested"`
	SuccessCount   int               `json:"success_count"`
	FailureCount   int               `json:"failure_count"`
	Aborted        bool              `json:"aborted,omitempty"`
	Results        []BatchItemResult `json:"results"`
	Errors         []BatchItemError  `json:"errors"`
}

type batchItemState struct {
	done   bool
	err    error
	result *Result
}

// BatchProcessor drives the coordinator over many requests with
// validate-first, continue-on-error and dry-run modes.
type BatchProcessor struct {
	coordinator *Coordinator
	validator   *Validator
	defaultSize int
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// NewBatchProcessor builds the processor. defaultSize bounds sub-batches when
// a request does not set one; <= 0 falls back to DefaultBatchSize.
func NewBatchProcessor(coordinator *Coordinator, validator *Validator, defaultSize int, log *logger.Logger, m *metrics.Metrics) *BatchProcessor {
	if defaultSize <= 0 {
		defaultSize = DefaultBatchSize
	}
	return &BatchProcessor{coordinator: coordinator, validator: validator, defaultSize: defaultSize, log: log, metrics: m}
}

// Submit processes the requests in input order. Per-item failures become
// result entries; the only batch-level errors are infrastructural.
func (p *BatchProcessor) Submit(ctx context.Context, requests []Request, opts BatchOptions) (*BatchResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = p.defaultSize
	}
	n := len(requests)
	res := &BatchResult{TotalRequested: n}
	states := make([]batchItemState, n)

	if opts.ValidateFirst || opts.DryRun {
		for i, req := range requests {
			vres, err := p.validator.Validate(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("validate item %d: %w", i, err)
			}
			if !vres.Valid {
				states[i] = batchItemState{done: true, err: vres.err()}
			}
		}
		if opts.DryRun {
			for i := range states {
				states[i].done = true
			}
			p.finish(res, states, true)
			return res, nil
		}
		if countFailed(states) > 0 && !opts.ContinueOnError {
			// Abort with zero commits; untouched items are reported as
			// skipped so the counts still add up.
			res.Aborted = true
			for i := range states {
				if !states[i].done {
					states[i] = batchItemState{done: true, err: fmt.Errorf("skipped: batch aborted by validate-first failure")}
				}
			}
			p.finish(res, states, false)
			return res, nil
		}
	}

	// Commit phase: chunked sub-batches, items inside a chunk run
	// concurrently and commit independently. One item's failure never rolls
	// back its siblings.
	stopped := false
	for start := 0; start < n; start += opts.BatchSize {
		end := min(start+opts.BatchSize, n)
		if stopped {
			for i := start; i < end; i++ {
				if !states[i].done {
					states[i] = batchItemState{done: true, err: fmt.Errorf("skipped: earlier failure with continue_on_error disabled")}
				}
			}
			continue
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			if states[i].done {
				continue
			}
			// Caller cancellation aborts only not-yet-started items; commits
			// already admitted to the coordinator are never rolled back.
			if err := ctx.Err(); err != nil {
				states[i] = batchItemState{done: true, err: fmt.Errorf("skipped: %w", err)}
				continue
			}
			i, req := i, requests[i]
			g.Go(func() error {
				result, err := p.coordinator.Submit(ctx, req)
				states[i] = batchItemState{done: true, err: err, result: result}
				return nil
			})
		}
		_ = g.Wait()
		if !opts.ContinueOnError && countFailed(states) > 0 {
			stopped = true
		}
	}

	p.finish(res, states, false)
	p.metrics.BatchProcessed(res.SuccessCount, res.FailureCount)
	p.log.Info().
		Int("total", res.TotalRequested).
		Int("succeeded", res.SuccessCount).
		Int("failed", res.FailureCount).
		Bool("aborted", res.Aborted).
		Msg("batch processed")
	return res, nil
}

func (p *BatchProcessor) finish(res *BatchResult, states []batchItemState, dryRun bool) {
	for i, st := range states {
		if st.err != nil {
			res.FailureCount++
			res.Errors = append(res.Errors, BatchItemError{Index: i, Message: st.err.Error(), Err: st.err})
			continue
		}
		res.SuccessCount++
		item := BatchItemResult{Index: i, Result: st.result, DryRun: dryRun}
		if st.result != nil && st.result.Record != nil {
			item.MovementID = st.result.Record.ID
		}
		res.Results = append(res.Results, item)
	}
}

func countFailed(states []batchItemState) int {
	var n int
	for _, st := range states {
		if st.done && st.err != nil {
			n++
		}
	}
	return n
}
