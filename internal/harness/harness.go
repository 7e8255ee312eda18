package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/query"
	"github.com/roach88/tempo/internal/store"
	"github.com/roach88/tempo/internal/testutil"
)

// Harness executes scenario steps against one store.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger for step diagnostics.
// Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database whose clock is pinned
// to testutil.Epoch, so bucket creation times and therefore traces are
// reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Execute setup steps (any failure aborts the run)
// 3. Execute flow steps, checking each expect clause
// 4. Evaluate assertions against the trace and the store
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewDeterministicClock(testutil.Epoch),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(":memory:",
		store.WithClock(h.clock.Now),
		store.WithLogger(h.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	result := NewResult()
	for i, step := range scenario.Setup {
		out, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
		result.AddTrace(step.Op, step.Bucket, out, "")
	}

	for i, step := range scenario.Flow {
		out, err := h.execute(ctx, step)
		class := ""
		if err != nil {
			class = ErrorClass(err)
			out = nil
		}
		result.AddTrace(step.Op, step.Bucket, out, class)

		for _, msg := range checkExpect(i, step, out, err) {
			result.AddError(msg)
		}

		h.logger.Info("flow step completed",
			"step", i,
			"op", step.Op,
			"bucket", step.Bucket,
			"error", class,
		)
	}

	for _, msg := range EvaluateAssertions(ctx, st, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step and returns its result in JSON shape.
func (h *Harness) execute(ctx context.Context, step Step) (any, error) {
	switch step.Op {
	case OpCreateBucket:
		b, err := h.store.CreateBucket(ctx, model.Bucket{
			ID:       step.Bucket,
			Type:     step.Type,
			Client:   step.Client,
			Hostname: step.Hostname,
		})
		if err != nil {
			return nil, err
		}
		return jsonShape(b)

	case OpDeleteBucket:
		return nil, h.store.DeleteBucket(ctx, step.Bucket)

	case OpInsert:
		events := make([]model.Event, len(step.Events))
		for i, spec := range step.Events {
			e, err := spec.toEvent()
			if err != nil {
				return nil, fmt.Errorf("events[%d]: %w", i, err)
			}
			events[i] = e
		}
		inserted, err := h.store.InsertEvents(ctx, step.Bucket, events)
		if err != nil {
			return nil, err
		}
		return jsonShape(inserted)

	case OpHeartbeat:
		hb, err := step.Event.toEvent()
		if err != nil {
			return nil, fmt.Errorf("event: %w", err)
		}
		pulsetime, err := model.SecondsToDuration(step.Pulsetime)
		if err != nil {
			return nil, fmt.Errorf("pulsetime: %w", err)
		}
		e, err := h.store.Heartbeat(ctx, step.Bucket, hb, pulsetime)
		if err != nil {
			return nil, err
		}
		return jsonShape(e)

	case OpDeleteEvents:
		return nil, h.store.DeleteEventsByID(ctx, step.Bucket, step.IDs)

	case OpQuery:
		intervals, err := parseIntervals(step.Intervals)
		if err != nil {
			return nil, err
		}
		values, err := query.Run(ctx, h.store, query.JoinLines(step.Query), intervals,
			query.WithLogger(h.logger),
		)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = query.Native(v)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// checkExpect compares a flow step's outcome with its expect clause.
// Without a clause the step must succeed.
func checkExpect(index int, step Step, out any, err error) []string {
	var msgs []string
	want := step.Expect
	if want == nil {
		want = &ExpectClause{}
	}

	switch {
	case want.Error == "" && err != nil:
		msgs = append(msgs, fmt.Sprintf("flow[%d] %s: unexpected error: %v", index, step.Op, err))
	case want.Error != "" && err == nil:
		msgs = append(msgs, fmt.Sprintf("flow[%d] %s: expected error %s, got success", index, step.Op, want.Error))
	case want.Error != "" && ErrorClass(err) != want.Error:
		msgs = append(msgs, fmt.Sprintf("flow[%d] %s: expected error %s, got %s (%v)",
			index, step.Op, want.Error, ErrorClass(err), err))
	}

	if want.Result != nil && err == nil && !model.ValueEqual(want.Result, out) {
		wantJSON, _ := model.MarshalCanonical(want.Result)
		gotJSON, _ := model.MarshalCanonical(out)
		msgs = append(msgs, fmt.Sprintf("flow[%d] %s: result mismatch\n  Expected: %s\n  Actual: %s",
			index, step.Op, wantJSON, gotJSON))
	}
	return msgs
}

// ErrorClass returns the stable class name of an error: the query error
// kind, the store error code, or "ERROR" for anything else.
func ErrorClass(err error) string {
	var qe *query.Error
	if errors.As(err, &qe) {
		return string(qe.Kind)
	}
	var se *store.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return "ERROR"
}

// jsonShape converts v to its generic JSON form (maps, slices, float64).
func jsonShape(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
