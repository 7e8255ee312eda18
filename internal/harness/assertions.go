package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", event.Seq, event.Op, event.Bucket)
			if event.Error != "" {
				fmt.Fprintf(&buf, " -> %s", event.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result and the
// final store contents. Returns a slice of error messages for failed
// assertions.
func EvaluateAssertions(ctx context.Context, st *store.Store, result *Result, assertions []Assertion) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertBucketExists:
			err = assertBucket(ctx, st, a, true)
		case AssertBucketAbsent:
			err = assertBucket(ctx, st, a, false)
		case AssertEventCount:
			err = assertEventCount(ctx, st, a)
		case AssertEvents:
			err = assertEvents(ctx, st, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func assertBucket(ctx context.Context, st *store.Store, a Assertion, exists bool) error {
	_, err := st.GetBucket(ctx, a.Bucket)
	switch {
	case err == nil && exists, store.IsNoSuchBucket(err) && !exists:
		return nil
	case err == nil:
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("bucket %q absent", a.Bucket),
			Actual:   "bucket exists",
		}
	case store.IsNoSuchBucket(err):
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("bucket %q exists", a.Bucket),
			Actual:   "no such bucket",
		}
	default:
		return fmt.Errorf("%s: %w", a.Type, err)
	}
}

func assertEventCount(ctx context.Context, st *store.Store, a Assertion) error {
	n, err := st.GetEventCount(ctx, a.Bucket, time.Time{}, time.Time{})
	if err != nil {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events in %s", a.Count, a.Bucket),
			Actual:   fmt.Sprintf("error: %v", err),
		}
	}
	if n != int64(a.Count) {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events in %s", a.Count, a.Bucket),
			Actual:   fmt.Sprintf("%d events", n),
		}
	}
	return nil
}

// assertEvents compares the bucket's events, newest first, with the
// expected list. IDs are compared only where the expectation sets one.
func assertEvents(ctx context.Context, st *store.Store, a Assertion) error {
	got, err := st.GetEvents(ctx, a.Bucket, store.EventFilter{})
	if err != nil {
		return &AssertionError{
			Type:     AssertEvents,
			Expected: fmt.Sprintf("%d events in %s", len(a.Events), a.Bucket),
			Actual:   fmt.Sprintf("error: %v", err),
		}
	}
	if len(got) != len(a.Events) {
		return &AssertionError{
			Type:     AssertEvents,
			Expected: fmt.Sprintf("%d events in %s", len(a.Events), a.Bucket),
			Actual:   fmt.Sprintf("%d events", len(got)),
		}
	}
	for i, spec := range a.Events {
		want, err := spec.toEvent()
		if err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
		if !eventMatches(got[i], want) {
			return &AssertionError{
				Type:     AssertEvents,
				Expected: fmt.Sprintf("events[%d] = %s", i, describeEvent(want)),
				Actual:   fmt.Sprintf("events[%d] = %s", i, describeEvent(got[i])),
			}
		}
	}
	return nil
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func eventMatches(got, want model.Event) bool {
	if want.ID != 0 && got.ID != want.ID {
		return false
	}
	return got.Timestamp.Equal(want.Timestamp) &&
		got.Duration == want.Duration &&
		model.DataEqual(got.Data, want.Data)
}

func describeEvent(e model.Event) string {
	data, err := model.MarshalCanonical(e.Data)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", e.Data))
	}
	return fmt.Sprintf("{id=%d timestamp=%s duration=%s data=%s}",
		e.ID, e.Timestamp.Format(time.RFC3339Nano), e.Duration, data)
}
