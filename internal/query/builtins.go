package query

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
	"github.com/roach88/tempo/internal/transform"
)

// Builtin is the signature of every built-in function.
type Builtin func(call *Call, args []Value) (Value, error)

// Call carries what a built-in may use: the interval being evaluated,
// the store reader and the print destination.
type Call struct {
	ctx      context.Context
	Interval model.TimeInterval
	Reader   Reader
	Out      io.Writer

	// Name is the name the built-in was registered under.
	Name string
	pos  int
}

// Context returns the evaluation context.
func (c *Call) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// typeError reports a wrong argument for the current built-in.
func (c *Call) typeError(format string, args ...any) *Error {
	return invalidType(c.Name, c.pos, format, args...)
}

var builtins map[string]Builtin

func init() {
	builtins = map[string]Builtin{
		"print":                   builtinPrint,
		"query_bucket":            builtinQueryBucket,
		"query_bucket_names":      builtinQueryBucketNames,
		"find_bucket":             builtinFindBucket,
		"filter_keyvals":          builtinFilterKeyvals,
		"exclude_keyvals":         builtinExcludeKeyvals,
		"merge_events_by_keys":    builtinMergeEventsByKeys,
		"sum_durations":           builtinSumDurations,
		"sort_by_duration":        builtinSortByDuration,
		"sort_by_timestamp":       builtinSortByTimestamp,
		"limit_events":            builtinLimitEvents,
		"flood":                   builtinFlood,
		"filter_period_intersect": builtinFilterPeriodIntersect,
		"concat":                  builtinConcat,
	}
}

// Builtins returns the names of all built-in functions, sorted.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Argument helpers

func (c *Call) arity(args []Value, minArgs, maxArgs int) error {
	if len(args) >= minArgs && len(args) <= maxArgs {
		return nil
	}
	if minArgs == maxArgs {
		return c.typeError("expected %d argument(s), got %d", minArgs, len(args))
	}
	return c.typeError("expected %d to %d arguments, got %d", minArgs, maxArgs, len(args))
}

func (c *Call) stringArg(args []Value, i int) (string, error) {
	s, ok := args[i].(String)
	if !ok {
		return "", c.typeError("argument %d must be a string, got %s", i+1, TypeName(args[i]))
	}
	return string(s), nil
}

func (c *Call) numberArg(args []Value, i int) (float64, error) {
	n, ok := args[i].(Number)
	if !ok {
		return 0, c.typeError("argument %d must be a number, got %s", i+1, TypeName(args[i]))
	}
	return float64(n), nil
}

func (c *Call) listArg(args []Value, i int) (List, error) {
	l, ok := args[i].(List)
	if !ok {
		return nil, c.typeError("argument %d must be a list, got %s", i+1, TypeName(args[i]))
	}
	return l, nil
}

func (c *Call) eventsArg(args []Value, i int) ([]model.Event, error) {
	events, err := ValueEvents(args[i])
	if err != nil {
		return nil, c.typeError("argument %d: %v", i+1, err)
	}
	return events, nil
}

func (c *Call) eventsResult(events []model.Event) (Value, error) {
	v, err := EventsValue(events)
	if err != nil {
		return nil, c.typeError("%v", err)
	}
	return v, nil
}

func (c *Call) reader() (Reader, error) {
	if c.Reader == nil {
		return nil, c.typeError("no store available")
	}
	return c.Reader, nil
}

// Built-ins

func builtinPrint(c *Call, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Format(a)
	}
	if c.Out != nil {
		fmt.Fprintln(c.Out, strings.Join(parts, " "))
	}
	return None{}, nil
}

func builtinQueryBucket(c *Call, args []Value) (Value, error) {
	if err := c.arity(args, 1, 1); err != nil {
		return nil, err
	}
	id, err := c.stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	r, err := c.reader()
	if err != nil {
		return nil, err
	}
	events, err := r.GetEvents(id, store.IntervalFilter(c.Interval))
	if err != nil {
		return nil, bucketQueryError(id, c.pos, err)
	}
	return c.eventsResult(events)
}

func builtinQueryBucketNames(c *Call, args []Value) (Value, error) {
	if err := c.arity(args, 0, 0); err != nil {
		return nil, err
	}
	r, err := c.reader()
	if err != nil {
		return nil, err
	}
	buckets, err := r.GetBuckets()
	if err != nil {
		return nil, bucketQueryError("", c.pos, err)
	}
	names := make(List, 0, len(buckets))
	for _, id := range sortedBucketIDs(buckets) {
		names = append(names, String(id))
	}
	return names, nil
}

// builtinFindBucket returns the first bucket id (in sorted order) with
// the given prefix, optionally restricted to a hostname.
func builtinFindBucket(c *Call, args []Value) (Value, error) {
	if err := c.arity(args, 1, 2); err != nil {
		return nil, err
	}
	prefix, err := c.stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	var hostname string
	if len(args) == 2 {
		if hostname, err = c.stringArg(args, 1); err != nil {
			return nil, err
		}
	}
	r, err := c.reader()
	if err != nil {
		return nil, err
	}
	buckets, err := r.GetBuckets()
	if err != nil {
		return nil, bucketQueryError("", c.pos, err)
	}
	for _, id := range sortedBucketIDs(buckets) {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if hostname != "" && buckets[id].Hostname != hostname {
			continue
		}
		return String(id), nil
	}
	return None{}, nil
}

func sortedBucketIDs(buckets map[string]model.Bucket) []string {
	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func builtinFilterKeyvals(c *Call, args []Value) (Value, error) {
	return keyvals(c, args, transform.FilterKeyvals)
}

func builtinExcludeKeyvals(c *Call, args []Value) (Value, error) {
	return keyvals(c, args, transform.ExcludeKeyvals)
}

func keyvals(c *Call, args []Value, fn func([]model.Event, string, []any) []model.Event) (Value, error) {
	if err := c.arity(args, 3, 3); err != nil {
		return nil, err
	}
	events, err := c.eventsArg(args, 0)
	if err != nil {
		return nil, err
	}
	key, err := c.stringArg(args, 1)
	if err != nil {
		return nil, err
	}
	vals, err := c.listArg(args, 2)
	if err != nil {
		return nil, err
	}
	return c.eventsResult(fn(events, key, Native(vals).([]any)))
}

func builtinMergeEventsByKeys(c *Call, args []Value) (Value, error) {
	if err := c.arity(args, 2, 2); err != nil {
		return nil, err
	}
	events, err := c.eventsArg(args, 0)
	if err != nil {
		return nil, err
	}
	keyList, err := c.listArg(args, 1)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(keyList))
	for i, k := range keyList {
		s, ok := k.(String)
		if !ok {
			return nil, c.typeError("keys must be strings, got %s", TypeName(k))
		}
		keys[i] = string(s)
	}
	return c.eventsResult(transform.MergeByKeys(events, keys))
}

func builtinSumDurations(c *Call, args []Value) (Value, error) {
	if err := c.arity(args, 1, 1); err != nil {
		return nil, err
	}
	events, err := c.eventsArg(args, 0)
	if err != nil {
		return nil, err
	}
	return Number(model.DurationSeconds(transform.SumDurations(events))), nil
}

func builtinSortByDuration(c *Call, args []Value) (Value, error) {
	return sortEvents(c, args, transform.SortByDuration)
}

func builtinSortByTimestamp(c *Call, args []Value) (Value, error) {
	return sortEvents(c, args, transform.SortByTimestamp)
}

func sortEvents(c *Call, args []Value, fn func([]model.Event) []model.Event) (Value, error) {
	if err := c.arity(args, 1, 1); err != nil {
		return nil, err
	}
	events, err := c.eventsArg(args, 0)
	if err != nil {
		return nil, err
	}
	return c.eventsResult(fn(events))
}

func builtinLimitEvents(c *Call, args []Value) (Value, error) {
	if err := c.arity(args, 2, 2); err != nil {
		return nil, err
	}
	events, err := c.eventsArg(args, 0)
	if err != nil {
		return nil, err
	}
	n, err := c.numberArg(args, 1)
	if err != nil {
		return nil, err
	}
	if n < 0 || n != math.Trunc(n) {
		return nil, c.typeError("count must be a non-negative integer, got %v", n)
	}
	return c.eventsResult(transform.Limit(events, int(min(n, math.MaxInt32))))
}

func builtinFlood(c *Call, args []Value) (Value, error) {
	if err := c.arity(args, 1, 2); err != nil {
		return nil, err
	}
	events, err := c.eventsArg(args, 0)
	if err != nil {
		return nil, err
	}
	pulsetime := transform.DefaultPulsetime
	if len(args) == 2 {
		secs, err := c.numberArg(args, 1)
		if err != nil {
			return nil, err
		}
		pulsetime, err = model.SecondsToDuration(secs)
		if err != nil || pulsetime < 0 {
			return nil, c.typeError("pulsetime must be a non-negative number of seconds, got %v", secs)
		}
	}
	return c.eventsResult(transform.Flood(events, pulsetime))
}

func builtinFilterPeriodIntersect(c *Call, args []Value) (Value, error) {
	if err := c.arity(args, 2, 2); err != nil {
		return nil, err
	}
	events, err := c.eventsArg(args, 0)
	if err != nil {
		return nil, err
	}
	filter, err := c.eventsArg(args, 1)
	if err != nil {
		return nil, err
	}
	return c.eventsResult(transform.FilterPeriodIntersect(events, filter))
}

func builtinConcat(c *Call, args []Value) (Value, error) {
	out := List{}
	for i := range args {
		l, err := c.listArg(args, i)
		if err != nil {
			return nil, err
		}
		out = append(out, l...)
	}
	return out, nil
}
