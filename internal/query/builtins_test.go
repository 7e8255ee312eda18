package query

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
	"github.com/roach88/tempo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowEvents() []model.Event {
	return []model.Event{
		testutil.Event(0, 10*time.Second, "app", "editor", "title", "a.go"),
		testutil.Event(10*time.Second, 5*time.Second, "app", "browser", "title", "docs"),
		testutil.Event(15*time.Second, 20*time.Second, "app", "editor", "title", "b.go"),
	}
}

func TestQueryBucket_MatchesGetEvents(t *testing.T) {
	s := createTestStore(t)
	seedStore(t, s, "window", append(windowEvents(),
		testutil.Event(-time.Hour, time.Minute, "app", "before"),
		testutil.Event(48*time.Hour, time.Minute, "app", "after"),
	)...)

	got, err := evalStore(t, s, `return query_bucket("window");`)
	require.NoError(t, err)

	direct, err := s.GetEvents(context.Background(), "window", store.IntervalFilter(testInterval))
	require.NoError(t, err)
	want, err := EventsValue(direct)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Len(t, got, 3)
}

func TestQueryBucket_EventShape(t *testing.T) {
	s := createTestStore(t)
	seedStore(t, s, "b1", testutil.Event(time.Second+500*time.Millisecond, 1500*time.Millisecond, "k", "v"))

	got, err := evalStore(t, s, `return query_bucket("b1");`)
	require.NoError(t, err)
	assert.Equal(t, List{Dict{
		"id":        Number(1),
		"timestamp": String("2000-01-01T00:00:01.5Z"),
		"duration":  Number(1.5),
		"data":      Dict{"k": String("v")},
	}}, got)
}

func TestQueryBucket_MissingBucket(t *testing.T) {
	s := createTestStore(t)

	_, err := evalStore(t, s, `query_bucket("nope");`)
	require.Error(t, err)
	assert.True(t, IsBucketQueryError(err))
	assert.True(t, errors.Is(err, store.ErrNoSuchBucket))

	var qe *Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "nope", qe.Name)
}

func TestQueryBucket_ArgumentErrors(t *testing.T) {
	tests := []string{
		`query_bucket();`,
		`query_bucket("a", "b");`,
		`query_bucket(1);`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := eval(t, src)
			require.Error(t, err)
			assert.True(t, IsInvalidType(err))

			var qe *Error
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, "query_bucket", qe.Name)
		})
	}
}

func TestQueryBucketNames(t *testing.T) {
	r := &fakeReader{buckets: map[string]model.Bucket{
		"b": testutil.Bucket("b"),
		"a": testutil.Bucket("a"),
	}}
	got, err := EvaluateString(context.Background(), `query_bucket_names();`, testInterval, r)
	require.NoError(t, err)
	assert.Equal(t, List{String("a"), String("b")}, got)
}

func TestFindBucket(t *testing.T) {
	other := testutil.Bucket("aw-watcher-window_laptop")
	other.Hostname = "laptop"
	r := &fakeReader{buckets: map[string]model.Bucket{
		"aw-watcher-window_testhost": testutil.Bucket("aw-watcher-window_testhost"),
		"aw-watcher-window_laptop":   other,
		"aw-watcher-afk_testhost":    testutil.Bucket("aw-watcher-afk_testhost"),
	}}

	tests := []struct {
		src  string
		want Value
	}{
		{`find_bucket("aw-watcher-window_");`, String("aw-watcher-window_laptop")},
		{`find_bucket("aw-watcher-window_", "testhost");`, String("aw-watcher-window_testhost")},
		{`find_bucket("aw-watcher-afk");`, String("aw-watcher-afk_testhost")},
		{`find_bucket("aw-watcher-input");`, None{}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := EvaluateString(context.Background(), tt.src, testInterval, r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltins_ReaderErrorsAreBucketQueryErrors(t *testing.T) {
	r := &fakeReader{err: store.ErrStoreUnavailable}
	_, err := EvaluateString(context.Background(), `query_bucket_names();`, testInterval, r)
	assert.True(t, IsBucketQueryError(err))
	assert.True(t, store.IsUnavailable(err))
}

func TestTransformBuiltins(t *testing.T) {
	s := createTestStore(t)
	seedStore(t, s, "window", windowEvents()...)

	tests := []struct {
		name string
		src  string
		want any // Native form
	}{
		{
			name: "sum_durations",
			src:  `return sum_durations(query_bucket("window"));`,
			want: 35.0,
		},
		{
			name: "filter_keyvals",
			src:  `e = filter_keyvals(query_bucket("window"), "app", ["editor"]); return sum_durations(e);`,
			want: 30.0,
		},
		{
			name: "exclude_keyvals",
			src:  `e = exclude_keyvals(query_bucket("window"), "app", ["editor"]); return sum_durations(e);`,
			want: 5.0,
		},
		{
			name: "limit_events",
			src:  `return sum_durations(limit_events(sort_by_timestamp(query_bucket("window")), 2));`,
			want: 15.0,
		},
		{
			name: "flood default pulsetime",
			src:  `return sum_durations(flood(query_bucket("window")));`,
			want: 35.0,
		},
		{
			name: "filter_period_intersect",
			src: `f = [{"timestamp": "2000-01-01T00:00:05Z", "duration": 10, "data": {}}];
				return sum_durations(filter_period_intersect(query_bucket("window"), f));`,
			want: 10.0,
		},
		{
			name: "concat",
			src:  `return concat([1], [], [2, 3]);`,
			want: []any{1.0, 2.0, 3.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalStore(t, s, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Native(got))
		})
	}
}

func TestMergeEventsByKeys_Builtin(t *testing.T) {
	s := createTestStore(t)
	seedStore(t, s, "window", windowEvents()...)

	got, err := evalStore(t, s, `return sort_by_duration(merge_events_by_keys(query_bucket("window"), ["app"]));`)
	require.NoError(t, err)

	events, err := ValueEvents(got)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, map[string]any{"app": "editor"}, events[0].Data)
	assert.Equal(t, 30*time.Second, events[0].Duration)
	assert.Equal(t, map[string]any{"app": "browser"}, events[1].Data)
}

func TestTransformBuiltins_ArgumentErrors(t *testing.T) {
	tests := []struct {
		src  string
		name string
	}{
		{`sum_durations(1);`, "sum_durations"},
		{`sum_durations([1]);`, "sum_durations"},
		{`sum_durations([{"timestamp": "yesterday", "duration": 1, "data": {}}]);`, "sum_durations"},
		{`sum_durations([{"timestamp": "2000-01-01T00:00:00Z", "duration": -1, "data": {}}]);`, "sum_durations"},
		{`filter_keyvals([], 1, []);`, "filter_keyvals"},
		{`filter_keyvals([], "k", "v");`, "filter_keyvals"},
		{`merge_events_by_keys([], [1]);`, "merge_events_by_keys"},
		{`limit_events([], -1);`, "limit_events"},
		{`limit_events([], 1.5);`, "limit_events"},
		{`flood([], -1);`, "flood"},
		{`flood([], 1, 2);`, "flood"},
		{`concat([1], 2);`, "concat"},
		{`find_bucket();`, "find_bucket"},
		{`query_bucket_names(1);`, "query_bucket_names"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := eval(t, tt.src)
			require.Error(t, err)
			assert.True(t, IsInvalidType(err), "got %v", err)

			var qe *Error
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.name, qe.Name)
		})
	}
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	got, err := eval(t, `print("total", 1.5, [1, "a"], {"k": none}, true); 1;`, WithOutput(&out))
	require.NoError(t, err)
	assert.Equal(t, Number(1), got)
	assert.Equal(t, "total 1.5 [1,\"a\"] {\"k\":null} true\n", out.String())
}

func TestBuiltins_Sorted(t *testing.T) {
	names := Builtins()
	assert.Contains(t, names, "query_bucket")
	assert.IsIncreasing(t, names)
}
