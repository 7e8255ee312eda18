package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios against its
// golden trace. To regenerate golden files, run:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name, "scenario name must match file name")

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/heartbeat_coalescing.yaml")
	require.NoError(t, err)

	first, err := RunWithGolden(t, s)
	require.NoError(t, err)
	second, err := RunWithGolden(t, s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshalTrace_OmitsEmptyFields(t *testing.T) {
	r := NewResult()
	r.AddTrace(OpQuery, "", nil, "MATH_ERROR")

	out, err := MarshalTrace("omit", r)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"omit","trace":[{"error":"MATH_ERROR","op":"query","seq":1}]}`, string(out))
}

func TestAssertionError_Format(t *testing.T) {
	r := NewResult()
	r.AddTrace(OpCreateBucket, "b", nil, "")
	r.AddTrace(OpDeleteBucket, "b", nil, "NO_SUCH_BUCKET")

	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 occurrences of heartbeat",
		Actual:   "0 occurrences",
		Trace:    r.Trace,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 occurrences of heartbeat")
	assert.Contains(t, msg, "[1] create_bucket b")
	assert.Contains(t, msg, "[2] delete_bucket b -> NO_SUCH_BUCKET")
}
