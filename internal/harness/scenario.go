package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tempo/internal/model"
)

// Scenario defines a conformance scenario: a sequence of store and
// query operations run against a fresh store, with expectations on
// each step and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup steps establish initial state. A failing setup step aborts
	// the run.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the steps under test. Failures are recorded in the
	// trace and checked against each step's expect clause.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and store contents.
	Assertions []Assertion `yaml:"assertions"`
}

// Step operations.
const (
	OpCreateBucket = "create_bucket"
	OpDeleteBucket = "delete_bucket"
	OpInsert       = "insert"
	OpHeartbeat    = "heartbeat"
	OpDeleteEvents = "delete_events"
	OpQuery        = "query"
)

// Step is one store or query operation.
type Step struct {
	Op     string `yaml:"op"`
	Bucket string `yaml:"bucket,omitempty"`

	// create_bucket metadata.
	Type     string `yaml:"type,omitempty"`
	Client   string `yaml:"client,omitempty"`
	Hostname string `yaml:"hostname,omitempty"`

	// insert events, or the single heartbeat event.
	Events []EventSpec `yaml:"events,omitempty"`
	Event  *EventSpec  `yaml:"event,omitempty"`

	// Pulsetime is the heartbeat merge window in seconds.
	Pulsetime float64 `yaml:"pulsetime,omitempty"`

	// IDs are the event ids removed by delete_events.
	IDs []int64 `yaml:"ids,omitempty"`

	// Query lines (joined with "\n") and the intervals to run them over,
	// each as "<start>/<end>".
	Query     []string `yaml:"query,omitempty"`
	Intervals []string `yaml:"intervals,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// EventSpec is an event as written in a scenario file.
type EventSpec struct {
	// ID is only compared by the events assertion, and only when non-zero.
	ID        int64          `yaml:"id,omitempty"`
	Timestamp string         `yaml:"timestamp"`
	Duration  float64        `yaml:"duration"`
	Data      map[string]any `yaml:"data,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Error is the expected error class (see ErrorClass). Empty means
	// the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Result is compared structurally against the step's JSON result.
	// If nil, only success or the error class is validated.
	Result any `yaml:"result,omitempty"`
}

// Assertion validates the trace or the final store contents.
type Assertion struct {
	// Type specifies the assertion type:
	// - "bucket_exists": Bucket is present
	// - "bucket_absent": Bucket is not present
	// - "event_count": Bucket holds exactly Count events
	// - "events": Bucket holds exactly Events, newest first
	// - "trace_count": Op appears exactly Count times in the trace
	Type string `yaml:"type"`

	Bucket string      `yaml:"bucket,omitempty"`
	Op     string      `yaml:"op,omitempty"`
	Count  int         `yaml:"count,omitempty"`
	Events []EventSpec `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertBucketExists = "bucket_exists"
	AssertBucketAbsent = "bucket_absent"
	AssertEventCount   = "event_count"
	AssertEvents       = "events"
	AssertTraceCount   = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and that every timestamp,
// interval and duration in the file is well formed.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is only allowed in flow steps", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Op {
	case OpCreateBucket, OpDeleteBucket:
		if step.Bucket == "" {
			return fmt.Errorf("bucket is required for %s", step.Op)
		}
	case OpInsert:
		if step.Bucket == "" {
			return fmt.Errorf("bucket is required for insert")
		}
		if len(step.Events) == 0 {
			return fmt.Errorf("events list is required for insert")
		}
		for j, e := range step.Events {
			if _, err := e.toEvent(); err != nil {
				return fmt.Errorf("events[%d]: %w", j, err)
			}
		}
	case OpHeartbeat:
		if step.Bucket == "" {
			return fmt.Errorf("bucket is required for heartbeat")
		}
		if step.Event == nil {
			return fmt.Errorf("event is required for heartbeat")
		}
		if _, err := step.Event.toEvent(); err != nil {
			return fmt.Errorf("event: %w", err)
		}
		if step.Pulsetime < 0 {
			return fmt.Errorf("pulsetime must be non-negative")
		}
	case OpDeleteEvents:
		if step.Bucket == "" {
			return fmt.Errorf("bucket is required for delete_events")
		}
		if len(step.IDs) == 0 {
			return fmt.Errorf("ids list is required for delete_events")
		}
	case OpQuery:
		if len(step.Query) == 0 {
			return fmt.Errorf("query lines are required for query")
		}
		if len(step.Intervals) == 0 {
			return fmt.Errorf("intervals are required for query")
		}
		if _, err := parseIntervals(step.Intervals); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertBucketExists, AssertBucketAbsent:
		if a.Bucket == "" {
			return fmt.Errorf("bucket is required for %s", a.Type)
		}
	case AssertEventCount:
		if a.Bucket == "" {
			return fmt.Errorf("bucket is required for event_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for event_count")
		}
	case AssertEvents:
		if a.Bucket == "" {
			return fmt.Errorf("bucket is required for events")
		}
		for j, e := range a.Events {
			if _, err := e.toEvent(); err != nil {
				return fmt.Errorf("events[%d]: %w", j, err)
			}
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("op is required for trace_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for trace_count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (e EventSpec) toEvent() (model.Event, error) {
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return model.Event{}, fmt.Errorf("invalid timestamp %q: %w", e.Timestamp, err)
	}
	d, err := model.SecondsToDuration(e.Duration)
	if err != nil {
		return model.Event{}, fmt.Errorf("invalid duration: %w", err)
	}
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	return model.Event{ID: e.ID, Timestamp: ts.UTC(), Duration: d, Data: data}, nil
}

func parseIntervals(specs []string) ([]model.TimeInterval, error) {
	intervals := make([]model.TimeInterval, len(specs))
	for i, s := range specs {
		ti, err := model.ParseTimeInterval(s)
		if err != nil {
			return nil, fmt.Errorf("intervals[%d]: %w", i, err)
		}
		intervals[i] = ti
	}
	return intervals, nil
}
