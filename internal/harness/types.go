package harness

// TraceEvent records one executed step and what it produced.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Op     string `json:"op"`
	Bucket string `json:"bucket,omitempty"`

	// Result is the step output in its JSON shape (a bucket, an event,
	// a list of events or a list of query results). Nil on error.
	Result any `json:"result,omitempty"`

	// Error is the error class of a failed step (see ErrorClass).
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the setup and flow steps in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a trace event with the next sequence number.
func (r *Result) AddTrace(op, bucket string, result any, errClass string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    len(r.Trace) + 1,
		Op:     op,
		Bucket: bucket,
		Result: result,
		Error:  errClass,
	})
}
