package harness

// TraceEvent records the outcome of one operation.
type TraceEvent struct {
	Run     int    `json:"run"`
	Seq     int64  `json:"seq"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace holds one event per operation, in run and file order. A
	// rejected run contributes a single event named "rejected".
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Graph is the final graph in sorted N-Triples lines, without the
	// bootstrap triple.
	Graph []string `json:"graph"`

	// Statements is the number of update statements the runs sent.
	Statements int `json:"statements"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Graph:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
