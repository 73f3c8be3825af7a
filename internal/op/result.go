package op

import "github.com/roach88/triplegate/internal/jsonld"

// Code classifies a failed Result.
type Code int

const (
	CodeOK Code = iota
	// CodeDirty: the write guard no longer matched; nothing was written.
	CodeDirty
	// CodeReferenced: a delete target is still referenced; nothing was deleted.
	CodeReferenced
	// CodeReportUnavailable: the backend applied the update but could not
	// report mutation counts.
	CodeReportUnavailable
	// CodeNotFound: no matching entity.
	CodeNotFound
	// CodeBackend: the backend failed.
	CodeBackend
)

// String returns a short code name.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeDirty:
		return "dirty"
	case CodeReferenced:
		return "referenced"
	case CodeReportUnavailable:
		return "report_unavailable"
	case CodeNotFound:
		return "not_found"
	case CodeBackend:
		return "backend"
	}
	return "unknown"
}

// Messages shared by the batcher and its callers.
const (
	MessageDirty             = "data is dirty"
	MessageReportUnavailable = "save counters not available"
)

// Result is the outcome of one operation.
//
// Data depends on the operation: bool for ask_*, DocumentResult for
// get_data_for_id, []string for find_records, int for count_records and
// Report-like counters for delete_all.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    Code   `json:"error_code"`
	Data    any    `json:"data,omitempty"`
}

// OK returns a successful result carrying data.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail returns a failed result.
func Fail(code Code, message string) Result {
	return Result{Code: code, Message: message}
}

// DocumentResult is the payload of get_data_for_id.
type DocumentResult struct {
	Object  jsonld.Document `json:"obj"`
	Context jsonld.Context  `json:"-"`
}

// Counts is the payload of delete_all and delete_attributes_for_id.
type Counts struct {
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
}
