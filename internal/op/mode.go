package op

import "fmt"

// ConflictPolicy decides what happens to the current values of an
// attribute when a new value is saved.
type ConflictPolicy int

const (
	// PolicyUnset selects the default policy of the command.
	PolicyUnset ConflictPolicy = iota
	// ReplaceAllPeers deletes every current value, then inserts.
	ReplaceAllPeers
	// ReplacePeersIfValueSetDiffers replaces only when the current value
	// set differs from the batch's incoming set for the attribute.
	ReplacePeersIfValueSetDiffers
	// AppendIfAbsent never deletes and skips values already present.
	AppendIfAbsent
	// DeleteOnly deletes every current value and inserts nothing.
	DeleteOnly
)

var policyNames = map[ConflictPolicy]string{
	ReplaceAllPeers:               "REPLACE_ALL_PEERS",
	ReplacePeersIfValueSetDiffers: "REPLACE_PEERS_IF_VALUE_SET_DIFFERS",
	AppendIfAbsent:                "APPEND_IF_ABSENT",
	DeleteOnly:                    "DELETE_ONLY",
}

// String returns the policy name.
func (p ConflictPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	if p == PolicyUnset {
		return ""
	}
	return fmt.Sprintf("ConflictPolicy(%d)", int(p))
}

// ParsePolicy parses a policy name. The empty string is PolicyUnset.
func ParsePolicy(s string) (ConflictPolicy, error) {
	if s == "" {
		return PolicyUnset, nil
	}
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return PolicyUnset, fmt.Errorf("unknown conflict policy %q", s)
}

// DefaultPolicy returns the policy applied when an operation leaves Mode
// unset.
func DefaultPolicy(c Command) ConflictPolicy {
	switch c.(type) {
	case SaveIDWithType:
		return AppendIfAbsent
	case SaveAttribute:
		return ReplaceAllPeers
	case DeleteAttribute:
		return DeleteOnly
	}
	return PolicyUnset
}

// Policy returns the effective conflict policy of the operation.
func (o Operation) Policy() ConflictPolicy {
	if o.Mode != PolicyUnset {
		return o.Mode
	}
	return DefaultPolicy(o.Command)
}

// FetchMode selects how far a read follows references.
type FetchMode int

const (
	// Shallow returns the root's own attributes; references stay {"@id"}.
	Shallow FetchMode = iota
	// Deep embeds every reachable referenced object.
	Deep
)

// String returns the mode name.
func (m FetchMode) String() string {
	switch m {
	case Shallow:
		return "SHALLOW"
	case Deep:
		return "DEEP"
	}
	return fmt.Sprintf("FetchMode(%d)", int(m))
}

// ParseFetchMode parses SHALLOW or DEEP. The empty string is Shallow.
func ParseFetchMode(s string) (FetchMode, error) {
	switch s {
	case "", "SHALLOW":
		return Shallow, nil
	case "DEEP":
		return Deep, nil
	}
	return Shallow, fmt.Errorf("unknown fetch mode %q", s)
}

// ResultKind shapes the rows of a raw query.
type ResultKind int

const (
	// FindRecords returns the distinct ?s bindings.
	FindRecords ResultKind = iota + 1
	// CountRecords returns the ?count binding as an integer.
	CountRecords
)

// String returns the wire name.
func (k ResultKind) String() string {
	switch k {
	case FindRecords:
		return "find_records"
	case CountRecords:
		return "count_records"
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// ParseResultKind parses find_records or count_records.
func ParseResultKind(s string) (ResultKind, error) {
	switch s {
	case "find_records":
		return FindRecords, nil
	case "count_records":
		return CountRecords, nil
	}
	return 0, fmt.Errorf("unknown result kind %q", s)
}
