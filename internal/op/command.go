package op

import (
	"github.com/roach88/triplegate/internal/jsonld"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/statement"
)

// Operation names.
const (
	NameSaveIDWithType         = "save_id_with_type"
	NameSaveAttribute          = "save_attribute_for_id"
	NameDeleteAttribute        = "delete_attribute_for_id"
	NameAttributeCondition     = "set_attribute_condition_for_saves"
	NameNotExistingIDCondition = "set_not_existing_id_condition_for_saves"
	NameDeleteAttributesForID  = "delete_attributes_for_id"
	NameDeleteAll              = "delete_all"
	NameGetDataForID           = "get_data_for_id"
	NameAskIfReferenced        = "ask_if_id_is_referenced"
	NameAskIfExists            = "ask_if_id_exists"
	NameRunRawQuery            = "run_raw_query"
)

// Category partitions operations for batching.
type Category int

const (
	CategoryRead Category = iota + 1
	CategoryWrite
	CategoryPassThrough
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRead:
		return "read"
	case CategoryWrite:
		return "write"
	case CategoryPassThrough:
		return "pass-through"
	}
	return "unknown"
}

// Command is a sealed interface over the operation vocabulary.
type Command interface {
	// Name returns the wire name of the operation.
	Name() string
	command() // Sealed
}

// SaveIDWithType asserts rdf:type Type for ID.
type SaveIDWithType struct {
	ID   rdf.IRI
	Type rdf.IRI
}

// SaveAttribute stores one attribute value, subject to the operation's
// conflict policy.
type SaveAttribute struct {
	ID    rdf.IRI
	Attr  rdf.IRI
	Value statement.Value
	Tag   string
}

// DeleteAttribute removes every current value of (ID, Attr).
type DeleteAttribute struct {
	ID   rdf.IRI
	Attr rdf.IRI
}

// AttributeCondition guards the save batch on (ID, Attr, Value) currently
// existing.
type AttributeCondition struct {
	ID    rdf.IRI
	Attr  rdf.IRI
	Value statement.Value
	Tag   string
}

// NotExistingIDCondition guards the save batch on ID having no triples.
type NotExistingIDCondition struct {
	ID rdf.IRI
}

// DeleteAttributesForID removes every triple with subject ID, unless ID is
// referenced.
type DeleteAttributesForID struct {
	ID rdf.IRI
}

// DeleteAll wipes the working graph and reseeds the bootstrap triple.
type DeleteAll struct{}

// GetDataForID reconstructs the document rooted at ID.
type GetDataForID struct {
	ID      rdf.IRI
	Context jsonld.Context
	Mode    FetchMode
}

// AskIfReferenced checks whether ID is the object of any triple.
type AskIfReferenced struct {
	ID rdf.IRI
}

// AskIfExists checks whether ID is the subject of any triple.
type AskIfExists struct {
	ID rdf.IRI
}

// RunRawQuery runs a SELECT and shapes the result by Kind.
type RunRawQuery struct {
	Query string
	Kind  ResultKind
}

func (SaveIDWithType) Name() string         { return NameSaveIDWithType }
func (SaveAttribute) Name() string          { return NameSaveAttribute }
func (DeleteAttribute) Name() string        { return NameDeleteAttribute }
func (AttributeCondition) Name() string     { return NameAttributeCondition }
func (NotExistingIDCondition) Name() string { return NameNotExistingIDCondition }
func (DeleteAttributesForID) Name() string  { return NameDeleteAttributesForID }
func (DeleteAll) Name() string              { return NameDeleteAll }
func (GetDataForID) Name() string           { return NameGetDataForID }
func (AskIfReferenced) Name() string        { return NameAskIfReferenced }
func (AskIfExists) Name() string            { return NameAskIfExists }
func (RunRawQuery) Name() string            { return NameRunRawQuery }

func (SaveIDWithType) command()         {}
func (SaveAttribute) command()          {}
func (DeleteAttribute) command()        {}
func (AttributeCondition) command()     {}
func (NotExistingIDCondition) command() {}
func (DeleteAttributesForID) command()  {}
func (DeleteAll) command()              {}
func (GetDataForID) command()           {}
func (AskIfReferenced) command()        {}
func (AskIfExists) command()            {}
func (RunRawQuery) command()            {}

// CategoryOf returns the batching category of a command.
func CategoryOf(c Command) Category {
	switch c.(type) {
	case SaveIDWithType, SaveAttribute, DeleteAttribute,
		AttributeCondition, NotExistingIDCondition,
		DeleteAttributesForID, DeleteAll:
		return CategoryWrite
	case GetDataForID, AskIfReferenced, AskIfExists:
		return CategoryRead
	case RunRawQuery:
		return CategoryPassThrough
	}
	return 0
}

// IsDestroy reports whether a write command belongs to the destroy batch.
func IsDestroy(c Command) bool {
	switch c.(type) {
	case DeleteAttributesForID, DeleteAll:
		return true
	}
	return false
}

// Operation is one queued CRUD intent.
type Operation struct {
	ID      string
	Command Command
	// Mode is the conflict policy for writes and is ignored otherwise.
	// PolicyUnset selects the default for the command.
	Mode ConflictPolicy
}

// Category returns the operation's batching category.
func (o Operation) Category() Category {
	return CategoryOf(o.Command)
}

// Name returns the operation name.
func (o Operation) Name() string {
	if o.Command == nil {
		return ""
	}
	return o.Command.Name()
}
