package op

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/statement"
)

// ReservedNamespace prefixes IRIs minted by the engine itself (write
// markers). Operations may not mention it.
const ReservedNamespace = "urn:triplegate:"

// ContractError reports an operation whose content does not fit its name.
// It indicates a bug in the issuing code and is never retried.
type ContractError struct {
	// OpID is the offending operation's correlation id.
	OpID string
	// Name is the operation name, if known.
	Name string
	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("contract violation in %s (op=%s): %s", e.Name, e.OpID, e.Message)
	}
	return fmt.Sprintf("contract violation (op=%s): %s", e.OpID, e.Message)
}

// IsContractError returns true if err is or wraps a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

func contractErr(o Operation, format string, args ...any) *ContractError {
	return &ContractError{OpID: o.ID, Name: o.Name(), Message: fmt.Sprintf(format, args...)}
}

// Validate checks an operation against the contract of its command.
func Validate(o Operation) error {
	if o.ID == "" {
		return contractErr(o, "missing operation id")
	}
	if o.Command == nil {
		return contractErr(o, "missing command")
	}

	switch c := o.Command.(type) {
	case SaveIDWithType:
		if err := checkIRIs(o, c.ID, c.Type); err != nil {
			return err
		}
	case SaveAttribute:
		if err := checkIRIs(o, c.ID, c.Attr); err != nil {
			return err
		}
		if err := checkValue(o, c.Value, c.Tag); err != nil {
			return err
		}
	case DeleteAttribute:
		if err := checkIRIs(o, c.ID, c.Attr); err != nil {
			return err
		}
	case AttributeCondition:
		if err := checkIRIs(o, c.ID, c.Attr); err != nil {
			return err
		}
		if c.Tag == statement.TagList {
			return contractErr(o, "list values cannot be used as conditions")
		}
		if err := checkValue(o, c.Value, c.Tag); err != nil {
			return err
		}
	case NotExistingIDCondition:
		if err := checkIRIs(o, c.ID); err != nil {
			return err
		}
	case DeleteAttributesForID:
		if err := checkIRIs(o, c.ID); err != nil {
			return err
		}
	case DeleteAll:
	case GetDataForID:
		if err := checkIRIs(o, c.ID); err != nil {
			return err
		}
		if c.Mode != Shallow && c.Mode != Deep {
			return contractErr(o, "invalid fetch mode %d", int(c.Mode))
		}
	case AskIfReferenced:
		if err := checkIRIs(o, c.ID); err != nil {
			return err
		}
	case AskIfExists:
		if err := checkIRIs(o, c.ID); err != nil {
			return err
		}
	case RunRawQuery:
		if strings.TrimSpace(c.Query) == "" {
			return contractErr(o, "empty query")
		}
		if c.Kind != FindRecords && c.Kind != CountRecords {
			return contractErr(o, "invalid result kind %d", int(c.Kind))
		}
	default:
		return contractErr(o, "unknown command %T", o.Command)
	}

	return checkMode(o)
}

func checkMode(o Operation) error {
	if o.Mode == PolicyUnset {
		return nil
	}
	if _, known := policyNames[o.Mode]; !known {
		return contractErr(o, "invalid conflict policy %d", int(o.Mode))
	}
	switch o.Command.(type) {
	case SaveIDWithType, SaveAttribute:
		return nil
	case DeleteAttribute:
		if o.Mode == DeleteOnly {
			return nil
		}
		return contractErr(o, "delete_attribute_for_id only accepts %s", DeleteOnly)
	}
	return contractErr(o, "conflict policy %s not applicable", o.Mode)
}

func checkIRIs(o Operation, iris ...rdf.IRI) error {
	for _, iri := range iris {
		if !statement.IsAbsoluteIRI(string(iri)) {
			return contractErr(o, "%q is not an absolute IRI", iri)
		}
		if strings.HasPrefix(string(iri), ReservedNamespace) {
			return contractErr(o, "%q is in the reserved namespace %s", iri, ReservedNamespace)
		}
	}
	return nil
}

func checkValue(o Operation, v statement.Value, tag string) error {
	if _, err := statement.NewBuilder(nil).Object(v, tag); err != nil {
		return contractErr(o, "%v", err)
	}
	if tag == statement.TagURI && strings.HasPrefix(v.Lexical, ReservedNamespace) {
		return contractErr(o, "%q is in the reserved namespace %s", v.Lexical, ReservedNamespace)
	}
	return nil
}
