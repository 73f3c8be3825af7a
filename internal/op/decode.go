package op

import (
	"fmt"
	"strconv"

	"github.com/roach88/triplegate/internal/jsonld"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/statement"
)

// Descriptor is the wire shape of an operation: a name, positional content
// and an optional opts string (conflict policy for writes, fetch mode for
// get_data_for_id).
type Descriptor struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Content []any  `json:"content" yaml:"content"`
	Opts    string `json:"opts,omitempty" yaml:"opts,omitempty"`
}

// Decode converts a descriptor into a validated Operation. Content arity
// and types are checked per name; any mismatch is a ContractError.
func Decode(d Descriptor) (Operation, error) {
	o := Operation{ID: d.ID}
	fail := func(format string, args ...any) (Operation, error) {
		return Operation{}, &ContractError{OpID: d.ID, Name: d.Name, Message: fmt.Sprintf(format, args...)}
	}
	args := positional{content: d.Content}

	switch d.Name {
	case NameSaveIDWithType:
		if !args.arity(3) {
			return fail("want (id, _, type), got %d values", len(d.Content))
		}
		o.Command = SaveIDWithType{ID: args.iri(0), Type: args.iri(2)}
	case NameSaveAttribute, NameAttributeCondition:
		if !args.arity(4) {
			return fail("want (id, attr, value, type), got %d values", len(d.Content))
		}
		tag := args.str(3)
		v, err := DecodeValue(d.Content[2], tag)
		if err != nil {
			return fail("%v", err)
		}
		if d.Name == NameSaveAttribute {
			o.Command = SaveAttribute{ID: args.iri(0), Attr: args.iri(1), Value: v, Tag: tag}
		} else {
			o.Command = AttributeCondition{ID: args.iri(0), Attr: args.iri(1), Value: v, Tag: tag}
		}
	case NameDeleteAttribute:
		if !args.arity(2) {
			return fail("want (id, attr), got %d values", len(d.Content))
		}
		o.Command = DeleteAttribute{ID: args.iri(0), Attr: args.iri(1)}
	case NameNotExistingIDCondition:
		if !args.arity(1) {
			return fail("want (id), got %d values", len(d.Content))
		}
		o.Command = NotExistingIDCondition{ID: args.iri(0)}
	case NameDeleteAttributesForID:
		if !args.arity(1) {
			return fail("want (id), got %d values", len(d.Content))
		}
		o.Command = DeleteAttributesForID{ID: args.iri(0)}
	case NameDeleteAll:
		if !args.arity(0) {
			return fail("want no content, got %d values", len(d.Content))
		}
		o.Command = DeleteAll{}
	case NameGetDataForID:
		if len(d.Content) < 1 || len(d.Content) > 2 {
			return fail("want (id, context), got %d values", len(d.Content))
		}
		var ctx jsonld.Context
		if len(d.Content) == 2 {
			parsed, err := jsonld.ParseContext(d.Content[1])
			if err != nil {
				return fail("%v", err)
			}
			ctx = parsed
		}
		mode, err := ParseFetchMode(d.Opts)
		if err != nil {
			return fail("%v", err)
		}
		o.Command = GetDataForID{ID: args.iri(0), Context: ctx, Mode: mode}
	case NameAskIfReferenced:
		if !args.arity(1) {
			return fail("want (id), got %d values", len(d.Content))
		}
		o.Command = AskIfReferenced{ID: args.iri(0)}
	case NameAskIfExists:
		if !args.arity(1) {
			return fail("want (id), got %d values", len(d.Content))
		}
		o.Command = AskIfExists{ID: args.iri(0)}
	case NameRunRawQuery:
		if !args.arity(2) {
			return fail("want (query, result_kind), got %d values", len(d.Content))
		}
		kind, err := ParseResultKind(args.str(1))
		if err != nil {
			return fail("%v", err)
		}
		o.Command = RunRawQuery{Query: args.str(0), Kind: kind}
	default:
		return fail("unknown operation name %q", d.Name)
	}

	if err := args.errOr(d); err != nil {
		return Operation{}, err
	}
	if CategoryOf(o.Command) == CategoryWrite {
		mode, err := ParsePolicy(d.Opts)
		if err != nil {
			return fail("%v", err)
		}
		o.Mode = mode
	}
	if err := Validate(o); err != nil {
		return Operation{}, err
	}
	return o, nil
}

// DecodeValue converts decoded content into a statement.Value. Scalars of
// any JSON type become lexical forms. For the "list" tag the content is a
// sequence of [value, type] pairs, possibly nested.
func DecodeValue(raw any, tag string) (statement.Value, error) {
	if tag != statement.TagList {
		lex, ok := lexical(raw)
		if !ok {
			return statement.Value{}, fmt.Errorf("value %v (%T) is not a scalar", raw, raw)
		}
		return statement.Scalar(lex), nil
	}
	items, ok := raw.([]any)
	if !ok {
		return statement.Value{}, fmt.Errorf("list value must be a sequence, got %T", raw)
	}
	entries := make([]statement.Entry, len(items))
	for i, item := range items {
		pair, isPair := item.([]any)
		if !isPair || len(pair) != 2 {
			return statement.Value{}, fmt.Errorf("list entry %d must be a [value, type] pair", i)
		}
		subTag, isString := pair[1].(string)
		if !isString {
			return statement.Value{}, fmt.Errorf("list entry %d: type must be a string", i)
		}
		v, err := DecodeValue(pair[0], subTag)
		if err != nil {
			return statement.Value{}, fmt.Errorf("list entry %d: %w", i, err)
		}
		entries[i] = statement.Entry{Value: v, Tag: subTag}
	}
	return statement.ListOf(entries...), nil
}

func lexical(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	}
	return "", false
}

// positional reads typed arguments and remembers the first type mismatch.
type positional struct {
	content []any
	err     string
}

func (p *positional) arity(n int) bool {
	return len(p.content) == n
}

func (p *positional) str(i int) string {
	s, ok := p.content[i].(string)
	if !ok && p.err == "" {
		p.err = fmt.Sprintf("argument %d must be a string, got %T", i, p.content[i])
	}
	return s
}

func (p *positional) iri(i int) rdf.IRI {
	return rdf.IRI(p.str(i))
}

func (p *positional) errOr(d Descriptor) error {
	if p.err == "" {
		return nil
	}
	return &ContractError{OpID: d.ID, Name: d.Name, Message: p.err}
}
