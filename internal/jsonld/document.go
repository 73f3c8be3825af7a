package jsonld

// Document is a node object: "@id", "@type" and one key per attribute.
// Values are native scalars, nested Documents, references of the form
// {"@id": iri} or []any for multi-valued and list attributes.
type Document map[string]any

// ID returns the node identifier.
func (d Document) ID() string {
	id, _ := d[KeyID].(string)
	return id
}

// Types returns the "@type" values, whether stored as a string or a list.
func (d Document) Types() []string {
	switch t := d[KeyType].(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Ref returns a bare node reference.
func Ref(id string) Document {
	return Document{KeyID: id}
}

// IsRef reports whether v is a bare {"@id": ...} reference.
func IsRef(v any) bool {
	d, ok := v.(Document)
	if !ok {
		return false
	}
	_, hasID := d[KeyID]
	return hasID && len(d) == 1
}
