package rdf

import "strings"

// Namespaces of the W3C vocabularies the engine relies on.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
	OWLNamespace  = "http://www.w3.org/2002/07/owl#"
)

// RDF terms.
const (
	RDFType       IRI = RDFNamespace + "type"
	RDFFirst      IRI = RDFNamespace + "first"
	RDFRest       IRI = RDFNamespace + "rest"
	RDFNil        IRI = RDFNamespace + "nil"
	RDFLangString IRI = RDFNamespace + "langString"
)

// XSD datatypes.
const (
	XSDString             IRI = XSDNamespace + "string"
	XSDBoolean            IRI = XSDNamespace + "boolean"
	XSDInteger            IRI = XSDNamespace + "integer"
	XSDInt                IRI = XSDNamespace + "int"
	XSDLong               IRI = XSDNamespace + "long"
	XSDShort              IRI = XSDNamespace + "short"
	XSDByte               IRI = XSDNamespace + "byte"
	XSDNonNegativeInteger IRI = XSDNamespace + "nonNegativeInteger"
	XSDPositiveInteger    IRI = XSDNamespace + "positiveInteger"
	XSDNegativeInteger    IRI = XSDNamespace + "negativeInteger"
	XSDUnsignedInt        IRI = XSDNamespace + "unsignedInt"
	XSDUnsignedLong       IRI = XSDNamespace + "unsignedLong"
	XSDDecimal            IRI = XSDNamespace + "decimal"
	XSDFloat              IRI = XSDNamespace + "float"
	XSDDouble             IRI = XSDNamespace + "double"
	XSDDate               IRI = XSDNamespace + "date"
	XSDDateTime           IRI = XSDNamespace + "dateTime"
	XSDTime               IRI = XSDNamespace + "time"
	XSDDuration           IRI = XSDNamespace + "duration"
	XSDAnyURI             IRI = XSDNamespace + "anyURI"
)

// wellKnownPrefixes maps the CURIE prefixes accepted in type tags.
var wellKnownPrefixes = map[string]string{
	"rdf":  RDFNamespace,
	"rdfs": RDFSNamespace,
	"xsd":  XSDNamespace,
	"owl":  OWLNamespace,
}

// wellKnownTerms lists the datatype IRIs that may be named by local name
// alone ("integer", "dateTime", ...).
var wellKnownTerms = func() map[string]IRI {
	m := make(map[string]IRI)
	for _, dt := range []IRI{
		XSDString, XSDBoolean, XSDInteger, XSDInt, XSDLong, XSDShort, XSDByte,
		XSDNonNegativeInteger, XSDPositiveInteger, XSDNegativeInteger,
		XSDUnsignedInt, XSDUnsignedLong, XSDDecimal, XSDFloat, XSDDouble,
		XSDDate, XSDDateTime, XSDTime, XSDDuration, XSDAnyURI, RDFLangString,
	} {
		m[string(dt)] = dt
		m[localName(string(dt))] = dt
	}
	return m
}()

// LookupDatatype resolves a type tag against the well-known vocabulary table.
// It accepts full IRIs of known terms, CURIEs with a known prefix
// ("xsd:integer") and bare XSD local names ("integer"). The boolean result
// is false when the tag is not a known term.
func LookupDatatype(tag string) (IRI, bool) {
	if dt, ok := wellKnownTerms[tag]; ok {
		return dt, true
	}
	if prefix, local, ok := strings.Cut(tag, ":"); ok {
		if ns, known := wellKnownPrefixes[prefix]; known && !strings.HasPrefix(local, "//") {
			return IRI(ns + local), true
		}
	}
	return "", false
}

// localName returns the part of an IRI after the last '#' or '/'.
func localName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

// SplitNamespace splits an IRI at its last '#' or '/' into namespace and
// local name. ok is false if there is no separator or the local part is empty.
func SplitNamespace(iri IRI) (namespace, local string, ok bool) {
	s := string(iri)
	i := strings.LastIndexAny(s, "#/")
	if i < 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i+1], s[i+1:], true
}
