package remote

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// results is the application/sparql-results+json document.
type results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean,omitempty"`
	Results *struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results,omitempty"`
}

// binding is one RDF term in a result row.
type binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

func (r results) solutions() ([]sparql.Solution, error) {
	if r.Results == nil {
		return []sparql.Solution{}, nil
	}
	out := make([]sparql.Solution, 0, len(r.Results.Bindings))
	for i, row := range r.Results.Bindings {
		sol := make(sparql.Solution, len(row))
		for name, b := range row {
			t, err := b.term()
			if err != nil {
				return nil, fmt.Errorf("row %d ?%s: %w", i, name, err)
			}
			sol[name] = t
		}
		out = append(out, sol)
	}
	return out, nil
}

func (b binding) term() (rdf.Term, error) {
	switch b.Type {
	case "uri":
		return rdf.IRI(b.Value), nil
	case "bnode":
		return rdf.BlankNode(b.Value), nil
	case "literal", "typed-literal":
		if b.Lang != "" {
			return rdf.NewLangLiteral(b.Value, b.Lang), nil
		}
		return rdf.NewLiteral(b.Value, rdf.IRI(b.Datatype)), nil
	}
	return nil, fmt.Errorf("%w: binding type %q", rdf.ErrMalformedTerm, b.Type)
}

// Virtuoso update reports. The graph IRI is matched explicitly so digits in
// it are never taken for counts.
var (
	reInsert = regexp.MustCompile(`^Insert into <[^>]*>, (\d+)`)
	reDelete = regexp.MustCompile(`^Delete from <[^>]*>, (\d+)`)
	reModify = regexp.MustCompile(`^Modify <[^>]*>, delete (\d+) (?:\(or less\) )?(?:triples )?and insert (\d+)`)
)

// ParseReport extracts mutation counts from an update response body.
//
// Every string value in the JSON results is tried against the known report
// forms and the counts are summed. If no value matches, the report is
// unavailable.
func ParseReport(body []byte) backend.Report {
	var res results
	if err := json.Unmarshal(body, &res); err != nil || res.Results == nil {
		return backend.Report{}
	}

	var report backend.Report
	for _, row := range res.Results.Bindings {
		for _, b := range row {
			for _, line := range strings.Split(b.Value, "\n") {
				if r, ok := parseReportLine(strings.TrimSpace(line)); ok {
					report.Deleted += r.Deleted
					report.Inserted += r.Inserted
					report.Available = true
				}
			}
		}
	}
	return report
}

func parseReportLine(s string) (backend.Report, bool) {
	if m := reModify.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		i, _ := strconv.Atoi(m[2])
		return backend.Report{Deleted: d, Inserted: i, Available: true}, true
	}
	if m := reInsert.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return backend.Report{Inserted: n, Available: true}, true
	}
	if m := reDelete.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return backend.Report{Deleted: n, Available: true}, true
	}
	return backend.Report{}, false
}
