package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// markerAttempts bounds the search for an unused marker subject.
const markerAttempts = 3

var errMarkerCollision = errors.New("no unused marker subject")

type attrKey struct {
	s, p rdf.IRI
}

// attrPlan collects the batch's intent for one attribute.
type attrPlan struct {
	key      attrKey
	policy   op.ConflictPolicy
	first    op.Operation
	incoming []rdf.Term
}

// apply decides which current values to delete and which incoming values
// to insert.
func (a *attrPlan) apply(current []rdf.Term) (del, ins []rdf.Term) {
	incoming := uniqueTerms(a.incoming)
	switch a.policy {
	case op.ReplaceAllPeers:
		return current, incoming
	case op.ReplacePeersIfValueSetDiffers:
		if sameSet(current, incoming) {
			return nil, nil
		}
		return current, incoming
	case op.AppendIfAbsent:
		have := termSet(current)
		for _, v := range incoming {
			if !have[v.String()] {
				ins = append(ins, v)
			}
		}
		return nil, ins
	case op.DeleteOnly:
		return current, nil
	}
	return nil, nil
}

// savePlan is the validated content of a save batch. Current values are
// read when the plan is staged.
type savePlan struct {
	attrs []*attrPlan
	conds []sparql.Element
}

func keyOf(c op.Command) (attrKey, bool) {
	switch c := c.(type) {
	case op.SaveIDWithType:
		return attrKey{c.ID, rdf.RDFType}, true
	case op.SaveAttribute:
		return attrKey{c.ID, c.Attr}, true
	case op.DeleteAttribute:
		return attrKey{c.ID, c.Attr}, true
	}
	return attrKey{}, false
}

// clearsAll reports whether a policy deletes every current value
// unconditionally.
func clearsAll(p op.ConflictPolicy) bool {
	return p == op.ReplaceAllPeers || p == op.DeleteOnly
}

// prepareSaves builds the values of a save batch and groups them by
// attribute. Two operations on one attribute must use the same policy;
// REPLACE_ALL_PEERS and DELETE_ONLY may be combined and then act as
// REPLACE_ALL_PEERS.
func (r *Runner) prepareSaves(saves []op.Operation) (*savePlan, error) {
	plan := &savePlan{}
	byKey := make(map[attrKey]*attrPlan)

	for _, o := range saves {
		if key, ok := keyOf(o.Command); ok {
			a, seen := byKey[key]
			switch {
			case !seen:
				a = &attrPlan{key: key, policy: o.Policy(), first: o}
				byKey[key] = a
				plan.attrs = append(plan.attrs, a)
			case a.policy == o.Policy():
			case clearsAll(a.policy) && clearsAll(o.Policy()):
				a.policy = op.ReplaceAllPeers
			default:
				return nil, &op.ContractError{
					OpID: o.ID,
					Name: o.Name(),
					Message: fmt.Sprintf("policy %s for <%s> <%s> conflicts with %s of operation %s",
						o.Policy(), key.s, key.p, a.first.Policy(), a.first.ID),
				}
			}
		}

		switch c := o.Command.(type) {
		case op.SaveIDWithType:
			a := byKey[attrKey{c.ID, rdf.RDFType}]
			a.incoming = append(a.incoming, c.Type)
		case op.SaveAttribute:
			t, err := r.builder.Build(c.ID, c.Attr, c.Value, c.Tag)
			if err != nil {
				return nil, &op.ContractError{OpID: o.ID, Name: o.Name(), Message: err.Error()}
			}
			a := byKey[attrKey{c.ID, c.Attr}]
			a.incoming = append(a.incoming, t.O)
		case op.AttributeCondition:
			obj, err := r.builder.Object(c.Value, c.Tag)
			if err != nil {
				return nil, &op.ContractError{OpID: o.ID, Name: o.Name(), Message: err.Error()}
			}
			plan.conds = append(plan.conds, sparql.Pattern(c.ID, c.Attr, obj))
		case op.NotExistingIDCondition:
			plan.conds = append(plan.conds, sparql.SubjectAbsent(c.ID))
		}
	}
	return plan, nil
}

// stage reads the current values of every planned attribute and merges the
// batch into one guarded write.
func (r *Runner) stage(ctx context.Context, plan *savePlan) (sparql.Write, error) {
	var w sparql.Write
	where := append([]sparql.Element(nil), plan.conds...)
	n := 0

	for _, a := range plan.attrs {
		current, err := r.reader.Values(ctx, a.key.s, a.key.p)
		if err != nil {
			return sparql.Write{}, fmt.Errorf("read <%s> <%s>: %w", a.key.s, a.key.p, err)
		}
		del, ins := a.apply(current)
		for _, v := range del {
			n++
			tmpl, extra := deletion(a.key, v, strconv.Itoa(n))
			w.Delete = append(w.Delete, tmpl...)
			where = append(where, extra...)
		}
		for _, v := range ins {
			w.Insert = append(w.Insert, rdf.T(a.key.s, a.key.p, v))
		}
	}

	if !anchored(where) {
		where = append([]sparql.Element{sparql.AnyTriple()}, where...)
	}
	w.Where = where
	return w, nil
}

// deletion returns the template and WHERE elements removing value v. A
// blank node that did not resolve to a list cannot be named in a template
// and is matched through a variable instead.
func deletion(key attrKey, v rdf.Term, suffix string) ([]rdf.Triple, []sparql.Element) {
	if _, dangling := v.(rdf.BlankNode); dangling {
		x := rdf.Variable("dangling_" + suffix)
		return []rdf.Triple{rdf.T(key.s, key.p, x)}, []sparql.Element{sparql.Pattern(key.s, key.p, x)}
	}
	return sparql.DeleteValue(key.s, key.p, v, suffix)
}

// anchored reports whether elems contain a positive pattern.
func anchored(elems []sparql.Element) bool {
	for _, e := range elems {
		switch e.(type) {
		case sparql.TriplePattern, sparql.PathPattern:
			return true
		}
	}
	return false
}

func (r *Runner) save(ctx context.Context, plan *savePlan) op.Result {
	return r.critical(func() op.Result {
		w, err := r.stage(ctx, plan)
		if err != nil {
			return backendFailure(err)
		}

		ok, err := r.backend.Ask(ctx, w.Guard())
		if err != nil {
			return backendFailure(err)
		}
		if !ok {
			return op.Fail(op.CodeDirty, op.MessageDirty)
		}
		if w.IsEmpty() {
			return op.OK(op.Counts{})
		}

		chains := w.HasChains()
		var marker rdf.Triple
		if chains {
			if marker, err = r.marker(ctx); err != nil {
				return backendFailure(err)
			}
		}

		report, err := r.update(ctx, KindSave, w.Statements(marker)...)
		if err != nil {
			return backendFailure(err)
		}
		if !report.Available {
			return op.Fail(op.CodeReportUnavailable, op.MessageReportUnavailable)
		}
		if chains {
			report.Deleted = max(report.Deleted-1, 0)
			report.Inserted = max(report.Inserted-1, 0)
		}
		return op.OK(op.Counts{Deleted: report.Deleted, Inserted: report.Inserted})
	})
}

// marker returns a marker triple whose subject is not in use.
func (r *Runner) marker(ctx context.Context) (rdf.Triple, error) {
	for range markerAttempts {
		m := Marker(r.tokens.Generate())
		taken, err := r.backend.Ask(ctx, sparql.Ask{Where: []sparql.Element{
			sparql.Pattern(m.S, rdf.Variable("p"), rdf.Variable("o")),
		}})
		if err != nil {
			return rdf.Triple{}, fmt.Errorf("check marker: %w", err)
		}
		if !taken {
			return m, nil
		}
		r.logger.Warn("marker subject in use", "subject", m.S.String())
	}
	return rdf.Triple{}, errMarkerCollision
}

func uniqueTerms(ts []rdf.Term) []rdf.Term {
	seen := make(map[string]bool, len(ts))
	out := make([]rdf.Term, 0, len(ts))
	for _, t := range ts {
		if k := t.String(); !seen[k] {
			seen[k] = true
			out = append(out, t)
		}
	}
	return out
}

func termSet(ts []rdf.Term) map[string]bool {
	m := make(map[string]bool, len(ts))
	for _, t := range ts {
		m[t.String()] = true
	}
	return m
}

func sameSet(a, b []rdf.Term) bool {
	as, bs := termSet(a), termSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if !bs[k] {
			return false
		}
	}
	return true
}
