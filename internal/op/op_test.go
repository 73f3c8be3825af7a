package op

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/statement"
)

const (
	car  = "https://example.com/cars/1"
	attr = "https://example.com/color"
)

func TestDecode_Vocabulary(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want Operation
	}{
		{
			name: "save id with type",
			desc: Descriptor{ID: "1", Name: NameSaveIDWithType, Content: []any{car, nil, "https://example.com/Car"}},
			want: Operation{ID: "1", Command: SaveIDWithType{ID: car, Type: "https://example.com/Car"}},
		},
		{
			name: "save attribute with policy",
			desc: Descriptor{ID: "2", Name: NameSaveAttribute, Content: []any{car, attr, "red", "string"}, Opts: "APPEND_IF_ABSENT"},
			want: Operation{ID: "2", Command: SaveAttribute{ID: car, Attr: attr, Value: statement.Scalar("red"), Tag: "string"}, Mode: AppendIfAbsent},
		},
		{
			name: "numeric scalar",
			desc: Descriptor{ID: "3", Name: NameSaveAttribute, Content: []any{car, attr, 4, "integer"}},
			want: Operation{ID: "3", Command: SaveAttribute{ID: car, Attr: attr, Value: statement.Scalar("4"), Tag: "integer"}},
		},
		{
			name: "list",
			desc: Descriptor{ID: "4", Name: NameSaveAttribute, Content: []any{car, attr, []any{[]any{"x", "string"}, []any{[]any{[]any{1, "integer"}}, "list"}}, "list"}},
			want: Operation{ID: "4", Command: SaveAttribute{ID: car, Attr: attr, Tag: "list", Value: statement.ListOf(
				statement.Item("x", "string"),
				statement.Entry{Value: statement.ListOf(statement.Item("1", "integer")), Tag: "list"},
			)}},
		},
		{
			name: "delete attribute",
			desc: Descriptor{ID: "5", Name: NameDeleteAttribute, Content: []any{car, attr}},
			want: Operation{ID: "5", Command: DeleteAttribute{ID: car, Attr: attr}},
		},
		{
			name: "conditions",
			desc: Descriptor{ID: "6", Name: NameNotExistingIDCondition, Content: []any{car}},
			want: Operation{ID: "6", Command: NotExistingIDCondition{ID: car}},
		},
		{
			name: "delete all",
			desc: Descriptor{ID: "7", Name: NameDeleteAll},
			want: Operation{ID: "7", Command: DeleteAll{}},
		},
		{
			name: "get data deep",
			desc: Descriptor{ID: "8", Name: NameGetDataForID, Content: []any{car}, Opts: "DEEP"},
			want: Operation{ID: "8", Command: GetDataForID{ID: car, Mode: Deep}},
		},
		{
			name: "raw query",
			desc: Descriptor{ID: "9", Name: NameRunRawQuery, Content: []any{"SELECT ?s WHERE { ?s ?p ?o }", "count_records"}},
			want: Operation{ID: "9", Command: RunRawQuery{Query: "SELECT ?s WHERE { ?s ?p ?o }", Kind: CountRecords}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.desc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_ContractViolations(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
	}{
		{"unknown name", Descriptor{ID: "1", Name: "save_everything"}},
		{"wrong arity", Descriptor{ID: "1", Name: NameDeleteAttribute, Content: []any{car}}},
		{"non-string id", Descriptor{ID: "1", Name: NameAskIfExists, Content: []any{42}}},
		{"relative id", Descriptor{ID: "1", Name: NameAskIfExists, Content: []any{"cars/1"}}},
		{"reserved namespace", Descriptor{ID: "1", Name: NameAskIfExists, Content: []any{"urn:triplegate:lock:x"}}},
		{"bad list entry", Descriptor{ID: "1", Name: NameSaveAttribute, Content: []any{car, attr, []any{"x"}, "list"}}},
		{"unknown policy", Descriptor{ID: "1", Name: NameSaveAttribute, Content: []any{car, attr, "x", ""}, Opts: "SOMETIMES"}},
		{"unknown result kind", Descriptor{ID: "1", Name: NameRunRawQuery, Content: []any{"SELECT * {}", "rows"}}},
		{"list condition", Descriptor{ID: "1", Name: NameAttributeCondition, Content: []any{car, attr, []any{}, "list"}}},
		{"missing id", Descriptor{Name: NameDeleteAll}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.desc)
			require.Error(t, err)
			assert.True(t, IsContractError(err), "got %v", err)
		})
	}
}

func TestValidate_PolicyApplicability(t *testing.T) {
	err := Validate(Operation{ID: "1", Command: DeleteAttribute{ID: car, Attr: attr}, Mode: ReplaceAllPeers})
	assert.True(t, IsContractError(err))

	err = Validate(Operation{ID: "1", Command: AskIfExists{ID: car}, Mode: DeleteOnly})
	assert.True(t, IsContractError(err))

	assert.NoError(t, Validate(Operation{ID: "1", Command: DeleteAttribute{ID: car, Attr: attr}, Mode: DeleteOnly}))
}

func TestPolicy_Defaults(t *testing.T) {
	assert.Equal(t, AppendIfAbsent, Operation{Command: SaveIDWithType{}}.Policy())
	assert.Equal(t, ReplaceAllPeers, Operation{Command: SaveAttribute{}}.Policy())
	assert.Equal(t, DeleteOnly, Operation{Command: DeleteAttribute{}}.Policy())
	assert.Equal(t, ReplacePeersIfValueSetDiffers, Operation{Command: SaveAttribute{}, Mode: ReplacePeersIfValueSetDiffers}.Policy())
}

func TestParsePolicy_RoundTrip(t *testing.T) {
	for _, p := range []ConflictPolicy{ReplaceAllPeers, ReplacePeersIfValueSetDiffers, AppendIfAbsent, DeleteOnly} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryWrite, CategoryOf(SaveAttribute{}))
	assert.Equal(t, CategoryWrite, CategoryOf(DeleteAll{}))
	assert.Equal(t, CategoryRead, CategoryOf(GetDataForID{}))
	assert.Equal(t, CategoryPassThrough, CategoryOf(RunRawQuery{}))
	assert.True(t, IsDestroy(DeleteAttributesForID{}))
	assert.False(t, IsDestroy(DeleteAttribute{}))
}

func queued(ids ...string) []Operation {
	out := make([]Operation, len(ids))
	for i, id := range ids {
		out[i] = Operation{ID: id, Command: AskIfExists{ID: rdf.IRI(car)}}
	}
	return out
}

func TestQueue_ClaimSubsetKeepsOthers(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Enqueue(queued("a", "b", "c")...))

	got := q.Claim("c", "a", "missing")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	q.Complete(got)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, "b", q.Pending()[0].ID)
}

func TestQueue_ClaimedOpsAreInvisible(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Enqueue(queued("a", "b")...))

	first := q.Claim()
	assert.Len(t, first, 2)
	assert.Empty(t, q.Claim())

	q.Release(first)
	assert.Len(t, q.Claim("b"), 1)
}

func TestQueue_RejectsDuplicateIDs(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Enqueue(queued("a")...))
	err := q.Enqueue(queued("b", "a")...)
	assert.True(t, IsContractError(err))
	assert.Equal(t, 1, q.Len())
}

func TestQueue_ConcurrentClaimsDoNotOverlap(t *testing.T) {
	q := NewQueue()
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
	}
	require.NoError(t, q.Enqueue(queued(ids...)...))

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, o := range q.Claim() {
				mu.Lock()
				seen[o.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 100)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}
