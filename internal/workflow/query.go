// Package workflow holds the publishing notification event and its Timer
// filter. The external scheduler hands the run-workflow query arguments to
// the RunWorkflowQueryArgs hook; subscribers only append meta conditions.
package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Meta clause comparison types understood by the workflow query builder.
const (
	TypeChar = "CHAR"
	TypeBool = "BOOL"
)

const metaQueryKey = "meta_query"

// MetaClause requires the workflow's meta value under Key to compare with
// Value using Compare. It encodes in the host's meta_query clause shape.
type MetaClause struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Type    string `json:"type"`
	Compare string `json:"compare"`
}

// ErrMetaQueryShape is returned when meta_query is not a JSON array.
var ErrMetaQueryShape = errors.New("meta_query must be an array")

// QueryArgs are the arguments the scheduler uses to find workflows to run.
// Every top-level argument and every existing meta_query entry is kept as
// the raw JSON it arrived as; only appended conditions are encoded here.
type QueryArgs struct {
	args map[string]json.RawMessage
	meta []json.RawMessage
	// hasMeta is set once meta_query was received or appended to.
	hasMeta bool
}

// NewQueryArgs builds arguments holding only post_type, or nothing when
// postType is empty.
func NewQueryArgs(postType string) QueryArgs {
	q := QueryArgs{args: map[string]json.RawMessage{}}
	if postType != "" {
		q.args["post_type"], _ = json.Marshal(postType)
	}
	return q
}

// Arg returns the raw value of the top-level argument name.
func (q QueryArgs) Arg(name string) (json.RawMessage, bool) {
	if name == metaQueryKey {
		if !q.hasMeta {
			return nil, false
		}
		b, err := json.Marshal(q.metaQuery())
		return b, err == nil
	}
	v, ok := q.args[name]
	return v, ok
}

// MetaQuery returns the raw meta_query entries in order.
func (q QueryArgs) MetaQuery() []json.RawMessage { return slices.Clone(q.meta) }

func (q QueryArgs) metaQuery() []json.RawMessage {
	if q.meta == nil {
		return []json.RawMessage{}
	}
	return q.meta
}

// With returns a copy of q with clause appended to the meta query.
func (q QueryArgs) With(clause MetaClause) (QueryArgs, error) {
	return q.appendMeta(clause)
}

// WithGroup returns a copy of q with clauses appended as one nested
// condition. The combinator of the group is left to the query builder.
func (q QueryArgs) WithGroup(clauses ...MetaClause) (QueryArgs, error) {
	if clauses == nil {
		clauses = []MetaClause{}
	}
	return q.appendMeta(clauses)
}

func (q QueryArgs) appendMeta(v any) (QueryArgs, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return q, fmt.Errorf("encode meta condition: %w", err)
	}
	meta := make([]json.RawMessage, len(q.meta), len(q.meta)+1)
	copy(meta, q.meta)
	q.meta = append(meta, b)
	q.hasMeta = true
	return q, nil
}

// UnmarshalJSON keeps every argument verbatim. A null meta_query is treated
// as absent.
func (q *QueryArgs) UnmarshalJSON(data []byte) error {
	var args map[string]json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return err
	}
	if args == nil {
		args = map[string]json.RawMessage{}
	}
	*q = QueryArgs{args: args}
	raw, ok := args[metaQueryKey]
	if !ok {
		return nil
	}
	delete(args, metaQueryKey)
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	var meta []json.RawMessage
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ErrMetaQueryShape
	}
	q.meta = meta
	q.hasMeta = true
	return nil
}

// MarshalJSON writes the received arguments back with meta_query, when
// present, holding the original entries followed by the appended ones.
func (q QueryArgs) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(q.args)+1)
	maps.Copy(out, q.args)
	if q.hasMeta {
		b, err := json.Marshal(q.metaQuery())
		if err != nil {
			return nil, err
		}
		out[metaQueryKey] = b
	}
	return json.Marshal(out)
}

// ActionArgs describe the post transition that triggered the query.
type ActionArgs struct {
	Action    string `json:"action"`
	PostID    uint64 `json:"post_id,omitempty"`
	NewStatus string `json:"new_status"`
	OldStatus string `json:"old_status,omitempty"`
}
