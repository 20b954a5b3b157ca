package schema_test

import (
	"reflect"
	"testing"

	"github.com/parley-ai/parley/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SearchType string

const (
	Web   SearchType = "web"
	Image SearchType = "image"
)

type Search struct {
	Topic string     `json:"topic,omitempty" jsonschema:"title=Topic,description=Topic of the search"`
	Query string     `json:"query" jsonschema:"title=Query,description=Query to search for relevant content"`
	Type  SearchType `json:"type" jsonschema:"title=Type,description=Type of search,default=web,enum=web,enum=image"`
}

type Page struct {
	Limit  int     `json:"limit,omitempty"`
	Nested *Search `json:"nested,omitempty"`
}

func TestSchema(t *testing.T) {
	s, err := schema.New(reflect.TypeOf(Search{}))
	require.NoError(t, err)
	require.NotNil(t, s.Parameters)

	assert.Equal(t, "object", s.Parameters.Type)
	assert.Empty(t, s.Parameters.Ref)
	assert.Equal(t, []string{"query", "type"}, s.Parameters.Required)

	// properties preserve declaration order
	var names []string
	for pair := s.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	assert.Equal(t, []string{"topic", "query", "type"}, names)

	q, ok := s.Parameters.Properties.Get("query")
	require.True(t, ok)
	assert.Equal(t, "string", q.Type)
	assert.Equal(t, "Query to search for relevant content", q.Description)

	// cached per type
	s2, err := schema.New(reflect.TypeOf(Search{}))
	require.NoError(t, err)
	assert.Same(t, s, s2)
}

func TestSchema_NestedRefsResolved(t *testing.T) {
	s, err := schema.New(reflect.TypeOf(Page{}))
	require.NoError(t, err)

	nested, ok := s.Parameters.Properties.Get("nested")
	require.True(t, ok)
	assert.Empty(t, nested.Ref)
	require.NotNil(t, nested.Properties)
	_, ok = nested.Properties.Get("query")
	assert.True(t, ok)
}
