package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notemirror/internal/mirror/search"
)

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "dangling AND", query: "project AND"},
		{name: "leading OR", query: "OR project"},
		{name: "dangling NOT", query: "project NOT"},
		{name: "unbalanced open paren", query: "(project AND kickoff"},
		{name: "unbalanced close paren", query: "project)"},
		{name: "unterminated phrase", query: `"project kickoff`},
		{name: "empty tag value", query: "tag:"},
		{name: "empty parens", query: "()"},
		{name: "bad date", query: "from:yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := search.Parse(tt.query)

			require.Error(t, err)
			var syntaxErr *search.SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
		})
	}
}

func TestParse_ValidQueries(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "single term", query: "project"},
		{name: "implicit and", query: "project kickoff"},
		{name: "explicit operators", query: "a AND b OR NOT c"},
		{name: "lowercase keywords", query: "a and b or not c"},
		{name: "nested parens", query: "((a OR b) AND (c OR d))"},
		{name: "phrase", query: `"hello world"`},
		{name: "tag and dates", query: "tag:work from:2025-01-01 to:2025-12-31"},
		{name: "rfc3339 date", query: "date:2025-01-01T10:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := search.Parse(tt.query)

			require.NoError(t, err)
			assert.NotNil(t, node)
		})
	}
}

func TestParse_EmptyQuery(t *testing.T) {
	node, err := search.Parse("")

	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestParse_ErrorCarriesPosition(t *testing.T) {
	_, err := search.Parse("project AND")

	var syntaxErr *search.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Greater(t, syntaxErr.Pos, 0)
}
