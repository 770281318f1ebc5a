package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"notemirror/internal/mirror/domain/entities"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "plain first line", content: "Shopping list\nmilk\neggs", want: "Shopping list"},
		{name: "markdown heading stripped", content: "## Meeting notes\nagenda", want: "Meeting notes"},
		{name: "leading blank lines skipped", content: "\n\n  \nActual title", want: "Actual title"},
		{name: "empty content", content: "", want: ""},
		{name: "whitespace only", content: "  \n\t\n", want: ""},
		{name: "single line", content: "just one line", want: "just one line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note := &entities.Note{Content: tt.content}
			assert.Equal(t, tt.want, note.Title())
		})
	}
}

func TestHasTag_CaseInsensitive(t *testing.T) {
	note := &entities.Note{Tags: []string{"Work", " planning "}}

	assert.True(t, note.HasTag("work"))
	assert.True(t, note.HasTag("PLANNING"))
	assert.False(t, note.HasTag("personal"))
}

func TestClone_IsDeep(t *testing.T) {
	note := &entities.Note{ID: "n1", Content: "original", Tags: []string{"a"}}

	clone := note.Clone()
	clone.Content = "changed"
	clone.Tags[0] = "b"

	assert.Equal(t, "original", note.Content)
	assert.Equal(t, []string{"a"}, note.Tags)
}

func TestTransientErrors(t *testing.T) {
	assert.False(t, entities.IsTransient(assert.AnError))
	assert.True(t, entities.IsTransient(entities.Transient(assert.AnError)))
	assert.Nil(t, entities.Transient(nil))
	assert.ErrorIs(t, entities.Transient(entities.ErrCursorInvalid), entities.ErrCursorInvalid)
}
