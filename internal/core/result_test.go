package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewResultHasNoContent(t *testing.T) {
	result := NewResult(1)
	assert.Equal(t, ResultNone, result.Status())
	assert.False(t, result.HasContent())
	assert.Zero(t, result.ContentSize())
}

func TestResultContentInvariant(t *testing.T) {
	result := NewResultWithContent(1, ResultSuccess, []byte("data"))
	assert.True(t, result.HasContent())
	assert.Equal(t, "data", string(result.Content()))

	result.SetContent(nil)
	assert.False(t, result.HasContent(), "clearing content must also clear has_content")
	assert.Nil(t, result.Content())
}

func TestResultContentOnEmptyReadReturnsNil(t *testing.T) {
	result := NewResult(1)
	assert.Nil(t, result.Content(), "reading content with has_content=false must not panic")
}

func TestResultSettersMutateInPlace(t *testing.T) {
	result := NewResult(1)
	result.SetTicketID(5)
	result.SetStatus(ResultError)
	result.SetContent([]byte("oops"))

	assert.EqualValues(t, 5, result.TicketID())
	assert.Equal(t, ResultError, result.Status())
	assert.True(t, result.HasContent())
	assert.Equal(t, "oops", string(result.Content()))
}
