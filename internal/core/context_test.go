package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewContextAccessors(t *testing.T) {
	ctx := NewContext(42, 7, 3, 4096, 2)

	assert.EqualValues(t, 42, ctx.WorkflowID())
	assert.Equal(t, 7, ctx.OperationType())
	assert.Equal(t, 3, ctx.OperationContext())
	assert.EqualValues(t, 4096, ctx.OperationSize())
	assert.Equal(t, 2, ctx.TotalOperations())
}

func TestContextStringLayout(t *testing.T) {
	ctx := NewContext(1, 2, 3, 4, 5)
	assert.Equal(t, "Context {1, 2, 3, 4, 5}", ctx.String())
}
