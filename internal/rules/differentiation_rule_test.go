package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifferentiationTableInsertIsIdempotentByID(t *testing.T) {
	table := NewDifferentiationTable()
	require.True(t, table.Insert(NewDifferentiationRule(1, DifferentiationChannel, 1, -1, 0, 1, 2)))
	assert.False(t, table.Insert(NewDifferentiationRule(1, DifferentiationEnforcementObject, 9, 9, 9, 9, 9)))

	all := table.All()
	require.Len(t, all, 1)
	assert.Equal(t, DifferentiationChannel, all[0].Type)
}

func TestDifferentiationTableSize(t *testing.T) {
	table := NewDifferentiationTable()
	table.Insert(NewDifferentiationRule(1, DifferentiationChannel, 1, -1, 0, 0, 0))
	table.Insert(NewDifferentiationRule(2, DifferentiationEnforcementObject, 1, 1, 0, 0, 0))
	assert.Equal(t, 2, table.Size())
}

func TestDifferentiationTableRemove(t *testing.T) {
	table := NewDifferentiationTable()
	table.Insert(NewDifferentiationRule(1, DifferentiationChannel, 1, -1, 0, 0, 0))

	assert.True(t, table.Remove(1))
	assert.Equal(t, 0, table.Size())
	assert.False(t, table.Remove(1), "removing an already-removed id returns false")
}
