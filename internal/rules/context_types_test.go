package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextTypeFromStringKnownTokens(t *testing.T) {
	tests := []struct {
		token string
		want  ContextType
	}{
		{"PAIO_GENERAL", ContextPAIOGeneral},
		{"POSIX", ContextPOSIX},
		{"POSIX_META", ContextPOSIXMeta},
		{"LSM_KVS_SIMPLE", ContextLSMKVSSimple},
		{"LSM_KVS_DETAILED", ContextLSMKVSDetailed},
		{"KVS", ContextKVS},
	}
	for _, tt := range tests {
		got, ok := ContextTypeFromString(tt.token)
		assert.True(t, ok, tt.token)
		assert.Equal(t, tt.want, got, tt.token)
	}
}

func TestContextTypeFromStringUnknownToken(t *testing.T) {
	_, ok := ContextTypeFromString("not_a_real_context")
	assert.False(t, ok)
}

func TestConvertDifferentiationDefinitionPOSIX(t *testing.T) {
	assert.EqualValues(t, 0, ConvertDifferentiationDefinition(ContextPOSIX, "no_op"))
	assert.EqualValues(t, 1, ConvertDifferentiationDefinition(ContextPOSIX, "read"))
	assert.EqualValues(t, -1, ConvertDifferentiationDefinition(ContextPOSIX, "not_a_real_operation"))
}

func TestConvertDifferentiationDefinitionKVS(t *testing.T) {
	assert.EqualValues(t, 1, ConvertDifferentiationDefinition(ContextKVS, "put"))
	assert.EqualValues(t, 2, ConvertDifferentiationDefinition(ContextKVS, "get"))
}

func TestConvertDifferentiationDefinitionUnknownContextType(t *testing.T) {
	assert.EqualValues(t, -1, ConvertDifferentiationDefinition(ContextType(99), "anything"))
}
