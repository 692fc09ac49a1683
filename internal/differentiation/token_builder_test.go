package differentiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTokenIsDeterministic(t *testing.T) {
	builder := NewTokenBuilder(SchemeMurmur3x86_32)
	key := appendInt64(nil, 7)

	first := builder.BuildToken(key)
	second := builder.BuildToken(key)
	assert.Equal(t, first, second)
}

func TestBuildTokenEmptyKeyIsDeterministic(t *testing.T) {
	builder := NewTokenBuilder(SchemeMurmur3x86_32)
	assert.Equal(t, builder.BuildToken(nil), builder.BuildToken([]byte{}))
}

func TestBuildTokenDiffersAcrossSchemes(t *testing.T) {
	key := appendInt64(nil, 123)
	x86_32 := NewTokenBuilder(SchemeMurmur3x86_32).BuildToken(key)
	x86_128 := NewTokenBuilder(SchemeMurmur3x86_128).BuildToken(key)
	x64_128 := NewTokenBuilder(SchemeMurmur3x64_128).BuildToken(key)

	assert.NotEqual(t, x86_32, x86_128, "distinct schemes should not coincidentally collide on this key")
	assert.NotEqual(t, x86_32, x64_128)
}

func TestBuildTokenDiffersAcrossKeys(t *testing.T) {
	builder := NewTokenBuilder(SchemeMurmur3x86_32)
	assert.NotEqual(t, builder.BuildToken(appendInt64(nil, 1)), builder.BuildToken(appendInt64(nil, 2)))
}
