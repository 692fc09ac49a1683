package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageSPIFFEIDFormat(t *testing.T) {
	id := StageSPIFFEID("example.org", "my-stage")
	assert.Equal(t, "spiffe://example.org/stage/my-stage", id)
}

func TestCertHashIsDeterministicAndSensitiveToInput(t *testing.T) {
	a := certHash([]byte("certificate-a"))
	b := certHash([]byte("certificate-a"))
	c := certHash([]byte("certificate-b"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCertHashUsesFirstEightHashBytes(t *testing.T) {
	h := certHash(nil)
	assert.NotZero(t, h)
}
