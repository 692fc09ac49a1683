package stage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInfoPopulatesProcessMetadata(t *testing.T) {
	info := NewInfo("my-stage", "opt-a")
	assert.Equal(t, "my-stage", info.Name)
	assert.Equal(t, "opt-a", info.Opt)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, os.Getppid(), info.PPID)
}

func TestInfoStringIncludesNameAndPID(t *testing.T) {
	info := NewInfo("my-stage", "opt-a")
	s := info.String()
	assert.Contains(t, s, "my-stage")
	assert.Contains(t, s, "opt-a")
}
