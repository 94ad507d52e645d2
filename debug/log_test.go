package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogIsSilentUntilEnabled(t *testing.T) {
	Disable()
	var buf bytes.Buffer
	Log("ctrl", "dropped %d", 1)
	assert.Empty(t, buf.String())
	assert.False(t, Enabled())

	EnableWriter(&buf)
	defer Disable()
	assert.True(t, Enabled())

	Log("ctrl", "song=%d", 2)
	assert.Contains(t, buf.String(), "cat=ctrl")
	assert.Contains(t, buf.String(), "song=2")
}

func TestLogEveryThrottles(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(&buf)
	defer Disable()

	for i := 0; i < 10; i++ {
		LogEvery(5, "tick", "beat")
	}
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("cat=tick")))
}
