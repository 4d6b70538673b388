package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/rotary_encoder/internal/config"
)

func TestNewCLIOptionalConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	ran := false
	app := NewCLI("console", "test", false, func() error {
		ran = true
		return nil
	})
	require.NoError(t, app.Run([]string{"console"}))
	assert.True(t, ran)
}

func TestNewCLILoadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.txt")
	require.NoError(t, os.WriteFile(path, []byte("TOPIC_ENCODER=test/enc\nENCODER_MOCK=true\n"), 0o644))

	var topic string
	app := NewCLI("producer", "test", true, func() error {
		topic = config.Get().TopicEncoder
		return nil
	})
	require.NoError(t, app.Run([]string{"producer", "--config", path}))
	assert.Equal(t, "test/enc", topic)
}
