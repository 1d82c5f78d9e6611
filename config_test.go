package rfdecode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
input:
  path: capture.raw
  format: pcm16
  sample_rate: 48000
  center_freq: 144800000
decoders:
  - id: aprs
  - id: pocsag
    params:
      baud: 512
      inverted: true
mqtt:
  enabled: true
  broker: tcp://localhost:1883
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "capture.raw", config.Input.Path)
	assert.Equal(t, 48000, config.Input.SampleRate)
	assert.Equal(t, uint64(144_800_000), config.Input.CenterFreq)
	require.Len(t, config.Decoders, 2)
	assert.Equal(t, "aprs", config.Decoders[0].ID)
	assert.Equal(t, 512, config.Decoders[1].Params["baud"])
	assert.Equal(t, true, config.Decoders[1].Params["inverted"])

	// Defaults applied after validation.
	assert.Equal(t, 4096, config.Input.ChunkSize)
	assert.Equal(t, DefaultQueueSize, config.Dispatcher.QueueSize)
	assert.Equal(t, "rfdecode", config.MQTT.TopicPrefix)
	assert.Equal(t, ":9090", config.Metrics.Listen)
	assert.Equal(t, ":8081", config.Feed.Listen)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"missing input path": `
input:
  format: pcm16
  sample_rate: 48000
decoders: [{id: aprs}]
`,
		"bad format": `
input: {path: x.raw, format: wav, sample_rate: 48000}
decoders: [{id: aprs}]
`,
		"bad sample rate": `
input: {path: x.raw, format: pcm16, sample_rate: 0}
decoders: [{id: aprs}]
`,
		"no decoders": `
input: {path: x.raw, format: pcm16, sample_rate: 48000}
`,
		"decoder without id": `
input: {path: x.raw, format: pcm16, sample_rate: 48000}
decoders: [{params: {baud: 1200}}]
`,
		"mqtt without broker": `
input: {path: x.raw, format: pcm16, sample_rate: 48000}
decoders: [{id: aprs}]
mqtt: {enabled: true}
`,
		"message log without path": `
input: {path: x.raw, format: pcm16, sample_rate: 48000}
decoders: [{id: aprs}]
message_log: {enabled: true}
`,
	}

	for name, body := range cases {
		_, err := LoadConfig(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "input: [unclosed"))
	assert.Error(t, err)
}
