package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApplication(t *testing.T) {
	config := Config{
		Frequency:  DefaultFrequency,
		SampleRate: DefaultSampleRate,
		Gain:       DefaultGain,
		LogDir:     "./test_logs",
	}

	application := NewApplication(config)

	assert.NotNil(t, application)
	assert.NotNil(t, application.logger)
	assert.NotNil(t, application.ctx)
}

func TestNewApplication_Verbose(t *testing.T) {
	application := NewApplication(Config{Verbose: true, LogDir: "./test_logs"})
	assert.NotNil(t, application)
}

func TestInitializeComponents_FileSource(t *testing.T) {
	tmpDir := t.TempDir()
	samplePath := tmpDir + "/iq.bin"
	require.NoError(t, os.WriteFile(samplePath, make([]byte, 1024), 0o644))

	config := Config{
		LogDir:     tmpDir + "/logs",
		FilePath:   samplePath,
		RawOutPort: 0,
		RawInPort:  0,
		SBSOutPort: 0,
		SBSInPort:  0,
		HTTPAddr:   "127.0.0.1:0",
	}

	application := NewApplication(config)
	err := application.initializeComponents()
	require.NoError(t, err)

	assert.NotNil(t, application.metrics)
	assert.NotNil(t, application.icaoCache)
	assert.NotNil(t, application.decoder)
	assert.NotNil(t, application.tracker)
	assert.NotNil(t, application.source)
	assert.NotNil(t, application.multiplexer)
	assert.NotNil(t, application.httpServer)
	assert.NotNil(t, application.router)

	if application.logRotator != nil {
		application.logRotator.Close()
	}
}

func TestShowVersion(t *testing.T) {
	assert.NotPanics(t, func() {
		ShowVersion()
	})
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.RemoveAll("./test_logs")
	os.Exit(code)
}
