package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := New(Config{Level: "debug", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", OutputPaths: []string{"stdout"}})
	require.Error(t, err)
}

func TestNamedAndWithKeepWrapper(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &Logger{Logger: zap.New(core)}

	// Both scoping helpers must return the wrapper type so call sites
	// can keep chaining them.
	scoped := log.Named("api").With(zap.String("plugin_id", "com.example.a"))
	scoped.Info("bound")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "api", entries[0].LoggerName)
	assert.Equal(t, "com.example.a", entries[0].ContextMap()["plugin_id"])
}
