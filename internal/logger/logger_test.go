package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		" ERROR ": zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	for _, s := range []string{"unknown", "fatal", "panic"} {
		_, ok := ParseLogLevel(s)
		require.False(t, ok, s)
	}
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithKV_AttachesFields checks that scoped fields reach the underlying core.
func TestWithKV_AttachesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "prebuild")
	ctx = WithKV(ctx, "package", "linux-x64")

	InfoKV(ctx, "Extracted archive", "files", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "prebuild", entries[0].LoggerName)
	require.Equal(t, "linux-x64", entries[0].ContextMap()["package"])
	require.EqualValues(t, 3, entries[0].ContextMap()["files"])
}

// TestNewWithWriter_Plain writes uncolored console lines with the logger name.
func TestNewWithWriter_Plain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithWriter(&buf, zapcore.WarnLevel, false).Named("packager")
	l.Infow("hidden")
	l.Warnw("Replacing existing package", "package", "linux-x64")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "packager")
	require.Contains(t, out, `{"package": "linux-x64"}`)
	require.NotContains(t, out, "\x1b[")
}
