package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("panic")
	require.False(t, ok)
}

// TestContextHelpers verifies that the logger travels through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	base := New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), base)
	require.Same(t, base, FromContext(ctx))

	named := WithName(ctx, "lifecycle")
	require.NotSame(t, base, FromContext(named))

	require.Equal(t, ctx, WithFields(ctx, nil))
	require.NotNil(t, FromContext(WithKV(ctx, "alarm_id", "a1")))
	require.NotNil(t, FromContext(context.Background()))
}
