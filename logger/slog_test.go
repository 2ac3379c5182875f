package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Level(t *testing.T) {
	require := require.New(t)

	t.Setenv("ENV", "")
	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false)

	l.Debug("hidden")
	require.Zero(buf.Len())

	l.Info("shown", "method", "test", "count", 3)
	var rec map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &rec))
	require.Equal("shown", rec["msg"])
	require.Equal("test", rec["method"])
	require.Contains(rec, "ts")

	child := l.With("component", "poller")
	child.SetLevel(DebugLevel)
	require.Equal(DebugLevel, l.Level())

	buf.Reset()
	child.Debug("now visible")
	require.Contains(buf.String(), `"component":"poller"`)
}

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	require.Equal(DebugLevel, ParseLevel("debug"))
	require.Equal(WarnLevel, ParseLevel("warning"))
	require.Equal(FatalLevel, ParseLevel("fatal"))
	require.Equal(InfoLevel, ParseLevel("bogus"))
}

func TestSetDefault(t *testing.T) {
	require := require.New(t)

	prev := GetLogger()
	t.Cleanup(func() { SetDefault(prev) })

	t.Setenv("ENV", "")
	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false)
	SetDefault(l)
	SetDefault(nil)
	require.Same(l, GetLogger())

	Info("through default", "method", "TestSetDefault")
	require.Contains(buf.String(), "through default")

	SetLevel(WarnLevel)
	buf.Reset()
	With("component", "test").Info("dropped")
	require.Zero(buf.Len())
}
