package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/akeren/go-rest-starter/internal/reqctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level string) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	fallback := &bytes.Buffer{}
	lvl, _ := ParseLevel(level)
	return NewLogger(Options{Level: lvl, Output: out, Fallback: fallback}), out, fallback
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		records = append(records, rec)
	}
	return records
}

func TestLogger_RecordShape(t *testing.T) {
	logger, out, _ := newBufferedLogger("info")

	logger.Info("hello", "k", "v")

	records := decodeLines(t, out)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "hello", rec["message"])
	assert.Equal(t, "v", rec["k"])
	assert.NotEmpty(t, rec["timestamp"])
	assert.NotContains(t, rec, "requestId")
	assert.NotContains(t, rec, "time")
	assert.NotContains(t, rec, "msg")
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, out, _ := newBufferedLogger("warn")

	logger.Debug("d")
	logger.Verbose("v")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	records := decodeLines(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "warn", records[0]["level"])
	assert.Equal(t, "error", records[1]["level"])
}

func TestLogger_VerboseSitsBetweenDebugAndInfo(t *testing.T) {
	logger, out, _ := newBufferedLogger("verbose")

	logger.Debug("d")
	logger.Verbose("v")
	logger.Info("i")

	records := decodeLines(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "verbose", records[0]["level"])
	assert.Equal(t, "info", records[1]["level"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		level  string
		ok     bool
		expect string
	}{
		"debug":   {"debug", true, "debug"},
		"verbose": {"verbose", true, "verbose"},
		"log":     {"log", true, "info"},
		"INFO":    {"INFO", true, "info"},
		"warning": {"warning", true, "warn"},
		"error":   {"error", true, "error"},
		"unknown": {"loud", false, "info"},
		"empty":   {"", false, "info"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			lvl, ok := ParseLevel(tc.level)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expect, levelName(lvl))
		})
	}
}

func TestLogger_MergesRequestContext(t *testing.T) {
	logger, out, _ := newBufferedLogger("info")

	ctx, release := reqctx.Open(context.Background(), "abc-123", map[string]any{"method": "GET"})
	defer release()

	logger.InfoContext(ctx, "inside")

	records := decodeLines(t, out)
	require.Len(t, records, 1)
	assert.Equal(t, "abc-123", records[0]["requestId"])
	assert.Equal(t, "GET", records[0]["method"])
}

func TestLogger_CallSiteFieldsOverrideContext(t *testing.T) {
	logger, out, _ := newBufferedLogger("info")

	ctx, release := reqctx.Open(context.Background(), "abc-123", map[string]any{"path": "/from-context"})
	defer release()

	logger.InfoContext(ctx, "override", "path", "/from-call")

	raw := out.String()
	assert.Equal(t, 1, strings.Count(raw, `"path"`))

	records := decodeLines(t, out)
	require.Len(t, records, 1)
	assert.Equal(t, "/from-call", records[0]["path"])
	assert.Equal(t, "abc-123", records[0]["requestId"])
}

func TestLogger_WithRequestContextBindsScope(t *testing.T) {
	logger, out, _ := newBufferedLogger("info")

	ctx, release := reqctx.Open(context.Background(), "bound-1", nil)
	bound := logger.WithRequestContext(ctx)

	bound.Info("while open")
	_ = reqctx.Set(ctx, "userId", "u-7")
	bound.Info("after metadata")
	release()
	bound.Info("after release")

	records := decodeLines(t, out)
	require.Len(t, records, 3)
	assert.Equal(t, "bound-1", records[0]["requestId"])
	assert.Equal(t, "u-7", records[1]["userId"])
	assert.NotContains(t, records[2], "requestId")
}

func TestLogger_WithRequestContextOutsideScope(t *testing.T) {
	logger, _, _ := newBufferedLogger("info")
	assert.Same(t, logger, logger.WithRequestContext(context.Background()))
}

func TestLogger_WithAttrsOverrideContext(t *testing.T) {
	logger, out, _ := newBufferedLogger("info")

	ctx, release := reqctx.Open(context.Background(), "r-1", map[string]any{"component": "ctx"})
	defer release()

	logger.With("component", "service").InfoContext(ctx, "x")

	records := decodeLines(t, out)
	require.Len(t, records, 1)
	assert.Equal(t, "service", records[0]["component"])
	assert.Equal(t, 1, strings.Count(out.String(), `"component"`))
}

func TestLogger_ReservedKeysDoNotShadowFixedFields(t *testing.T) {
	logger, out, fallback := newBufferedLogger("info")

	ctx, release := reqctx.Open(context.Background(), "r-2", map[string]any{"message": "from-scope"})
	defer release()

	logger.With("timestamp", "yesterday").InfoContext(ctx, "real message",
		"level", "custom", "time", "noon", "msg", "other")

	raw := out.String()
	for _, key := range []string{`"timestamp"`, `"level"`, `"message"`} {
		assert.Equal(t, 1, strings.Count(raw, key), key)
	}
	assert.Empty(t, fallback.String())

	records := decodeLines(t, out)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "real message", rec["message"])
	assert.NotEqual(t, "yesterday", rec["timestamp"])
	assert.Equal(t, "custom", rec["fields.level"])
	assert.Equal(t, "yesterday", rec["fields.timestamp"])
	assert.Equal(t, "from-scope", rec["fields.message"])
	assert.Equal(t, "noon", rec["fields.time"])
	assert.Equal(t, "other", rec["fields.msg"])
	assert.Equal(t, "r-2", rec["requestId"])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLogger_SinkFailureFallsBack(t *testing.T) {
	fallback := &bytes.Buffer{}
	logger := NewLogger(Options{Output: failingWriter{}, Fallback: fallback})

	assert.NotPanics(t, func() {
		logger.Error("cannot write")
	})
	assert.Contains(t, fallback.String(), "cannot write")
	assert.Contains(t, fallback.String(), "disk full")
}

type panickingWriter struct{}

func (panickingWriter) Write([]byte) (int, error) { panic("boom") }

func TestLogger_SinkPanicIsSwallowed(t *testing.T) {
	fallback := &bytes.Buffer{}
	logger := NewLogger(Options{Output: panickingWriter{}, Fallback: fallback})

	assert.NotPanics(t, func() {
		logger.Info("still fine")
	})
	assert.Contains(t, fallback.String(), "still fine")
}

func TestGetLoggerInstanceFromContext(t *testing.T) {
	base, _, _ := newBufferedLogger("info")

	injected := base.With("injected", true)
	ctx := context.WithValue(context.Background(), LoggerKeyForContext, injected)
	assert.Same(t, injected, GetLoggerInstanceFromContext(ctx, base))

	assert.Same(t, base, GetLoggerInstanceFromContext(context.Background(), base))
	assert.Same(t, base, GetLoggerInstanceFromContext(nil, base)) //nolint:staticcheck
}
