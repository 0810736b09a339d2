package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/akeren/go-rest-starter/internal/reqctx"
)

// contextHandler merges the active request context into every record and never
// propagates sink failures to the caller.
type contextHandler struct {
	inner slog.Handler
	level slog.Leveler
	bound *reqctx.RequestContext

	// attrs collected from With before any group is opened; they behave like call-site fields.
	attrs   []slog.Attr
	grouped bool

	fallback   io.Writer
	fallbackMu *sync.Mutex
}

func newContextHandler(inner slog.Handler, level slog.Leveler, fallback io.Writer) *contextHandler {
	return &contextHandler{
		inner:      inner,
		level:      level,
		fallback:   fallback,
		fallbackMu: &sync.Mutex{},
	}
}

func (h *contextHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			h.writeFallback(r, fmt.Errorf("log handler panic: %v", p))
		}
		err = nil
	}()

	top := !h.grouped

	callSite := make(map[string]struct{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		callSite[a.Key] = struct{}{}
	}
	r.Attrs(func(a slog.Attr) bool {
		callSite[a.Key] = struct{}{}
		return true
	})

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	if rc := h.scope(ctx); rc != nil {
		fields := rc.Fields()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			if _, overridden := callSite[k]; !overridden {
				keys = append(keys, k)
			}
		}
		sortContextKeys(keys)

		for _, k := range keys {
			out.AddAttrs(unreserved(slog.Any(k, fields[k]), top))
		}
	}

	for _, a := range h.attrs {
		out.AddAttrs(unreserved(a, top))
	}
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(unreserved(a, top))
		return true
	})

	if herr := h.inner.Handle(ctx, out); herr != nil {
		h.writeFallback(r, herr)
	}

	return nil
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	clone := *h
	if h.grouped {
		clone.inner = h.inner.WithAttrs(attrs)
		return &clone
	}

	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.inner = h.inner
	if !h.grouped && len(h.attrs) > 0 {
		moved := make([]slog.Attr, len(h.attrs))
		for i, a := range h.attrs {
			moved[i] = unreserved(a, true)
		}
		clone.inner = clone.inner.WithAttrs(moved)
		clone.attrs = nil
	}
	clone.inner = clone.inner.WithGroup(name)
	clone.grouped = true
	return &clone
}

func (h *contextHandler) bind(ctx context.Context) *contextHandler {
	rc, err := reqctx.Current(ctx)
	if err != nil || rc == h.bound {
		return h
	}

	clone := *h
	clone.bound = rc
	return &clone
}

// scope prefers the context passed at the call site, then the bound scope while it is open.
func (h *contextHandler) scope(ctx context.Context) *reqctx.RequestContext {
	if rc, err := reqctx.Current(ctx); err == nil {
		return rc
	}
	if h.bound != nil && !h.bound.Released() {
		return h.bound
	}
	return nil
}

func (h *contextHandler) writeFallback(r slog.Record, cause error) {
	defer func() { _ = recover() }()

	h.fallbackMu.Lock()
	defer h.fallbackMu.Unlock()

	_, _ = fmt.Fprintf(h.fallback, "%s %s %s (log sink failure: %v)\n",
		r.Time.UTC().Format(time.RFC3339Nano), levelName(r.Level), r.Message, cause)
}

// ReservedFieldPrefix is prepended to caller fields named like a fixed record field.
const ReservedFieldPrefix = "fields."

// reservedKeys are the fixed record fields plus the slog built-ins they are renamed from.
var reservedKeys = map[string]struct{}{
	"timestamp":     {},
	"message":       {},
	slog.TimeKey:    {},
	slog.LevelKey:   {},
	slog.MessageKey: {},
}

// unreserved moves a top-level field that would shadow a fixed field under "fields.<key>".
// The fixed timestamp, level and message always win.
func unreserved(a slog.Attr, top bool) slog.Attr {
	if !top {
		return a
	}
	if _, ok := reservedKeys[a.Key]; ok {
		a.Key = ReservedFieldPrefix + a.Key
	}
	return a
}

// sortContextKeys puts the request id first and the rest alphabetically.
func sortContextKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == reqctx.RequestIDKey {
			return keys[j] != reqctx.RequestIDKey
		}
		if keys[j] == reqctx.RequestIDKey {
			return false
		}
		return keys[i] < keys[j]
	})
}
