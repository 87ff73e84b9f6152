package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const maskedValue = "***"

func initLogging(serviceName, level string, lp *sdklog.LoggerProvider, maskFields []string) {
	handlers := []slog.Handler{newJSONHandler(os.Stdout, parseLevel(level))}
	if lp != nil {
		handlers = append(handlers, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp)))
	}

	slog.SetDefault(slog.New(NewHandler(serviceName, maskFields, handlers...)))
}

// NewHandler stacks correlation, masking and fan-out over the given sinks.
func NewHandler(serviceName string, maskFields []string, sinks ...slog.Handler) slog.Handler {
	var h slog.Handler = &multiHandler{handlers: sinks}
	if len(sinks) == 1 {
		h = sinks[0]
	}

	return &contextHandler{
		Handler:     &maskHandler{handler: h, maskKeys: buildMaskKeys(maskFields)},
		serviceName: serviceName,
	}
}

func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
			case slog.LevelKey:
				a.Key = "severity"
			case slog.SourceKey:
				src, ok := a.Value.Any().(*slog.Source)
				if !ok {
					return a
				}
				_, rel, found := strings.Cut(src.File, "/internal/")
				if !found {
					return slog.Attr{}
				}
				return slog.String("file", fmt.Sprintf("%s:%d", filepath.Join("internal", rel), src.Line))
			}
			return a
		},
	})
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}

	return l
}

type contextHandler struct {
	slog.Handler
	serviceName string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cID := GetCorrelationID(ctx); cID != "" {
		r.AddAttrs(slog.String("_cID", cID))
	}
	r.AddAttrs(slog.String("service", h.serviceName))

	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), serviceName: h.serviceName}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), serviceName: h.serviceName}
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range m.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range m.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *multiHandler) each(fn func(slog.Handler) slog.Handler) slog.Handler {
	handlers := make([]slog.Handler, 0, len(m.handlers))
	for _, handler := range m.handlers {
		handlers = append(handlers, fn(handler))
	}
	return &multiHandler{handlers: handlers}
}

// maskHandler redacts configured keys in attributes and in JSON payloads
// logged as strings or bytes (request and response bodies).
type maskHandler struct {
	handler  slog.Handler
	maskKeys map[string]struct{}
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, record slog.Record) error {
	if len(h.maskKeys) == 0 {
		return h.handler.Handle(ctx, record)
	}

	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(h.mask(attr))
		return true
	})

	return h.handler.Handle(ctx, masked)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		masked = append(masked, h.mask(a))
	}
	return &maskHandler{handler: h.handler.WithAttrs(masked), maskKeys: h.maskKeys}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{handler: h.handler.WithGroup(name), maskKeys: h.maskKeys}
}

func (h *maskHandler) mask(attr slog.Attr) slog.Attr {
	if h.isMasked(attr.Key) {
		return slog.String(attr.Key, maskedValue)
	}

	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		masked := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			masked = append(masked, h.mask(ga))
		}
		attr.Value = slog.GroupValue(masked...)
	case slog.KindString:
		if out, ok := h.maskJSON([]byte(attr.Value.String())); ok {
			attr.Value = slog.StringValue(out)
		}
	case slog.KindAny:
		switch v := attr.Value.Any().(type) {
		case map[string]any, []any:
			attr.Value = slog.AnyValue(h.maskData(v))
		case map[string]string:
			converted := make(map[string]any, len(v))
			for k, s := range v {
				converted[k] = s
			}
			attr.Value = slog.AnyValue(h.maskData(converted))
		case []byte:
			if out, ok := h.maskJSON(v); ok {
				attr.Value = slog.StringValue(out)
			}
		}
	}

	return attr
}

func (h *maskHandler) maskJSON(payload []byte) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", false
	}

	out, err := json.Marshal(h.maskData(body))
	if err != nil {
		return "", false
	}

	return string(out), true
}

func (h *maskHandler) maskData(v any) any {
	switch val := v.(type) {
	case map[string]any:
		masked := make(map[string]any, len(val))
		for k, v2 := range val {
			if h.isMasked(k) {
				masked[k] = maskedValue
				continue
			}
			masked[k] = h.maskData(v2)
		}
		return masked
	case []any:
		res := make([]any, len(val))
		for i, v2 := range val {
			res[i] = h.maskData(v2)
		}
		return res
	default:
		return v
	}
}

func (h *maskHandler) isMasked(key string) bool {
	_, found := h.maskKeys[strings.ToLower(key)]
	return found
}

func buildMaskKeys(fields []string) map[string]struct{} {
	maskKeys := make(map[string]struct{})
	for _, field := range fields {
		field = strings.TrimSpace(strings.ToLower(field))
		if field == "" {
			continue
		}
		maskKeys[field] = struct{}{}
	}
	return maskKeys
}
