package internal

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Attribute keys carrying the message template of a record.
const (
	TemplateTextKey = "message_template.text"
	TemplateHashKey = "message_template.hash.md5"
)

// TemplateFields selects what TemplateHandler adds to each record.
type TemplateFields struct {
	TraceID bool
	SpanID  bool
	Text    bool
	MD5     bool
}

// TemplateHandler decorates records bound for an exporter. The slog message
// is the template, since values travel as attributes. Trace correlation
// comes from the span context in ctx; fields not selected are removed from it.
type TemplateHandler struct {
	Next   slog.Handler
	Fields TemplateFields
}

// Enabled implements slog.Handler.
func (h TemplateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.Next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h TemplateHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.Fields.Text {
		r.AddAttrs(slog.String(TemplateTextKey, r.Message))
	}
	if h.Fields.MD5 {
		r.AddAttrs(slog.String(TemplateHashKey, TemplateHash(r.Message)))
	}
	return h.Next.Handle(h.correlate(ctx), r)
}

func (h TemplateHandler) correlate(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || (h.Fields.TraceID && h.Fields.SpanID) {
		return ctx
	}

	var cfg trace.SpanContextConfig
	if h.Fields.TraceID {
		cfg.TraceID = sc.TraceID()
		cfg.TraceFlags = sc.TraceFlags()
	}
	if h.Fields.SpanID {
		cfg.SpanID = sc.SpanID()
	}
	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(cfg))
}

// WithAttrs implements slog.Handler.
func (h TemplateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return TemplateHandler{Next: h.Next.WithAttrs(attrs), Fields: h.Fields}
}

// WithGroup implements slog.Handler.
func (h TemplateHandler) WithGroup(name string) slog.Handler {
	return TemplateHandler{Next: h.Next.WithGroup(name), Fields: h.Fields}
}

// TemplateHash returns the lowercase hex MD5 of a message template.
func TemplateHash(template string) string {
	sum := md5.Sum([]byte(template))
	return hex.EncodeToString(sum[:])
}
