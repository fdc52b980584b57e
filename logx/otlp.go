package logx

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"

	"go.eggybyte.com/egg/logx/internal"
)

// Protocol is an OTLP transport.
type Protocol string

// ProtocolGRPC is OTLP over gRPC, the only transport OTLPSink speaks.
const ProtocolGRPC Protocol = "grpc"

// IncludedData selects the correlation fields attached to exported records.
type IncludedData uint

const (
	// TraceIDField attaches the trace id of the active span.
	TraceIDField IncludedData = 1 << iota
	// SpanIDField attaches the span id of the active span.
	SpanIDField
	// MessageTemplateText adds the message_template.text attribute.
	MessageTemplateText
	// MessageTemplateMD5Hash adds the message_template.hash.md5 attribute.
	MessageTemplateMD5Hash
)

// Has reports whether every flag in f is set.
func (d IncludedData) Has(f IncludedData) bool {
	return d&f == f
}

// TemplateHash returns the value of the message_template.hash.md5 attribute for msg.
func TemplateHash(msg string) string {
	return internal.TemplateHash(msg)
}

const instrumentationName = "go.eggybyte.com/egg/logx"

// OTLPSink exports records through an OTLP log exporter.
type OTLPSink struct {
	Endpoint           string         // Collector URL, e.g. http://collector:4317
	Protocol           Protocol       // Must be ProtocolGRPC
	IncludedData       IncludedData   // Correlation fields to attach
	ResourceAttributes map[string]any // Resource attributes such as service.name

	// processor overrides the exporter pipeline in tests.
	processor func(ctx context.Context) (sdklog.Processor, error)
}

// Open implements Sink.
func (s *OTLPSink) Open(ctx context.Context) (slog.Handler, func(context.Context) error, error) {
	if s.Protocol != ProtocolGRPC {
		return nil, nil, fmt.Errorf("otlp sink: unsupported protocol %q", s.Protocol)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(toAttributes(s.ResourceAttributes)...))
	if err != nil {
		return nil, nil, fmt.Errorf("otlp sink: resource: %w", err)
	}

	newProcessor := s.processor
	if newProcessor == nil {
		newProcessor = s.batchProcessor
	}
	processor, err := newProcessor(ctx)
	if err != nil {
		return nil, nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	)

	handler := internal.TemplateHandler{
		Next: otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider)),
		Fields: internal.TemplateFields{
			TraceID: s.IncludedData.Has(TraceIDField),
			SpanID:  s.IncludedData.Has(SpanIDField),
			Text:    s.IncludedData.Has(MessageTemplateText),
			MD5:     s.IncludedData.Has(MessageTemplateMD5Hash),
		},
	}
	return handler, provider.Shutdown, nil
}

func (s *OTLPSink) batchProcessor(ctx context.Context) (sdklog.Processor, error) {
	exporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpointURL(s.Endpoint),
		otlploggrpc.WithDialOption(grpc.WithUserAgent("egg-logx")))
	if err != nil {
		return nil, fmt.Errorf("otlp sink: exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exporter), nil
}

func toAttributes(m map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(m))
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(k, v))
		case bool:
			attrs = append(attrs, attribute.Bool(k, v))
		case int:
			attrs = append(attrs, attribute.Int(k, v))
		case int64:
			attrs = append(attrs, attribute.Int64(k, v))
		case float64:
			attrs = append(attrs, attribute.Float64(k, v))
		case []string:
			attrs = append(attrs, attribute.StringSlice(k, v))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(v)))
		}
	}
	return attrs
}
