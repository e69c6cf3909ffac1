package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docview/logger"
	"docview/scanner"
	"docview/version"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// ScanEventName is the OTLP event name of exported scan records.
const ScanEventName = "docview.scan"

// OtelOptions configures OTLP log export of scan lifecycle events.
type OtelOptions struct {
	Endpoint    string
	FromEnv     bool
	Headers     map[string]string
	ServiceName string
	Timeout     time.Duration
	// ExportPaths keeps root paths in exported records.
	ExportPaths bool
}

// OtelEmitter exports the start and done events of every scan as OTLP log
// records. Intermediate progress is not exported.
type OtelEmitter struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
	endpoint string
	policy   otelPolicy
}

type otelPolicy struct {
	includePaths bool
}

// NewOtelEmitter returns nil and no error when no endpoint is configured.
func NewOtelEmitter(opts OtelOptions) (*OtelEmitter, error) {
	endpoint := resolveOtelEndpoint(opts)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	exportOpts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(opts.Headers) > 0 {
		exportOpts = append(exportOpts, otlploghttp.WithHeaders(opts.Headers))
	}
	if opts.Timeout > 0 {
		exportOpts = append(exportOpts, otlploghttp.WithTimeout(opts.Timeout))
	}

	exp, err := otlploghttp.New(context.Background(), exportOpts...)
	if err != nil {
		return nil, err
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "docview"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(version.Version),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)

	return &OtelEmitter{
		provider: provider,
		logger:   provider.Logger("docview"),
		timeout:  opts.Timeout,
		endpoint: endpoint,
		policy:   otelPolicy{includePaths: opts.ExportPaths},
	}, nil
}

func resolveOtelEndpoint(opts OtelOptions) string {
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		return endpoint
	}
	if !opts.FromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *OtelEmitter) Endpoint() string {
	if o == nil {
		return ""
	}
	return o.endpoint
}

func (o *OtelEmitter) Emit(event string, p scanner.Progress) {
	if o == nil || o.logger == nil {
		return
	}
	if p.Stage != scanner.StageStart && p.Stage != scanner.StageDone {
		return
	}
	o.logger.Emit(context.Background(), buildScanRecord(event, p, o.policy, time.Now()))
}

// Shutdown flushes pending records, waiting at most the configured timeout.
func (o *OtelEmitter) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

func buildScanRecord(event string, p scanner.Progress, policy otelPolicy, now time.Time) otelLog.Record {
	var record otelLog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetEventName(ScanEventName)
	record.SetSeverity(otelLog.SeverityInfo)
	record.AddAttributes(otelLog.String("docview.event", event))
	record.AddAttributes(scanAttributes(p, policy)...)
	record.SetBody(otelLog.MapValue(toLogKeyValues(sanitizeProgress(p, policy))...))
	return record
}

func sanitizeProgress(p scanner.Progress, policy otelPolicy) map[string]interface{} {
	body := map[string]interface{}{
		"stage":        string(p.Stage),
		"scannedDirs":  int64(p.ScannedDirs),
		"scannedFiles": int64(p.ScannedFiles),
		"matchedFiles": int64(p.MatchedFiles),
	}
	if p.ScanID != "" {
		body["scanId"] = p.ScanID
	}
	if policy.includePaths && p.CurrentPath != "" {
		body["currentPath"] = p.CurrentPath
	}
	return body
}

func scanAttributes(p scanner.Progress, policy otelPolicy) []otelLog.KeyValue {
	var kvs []otelLog.KeyValue
	kvs = appendStringAttr(kvs, "docview.scan.id", p.ScanID)
	kvs = appendStringAttr(kvs, "docview.scan.stage", string(p.Stage))
	kvs = append(kvs,
		otelLog.Int64("docview.scan.scanned_dirs", int64(p.ScannedDirs)),
		otelLog.Int64("docview.scan.scanned_files", int64(p.ScannedFiles)),
		otelLog.Int64("docview.scan.matched_files", int64(p.MatchedFiles)),
	)
	if p.CurrentPath != "" {
		if policy.includePaths {
			kvs = append(kvs, otelLog.String(string(semconv.FileDirectoryKey), p.CurrentPath))
		}
		kvs = appendStringAttr(kvs, string(semconv.FileNameKey), filepath.Base(p.CurrentPath))
	}
	return kvs
}

func toLogValue(value interface{}) otelLog.Value {
	switch v := value.(type) {
	case nil:
		return otelLog.Value{}
	case string:
		return otelLog.StringValue(v)
	case bool:
		return otelLog.BoolValue(v)
	case int:
		return otelLog.IntValue(v)
	case int64:
		return otelLog.Int64Value(v)
	case float64:
		return otelLog.Float64Value(v)
	case map[string]interface{}:
		return otelLog.MapValue(toLogKeyValues(v)...)
	case []string:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, otelLog.StringValue(item))
		}
		return otelLog.SliceValue(values...)
	default:
		return otelLog.Value{}
	}
}

// toLogKeyValues orders keys so exported bodies are stable.
func toLogKeyValues(values map[string]interface{}) []otelLog.KeyValue {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	kvs := make([]otelLog.KeyValue, 0, len(values))
	for _, key := range keys {
		kvs = append(kvs, otelLog.KeyValue{Key: key, Value: toLogValue(values[key])})
	}
	return kvs
}

func appendStringAttr(kvs []otelLog.KeyValue, key, value string) []otelLog.KeyValue {
	if value == "" {
		return kvs
	}
	return append(kvs, otelLog.String(key, value))
}
