package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	sessionsStarted    metric.Int64Counter
	sessionsCompleted  metric.Int64Counter
	partialExits       metric.Int64Counter
	invoicesIssued     metric.Int64Counter
	paymentsPosted     metric.Int64Counter
	stockDenied        metric.Int64Counter
	settlementDuration metric.Int64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "shaghaf"
	}
	meter := provider.Meter(name)

	sessionsStarted, err := meter.Int64Counter("shaghaf_sessions_started_total")
	if err != nil {
		return nil, err
	}
	sessionsCompleted, err := meter.Int64Counter("shaghaf_sessions_completed_total")
	if err != nil {
		return nil, err
	}
	partialExits, err := meter.Int64Counter("shaghaf_partial_exits_total")
	if err != nil {
		return nil, err
	}
	invoicesIssued, err := meter.Int64Counter("shaghaf_invoices_issued_total")
	if err != nil {
		return nil, err
	}
	paymentsPosted, err := meter.Int64Counter("shaghaf_payments_posted_total")
	if err != nil {
		return nil, err
	}
	stockDenied, err := meter.Int64Counter("shaghaf_stock_denied_total")
	if err != nil {
		return nil, err
	}
	settlementDuration, err := meter.Int64Histogram("shaghaf_settlement_duration_ms")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		sessionsStarted:    sessionsStarted,
		sessionsCompleted:  sessionsCompleted,
		partialExits:       partialExits,
		invoicesIssued:     invoicesIssued,
		paymentsPosted:     paymentsPosted,
		stockDenied:        stockDenied,
		settlementDuration: settlementDuration,
	}, nil
}

// RecordSessionStarted increments started session counts.
func (m *Metrics) RecordSessionStarted(ctx context.Context, branchID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("branch_id", strings.TrimSpace(branchID)))
	m.sessionsStarted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSessionCompleted increments completed session counts.
func (m *Metrics) RecordSessionCompleted(ctx context.Context, branchID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("branch_id", strings.TrimSpace(branchID)))
	m.sessionsCompleted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPartialExit increments partial exit counts.
func (m *Metrics) RecordPartialExit(ctx context.Context, branchID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("branch_id", strings.TrimSpace(branchID)))
	m.partialExits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInvoiceIssued increments issued invoice counts.
func (m *Metrics) RecordInvoiceIssued(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.invoicesIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPaymentPosted increments payment posting counts.
func (m *Metrics) RecordPaymentPosted(ctx context.Context, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.paymentsPosted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStockDenied increments insufficient-stock rejection counts.
func (m *Metrics) RecordStockDenied(ctx context.Context, productID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("product_id", strings.TrimSpace(productID)))
	m.stockDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSettlementDuration records how long a settlement took.
func (m *Metrics) RecordSettlementDuration(ctx context.Context, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.settlementDuration.Record(ctx, elapsed.Milliseconds(), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"branch_id":  {},
	"kind":       {},
	"method":     {},
	"product_id": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
