package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when metrics are built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// BusinessMetrics records back-office activity: payments booked or refused and
// dashboard aggregation runs
type BusinessMetrics struct {
	paymentsRecorded metric.Int64Counter
	paymentAmount    metric.Float64Histogram
	paymentsRejected metric.Int64Counter
	dashboardRefresh metric.Float64Histogram
	dashboardFailed  metric.Int64Counter
}

// NewBusinessMetrics registers the instruments on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		bm  BusinessMetrics
		err error
	)
	if bm.paymentsRecorded, err = meter.Int64Counter("backoffice_payments_recorded_total",
		metric.WithDescription("Payment transactions booked"),
		metric.WithUnit("{payments}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create payments counter: %w", err)
	}
	if bm.paymentAmount, err = meter.Float64Histogram("backoffice_payment_amount",
		metric.WithDescription("Amount of booked payment transactions"),
		metric.WithUnit("PEN"),
		metric.WithExplicitBucketBoundaries(50, 100, 200, 500, 1000, 2500, 5000, 10000),
	); err != nil {
		return nil, fmt.Errorf("failed to create payment amount histogram: %w", err)
	}
	if bm.paymentsRejected, err = meter.Int64Counter("backoffice_payments_rejected_total",
		metric.WithDescription("Payments refused by validation or allocation rules"),
		metric.WithUnit("{payments}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rejected payments counter: %w", err)
	}
	if bm.dashboardRefresh, err = meter.Float64Histogram("backoffice_dashboard_refresh_duration",
		metric.WithDescription("Duration of a full dashboard aggregation"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create dashboard duration histogram: %w", err)
	}
	if bm.dashboardFailed, err = meter.Int64Counter("backoffice_dashboard_failed_clients_total",
		metric.WithDescription("Clients whose data could not be loaded during aggregation"),
		metric.WithUnit("{clients}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create dashboard failures counter: %w", err)
	}
	return &bm, nil
}

// RecordPaymentRejected counts a refused payment by error code
func (m *BusinessMetrics) RecordPaymentRejected(ctx context.Context, code string) {
	m.paymentsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", code)))
}

// RecordDashboardRefresh records one aggregation run over year
func (m *BusinessMetrics) RecordDashboardRefresh(ctx context.Context, year int, took time.Duration, failedClients int) {
	attrs := metric.WithAttributes(attribute.Int("year", year))
	m.dashboardRefresh.Record(ctx, took.Seconds(), attrs)
	if failedClients > 0 {
		m.dashboardFailed.Add(ctx, int64(failedClients), attrs)
	}
}

// Handle counts finance.payment_recorded events
func (m *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*finance.PaymentRecordedEvent)
	if !ok {
		return nil
	}
	attrs := metric.WithAttributes(
		attribute.String("method", methodLabel(e.Method)),
		attribute.Int("year", e.Year),
	)
	m.paymentsRecorded.Add(ctx, 1, attrs)
	m.paymentAmount.Record(ctx, e.Amount.InexactFloat64(), attrs)
	return nil
}

func (m *BusinessMetrics) EventTypes() []string {
	return []string{finance.EventTypePaymentRecorded}
}

func methodLabel(method string) string {
	if method == "" {
		return "unspecified"
	}
	return method
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
