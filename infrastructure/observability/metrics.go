package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"pulp/config"
	"pulp/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsProvider manages OpenTelemetry metrics for the economy
type MetricsProvider struct {
	config        *config.Config
	reader        sdkmetric.Reader
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	ledgerTransactionsCounter metric.Int64Counter
	ledgerAmountCounter       metric.Int64Counter
	windowTransitionsCounter  metric.Int64Counter
	blessingsResolvedCounter  metric.Int64Counter
	challengesResolvedCounter metric.Int64Counter
	roundsProcessedCounter    metric.Int64Counter
	roundAwardsCounter        metric.Int64Counter
	sweepRunsCounter          metric.Int64Counter
	sweepChangesCounter       metric.Int64Counter
}

// Option customizes a MetricsProvider
type Option func(*MetricsProvider)

// WithReader replaces the configured exporter with reader
func WithReader(reader sdkmetric.Reader) Option {
	return func(mp *MetricsProvider) {
		mp.reader = reader
	}
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config, opts ...Option) *MetricsProvider {
	mp := &MetricsProvider{config: cfg}
	for _, opt := range opts {
		opt(mp)
	}
	return mp
}

// Initialize sets up the OpenTelemetry meter provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := mp.reader
	if reader == nil {
		switch mp.config.OTelExporterType {
		case "console":
			exporter, err := stdoutmetric.New()
			if err != nil {
				return fmt.Errorf("failed to create console exporter: %w", err)
			}
			reader = sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			)
			log.Info("Using console metric exporter")

		case "none":
			log.Info("Metrics export disabled (exporter_type='none')")
			mp.initialized = true
			return nil

		default:
			return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
		}
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("pulp")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.ledgerTransactionsCounter, LedgerTransactionsTotal, "Total number of ledger entries"},
		{&mp.ledgerAmountCounter, LedgerAmountTotal, "Total Pulp moved by ledger entries"},
		{&mp.windowTransitionsCounter, WindowTransitionsTotal, "Total number of window state transitions"},
		{&mp.blessingsResolvedCounter, BlessingsResolvedTotal, "Total number of blessings resolved"},
		{&mp.challengesResolvedCounter, ChallengesResolvedTotal, "Total number of challenges resolved"},
		{&mp.roundsProcessedCounter, RoundsProcessedTotal, "Total number of rounds whose awards were paid"},
		{&mp.roundAwardsCounter, RoundAwardsTotal, "Total Pulp paid as round awards"},
		{&mp.sweepRunsCounter, SweepRunsTotal, "Total number of sweep passes"},
		{&mp.sweepChangesCounter, SweepChangesTotal, "Total number of state changes made by sweeps"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(
			c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}
	return nil
}

// SubscribeToBus records metrics for every committed domain event
func (mp *MetricsProvider) SubscribeToBus(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChanged, mp.handleEvent)
	bus.Subscribe(events.EventTypeWindowStateChanged, mp.handleEvent)
	bus.Subscribe(events.EventTypeBlessingResolved, mp.handleEvent)
	bus.Subscribe(events.EventTypeChallengeResolved, mp.handleEvent)
	bus.Subscribe(events.EventTypeRoundProcessed, mp.handleEvent)
}

func (mp *MetricsProvider) handleEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.BalanceChangedEvent:
		mp.RecordLedgerEntry(ctx, string(e.TransactionType), e.Amount)
	case events.WindowStateChangedEvent:
		mp.windowTransitionsCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelStatus, string(e.NewStatus))),
		)
	case events.BlessingResolvedEvent:
		mp.blessingsResolvedCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelStatus, string(e.Status))),
		)
	case events.ChallengeResolvedEvent:
		mp.challengesResolvedCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String(LabelStatus, string(e.Status)),
				attribute.String(LabelOutcome, string(e.Outcome)),
			),
		)
	case events.RoundProcessedEvent:
		mp.roundsProcessedCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelSettled, strconv.FormatBool(e.SettledWindowID != nil))),
		)
		mp.roundAwardsCounter.Add(ctx, e.TotalAwarded)
	}
}

// RecordLedgerEntry records one ledger entry of the given type and signed amount
func (mp *MetricsProvider) RecordLedgerEntry(ctx context.Context, transactionType string, amount int64) {
	if !mp.isEnabled() {
		return
	}

	direction := DirectionCredit
	if amount < 0 {
		direction = DirectionDebit
		amount = -amount
	}

	mp.ledgerTransactionsCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String(LabelType, transactionType)),
	)
	mp.ledgerAmountCounter.Add(ctx, amount,
		metric.WithAttributes(
			attribute.String(LabelType, transactionType),
			attribute.String(LabelDirection, direction),
		),
	)
}

// RecordSweep records one sweep pass and the changes it made
func (mp *MetricsProvider) RecordSweep(windowsLocked, windowsExpired, advantagesExpired int) {
	if !mp.isEnabled() {
		return
	}

	ctx := context.Background()
	mp.sweepRunsCounter.Add(ctx, 1)
	for kind, n := range map[string]int{
		SweepKindWindowLocked:     windowsLocked,
		SweepKindWindowExpired:    windowsExpired,
		SweepKindAdvantageExpired: advantagesExpired,
	} {
		if n == 0 {
			continue
		}
		mp.sweepChangesCounter.Add(ctx, int64(n),
			metric.WithAttributes(attribute.String(LabelKind, kind)),
		)
	}
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
