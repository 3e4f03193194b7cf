package observability

// Metric name prefixes
const (
	MetricPrefix = "pulp"
)

// Metric names
const (
	// Ledger metrics
	LedgerTransactionsTotal = MetricPrefix + ".ledger.transactions_total"
	LedgerAmountTotal       = MetricPrefix + ".ledger.amount_total"

	// Window metrics
	WindowTransitionsTotal = MetricPrefix + ".windows.transitions_total"

	// Market metrics
	BlessingsResolvedTotal  = MetricPrefix + ".blessings.resolved_total"
	ChallengesResolvedTotal = MetricPrefix + ".challenges.resolved_total"

	// Round metrics
	RoundsProcessedTotal = MetricPrefix + ".rounds.processed_total"
	RoundAwardsTotal     = MetricPrefix + ".rounds.awards_total"

	// Sweep metrics
	SweepRunsTotal    = MetricPrefix + ".sweeps.runs_total"
	SweepChangesTotal = MetricPrefix + ".sweeps.changes_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelDirection = "direction"
	LabelStatus    = "status"
	LabelOutcome   = "outcome"
	LabelKind      = "kind"
	LabelSettled   = "settled"
)

// Ledger directions
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Sweep change kinds
const (
	SweepKindWindowLocked     = "window_locked"
	SweepKindWindowExpired    = "window_expired"
	SweepKindAdvantageExpired = "advantage_expired"
)
