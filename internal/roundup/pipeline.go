package roundup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/roundup/internal/currency"
	"github.com/richxcame/roundup/pkg/eventbus"
	"github.com/richxcame/roundup/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultPipelineTimeout = 2 * time.Minute
	finalizeTimeout        = 10 * time.Second
	eventSource            = "roundup-service"
)

// Failure reasons recorded on metrics and failure events.
const (
	ReasonFetchFailed        = "fetch_failed"
	ReasonNothingToRoundUp   = "nothing_to_round_up"
	ReasonBalanceFailed      = "balance_failed"
	ReasonBalanceUnsupported = "balance_currency_unsupported"
	ReasonInsufficientFunds  = "insufficient_funds"
	ReasonTransferFailed     = "transfer_failed"
	ReasonPanic              = "panic"
)

var transferNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("roundup/savings-goal-transfer"))

// TransferUID derives the bank transfer identifier for a request and amount.
// Re-running a request for the same amount yields the same UID, so a transfer
// whose response was lost is deduplicated by the bank.
func TransferUID(requestID uuid.UUID, amount int64) string {
	return uuid.NewSHA1(transferNamespace, []byte(fmt.Sprintf("%s:%d", requestID, amount))).String()
}

// Processor runs the fetch, calculate, balance check and transfer steps for one job
// and always leaves the ledger record in a terminal state it can reach.
type Processor struct {
	ledger       Ledger
	transactions TransactionSource
	balances     BalanceSource
	transfers    TransferSink
	calculator   *Calculator
	converter    *currency.Converter
	publisher    Publisher
	timeout      time.Duration
	tracer       trace.Tracer
	now          func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithPublisher emits lifecycle events after each terminal write.
func WithPublisher(p Publisher) ProcessorOption {
	return func(proc *Processor) {
		proc.publisher = p
	}
}

// WithTimeout bounds a single pipeline run.
func WithTimeout(d time.Duration) ProcessorOption {
	return func(proc *Processor) {
		if d > 0 {
			proc.timeout = d
		}
	}
}

// NewProcessor creates a pipeline processor.
func NewProcessor(
	ledger Ledger,
	transactions TransactionSource,
	balances BalanceSource,
	transfers TransferSink,
	converter *currency.Converter,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		ledger:       ledger,
		transactions: transactions,
		balances:     balances,
		transfers:    transfers,
		calculator:   NewCalculator(converter),
		converter:    converter,
		timeout:      defaultPipelineTimeout,
		tracer:       otel.Tracer("github.com/richxcame/roundup/internal/roundup"),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type result struct {
	status      Status
	amount      int64
	reason      string
	transferUID string
}

// Process runs the pipeline for job. It matches workerpool.Handler.
func (p *Processor) Process(ctx context.Context, job Job) {
	start := time.Now()
	if job.CorrelationID != "" {
		// workers run on the pool's context, not the request's
		ctx = logger.ContextWithCorrelationID(ctx, job.CorrelationID)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "roundup.process", trace.WithAttributes(
		attribute.String("roundup.request_id", job.RequestID.String()),
		attribute.String("roundup.week", job.WeekCommencing.Format(DateLayout)),
	))
	defer span.End()

	log := logger.WithContext(ctx).With(
		zap.String("request_id", job.RequestID.String()),
		logger.Account(job.AccountID),
		logger.Goal(job.GoalID),
		zap.String("week", job.WeekCommencing.Format(DateLayout)),
	)

	res := p.run(ctx, job, log)

	if res.status == StatusFailed {
		span.SetStatus(codes.Error, res.reason)
	}
	span.SetAttributes(attribute.String("roundup.status", string(res.status)), attribute.Int64("roundup.amount", res.amount))

	p.finalize(ctx, job, res, log)
	pipelineDuration.Observe(time.Since(start).Seconds())
}

func (p *Processor) run(ctx context.Context, job Job, log *zap.Logger) (res result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("round-up pipeline panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = failed(ReasonPanic)
		}
	}()

	from, to := WeekBounds(job.WeekCommencing)
	txns, err := p.transactions.FetchSettledTransactions(ctx, job.AccountID, from, to)
	if err != nil {
		log.Error("failed to fetch settled transactions", zap.Error(err))
		return failed(ReasonFetchFailed)
	}

	total := p.calculator.CalculateForWeek(txns, job.WeekCommencing)
	log.Info("round-up calculated", zap.Int("transactions", len(txns)), zap.Int64("amount", total))
	if total <= 0 {
		return failed(ReasonNothingToRoundUp)
	}

	balance, err := p.balances.GetAvailableBalance(ctx, job.AccountID)
	if err != nil {
		log.Error("failed to read balance", zap.Error(err))
		return failed(ReasonBalanceFailed)
	}
	available, ok := p.converter.ToBaseDecimal(balance.Currency, balance.MinorUnits)
	if !ok {
		log.Warn("balance currency not supported", zap.String("currency", balance.Currency))
		return failed(ReasonBalanceUnsupported)
	}
	if available.LessThan(decimal.New(total, -2)) {
		log.Warn("insufficient funds for round-up",
			zap.String("available", available.StringFixed(2)),
			zap.Int64("required_minor", total))
		return failed(ReasonInsufficientFunds)
	}

	transferUID := TransferUID(job.RequestID, total)
	amount := currency.Money{Currency: p.converter.BaseCurrency(), MinorUnits: total}
	if err := p.transfers.Transfer(ctx, job.AccountID, job.GoalID, amount, transferUID); err != nil {
		log.Error("savings goal transfer failed", zap.String("transfer_uid", transferUID), zap.Error(err))
		return failed(ReasonTransferFailed)
	}

	return result{status: StatusCompleted, amount: total, transferUID: transferUID}
}

func failed(reason string) result {
	return result{status: StatusFailed, reason: reason}
}

// finalize writes the terminal status even when the run context is already done.
func (p *Processor) finalize(ctx context.Context, job Job, res result, log *zap.Logger) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if err := p.ledger.UpdateStatusAndAmount(writeCtx, job.AccountID, job.WeekCommencing, res.status, res.amount); err != nil {
		// record stays IN_PROGRESS; a completed transfer is still deduplicated by its UID
		log.Error("failed to persist round-up result",
			zap.String("status", string(res.status)),
			zap.Int64("amount", res.amount),
			zap.Error(err))
	}

	pipelineResults.WithLabelValues(string(res.status), res.reason).Inc()
	if res.status == StatusCompleted {
		transferredMinorUnits.WithLabelValues(p.converter.BaseCurrency()).Add(float64(res.amount))
		log.Info("round-up completed", zap.Int64("amount", res.amount))
	} else {
		log.Warn("round-up failed", zap.String("reason", res.reason))
	}

	p.publish(writeCtx, job, res, log)
}

func (p *Processor) publish(ctx context.Context, job Job, res result, log *zap.Logger) {
	if p.publisher == nil {
		return
	}

	var (
		event   *eventbus.Event
		subject string
		err     error
	)
	now := p.now()
	if res.status == StatusCompleted {
		subject = eventbus.SubjectRoundUpCompleted
		event, err = eventbus.NewEvent(eventbus.TypeRoundUpCompleted, eventSource, eventbus.RoundUpCompletedData{
			RequestID:      job.RequestID.String(),
			AccountID:      job.AccountID,
			GoalID:         job.GoalID,
			WeekCommencing: job.WeekCommencing.Format(DateLayout),
			AmountMinor:    res.amount,
			Currency:       p.converter.BaseCurrency(),
			TransferUID:    res.transferUID,
			CompletedAt:    now,
		})
	} else {
		subject = eventbus.SubjectRoundUpFailed
		event, err = eventbus.NewEvent(eventbus.TypeRoundUpFailed, eventSource, eventbus.RoundUpFailedData{
			RequestID:      job.RequestID.String(),
			AccountID:      job.AccountID,
			GoalID:         job.GoalID,
			WeekCommencing: job.WeekCommencing.Format(DateLayout),
			Reason:         res.reason,
			FailedAt:       now,
		})
	}
	if err != nil {
		log.Error("failed to build round-up event", zap.Error(err))
		return
	}
	if err := p.publisher.Publish(ctx, subject, event); err != nil {
		log.Warn("failed to publish round-up event", zap.String("subject", subject), zap.Error(err))
	}
}
