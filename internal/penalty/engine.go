package penalty

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"stakepool-custody/internal/authz"
	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/observability"
	"stakepool-custody/internal/storage"
)

// Notifier receives every receipt the engine issues.
type Notifier interface {
	Publish(r *domain.TransferReceipt)
}

// Engine is the only entry point for penalty requests. It serializes requests
// per pool, validates them and hands them to the Executor.
type Engine struct {
	validator *authz.Validator
	executor  *Executor
	locks     *poolLocks
	events    storage.PenaltyEventStore
	notifier  Notifier
	now       func() time.Time
	log       *logrus.Entry
}

// EngineOption configures Engine.
type EngineOption func(*Engine)

// WithEventStore records every handled request.
func WithEventStore(s storage.PenaltyEventStore) EngineOption {
	return func(e *Engine) {
		e.events = s
	}
}

// WithNotifier publishes accepted receipts.
func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(log *logrus.Entry) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates a new Engine.
func NewEngine(validator *authz.Validator, executor *Executor, opts ...EngineOption) *Engine {
	e := &Engine{
		validator: validator,
		executor:  executor,
		locks:     newPoolLocks(),
		now:       time.Now,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "engine")
	return e
}

// Penalize validates and executes req under the pool's lock.
// Returns a receipt or a typed error, never both.
func (e *Engine) Penalize(ctx context.Context, req domain.PenaltyRequest) (*domain.TransferReceipt, error) {
	start := time.Now()
	observability.DefaultMetrics.InFlightPenalties.Inc()
	defer observability.DefaultMetrics.InFlightPenalties.Dec()

	unlock, err := e.locks.acquire(ctx, req.PoolIdentity)
	if err != nil {
		return nil, err
	}
	receipt, err := e.penalize(ctx, req)
	unlock()

	outcome := Outcome(err)
	e.record(req, receipt, outcome, err)
	observability.RecordPenalty(string(req.Action), string(outcome), req.Amount, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	observability.DefaultMetrics.LastSuccessfulPenalty.Set(float64(time.Now().Unix()))
	if e.notifier != nil {
		e.notifier.Publish(receipt)
	}
	return receipt, nil
}

func (e *Engine) penalize(ctx context.Context, req domain.PenaltyRequest) (*domain.TransferReceipt, error) {
	validated, err := e.validator.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.executor.Execute(ctx, validated)
}

// Outcome classifies the result of a Penalize call.
func Outcome(err error) domain.Outcome {
	switch {
	case err == nil:
		return domain.OutcomeAccepted
	case errors.Is(err, ErrTransferFailed), errors.Is(err, ErrRollbackFailed):
		return domain.OutcomeRolledBack
	default:
		return domain.OutcomeRejected
	}
}

// ErrorKind returns the typed kind of err, or "INTERNAL" for untyped errors.
func ErrorKind(err error) string {
	var aerr *authz.Error
	if errors.As(err, &aerr) {
		return string(aerr.Kind)
	}
	var xerr *ExecError
	if errors.As(err, &xerr) {
		return string(xerr.Kind)
	}
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CANCELLED"
	}
	return "INTERNAL"
}

func (e *Engine) record(req domain.PenaltyRequest, receipt *domain.TransferReceipt, outcome domain.Outcome, err error) {
	kind := ErrorKind(err)
	fields := logrus.Fields{
		"pool":       req.PoolIdentity,
		"pool_index": req.PoolIndex,
		"action":     req.Action,
		"amount":     req.Amount,
		"outcome":    outcome,
	}

	switch outcome {
	case domain.OutcomeAccepted:
		e.log.WithFields(fields).WithField("receipt_id", receipt.ReceiptID).Info("penalty applied")
	case domain.OutcomeRolledBack:
		e.log.WithFields(fields).WithError(err).Warn("transfer failed")
	default:
		observability.RecordRejection(kind)
		e.log.WithFields(fields).WithField("kind", kind).Debug("request rejected")
	}

	if e.events == nil {
		return
	}
	ev := &domain.PenaltyEvent{
		EventTime:    e.now().UnixMilli(),
		PoolIdentity: req.PoolIdentity,
		PoolIndex:    req.PoolIndex,
		Action:       req.Action,
		Amount:       req.Amount,
		Caller:       req.Caller,
		Outcome:      outcome,
		ErrorKind:    kind,
	}
	if receipt != nil {
		ev.ReceiptID = receipt.ReceiptID
	}
	if err := e.events.Insert(context.Background(), ev); err != nil {
		e.log.WithError(err).Warn("penalty event write failed")
	}
}
