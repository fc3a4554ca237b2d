package roundup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/roundup/pkg/common"
	"github.com/richxcame/roundup/pkg/logger"
	"go.uber.org/zap"
)

const releaseTimeout = 5 * time.Second

// Service admits round-up requests. At most one request per (account, week) is ever
// in flight; the ledger is the source of truth and the lock only serializes admission.
type Service struct {
	ledger     Ledger
	locker     Locker
	dispatcher Dispatcher
	now        func() time.Time
	newID      func() uuid.UUID
}

// NewService creates a new round-up admission service
func NewService(ledger Ledger, locker Locker, dispatcher Dispatcher) *Service {
	return &Service{
		ledger:     ledger,
		locker:     locker,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.New,
	}
}

// Initiate decides synchronously whether a new round-up should start for the week and,
// if so, records it and hands it to the pipeline. It never waits for the pipeline.
func (s *Service) Initiate(ctx context.Context, accountID, goalID string, week time.Time) (Outcome, error) {
	week, err := NormalizeWeek(week)
	if err != nil {
		return Outcome{}, common.NewBadRequestError(ErrInvalidWeek.Error(), err)
	}
	log := logger.WithContext(ctx).With(logger.Account(accountID), zap.String("week", week.Format(DateLayout)))

	existing, err := s.find(ctx, accountID, week)
	if err != nil {
		return Outcome{}, err
	}
	if outcome, done := shortCircuit(existing); done {
		log.Info("round-up short-circuited", zap.String("outcome", string(outcome.Kind)))
		admissionsTotal.WithLabelValues(string(outcome.Kind)).Inc()
		return outcome, nil
	}

	key := LockKey(accountID, week)
	token, acquired, err := s.locker.TryAcquire(ctx, key)
	if err != nil {
		return Outcome{}, common.NewServiceUnavailableError("admission lock unavailable", err)
	}
	if !acquired {
		log.Info("round-up admission contended")
		admissionsTotal.WithLabelValues(string(OutcomeAlreadyInProgress)).Inc()
		return AlreadyInProgress(), nil
	}
	defer s.release(ctx, key, token)

	// another instance may have admitted between the first read and the lock
	current, err := s.find(ctx, accountID, week)
	if err != nil {
		return Outcome{}, err
	}
	if outcome, done := shortCircuit(current); done {
		admissionsTotal.WithLabelValues(string(outcome.Kind)).Inc()
		return outcome, nil
	}

	now := s.now()
	req := current
	if req != nil {
		// FAILED record is re-admitted in place and keeps its request ID
		req.Status = StatusInProgress
		req.RoundUpAmount = 0
		req.UpdatedAt = now
	} else {
		req = &Request{
			RequestID:      s.newID(),
			AccountID:      accountID,
			WeekCommencing: week,
			Status:         StatusInProgress,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	if err := s.ledger.Save(ctx, req); err != nil {
		if errors.Is(err, ErrRequestExists) {
			// lost to an admission that did not hold our lock, e.g. after the TTL lapsed
			return s.resolveExisting(ctx, log, accountID, week)
		}
		return Outcome{}, common.NewInternalError("failed to record round-up request", err)
	}

	job := Job{
		RequestID:      req.RequestID,
		AccountID:      accountID,
		GoalID:         goalID,
		WeekCommencing: week,
		CorrelationID:  logger.CorrelationIDFromContext(ctx),
	}
	if err := s.dispatcher.Submit(job); err != nil {
		log.Error("round-up dispatch rejected", zap.String("request_id", req.RequestID.String()), zap.Error(err))
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if uerr := s.ledger.UpdateStatusAndAmount(markCtx, accountID, week, StatusFailed, 0); uerr != nil {
			log.Error("failed to mark rejected round-up as FAILED", zap.Error(uerr))
		}
		admissionsTotal.WithLabelValues("DISPATCH_REJECTED").Inc()
		return Outcome{}, common.NewServiceUnavailableError(ErrDispatchRejected.Error(), fmt.Errorf("%w: %v", ErrDispatchRejected, err))
	}

	log.Info("round-up accepted",
		logger.Goal(goalID),
		zap.String("request_id", req.RequestID.String()))
	admissionsTotal.WithLabelValues(string(OutcomeAccepted)).Inc()
	return Accepted(req.RequestID), nil
}

// CheckStatus reports the ledger record for the week without side effects.
func (s *Service) CheckStatus(ctx context.Context, accountID string, week time.Time) (StatusReport, error) {
	week, err := NormalizeWeek(week)
	if err != nil {
		return StatusReport{}, common.NewBadRequestError(ErrInvalidWeek.Error(), err)
	}
	req, err := s.find(ctx, accountID, week)
	if err != nil {
		return StatusReport{}, err
	}
	if req == nil {
		return StatusReport{Found: false}, nil
	}

	report := StatusReport{
		Found:     true,
		Status:    req.Status,
		RequestID: req.RequestID,
	}
	if req.Status == StatusCompleted {
		report.Amount = req.RoundUpAmount
	}
	return report, nil
}

func (s *Service) find(ctx context.Context, accountID string, week time.Time) (*Request, error) {
	req, err := s.ledger.Find(ctx, accountID, week)
	if errors.Is(err, ErrRequestNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewInternalError("failed to read round-up request", err)
	}
	return req, nil
}

// resolveExisting reports whatever record beat us to the ledger. It never starts a run.
func (s *Service) resolveExisting(ctx context.Context, log *zap.Logger, accountID string, week time.Time) (Outcome, error) {
	existing, err := s.find(ctx, accountID, week)
	if err != nil {
		return Outcome{}, err
	}
	outcome, done := shortCircuit(existing)
	if !done {
		// record flipped back to FAILED in between; the caller may retry
		outcome = AlreadyInProgress()
	}
	log.Info("round-up admission lost to existing record", zap.String("outcome", string(outcome.Kind)))
	admissionsTotal.WithLabelValues(string(outcome.Kind)).Inc()
	return outcome, nil
}

func (s *Service) release(ctx context.Context, key, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.locker.Release(releaseCtx, key, token); err != nil {
		// lock expires on its own TTL
		logger.WithContext(ctx).Warn("failed to release admission lock", zap.Error(err))
	}
}

func shortCircuit(req *Request) (Outcome, bool) {
	if req == nil {
		return Outcome{}, false
	}
	switch req.Status {
	case StatusCompleted:
		return AlreadyCompleted(req.RoundUpAmount), true
	case StatusInProgress:
		return AlreadyInProgress(), true
	}
	return Outcome{}, false
}
