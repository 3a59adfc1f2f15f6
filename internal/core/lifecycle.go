package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/metrics"
	"favorx-backend-go/internal/models"
	"favorx-backend-go/internal/notify"
	"favorx-backend-go/pkg/database"
)

// Action names a lifecycle transition.
type Action string

const (
	ActionAccept         Action = "accept"
	ActionRelease        Action = "release"
	ActionEndOngoing     Action = "endOngoing"
	ActionFinishApproval Action = "finishApproval"
	ActionRevertApproval Action = "revertApproval"
)

// SettlementReward is credited to the taker when a request is finished.
const SettlementReward int64 = 1

type role int

const (
	roleRequester role = iota
	roleTaker
)

func (r role) String() string {
	if r == roleRequester {
		return "requester"
	}
	return "taker"
}

type transition struct {
	action Action
	role   role
}

type statusPair struct {
	from, to models.RequestStatus
}

// transitions is the complete set of allowed status changes. Anything not
// listed here is rejected.
var transitions = map[statusPair]transition{
	{models.StatusPending, models.StatusOngoing}:           {ActionAccept, roleTaker},
	{models.StatusOngoing, models.StatusPending}:           {ActionRelease, roleTaker},
	{models.StatusOngoing, models.StatusAwaitingApproval}:  {ActionEndOngoing, roleTaker},
	{models.StatusAwaitingApproval, models.StatusFinished}: {ActionFinishApproval, roleRequester},
	{models.StatusAwaitingApproval, models.StatusOngoing}:  {ActionRevertApproval, roleRequester},
}

// requesterNotices are sent to the requester after the given action.
var requesterNotices = map[Action]struct{ title, body string }{
	ActionAccept: {
		"Request Taken",
		"Your request has been taken!\nCheck your open requests for more information",
	},
	ActionEndOngoing: {
		"Your request has been finished!",
		"Approve the request to get your coins",
	},
	ActionFinishApproval: {
		"Thank you for using our app!",
		"Your request has been approved and your coins have been added to your balance",
	},
}

// AllowedTransition reports the action for from -> to, if the pair is in the table.
func AllowedTransition(from, to models.RequestStatus) (Action, bool) {
	t, ok := transitions[statusPair{from, to}]
	return t.action, ok
}

// lifecycleService implements the LifecycleService interface.
type lifecycleService struct {
	requests   db.RequestRepository
	backend    *db.Backend
	ledger     LedgerService
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewLifecycleService creates a LifecycleService. dispatcher may be nil, in
// which case no notifications are sent.
func NewLifecycleService(requests db.RequestRepository, backend *db.Backend, ledger LedgerService, dispatcher *notify.Dispatcher, logger *zap.Logger) LifecycleService {
	return &lifecycleService{
		requests:   requests,
		backend:    backend,
		ledger:     ledger,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ChangeRequestStatus moves the request from expected to next on behalf of
// the principal in ctx. The change is rejected with an InvalidTransitionError
// when the request is not currently in expected, the pair is not in the
// transition table, or the principal does not hold the required role.
func (s *lifecycleService) ChangeRequestStatus(ctx context.Context, requestID string, expected, next models.RequestStatus) (*models.Request, error) {
	principal, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}
	from, ok := models.ParseRequestStatus(string(expected))
	if !ok {
		return nil, &database.ValidationError{Field: "expected", Message: fmt.Sprintf("unknown status %q", expected)}
	}
	to, ok := models.ParseRequestStatus(string(next))
	if !ok {
		return nil, &database.ValidationError{Field: "next", Message: fmt.Sprintf("unknown status %q", next)}
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: request with ID '%s'", ErrRequestNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to load request '%s': %w", requestID, err)
	}

	t, ok := transitions[statusPair{from, to}]
	if !ok {
		metrics.RecordTransition("unknown", false)
		return nil, &InvalidTransitionError{RequestID: requestID, Current: req.Status, Expected: from, Next: to, Reason: "transition is not allowed"}
	}

	// check runs once on the read above and again on the stored document at
	// write time, so a concurrent change between the two is caught.
	check := func(current *models.Request) error {
		reason := ""
		switch {
		case current.Status != from:
			reason = "request is not in the expected state"
		case !holdsRole(current, principal.UID, t):
			reason = fmt.Sprintf("only the %s may %s this request", t.role, t.action)
		default:
			return nil
		}
		return &InvalidTransitionError{RequestID: requestID, Current: current.Status, Expected: from, Next: to, Reason: reason}
	}
	if err := check(req); err != nil {
		metrics.RecordTransition(string(t.action), false)
		return nil, err
	}

	fields := map[string]interface{}{"status": string(to)}
	switch t.action {
	case ActionAccept:
		fields["takenBy"] = principal.UID
	case ActionRelease:
		fields["takenBy"] = nil
	}
	req, err = s.requests.UpdateFieldsIf(ctx, requestID, check, fields)
	if err != nil {
		metrics.RecordTransition(string(t.action), false)
		var invalid *InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			return nil, err
		case errors.Is(err, db.ErrNotFound):
			return nil, fmt.Errorf("%w: request with ID '%s'", ErrRequestNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to change status of request '%s': %w", requestID, err)
	}
	switch t.action {
	case ActionAccept:
		taker := principal.UID
		req.TakenBy = &taker
	case ActionRelease:
		req.TakenBy = nil
	}
	req.Status = to
	metrics.RecordTransition(string(t.action), true)

	s.logger.Info("Request status changed",
		zap.String("requestID", requestID),
		zap.String("action", string(t.action)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("by", principal.UID))

	// Only the caller whose conditional write moved the request to finished
	// gets here, so settlement happens once per request.
	if t.action == ActionFinishApproval {
		s.settle(ctx, req)
	}
	s.notifyRequester(ctx, req, t.action)
	return req, nil
}

func holdsRole(req *models.Request, uid string, t transition) bool {
	if t.role == roleRequester {
		return req.UID == uid
	}
	if t.action == ActionAccept {
		return req.UID != uid
	}
	return req.IsTakenBy(uid)
}

// settle credits the taker of a finished request. A request without a taker
// is logged and skipped.
func (s *lifecycleService) settle(ctx context.Context, req *models.Request) {
	if req.TakenBy == nil || *req.TakenBy == "" {
		s.logger.Warn("Finished request has no taker, skipping settlement", zap.String("requestID", req.ID))
		return
	}
	taker := *req.TakenBy
	balance := s.backend.AddCoinsToUser(ctx, taker, SettlementReward)
	if balance == nil {
		s.logger.Error("Settlement credit failed", zap.String("requestID", req.ID), zap.String("takenBy", taker))
		return
	}
	recordQuietly(ctx, s.ledger, s.logger, models.CoinTransaction{
		UserID:       taker,
		Amount:       SettlementReward,
		Type:         models.TxSettlement,
		RequestID:    req.ID,
		Counterparty: req.UID,
		BalanceAfter: balance,
	})
}

func (s *lifecycleService) notifyRequester(ctx context.Context, req *models.Request, action Action) {
	notice, ok := requesterNotices[action]
	if !ok || s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, notify.Notification{
		UserID:    req.UID,
		Title:     notice.title,
		Body:      notice.body,
		RequestID: req.ID,
	})
}
