/**
 * @description
 * This file contains the subscription creation flow: an explicit finite state
 * machine over the creation form. The form moves closed -> open -> submitting
 * and resolves to pending_redirect, succeeded, or failed. Delayed side
 * effects (opening the hosted payment page, closing the form) run on a
 * cancellable settle timer so a dismantled flow never fires them.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paydeck/console-service/internal/domain"
	"github.com/paydeck/console-service/internal/observability"
)

// FlowStatus is the state of the creation form.
type FlowStatus string

const (
	FlowClosed          FlowStatus = "closed"
	FlowOpen            FlowStatus = "open"
	FlowSubmitting      FlowStatus = "submitting"
	FlowPendingRedirect FlowStatus = "pending_redirect"
	FlowSucceeded       FlowStatus = "succeeded"
	FlowFailed          FlowStatus = "failed"
)

// defaultSettleDelay is how long the success notice stays up before the
// redirect or close side effect fires.
const defaultSettleDelay = 2 * time.Second

var (
	// ErrSubmitInFlight is returned when a submission is attempted while one
	// is already being processed.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	// ErrFlowNotOpen is returned when a submission is attempted while the
	// form is not open for input.
	ErrFlowNotOpen = errors.New("creation form is not open")
	// ErrFlowDismantled is returned for any operation on a dismantled flow.
	ErrFlowDismantled = errors.New("creation flow has been dismantled")
)

// ValidationError reports the field-level problems that blocked a
// submission. The form state does not transition on validation failure.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "creation request failed validation"
}

// FlowSnapshot is a point-in-time copy of the creation form state.
type FlowSnapshot struct {
	Status         FlowStatus
	Fields         domain.SubscriptionCreateRequest
	FieldErrors    map[string]string
	Failure        string
	SubscriptionID string
	PaymentURL     string
}

// CreationFlowConfig carries the collaborators and tunables for a flow.
type CreationFlowConfig struct {
	Gateway Gateway
	Logger  *slog.Logger
	Metrics *observability.Metrics

	// SettleDelay overrides the delay before the post-success side effect.
	SettleDelay time.Duration
	// OpenPaymentPage is invoked with the hosted payment page URL when the
	// gateway requires an initial charge. Fire-and-forget.
	OpenPaymentPage func(url string)
	// OnComplete is invoked once after a fully finalized creation, after the
	// form has closed and reset.
	OnComplete func()
}

// CreationFlow owns the creation form state machine. All transitions go
// through its methods; the zero state is closed.
type CreationFlow struct {
	gateway         Gateway
	logger          *slog.Logger
	metrics         *observability.Metrics
	settleDelay     time.Duration
	openPaymentPage func(string)
	onComplete      func()

	mu             sync.Mutex
	status         FlowStatus
	fields         domain.SubscriptionCreateRequest
	fieldErrors    map[string]string
	failure        string
	subscriptionID string
	paymentURL     string
	settleToken    uuid.UUID
	settleTimer    *time.Timer
	dismantled     bool
}

// NewCreationFlow creates a creation flow in the closed state.
func NewCreationFlow(cfg CreationFlowConfig) *CreationFlow {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.SettleDelay
	if delay <= 0 {
		delay = defaultSettleDelay
	}

	return &CreationFlow{
		gateway:         cfg.Gateway,
		logger:          logger,
		metrics:         cfg.Metrics,
		settleDelay:     delay,
		openPaymentPage: cfg.OpenPaymentPage,
		onComplete:      cfg.OnComplete,
		status:          FlowClosed,
		fields:          domain.NewSubscriptionCreateRequest(),
	}
}

// Open shows the form with default field values. It only acts from the
// closed state.
func (f *CreationFlow) Open() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dismantled || f.status != FlowClosed {
		return
	}
	f.status = FlowOpen
	f.fields = domain.NewSubscriptionCreateRequest()
	f.fieldErrors = nil
	f.failure = ""
	f.subscriptionID = ""
	f.paymentURL = ""
}

// Submit validates the fields and, when they pass, starts exactly one
// creation call. The returned channel delivers the snapshot taken when the
// call resolves. While a submission is in flight further submits are
// rejected with ErrSubmitInFlight; validation failures block submission
// without a state transition and are reported as *ValidationError.
func (f *CreationFlow) Submit(ctx context.Context, fields domain.SubscriptionCreateRequest) (<-chan FlowSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dismantled {
		return nil, ErrFlowDismantled
	}
	if f.status == FlowSubmitting {
		return nil, ErrSubmitInFlight
	}
	if f.status != FlowOpen && f.status != FlowFailed {
		return nil, ErrFlowNotOpen
	}

	if fieldErrors := domain.ValidateCreateRequest(fields); len(fieldErrors) > 0 {
		f.fields = fields
		f.fieldErrors = fieldErrors
		return nil, &ValidationError{Fields: fieldErrors}
	}

	f.status = FlowSubmitting
	f.fields = fields
	f.fieldErrors = nil
	f.failure = ""
	f.subscriptionID = ""
	f.paymentURL = ""

	resolved := make(chan FlowSnapshot, 1)
	go f.resolve(ctx, fields, resolved)
	return resolved, nil
}

// resolve applies the gateway's answer to the form state and schedules the
// delayed side effect for the success branches.
func (f *CreationFlow) resolve(ctx context.Context, fields domain.SubscriptionCreateRequest, resolved chan<- FlowSnapshot) {
	created, err := f.gateway.CreateSubscription(ctx, fields)

	f.mu.Lock()
	if f.dismantled {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		f.logger.Debug("discarding creation result for dismantled flow")
		resolved <- snap
		return
	}

	switch {
	case err != nil:
		f.status = FlowFailed
		f.failure = failureMessage(err, "Failed to create subscription")
		f.metrics.RecordCreationOutcome(string(FlowFailed))
		f.logger.Warn("subscription creation failed", "error", err)

	case created.PaymentRequired():
		f.status = FlowPendingRedirect
		f.subscriptionID = created.SubscriptionID
		f.paymentURL = created.URL
		f.metrics.RecordCreationOutcome(string(FlowPendingRedirect))
		f.logger.Info("subscription created, payment pending",
			"subscription_id", created.SubscriptionID)
		url := created.URL
		f.scheduleLocked(func() { f.firePaymentRedirect(url) })

	default:
		f.status = FlowSucceeded
		f.subscriptionID = created.SubscriptionID
		f.metrics.RecordCreationOutcome(string(FlowSucceeded))
		f.logger.Info("subscription created", "subscription_id", created.SubscriptionID)
		f.scheduleLocked(f.settleSucceeded)
	}

	snap := f.snapshotLocked()
	f.mu.Unlock()
	resolved <- snap
}

// scheduleLocked arms the settle timer with a fresh cancellation token.
// Callers must hold f.mu.
func (f *CreationFlow) scheduleLocked(action func()) {
	token := uuid.New()
	f.settleToken = token
	if f.settleTimer != nil {
		f.settleTimer.Stop()
	}
	f.settleTimer = time.AfterFunc(f.settleDelay, func() {
		f.mu.Lock()
		if f.dismantled || f.settleToken != token {
			f.mu.Unlock()
			return
		}
		f.settleToken = uuid.Nil
		f.mu.Unlock()
		action()
	})
}

// firePaymentRedirect hands the hosted payment page URL to the opener. The
// form stays in pending_redirect; completion of the external payment is not
// tracked.
func (f *CreationFlow) firePaymentRedirect(url string) {
	if f.openPaymentPage != nil {
		f.openPaymentPage(url)
	}
}

// settleSucceeded closes and resets the form after a finalized creation,
// then fires the completion callback.
func (f *CreationFlow) settleSucceeded() {
	f.mu.Lock()
	if f.dismantled || f.status != FlowSucceeded {
		f.mu.Unlock()
		return
	}
	f.status = FlowClosed
	f.fields = domain.NewSubscriptionCreateRequest()
	f.fieldErrors = nil
	f.failure = ""
	f.subscriptionID = ""
	f.paymentURL = ""
	done := f.onComplete
	f.mu.Unlock()

	if done != nil {
		done()
	}
}

// Cancel discards the form state and returns to closed. It is available
// while the form is open or failed and has no side effects.
func (f *CreationFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != FlowOpen && f.status != FlowFailed {
		return
	}
	f.status = FlowClosed
	f.fields = domain.NewSubscriptionCreateRequest()
	f.fieldErrors = nil
	f.failure = ""
}

// Dismantle tears the flow down. Any pending settle action is cancelled and
// will not fire.
func (f *CreationFlow) Dismantle() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dismantled = true
	f.status = FlowClosed
	f.settleToken = uuid.Nil
	if f.settleTimer != nil {
		f.settleTimer.Stop()
		f.settleTimer = nil
	}
}

// Snapshot returns a copy of the current form state.
func (f *CreationFlow) Snapshot() FlowSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *CreationFlow) snapshotLocked() FlowSnapshot {
	var fieldErrors map[string]string
	if len(f.fieldErrors) > 0 {
		fieldErrors = make(map[string]string, len(f.fieldErrors))
		for field, msg := range f.fieldErrors {
			fieldErrors[field] = msg
		}
	}
	return FlowSnapshot{
		Status:         f.status,
		Fields:         f.fields,
		FieldErrors:    fieldErrors,
		Failure:        f.failure,
		SubscriptionID: f.subscriptionID,
		PaymentURL:     f.paymentURL,
	}
}
