/**
 * @description
 * This file contains the subscription detail view: a per-visit read model
 * over one subscription's transaction history with derived payment
 * statistics. Loads are keyed by subscription id and a load token, so
 * switching to another subscription mid-flight discards the earlier
 * response instead of flashing stale data.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/paydeck/console-service/internal/domain"
	"github.com/paydeck/console-service/pkg/onepayclient"
)

// DetailState is the lifecycle state of the detail view. An unresolvable id
// terminates in DetailNotFound, which renders distinctly from a generic
// error.
type DetailState string

const (
	DetailLoading  DetailState = "loading"
	DetailLoaded   DetailState = "loaded"
	DetailError    DetailState = "error"
	DetailNotFound DetailState = "not_found"
)

// DetailSnapshot is a point-in-time copy of the detail view state.
type DetailSnapshot struct {
	State          DetailState
	SubscriptionID string
	Details        *domain.SubscriptionDetails
	Stats          domain.TransactionStats
	Message        string
}

// DetailView fetches one subscription's transaction history and derives its
// aggregate statistics. The history is rebuilt from scratch on every load.
type DetailView struct {
	gateway Gateway
	logger  *slog.Logger

	mu          sync.Mutex
	id          string
	state       DetailState
	details     *domain.SubscriptionDetails
	stats       domain.TransactionStats
	message     string
	currentLoad uuid.UUID
	dismantled  bool
}

// NewDetailView creates a detail view in the loading state.
func NewDetailView(gateway Gateway, logger *slog.Logger) *DetailView {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailView{
		gateway: gateway,
		logger:  logger,
		state:   DetailLoading,
	}
}

// Show points the view at a subscription id and starts one detail fetch. The
// returned channel delivers the snapshot once the fetch has been applied (or
// discarded because the id changed while it was in flight).
func (v *DetailView) Show(ctx context.Context, subscriptionID string) <-chan DetailSnapshot {
	done := make(chan DetailSnapshot, 1)

	v.mu.Lock()
	if v.dismantled {
		snap := v.snapshotLocked()
		v.mu.Unlock()
		done <- snap
		return done
	}
	token := uuid.New()
	v.id = subscriptionID
	v.currentLoad = token
	v.state = DetailLoading
	v.details = nil
	v.stats = domain.TransactionStats{}
	v.message = ""
	v.mu.Unlock()

	go func() {
		details, err := v.gateway.GetSubscription(ctx, subscriptionID)

		v.mu.Lock()
		if v.dismantled || v.currentLoad != token || v.id != subscriptionID {
			snap := v.snapshotLocked()
			v.mu.Unlock()
			v.logger.Debug("discarding stale subscription detail response",
				"subscription_id", subscriptionID)
			done <- snap
			return
		}

		switch {
		case errors.Is(err, onepayclient.ErrSubscriptionNotFound),
			errors.Is(err, onepayclient.ErrEmptySubscriptionID):
			v.state = DetailNotFound
			v.logger.Info("subscription not found", "subscription_id", subscriptionID)
		case err != nil:
			v.state = DetailError
			v.message = failureMessage(err, "Failed to fetch subscription details")
			v.logger.Warn("subscription detail fetch failed",
				"subscription_id", subscriptionID, "error", err)
		default:
			v.state = DetailLoaded
			v.details = details
			v.stats = domain.ComputeTransactionStats(details.SubscriptionTransactions)
		}
		snap := v.snapshotLocked()
		v.mu.Unlock()
		done <- snap
	}()

	return done
}

// Snapshot returns a copy of the current view state.
func (v *DetailView) Snapshot() DetailSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Dismantle stops the view from applying any further fetch results.
func (v *DetailView) Dismantle() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dismantled = true
	v.currentLoad = uuid.Nil
}

func (v *DetailView) snapshotLocked() DetailSnapshot {
	snap := DetailSnapshot{
		State:          v.state,
		SubscriptionID: v.id,
		Stats:          v.stats,
		Message:        v.message,
	}
	if v.details != nil {
		details := *v.details
		details.SubscriptionTransactions = make([]domain.SubscriptionTransaction, len(v.details.SubscriptionTransactions))
		copy(details.SubscriptionTransactions, v.details.SubscriptionTransactions)
		snap.Details = &details
	}
	return snap
}
