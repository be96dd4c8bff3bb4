/**
 * @description
 * This file contains the subscription list view: a read model over the
 * gateway's list operation. Every load is keyed by a token; a resolution
 * whose token is no longer current is discarded so a stale response can
 * never overwrite newer state.
 */
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/paydeck/console-service/internal/domain"
)

// ViewState is the lifecycle state of a read-side view.
type ViewState string

const (
	ViewLoading ViewState = "loading"
	ViewLoaded  ViewState = "loaded"
	ViewError   ViewState = "error"
)

// ListSnapshot is a point-in-time copy of the list view state. Rows keep the
// order the gateway returned them in.
type ListSnapshot struct {
	State        ViewState
	Rows         []domain.Subscription
	Message      string
	RefreshCount int
}

// ListView fetches and holds the subscription collection. A fetch either
// fully succeeds or fully fails; there is no partial state.
type ListView struct {
	gateway Gateway
	logger  *slog.Logger

	mu           sync.Mutex
	state        ViewState
	rows         []domain.Subscription
	message      string
	refreshCount int
	currentLoad  uuid.UUID
	dismantled   bool
}

// NewListView creates a list view in the loading state.
func NewListView(gateway Gateway, logger *slog.Logger) *ListView {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListView{
		gateway: gateway,
		logger:  logger,
		state:   ViewLoading,
	}
}

// Load starts one list fetch and returns a channel that delivers the view
// snapshot once the fetch has been applied (or discarded as stale).
func (v *ListView) Load(ctx context.Context) <-chan ListSnapshot {
	done := make(chan ListSnapshot, 1)

	v.mu.Lock()
	if v.dismantled {
		snap := v.snapshotLocked()
		v.mu.Unlock()
		done <- snap
		return done
	}
	token := uuid.New()
	v.currentLoad = token
	v.state = ViewLoading
	v.mu.Unlock()

	go func() {
		rows, err := v.gateway.ListSubscriptions(ctx)

		v.mu.Lock()
		if v.dismantled || v.currentLoad != token {
			snap := v.snapshotLocked()
			v.mu.Unlock()
			v.logger.Debug("discarding stale subscription list response")
			done <- snap
			return
		}

		if err != nil {
			v.state = ViewError
			v.rows = nil
			v.message = failureMessage(err, "Failed to fetch data")
			v.logger.Warn("subscription list fetch failed", "error", err)
		} else {
			v.state = ViewLoaded
			v.rows = rows
			v.message = ""
		}
		snap := v.snapshotLocked()
		v.mu.Unlock()
		done <- snap
	}()

	return done
}

// Refresh is the completion signal target: it bumps the refresh counter and
// refetches the collection.
func (v *ListView) Refresh(ctx context.Context) <-chan ListSnapshot {
	v.mu.Lock()
	v.refreshCount++
	v.mu.Unlock()
	return v.Load(ctx)
}

// Snapshot returns a copy of the current view state.
func (v *ListView) Snapshot() ListSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Dismantle stops the view from applying any further fetch results.
func (v *ListView) Dismantle() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dismantled = true
	v.currentLoad = uuid.Nil
}

func (v *ListView) snapshotLocked() ListSnapshot {
	rows := make([]domain.Subscription, len(v.rows))
	copy(rows, v.rows)
	return ListSnapshot{
		State:        v.state,
		Rows:         rows,
		Message:      v.message,
		RefreshCount: v.refreshCount,
	}
}
