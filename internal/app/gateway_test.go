package app

import (
	"context"
	"testing"
	"time"

	"github.com/paydeck/console-service/internal/domain"
	"github.com/paydeck/console-service/pkg/onepayclient"
)

// stubGateway implements Gateway with overridable function fields.
type stubGateway struct {
	createFn func(ctx context.Context, req domain.SubscriptionCreateRequest) (*onepayclient.CreateSubscriptionData, error)
	listFn   func(ctx context.Context) ([]domain.Subscription, error)
	getFn    func(ctx context.Context, subscriptionID string) (*domain.SubscriptionDetails, error)
}

func (s *stubGateway) CreateSubscription(ctx context.Context, req domain.SubscriptionCreateRequest) (*onepayclient.CreateSubscriptionData, error) {
	if s.createFn == nil {
		return &onepayclient.CreateSubscriptionData{}, nil
	}
	return s.createFn(ctx, req)
}

func (s *stubGateway) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s *stubGateway) GetSubscription(ctx context.Context, subscriptionID string) (*domain.SubscriptionDetails, error) {
	if s.getFn == nil {
		return &domain.SubscriptionDetails{SubscriptionID: subscriptionID}, nil
	}
	return s.getFn(ctx, subscriptionID)
}

// waitFor polls until cond holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// validFields returns a creation request that passes validation.
func validFields() domain.SubscriptionCreateRequest {
	fields := domain.NewSubscriptionCreateRequest()
	fields.Name = "Gold Plan"
	fields.Amount = 1500
	fields.CustomerDetails = domain.CustomerDetails{
		FirstName:   "Amal",
		LastName:    "Perera",
		Email:       "amal.perera@example.com",
		PhoneNumber: "+94771234567",
	}
	return fields
}
