/**
 * @description
 * This file defines the interface for billing gateway operations that the
 * console components need, along with the mapping from gateway errors to the
 * user-facing copy the views display.
 */
package app

import (
	"context"
	"errors"

	"github.com/paydeck/console-service/internal/domain"
	"github.com/paydeck/console-service/pkg/onepayclient"
)

// Gateway defines the remote billing operations the console depends on.
type Gateway interface {
	CreateSubscription(ctx context.Context, req domain.SubscriptionCreateRequest) (*onepayclient.CreateSubscriptionData, error)
	ListSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*domain.SubscriptionDetails, error)
}

// failureMessage converts a gateway error into the message shown to the
// operator. Remote rejections surface their message verbatim; transport and
// parse failures get generic copy.
func failureMessage(err error, fallback string) string {
	var apiErr *onepayclient.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	case errors.Is(err, onepayclient.ErrNetwork):
		return "Network error"
	case errors.Is(err, onepayclient.ErrMalformedResponse):
		return "Unexpected response from billing service"
	default:
		return fallback
	}
}
