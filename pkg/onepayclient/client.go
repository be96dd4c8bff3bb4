/**
 * @description
 * This package provides a client for the onepay recurring-billing gateway.
 * It encapsulates the logic for making authenticated HTTP requests to the
 * gateway's subscription endpoints, handling request body construction, and
 * parsing the {status, message, data} response envelope.
 */
package onepayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/paydeck/console-service/internal/domain"
	"github.com/paydeck/console-service/internal/observability"
)

var (
	// ErrNetwork marks a transport-level failure before any response arrived.
	ErrNetwork = errors.New("network error")
	// ErrMalformedResponse marks a response body that did not match the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSubscriptionNotFound is returned when the gateway does not know the
	// requested subscription id.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrEmptySubscriptionID is returned before any request is made when the
	// caller passes an empty id.
	ErrEmptySubscriptionID = errors.New("subscription id cannot be empty")
)

// APIError represents a rejection from the gateway (a non-2xx response).
// Message carries the gateway's message verbatim when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("onepay api error: status %d", e.StatusCode)
}

// Client is a client for the onepay gateway. The auth token and app id are
// supplied by configuration and attached to every request.
type Client struct {
	BaseURL    string
	AuthToken  string
	AppID      string
	HTTPClient *http.Client

	// Logger and Metrics are optional; a nil value disables them.
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewClient creates a new onepay gateway client.
func NewClient(baseURL, authToken, appID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		AuthToken: authToken,
		AppID:     appID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope is the wrapper shape shared by every gateway response.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateSubscriptionData is the payload returned by a successful creation.
// A non-empty URL means the customer must complete an initial charge on the
// hosted payment page before the subscription is finalized.
type CreateSubscriptionData struct {
	SubscriptionID  string `json:"subscription_id"`
	CustomerID      string `json:"customer_id"`
	Interval        string `json:"interval"`
	IntervalCount   int    `json:"interval_count"`
	TrialPeriodDays int    `json:"trial_period_days"`
	DaysUntilDue    int    `json:"days_until_due"`
	Status          string `json:"status"`
	URL             string `json:"url"`
}

// PaymentRequired reports whether the gateway issued a hosted payment page
// for this subscription.
func (d *CreateSubscriptionData) PaymentRequired() bool {
	return d.URL != ""
}

// createSubscriptionBody flattens the app id into the creation request, as
// the gateway expects.
type createSubscriptionBody struct {
	AppID string `json:"app_id"`
	domain.SubscriptionCreateRequest
}

// CreateSubscription submits a subscription-creation request to the gateway.
func (c *Client) CreateSubscription(ctx context.Context, req domain.SubscriptionCreateRequest) (*CreateSubscriptionData, error) {
	body := createSubscriptionBody{AppID: c.AppID, SubscriptionCreateRequest: req}

	data, err := c.do(ctx, http.MethodPost, c.BaseURL+"/v3/subscription/", body, "create_subscription")
	if err != nil {
		return nil, err
	}

	var created CreateSubscriptionData
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("decoding create subscription data: %w: %v", ErrMalformedResponse, err)
	}
	return &created, nil
}

// ListSubscriptions fetches every subscription visible to the configured app.
// Rows are returned in the order the gateway sent them.
func (c *Client) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	data, err := c.do(ctx, http.MethodGet, c.BaseURL+"/v3/subscription", nil, "list_subscriptions")
	if err != nil {
		return nil, err
	}

	var subscriptions []domain.Subscription
	if err := json.Unmarshal(data, &subscriptions); err != nil {
		return nil, fmt.Errorf("decoding subscription list: %w: %v", ErrMalformedResponse, err)
	}
	return subscriptions, nil
}

// GetSubscription fetches one subscription's transaction history by id.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*domain.SubscriptionDetails, error) {
	if subscriptionID == "" {
		return nil, ErrEmptySubscriptionID
	}

	data, err := c.do(ctx, http.MethodGet, c.BaseURL+"/v3/subscription/"+subscriptionID+"/", nil, "get_subscription")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("subscription %s: %w", subscriptionID, ErrSubscriptionNotFound)
		}
		return nil, err
	}

	var details domain.SubscriptionDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("decoding subscription details: %w: %v", ErrMalformedResponse, err)
	}
	return &details, nil
}

// do executes one authenticated request and returns the raw data portion of
// the response envelope. Each call is exactly-once; there are no retries.
func (c *Client) do(ctx context.Context, method, url string, payload any, operation string) (json.RawMessage, error) {
	start := time.Now()
	data, err := c.execute(ctx, method, url, payload)
	c.Metrics.RecordGatewayRequest(operation, outcomeLabel(err), time.Since(start))
	return data, err
}

func (c *Client) execute(ctx context.Context, method, url string, payload any) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", c.AuthToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env envelope
		if err := json.Unmarshal(bodyBytes, &env); err == nil {
			apiErr.Message = env.Message
		}
		c.logWarn("gateway rejected request",
			"method", method, "url", url, "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}

	var env envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w: %v", ErrMalformedResponse, err)
	}
	return env.Data, nil
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Warn(msg, args...)
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	case errors.Is(err, ErrMalformedResponse):
		return "parse_error"
	default:
		return "rejected"
	}
}
