package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paydeck/console-service/internal/app"
	"github.com/paydeck/console-service/internal/domain"
	"github.com/paydeck/console-service/internal/observability"
	"github.com/paydeck/console-service/pkg/onepayclient"
)

// stubGateway implements app.Gateway with overridable function fields.
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

func newTestRouter(t *testing.T, gateway app.Gateway) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	list := app.NewListView(gateway, logger)
	handler := NewHandler(gateway, list, logger, metrics, 5*time.Millisecond, nil)
	return NewRouter(handler, metrics)
}

func createBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	req := domain.NewSubscriptionCreateRequest()
	req.Name = "Gold Plan"
	req.Amount = 1500
	req.CustomerDetails = domain.CustomerDetails{
		FirstName:   "Amal",
		LastName:    "Perera",
		Email:       "amal.perera@example.com",
		PhoneNumber: "+94771234567",
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestListEndpoint_RendersRowsInGatewayOrder(t *testing.T) {
	gateway := &stubGateway{
		listFn: func(ctx context.Context) ([]domain.Subscription, error) {
			return []domain.Subscription{
				{SubscriptionID: "sub_2", Name: "Beta"},
				{SubscriptionID: "sub_1", Name: "Alpha"},
			}, nil
		},
	}
	router := newTestRouter(t, gateway)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []domain.Subscription `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].SubscriptionID != "sub_2" {
		t.Fatalf("unexpected rows: %+v", resp.Data)
	}
}

func TestListEndpoint_GatewayRejectionRendersMessage(t *testing.T) {
	gateway := &stubGateway{
		listFn: func(ctx context.Context) ([]domain.Subscription, error) {
			return nil, &onepayclient.APIError{StatusCode: 500, Message: "upstream unavailable"}
		},
	}
	router := newTestRouter(t, gateway)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message != "upstream unavailable" {
		t.Fatalf("expected verbatim message, got %q", resp.Message)
	}
}

func TestCreateEndpoint_ValidationErrorsReportedPerField(t *testing.T) {
	router := newTestRouter(t, &stubGateway{})

	body := bytes.NewBufferString(`{"name":"","amount":0,"currency":"LKR","interval":"MONTH","interval_count":1,"days_until_due":1,"customer_details":{}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", body))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Errors["name"] != "Name is required" {
		t.Fatalf("expected name error, got %v", resp.Errors)
	}
	if resp.Errors["amount"] != "Amount must be greater than 0" {
		t.Fatalf("expected amount error, got %v", resp.Errors)
	}
}

func TestCreateEndpoint_PendingRedirectCarriesPaymentURL(t *testing.T) {
	gateway := &stubGateway{
		createFn: func(ctx context.Context, req domain.SubscriptionCreateRequest) (*onepayclient.CreateSubscriptionData, error) {
			return &onepayclient.CreateSubscriptionData{
				SubscriptionID: "sub_1",
				URL:            "https://pay.example/abc",
			}, nil
		},
	}
	router := newTestRouter(t, gateway)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", createBody(t)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status         string `json:"status"`
		SubscriptionID string `json:"subscription_id"`
		PaymentURL     string `json:"payment_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != string(app.FlowPendingRedirect) {
		t.Fatalf("expected pending_redirect status, got %q", resp.Status)
	}
	if resp.PaymentURL != "https://pay.example/abc" {
		t.Fatalf("expected payment URL, got %q", resp.PaymentURL)
	}
}

func TestCreateEndpoint_FinalizedCreationOmitsPaymentURL(t *testing.T) {
	gateway := &stubGateway{
		createFn: func(ctx context.Context, req domain.SubscriptionCreateRequest) (*onepayclient.CreateSubscriptionData, error) {
			return &onepayclient.CreateSubscriptionData{SubscriptionID: "sub_1"}, nil
		},
	}
	router := newTestRouter(t, gateway)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", createBody(t)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != string(app.FlowSucceeded) {
		t.Fatalf("expected succeeded status, got %v", resp["status"])
	}
	if _, present := resp["payment_url"]; present {
		t.Fatalf("expected payment_url omitted, got %v", resp)
	}
}

func TestCreateEndpoint_GatewayRejectionRendersMessage(t *testing.T) {
	gateway := &stubGateway{
		createFn: func(ctx context.Context, req domain.SubscriptionCreateRequest) (*onepayclient.CreateSubscriptionData, error) {
			return nil, &onepayclient.APIError{StatusCode: 400, Message: "Card declined"}
		},
	}
	router := newTestRouter(t, gateway)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", createBody(t)))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message != "Card declined" {
		t.Fatalf("expected verbatim message, got %q", resp.Message)
	}
}

func TestDetailEndpoint_NotFound(t *testing.T) {
	gateway := &stubGateway{
		getFn: func(ctx context.Context, subscriptionID string) (*domain.SubscriptionDetails, error) {
			return nil, fmt.Errorf("subscription %s: %w", subscriptionID, onepayclient.ErrSubscriptionNotFound)
		},
	}
	router := newTestRouter(t, gateway)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions/sub_missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDetailEndpoint_RendersHistoryAndStats(t *testing.T) {
	gateway := &stubGateway{
		getFn: func(ctx context.Context, subscriptionID string) (*domain.SubscriptionDetails, error) {
			return &domain.SubscriptionDetails{
				SubscriptionID: subscriptionID,
				AppID:          "APP1189TEST",
				SubscriptionTransactions: []domain.SubscriptionTransaction{
					{ID: 1, OnepayTransactionID: "txn_1", Status: true, CreatedAt: "2026-08-01T10:00:00Z"},
					{ID: 2, OnepayTransactionID: "txn_2", Status: false, CreatedAt: "2026-08-02T10:00:00Z"},
				},
			}, nil
		},
	}
	router := newTestRouter(t, gateway)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions/sub_1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SubscriptionID string `json:"subscription_id"`
		AppID          string `json:"app_id"`
		Transactions   []struct {
			ID               int64  `json:"id"`
			CreatedAtDisplay string `json:"created_at_display"`
		} `json:"transactions"`
		Stats domain.TransactionStats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SubscriptionID != "sub_1" || resp.AppID != "APP1189TEST" {
		t.Fatalf("unexpected detail payload: %+v", resp)
	}
	if len(resp.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(resp.Transactions))
	}
	if resp.Transactions[0].CreatedAtDisplay == "" {
		t.Fatal("expected a local display timestamp")
	}
	want := domain.TransactionStats{Successful: 1, Failed: 1, Total: 2}
	if resp.Stats != want {
		t.Fatalf("expected stats %+v, got %+v", want, resp.Stats)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubGateway{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(t, &stubGateway{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
}
