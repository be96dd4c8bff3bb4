/**
 * @description
 * This file contains the HTTP handler functions for the console service.
 * Handlers parse incoming requests, drive the console components in
 * internal/app, and translate their snapshots into HTTP responses. Every
 * gateway failure resolves to a JSON message, never an unhandled error.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paydeck/console-service/internal/app"
	"github.com/paydeck/console-service/internal/domain"
	"github.com/paydeck/console-service/internal/observability"
)

// Handler holds the console components the HTTP surface exposes. The list
// view is page-resident and shared; detail views are built per visit.
type Handler struct {
	gateway app.Gateway
	list    *app.ListView
	logger  *slog.Logger
	metrics *observability.Metrics

	settleDelay     time.Duration
	openPaymentPage func(url string)
}

// NewHandler creates a new Handler around the shared gateway and list view.
func NewHandler(gateway app.Gateway, list *app.ListView, logger *slog.Logger, metrics *observability.Metrics, settleDelay time.Duration, openPaymentPage func(string)) *Handler {
	return &Handler{
		gateway:         gateway,
		list:            list,
		logger:          logger,
		metrics:         metrics,
		settleDelay:     settleDelay,
		openPaymentPage: openPaymentPage,
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

type listResponse struct {
	Data []domain.Subscription `json:"data"`
}

type createResponse struct {
	Status         string `json:"status"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	PaymentURL     string `json:"payment_url,omitempty"`
}

type validationResponse struct {
	Errors map[string]string `json:"errors"`
}

type transactionResponse struct {
	ID                  int64  `json:"id"`
	OnepayTransactionID string `json:"onepay_transaction_id"`
	Status              bool   `json:"status"`
	StatusDescription   string `json:"status_description"`
	CreatedAt           string `json:"created_at"`
	CreatedAtDisplay    string `json:"created_at_display"`
}

type detailResponse struct {
	SubscriptionID string                  `json:"subscription_id"`
	AppID          string                  `json:"app_id"`
	Transactions   []transactionResponse   `json:"transactions"`
	Stats          domain.TransactionStats `json:"stats"`
}

// handleListSubscriptions drives the resident list view through one fetch
// and renders its rows in gateway order.
func (h *Handler) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	snap := <-h.list.Load(r.Context())

	if snap.State == app.ViewError {
		respondWithJSON(w, http.StatusBadGateway, errorResponse{Message: snap.Message})
		return
	}
	respondWithJSON(w, http.StatusOK, listResponse{Data: snap.Rows})
}

// handleCreateSubscription runs one creation flow: open, submit, and report
// the resolution. The flow's settle timer outlives the request; on the
// finalized path it refreshes the list view.
func (h *Handler) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscriptionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}

	flow := app.NewCreationFlow(app.CreationFlowConfig{
		Gateway:         h.gateway,
		Logger:          h.logger,
		Metrics:         h.metrics,
		SettleDelay:     h.settleDelay,
		OpenPaymentPage: h.openPaymentPage,
		OnComplete: func() {
			// The request context is gone by the time the settle timer
			// fires; refresh on a background context.
			h.list.Refresh(context.Background())
		},
	})
	flow.Open()

	resolved, err := flow.Submit(r.Context(), req)
	if err != nil {
		var verr *app.ValidationError
		if errors.As(err, &verr) {
			respondWithJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: verr.Fields})
			return
		}
		respondWithJSON(w, http.StatusConflict, errorResponse{Message: err.Error()})
		return
	}

	snap := <-resolved
	switch snap.Status {
	case app.FlowFailed:
		respondWithJSON(w, http.StatusBadGateway, errorResponse{Message: snap.Failure})
	default:
		respondWithJSON(w, http.StatusCreated, createResponse{
			Status:         string(snap.Status),
			SubscriptionID: snap.SubscriptionID,
			PaymentURL:     snap.PaymentURL,
		})
	}
}

// handleGetSubscription builds a per-visit detail view for the requested id.
func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	subscriptionID := chi.URLParam(r, "subscriptionID")

	view := app.NewDetailView(h.gateway, h.logger)
	snap := <-view.Show(r.Context(), subscriptionID)

	switch snap.State {
	case app.DetailNotFound:
		respondWithJSON(w, http.StatusNotFound, errorResponse{Message: "Subscription not found"})
	case app.DetailError:
		respondWithJSON(w, http.StatusBadGateway, errorResponse{Message: snap.Message})
	default:
		resp := detailResponse{
			SubscriptionID: snap.Details.SubscriptionID,
			AppID:          snap.Details.AppID,
			Transactions:   make([]transactionResponse, 0, len(snap.Details.SubscriptionTransactions)),
			Stats:          snap.Stats,
		}
		for _, txn := range snap.Details.SubscriptionTransactions {
			resp.Transactions = append(resp.Transactions, transactionResponse{
				ID:                  txn.ID,
				OnepayTransactionID: txn.OnepayTransactionID,
				Status:              txn.Status,
				StatusDescription:   txn.StatusDescription,
				CreatedAt:           txn.CreatedAt,
				CreatedAtDisplay:    txn.CreatedAtLocal(),
			})
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
