/**
 * @description
 * This file defines the domain types for the onepay subscription gateway.
 * All structs mirror the gateway's wire format; fetched records are read-only
 * snapshots of remote state and are never mutated locally.
 */
package domain

import "time"

// Currency and interval values accepted by the gateway.
const (
	CurrencyLKR = "LKR"
	CurrencyUSD = "USD"

	IntervalDay   = "DAY"
	IntervalWeek  = "WEEK"
	IntervalMonth = "MONTH"
	IntervalYear  = "YEAR"
)

// CustomerDetails identifies the customer a subscription is created for.
// It has no lifecycle of its own; it is embedded in a creation request.
type CustomerDetails struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// SubscriptionCreateRequest is the client-originated payload for creating a
// subscription. It is constructed locally, immutable once submitted, and
// discarded after the request resolves.
type SubscriptionCreateRequest struct {
	Name            string          `json:"name" validate:"required"`
	Amount          float64         `json:"amount" validate:"gt=0"`
	Currency        string          `json:"currency" validate:"required,oneof=LKR USD"`
	Interval        string          `json:"interval" validate:"required,oneof=DAY WEEK MONTH YEAR"`
	IntervalCount   int             `json:"interval_count" validate:"min=1"`
	DaysUntilDue    int             `json:"days_until_due" validate:"min=0"`
	TrialPeriodDays int             `json:"trial_period_days" validate:"min=0"`
	CustomerDetails CustomerDetails `json:"customer_details"`
}

// NewSubscriptionCreateRequest returns a request populated with the creation
// form defaults.
func NewSubscriptionCreateRequest() SubscriptionCreateRequest {
	return SubscriptionCreateRequest{
		Currency:      CurrencyLKR,
		Interval:      IntervalMonth,
		IntervalCount: 1,
		DaysUntilDue:  1,
	}
}

// Subscription is the list projection returned by the gateway. Amount arrives
// already formatted by the remote service and is displayed as-is.
type Subscription struct {
	SubscriptionID    string `json:"subscription_id"`
	Name              string `json:"name"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	TrialPeriodDays   int    `json:"trial_period_days"`
	Interval          string `json:"interval"`
	IntervalCount     int    `json:"interval_count"`
	IsActive          bool   `json:"is_active"`
	StatusDescription string `json:"status_description"`
	NextActionAt      string `json:"next_action_at"`
}

// SubscriptionTransaction is one billing attempt against a subscription.
// Status true means the charge succeeded.
type SubscriptionTransaction struct {
	ID                  int64  `json:"id"`
	OnepayTransactionID string `json:"onepay_transaction_id"`
	Status              bool   `json:"status"`
	StatusDescription   string `json:"status_description"`
	CreatedAt           string `json:"created_at"`
}

// CreatedAtLocal formats the transaction timestamp for local display. The
// underlying value is never recomputed; an unparsable timestamp passes
// through verbatim.
func (t SubscriptionTransaction) CreatedAtLocal() string {
	parsed, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return t.CreatedAt
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}

// SubscriptionDetails is the per-subscription transaction history, rebuilt
// from scratch on every detail fetch.
type SubscriptionDetails struct {
	SubscriptionID           string                    `json:"subscription_id"`
	AppID                    string                    `json:"app_id"`
	SubscriptionTransactions []SubscriptionTransaction `json:"subscription_transactions"`
}

// TransactionStats are the aggregates derived from a transaction history.
// Successful + Failed always equals Total.
type TransactionStats struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// ComputeTransactionStats derives the payment statistics for a transaction
// sequence. The empty sequence yields all zeroes.
func ComputeTransactionStats(txns []SubscriptionTransaction) TransactionStats {
	stats := TransactionStats{Total: len(txns)}
	for _, txn := range txns {
		if txn.Status {
			stats.Successful++
		} else {
			stats.Failed++
		}
	}
	return stats
}
