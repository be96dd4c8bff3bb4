package domain

import (
	"testing"
	"time"
)

func TestComputeTransactionStats(t *testing.T) {
	tests := []struct {
		name string
		txns []SubscriptionTransaction
		want TransactionStats
	}{
		{
			name: "empty history",
			txns: nil,
			want: TransactionStats{},
		},
		{
			name: "all successful",
			txns: []SubscriptionTransaction{{Status: true}, {Status: true}},
			want: TransactionStats{Successful: 2, Total: 2},
		},
		{
			name: "all failed",
			txns: []SubscriptionTransaction{{Status: false}, {Status: false}, {Status: false}},
			want: TransactionStats{Failed: 3, Total: 3},
		},
		{
			name: "mixed",
			txns: []SubscriptionTransaction{{Status: true}, {Status: false}, {Status: true}},
			want: TransactionStats{Successful: 2, Failed: 1, Total: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTransactionStats(tt.txns)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
			if got.Successful+got.Failed != got.Total {
				t.Fatalf("stats invariant violated: %+v", got)
			}
		})
	}
}

func TestNewSubscriptionCreateRequest_Defaults(t *testing.T) {
	req := NewSubscriptionCreateRequest()

	if req.Amount != 0 {
		t.Fatalf("expected default amount 0, got %v", req.Amount)
	}
	if req.Currency != CurrencyLKR {
		t.Fatalf("expected default currency %q, got %q", CurrencyLKR, req.Currency)
	}
	if req.Interval != IntervalMonth {
		t.Fatalf("expected default interval %q, got %q", IntervalMonth, req.Interval)
	}
	if req.IntervalCount != 1 {
		t.Fatalf("expected default interval count 1, got %d", req.IntervalCount)
	}
	if req.DaysUntilDue != 1 {
		t.Fatalf("expected default days until due 1, got %d", req.DaysUntilDue)
	}
	if req.TrialPeriodDays != 0 {
		t.Fatalf("expected default trial period 0, got %d", req.TrialPeriodDays)
	}
	if req.CustomerDetails != (CustomerDetails{}) {
		t.Fatalf("expected empty customer details, got %+v", req.CustomerDetails)
	}
}

func TestCreatedAtLocal_FormatsParsableTimestamp(t *testing.T) {
	txn := SubscriptionTransaction{CreatedAt: "2026-08-01T10:30:00Z"}

	want := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC).Local().Format("2006-01-02 15:04:05")
	if got := txn.CreatedAtLocal(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCreatedAtLocal_PassesUnparsableValueThrough(t *testing.T) {
	txn := SubscriptionTransaction{CreatedAt: "next tuesday"}

	if got := txn.CreatedAtLocal(); got != "next tuesday" {
		t.Fatalf("expected raw value passthrough, got %q", got)
	}
}
