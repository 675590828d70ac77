package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscription_TotalCharge(t *testing.T) {
	sub := Subscription{Amount: 10_000000, ProcessorFee: 500000}
	assert.Equal(t, int64(10_500000), sub.TotalCharge())

	sub.ProcessorFee = 0
	assert.Equal(t, int64(10_000000), sub.TotalCharge())
}

func TestSubscription_IsExpiredByEndDate(t *testing.T) {
	now := int64(1_700_000_000)

	tests := []struct {
		name    string
		endDate int64
		want    bool
	}{
		{name: "no end date", endDate: 0, want: false},
		{name: "end date in future", endDate: now + 1, want: false},
		{name: "end date equals now", endDate: now, want: true},
		{name: "end date in past", endDate: now - 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{EndDate: tt.endDate}
			assert.Equal(t, tt.want, sub.IsExpiredByEndDate(now))
		})
	}
}

func TestSubscription_IsExpiredByMaxPayments(t *testing.T) {
	tests := []struct {
		name         string
		maxPayments  int64
		paymentCount int64
		want         bool
	}{
		{name: "no limit", maxPayments: 0, paymentCount: 100, want: false},
		{name: "below limit", maxPayments: 3, paymentCount: 2, want: false},
		{name: "at limit", maxPayments: 3, paymentCount: 3, want: true},
		{name: "above limit", maxPayments: 3, paymentCount: 4, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{MaxPayments: tt.maxPayments, PaymentCount: tt.paymentCount}
			assert.Equal(t, tt.want, sub.IsExpiredByMaxPayments())
		})
	}
}

func TestCancellationReasonValues(t *testing.T) {
	// Строковые значения причин — внешний контракт событий.
	assert.Equal(t, "user_cancelled", string(ReasonUserCancelled))
	assert.Equal(t, "expired_end_date", string(ReasonExpiredEndDate))
	assert.Equal(t, "expired_max_payments", string(ReasonExpiredMaxPayments))
	assert.Equal(t, "auto_cancelled_failures", string(ReasonAutoCancelled))
}

func TestFailureReasonValues(t *testing.T) {
	assert.Equal(t, "Insufficient PYUSD balance", string(FailureInsufficientBalance))
	assert.Equal(t, "Insufficient PYUSD allowance", string(FailureInsufficientAllowance))
}
