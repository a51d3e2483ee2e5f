package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "bellybank/events/transactions/transfer", TopicFor(KindTransfer))
	assert.Equal(t, "bellybank/events/transactions/service_payment", TopicFor(KindServicePayment))
	assert.Equal(t, "bellybank/events/transactions/loan_disbursed", TopicFor(KindLoanDisbursed))
	assert.Equal(t, "bellybank/events/transactions/deposit_closed", TopicFor(KindDepositClosed))
}

func TestTransactionEventJSON(t *testing.T) {
	from := int64(10)
	evt := &TransactionEvent{
		TransactionID: 1,
		UserID:        42,
		FromAccountID: &from,
		Amount:        decimal.RequireFromString("1500.50"),
		Category:      "Transfer to client",
		Kind:          KindTransfer,
		OccurredAt:    time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}

	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "transfer", decoded["kind"])
	assert.Equal(t, "1500.5", decoded["amount"])
	assert.Equal(t, float64(10), decoded["from_account_id"])

	// Absent account references are omitted, not null.
	assert.NotContains(t, decoded, "to_account_id")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}

	// Must be safe to call with anything, including nil.
	p.PublishTransaction(nil)
	p.PublishTransaction(&TransactionEvent{})
	p.Close()
}
