// Package events publishes ledger activity to an MQTT broker so downstream
// consumers (notification senders, fraud scoring, analytics) can react to
// money movements without polling the database.
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionEvent is the payload published for every recorded transaction.
type TransactionEvent struct {
	TransactionID int64           `json:"transaction_id"`
	UserID        int64           `json:"user_id"`
	FromAccountID *int64          `json:"from_account_id,omitempty"`
	ToAccountID   *int64          `json:"to_account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Kind          Kind            `json:"kind"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Kind classifies the operation that produced a transaction.
type Kind string

const (
	KindTransfer       Kind = "transfer"
	KindServicePayment Kind = "service_payment"
	KindLoanDisbursed  Kind = "loan_disbursed"
	KindLoanPayment    Kind = "loan_payment"
	KindDepositOpened  Kind = "deposit_opened"
	KindDepositClosed  Kind = "deposit_closed"
	KindInsurance      Kind = "insurance_premium"
)

// Publisher delivers transaction events. Publishing is best-effort: the
// ledger write has already committed, so implementations log failures
// instead of propagating them into request handling.
type Publisher interface {
	PublishTransaction(evt *TransactionEvent)
	Close()
}

// NopPublisher discards all events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishTransaction(*TransactionEvent) {}
func (NopPublisher) Close()                               {}
