package assistant

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntentTransfer(t *testing.T) {
	resp := ParseIntent("send 5000 to +7 747 123-45-67")

	require.NotNil(t, resp.Action)
	assert.Equal(t, ActionTransfer, *resp.Action)
	require.NotNil(t, resp.Data)
	assert.True(t, resp.Data.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "87471234567", resp.Data.Phone)
	assert.NotEmpty(t, resp.Reply)
}

func TestParseIntentDecimalAmount(t *testing.T) {
	resp := ParseIntent("transfer 1500.50 to 87001234567")

	require.NotNil(t, resp.Data)
	assert.True(t, resp.Data.Amount.Equal(decimal.RequireFromString("1500.50")))
}

func TestParseIntentCommaAmount(t *testing.T) {
	resp := ParseIntent("pay 250,75 to 87001234567")

	require.NotNil(t, resp.Data)
	assert.True(t, resp.Data.Amount.Equal(decimal.RequireFromString("250.75")))
}

func TestParseIntentPhoneDigitsNotMistakenForAmount(t *testing.T) {
	// The only number in the message is the phone; there is no amount.
	resp := ParseIntent("send money to 87001234567")

	assert.Nil(t, resp.Action)
	assert.Nil(t, resp.Data)
	assert.Contains(t, resp.Reply, "amount")
}

func TestParseIntentMissingPhone(t *testing.T) {
	resp := ParseIntent("send 5000 to my friend")

	assert.Nil(t, resp.Action)
	assert.Contains(t, resp.Reply, "phone")
}

func TestParseIntentNoTransferVerb(t *testing.T) {
	resp := ParseIntent("what is my balance?")

	assert.Nil(t, resp.Action)
	assert.Nil(t, resp.Data)
	assert.NotEmpty(t, resp.Reply)
}
