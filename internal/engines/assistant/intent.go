package assistant

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bellybank/bellybank/internal/engines"
)

// Verbs that signal a transfer command.
var transferVerbs = []string{"transfer", "send", "pay"}

var (
	amountPattern = regexp.MustCompile(`\d+(?:[.,]\d{1,2})?`)
	phonePattern  = regexp.MustCompile(`(?:\+?\d[\d\s\-()]{9,16}\d)`)
)

// ParseIntent recognizes transfer commands in free text. A message counts as
// a transfer when it contains a transfer verb, an amount and a phone number;
// anything else gets a generic reply.
func ParseIntent(message string) *Response {
	lower := strings.ToLower(message)

	hasVerb := false
	for _, verb := range transferVerbs {
		if strings.Contains(lower, verb) {
			hasVerb = true
			break
		}
	}
	if !hasVerb {
		return &Response{
			Reply: "I can help with transfers, e.g. \"send 5000 to 87001234567\". For balances and products, check the home screen.",
		}
	}

	phone := phonePattern.FindString(message)
	if phone == "" {
		return &Response{Reply: "Who should receive the transfer? Please include the recipient's phone number."}
	}

	// Strip the phone before searching for the amount so its digits don't
	// get mistaken for one.
	withoutPhone := strings.Replace(message, phone, "", 1)
	amountText := amountPattern.FindString(withoutPhone)
	if amountText == "" {
		return &Response{Reply: "How much should I transfer? Please include the amount."}
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(amountText, ",", "."))
	if err != nil || !amount.IsPositive() {
		return &Response{Reply: "I couldn't read the amount, please rephrase."}
	}

	normalized := engines.NormalizePhone(phone)
	action := ActionTransfer
	return &Response{
		Reply:  "Transfer " + amount.StringFixed(0) + " to " + normalized + "?",
		Action: &action,
		Data: &TransferIntent{
			Amount: amount,
			Phone:  normalized,
		},
	}
}
