package events

import "fmt"

// Topic scheme: bellybank/events/transactions/<kind>.
//
// Retained messages are never used; events are a stream, not state.
const topicPrefix = "bellybank/events/transactions"

// TopicFor returns the broker topic for a transaction kind.
func TopicFor(kind Kind) string {
	return fmt.Sprintf("%s/%s", topicPrefix, kind)
}
