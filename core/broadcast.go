package core

import "context"

// Broadcaster is any service that can push a named event with a JSON payload
// to a topic. Delivery is fire-and-forget: implementations report transport
// errors but offer no acknowledgment or retry.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic, event string, payload interface{}) error
}
