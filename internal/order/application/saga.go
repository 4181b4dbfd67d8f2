package application

import (
	"fmt"

	"github.com/google/uuid"
)

type placementState string

const (
	stateValidating placementState = "validating"
	stateVerifying  placementState = "verifying"
	stateReserving  placementState = "reserving"
	statePersisting placementState = "persisting"
	stateCompleted  placementState = "completed"
	stateFailed     placementState = "failed"
)

// reservation records one applied stock decrement so it can be released if
// a later saga step fails.
type reservation struct {
	productID string
	quantity  int
	key       string
}

// placement tracks one run of the order-placement saga: an idempotency key
// minted per attempt, the current step, and the decrements applied so far.
// Stock is reserved before the order is persisted, so there is never a
// stored order whose inventory was not decremented; the failure mode is the
// reverse, and release() compensates for it.
type placement struct {
	key      string
	state    placementState
	reserved []reservation
}

func newPlacement() *placement {
	return &placement{key: uuid.NewString(), state: stateValidating}
}

func (p *placement) advance(next placementState) {
	p.state = next
}

func (p *placement) fail() {
	p.state = stateFailed
}

// lineKey derives the per-line idempotency key. Keyed by line index, not
// product id, so duplicate lines for one product are distinct requests.
func (p *placement) lineKey(line int) string {
	return fmt.Sprintf("%s:%d", p.key, line)
}

func (p *placement) reserve(productID string, quantity int, key string) {
	p.reserved = append(p.reserved, reservation{productID: productID, quantity: quantity, key: key})
}
