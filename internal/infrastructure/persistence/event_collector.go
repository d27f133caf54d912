package persistence

import "github.com/retailops/backend/internal/domain/shared"

// eventCollector gathers domain events drained from aggregates as they are
// saved inside a transaction. The transactor publishes the collected events
// only after the transaction commits, so a rolled-back operation never
// leaks its events.
type eventCollector struct {
	events []shared.DomainEvent
}

// drain moves the aggregate's pending events into the collector. Nil-safe
// so repositories work unchanged when no publisher is wired.
func (c *eventCollector) drain(agg shared.AggregateRoot) {
	if c == nil {
		return
	}
	c.events = append(c.events, agg.GetDomainEvents()...)
	agg.ClearDomainEvents()
}
