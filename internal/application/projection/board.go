package projection

import (
	"context"
	"sync"

	"github.com/garyjia/branch-forms/internal/application/dispatcher"
	"github.com/garyjia/branch-forms/internal/domain/entity"
	"github.com/garyjia/branch-forms/internal/domain/event"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// StatusBoard keeps per-type, per-status record counts current from record events
type StatusBoard struct {
	mu     sync.RWMutex
	counts map[entity.RequestType]map[domainwf.Status]int
}

// NewStatusBoard creates an empty board
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{counts: make(map[entity.RequestType]map[domainwf.Status]int)}
}

// Seed replaces the counts with a stored snapshot
func (b *StatusBoard) Seed(counts map[entity.RequestType]map[domainwf.Status]int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counts = make(map[entity.RequestType]map[domainwf.Status]int, len(counts))
	for t, byStatus := range counts {
		b.counts[t] = make(map[domainwf.Status]int, len(byStatus))
		for s, n := range byStatus {
			b.counts[t][s] = n
		}
	}
}

// Register subscribes the board to record events
func (b *StatusBoard) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeRecordSubmitted, "status-board.submitted", b.handle)
	d.SubscribeNamed(event.TypeRecordTransitioned, "status-board.transitioned", b.handle)
}

func (b *StatusBoard) handle(ctx context.Context, evt *event.Event) error {
	t := entity.RequestType(evt.RequestType)
	from := domainwf.Status(evt.GetPayloadString(event.KeyFromStatus))
	to := domainwf.Status(evt.GetPayloadString(event.KeyToStatus))

	b.mu.Lock()
	defer b.mu.Unlock()

	byStatus := b.counts[t]
	if byStatus == nil {
		byStatus = make(map[domainwf.Status]int)
		b.counts[t] = byStatus
	}
	if evt.Type == event.TypeRecordTransitioned && from != "" && byStatus[from] > 0 {
		byStatus[from]--
	}
	if to != "" {
		byStatus[to]++
	}
	return nil
}

// Snapshot returns a copy of the current counts
func (b *StatusBoard) Snapshot() map[entity.RequestType]map[domainwf.Status]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[entity.RequestType]map[domainwf.Status]int, len(b.counts))
	for t, byStatus := range b.counts {
		out[t] = make(map[domainwf.Status]int, len(byStatus))
		for s, n := range byStatus {
			out[t][s] = n
		}
	}
	return out
}
