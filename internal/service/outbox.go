package service

import (
	"context"
	"time"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"

	"github.com/google/uuid"
)

// outbox sequences and chains events under the ledger mutex, then hands
// them to the sinks once the mutex is released.
type outbox struct {
	seq     uint64
	head    string
	pending []domain.Event
	clock   func() time.Time
}

func newOutbox(clock func() time.Time) *outbox {
	return &outbox{head: genesisDigest, clock: clock}
}

// record must be called with the ledger mutex held.
func (o *outbox) record(e domain.Event) domain.Event {
	o.seq++
	e.ID = uuid.New()
	e.Sequence = o.seq
	e.OccurredAt = o.clock().UTC().Truncate(time.Microsecond)
	e.PrevDigest = o.head
	e.Digest = eventDigest(o.head, e)
	o.head = e.Digest
	o.pending = append(o.pending, e)
	return e
}

// drain must be called with the ledger mutex held.
func (o *outbox) drain() []domain.Event {
	out := o.pending
	o.pending = nil
	return out
}

// maxJournalBacklog bounds the events held for a journal that keeps
// failing. Past it the oldest batch is dropped and the journal has a gap.
const maxJournalBacklog = 10000

// flush publishes everything recorded so far. Publication is serialized so
// sinks observe sequence order. Sink failures are logged; the ledger state
// they describe is already committed. A batch a journal rejects is kept and
// prepended to the next flush, so the journal stays a gap-free prefix of
// the event history.
func (l *Ledger) flush(ctx context.Context) {
	l.publishMu.Lock()
	defer l.publishMu.Unlock()

	l.mu.Lock()
	events := l.events.drain()
	l.mu.Unlock()
	if len(events) == 0 && len(l.backlog) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, sink := range l.sinks {
		_, durable := sink.(ports.EventJournal)
		batch := events
		if durable {
			batch = append(l.backlog[sink.Name()], events...)
		}
		if len(batch) == 0 {
			continue
		}

		err := sink.Publish(ctx, batch)
		if err == nil {
			if durable {
				delete(l.backlog, sink.Name())
			}
			continue
		}
		l.log.Error().Err(err).
			Str("sink", sink.Name()).
			Uint64("first_sequence", batch[0].Sequence).
			Int("count", len(batch)).
			Msg("event sink publish failed")
		if durable {
			l.backlog[sink.Name()] = l.trimBacklog(sink.Name(), batch)
		}
	}
}

func (l *Ledger) trimBacklog(name string, batch []domain.Event) []domain.Event {
	if len(batch) <= maxJournalBacklog {
		return batch
	}
	dropped := len(batch) - maxJournalBacklog
	l.log.Error().
		Str("sink", name).
		Uint64("first_sequence", batch[0].Sequence).
		Int("dropped", dropped).
		Msg("journal backlog full, dropping oldest events")
	return batch[dropped:]
}

// JournalBacklog returns how many events are waiting to be retried against
// the named journal.
func (l *Ledger) JournalBacklog(name string) int {
	l.publishMu.Lock()
	defer l.publishMu.Unlock()
	return len(l.backlog[name])
}
