// Package feed implements the queue change feed: full active-entry snapshots
// pushed to every subscriber of a barber's queue, optionally bridged across
// instances over Redis Pub/Sub.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
)

// ErrStopped is returned by Subscribe after the broker has been stopped.
var ErrStopped = errors.New("change feed stopped")

// Snapshotter reads the current active entries of a barber's queue.
type Snapshotter interface {
	QueryActive(ctx context.Context, barberID string) ([]domain.QueueEntry, error)
}

// Bus carries change signals between instances. Only barber IDs travel over
// the bus; every instance builds snapshots from its own store reads.
type Bus interface {
	Publish(ctx context.Context, barberID string) error
	// Run blocks delivering remote change signals to onChange until ctx is done.
	Run(ctx context.Context, onChange func(barberID string)) error
}

// Broker fans queue snapshots out to in-process subscribers.
type Broker struct {
	source Snapshotter
	bus    Bus
	now    func() time.Time

	mu      sync.Mutex
	subs    map[string]map[uint64]*subscriber
	nextID  uint64
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBroker creates a broker reading snapshots from source. bus may be nil for
// a single instance deployment.
func NewBroker(source Snapshotter, bus Bus) *Broker {
	return &Broker{
		source: source,
		bus:    bus,
		now:    time.Now,
		subs:   make(map[string]map[uint64]*subscriber),
	}
}

// Start runs the bus listener, if any. It returns immediately.
func (b *Broker) Start(ctx context.Context) {
	if b.bus == nil {
		return
	}

	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		slog.Info("change feed bus listener started")

		for {
			err := b.bus.Run(ctx, func(barberID string) {
				if err := b.broadcast(ctx, barberID); err != nil {
					slog.Error("failed to broadcast remote queue change", "barber_id", barberID, "error", err)
				}
			})
			if ctx.Err() != nil {
				return
			}
			slog.Warn("change feed bus listener stopped, restarting", "error", err)
			recordPublishFailure("bus")

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}()
}

// Stop detaches every subscriber and waits for the bus listener to exit.
func (b *Broker) Stop() {
	b.mu.Lock()
	b.stopped = true
	all := b.subs
	b.subs = make(map[string]map[uint64]*subscriber)
	b.mu.Unlock()

	for _, group := range all {
		for _, s := range group {
			s.close()
		}
	}

	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	slog.Info("change feed stopped")
}

// Publish pushes the current snapshot of barberID's queue to local subscribers
// and signals other instances over the bus.
func (b *Broker) Publish(ctx context.Context, barberID string) error {
	var errs []error

	if err := b.broadcast(ctx, barberID); err != nil {
		errs = append(errs, err)
	}

	if b.bus != nil {
		if err := b.bus.Publish(ctx, barberID); err != nil {
			recordPublishFailure("bus")
			errs = append(errs, fmt.Errorf("publish to bus: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Subscribe registers onChange for barberID's queue. The current snapshot is
// delivered right away; later deliveries follow every Publish. onChange runs on
// a dedicated goroutine and, when it falls behind, only the latest snapshot is kept.
func (b *Broker) Subscribe(ctx context.Context, barberID string, onChange func(domain.QueueSnapshot)) (func(), error) {
	s := newSubscriber(onChange)

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, ErrStopped
	}
	b.nextID++
	id := b.nextID
	if b.subs[barberID] == nil {
		b.subs[barberID] = make(map[uint64]*subscriber)
	}
	b.subs[barberID][id] = s
	b.mu.Unlock()

	subscribersActive.Inc()
	go s.run()

	snapshot, err := b.snapshot(ctx, barberID)
	if err != nil {
		b.unsubscribe(barberID, id)
		return nil, err
	}
	s.offer(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(barberID, id) })
	}, nil
}

func (b *Broker) unsubscribe(barberID string, id uint64) {
	b.mu.Lock()
	s, ok := b.subs[barberID][id]
	if ok {
		delete(b.subs[barberID], id)
		if len(b.subs[barberID]) == 0 {
			delete(b.subs, barberID)
		}
	}
	b.mu.Unlock()

	if ok {
		s.close()
	}
}

func (b *Broker) broadcast(ctx context.Context, barberID string) error {
	b.mu.Lock()
	group := make([]*subscriber, 0, len(b.subs[barberID]))
	for _, s := range b.subs[barberID] {
		group = append(group, s)
	}
	b.mu.Unlock()

	if len(group) == 0 {
		return nil
	}

	snapshot, err := b.snapshot(ctx, barberID)
	if err != nil {
		return err
	}

	for _, s := range group {
		s.offer(snapshot)
	}
	recordDelivered(len(group))
	return nil
}

func (b *Broker) snapshot(ctx context.Context, barberID string) (domain.QueueSnapshot, error) {
	takenAt := b.now().UTC()

	entries, err := b.source.QueryActive(ctx, barberID)
	if err != nil {
		recordPublishFailure("snapshot")
		return domain.QueueSnapshot{}, fmt.Errorf("read queue snapshot: %w", err)
	}

	return domain.QueueSnapshot{
		BarberID: barberID,
		Entries:  entries,
		TakenAt:  takenAt,
	}, nil
}

// Subscribers returns the number of local subscribers of barberID's queue.
func (b *Broker) Subscribers(barberID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[barberID])
}
