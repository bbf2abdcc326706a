package feed

import (
	"sync"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
)

type subscriber struct {
	onChange func(domain.QueueSnapshot)

	mu      sync.Mutex
	pending *domain.QueueSnapshot
	latest  time.Time

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSubscriber(onChange func(domain.QueueSnapshot)) *subscriber {
	return &subscriber{
		onChange: onChange,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// offer replaces any undelivered snapshot. Snapshots older than the newest one
// already offered are dropped, so a slow initial read cannot overwrite a newer push.
func (s *subscriber) offer(snapshot domain.QueueSnapshot) {
	s.mu.Lock()
	if snapshot.TakenAt.Before(s.latest) {
		s.mu.Unlock()
		return
	}
	s.latest = snapshot.TakenAt
	s.pending = &snapshot
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
			s.mu.Lock()
			snapshot := s.pending
			s.pending = nil
			s.mu.Unlock()

			if snapshot != nil {
				s.onChange(*snapshot)
			}
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		subscribersActive.Dec()
	})
}
