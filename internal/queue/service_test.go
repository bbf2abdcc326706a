package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/feed"
	"github.com/bissquit/barber-queue/internal/queue"
	"github.com/bissquit/barber-queue/internal/queue/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const barberID = "barber-x"

type sentMessage struct {
	kind  string
	phone string
	salon string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockNotifier) record(kind string, barber *domain.Barber, entry domain.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{kind: kind, phone: entry.Phone, salon: barber.SalonName})
	return m.err
}

func (m *mockNotifier) QueueConfirmation(_ context.Context, barber *domain.Barber, entry domain.QueueEntry) error {
	return m.record("queue_confirmation", barber, entry)
}

func (m *mockNotifier) QueueAlert(_ context.Context, barber *domain.Barber, entry domain.QueueEntry) error {
	return m.record("queue_alert", barber, entry)
}

func (m *mockNotifier) NextInLine(_ context.Context, barber *domain.Barber, entry domain.QueueEntry) error {
	return m.record("next_in_line", barber, entry)
}

func (m *mockNotifier) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *mockNotifier) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

type mockFeed struct {
	mu        sync.Mutex
	published []string
}

func (m *mockFeed) Publish(_ context.Context, barberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, barberID)
	return nil
}

func (m *mockFeed) Subscribe(context.Context, string, func(domain.QueueSnapshot)) (func(), error) {
	return func() {}, nil
}

func (m *mockFeed) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

// failingRepo wraps a repository and fails writes once armed.
type failingRepo struct {
	queue.Repository
	failUpdate bool
	failInsert bool
	failQuery  bool
}

var errStoreDown = errors.New("connection reset")

func (f *failingRepo) Insert(ctx context.Context, e *domain.QueueEntry) error {
	if f.failInsert {
		return errStoreDown
	}
	return f.Repository.Insert(ctx, e)
}

func (f *failingRepo) Update(ctx context.Context, id string, p domain.QueueEntryPatch) error {
	if f.failUpdate {
		return errStoreDown
	}
	return f.Repository.Update(ctx, id, p)
}

func (f *failingRepo) QueryByStatus(ctx context.Context, b string, s domain.QueueStatus) ([]domain.QueueEntry, error) {
	if f.failQuery {
		return nil, errStoreDown
	}
	return f.Repository.QueryByStatus(ctx, b, s)
}

type fixture struct {
	store    *memory.Store
	repo     *failingRepo
	notifier *mockNotifier
	feed     *mockFeed
	svc      *queue.Service
	owner    domain.Viewer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutBarber(domain.Barber{
		ID:             barberID,
		Name:           "Tunde",
		SalonName:      "Fresh Cuts",
		AcceptsWalkIns: true,
		IsAvailable:    true,
	})

	f := &fixture{
		store:    store,
		repo:     &failingRepo{Repository: store},
		notifier: &mockNotifier{},
		feed:     &mockFeed{},
		owner:    domain.Viewer{BarberID: barberID},
	}
	f.svc = queue.NewService(f.repo, store, f.feed, f.notifier, queue.Config{AverageServiceMinutes: 20})
	return f
}

func (f *fixture) join(t *testing.T, name, phone string) *domain.QueueEntry {
	t.Helper()
	e, err := f.svc.Join(context.Background(), queue.JoinInput{BarberID: barberID, CustomerName: name, Phone: phone})
	require.NoError(t, err)
	f.settle(t)
	return e
}

// settle waits for background notifications to finish.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Drain(ctx))
}

func (f *fixture) active(t *testing.T) []domain.QueueEntry {
	t.Helper()
	entries, err := f.store.QueryActive(context.Background(), barberID)
	require.NoError(t, err)
	return entries
}

func TestJoin_AssignsPositionAndEstimate(t *testing.T) {
	f := newFixture(t)

	a := f.join(t, "Ada", "+2348000000001")
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 20, a.EstimatedWaitMinutes)
	assert.Equal(t, domain.QueueStatusWaiting, a.Status)
	assert.NotEmpty(t, a.ID)

	b := f.join(t, "Bola", "+2348000000002")
	assert.Equal(t, 2, b.Position)
	assert.Equal(t, 40, b.EstimatedWaitMinutes)
}

func TestJoin_SendsConfirmationAndPublishes(t *testing.T) {
	f := newFixture(t)

	f.join(t, "Ada", "+2348000000001")

	assert.Equal(t, []sentMessage{
		{kind: "queue_confirmation", phone: "+2348000000001", salon: "Fresh Cuts"},
	}, f.notifier.messages())
	assert.Equal(t, 1, f.feed.count())
}

func TestJoin_NormalizesPhone(t *testing.T) {
	f := newFixture(t)

	e := f.join(t, "Ada", "00234 800-000-0001")
	assert.Equal(t, "+2348000000001", e.Phone)

	_, err := f.svc.Join(context.Background(), queue.JoinInput{BarberID: barberID, CustomerName: "Ada", Phone: "+2348000000001"})
	assert.ErrorIs(t, err, queue.ErrDuplicateEntry)
}

func TestJoin_RejectsDuplicateWaitingPhone(t *testing.T) {
	f := newFixture(t)
	f.join(t, "Ada", "+2348000000001")
	f.notifier.reset()

	_, err := f.svc.Join(context.Background(), queue.JoinInput{BarberID: barberID, CustomerName: "Ada", Phone: "+2348000000001"})
	assert.ErrorIs(t, err, queue.ErrDuplicateEntry)
	f.settle(t)
	assert.Len(t, f.active(t), 1)
	assert.Empty(t, f.notifier.messages())
}

func TestJoin_AllowedAgainOnceServed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.join(t, "Ada", "+2348000000001")
	_, err := f.svc.Start(ctx, a.ID, f.owner)
	require.NoError(t, err)

	// in_progress does not block a new waiting entry for the same phone
	again, err := f.svc.Join(ctx, queue.JoinInput{BarberID: barberID, CustomerName: "Ada", Phone: "+2348000000001"})
	require.NoError(t, err)
	assert.Equal(t, 2, again.Position)

	_, err = f.svc.Complete(ctx, a.ID, f.owner)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, again.ID, f.owner)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, again.ID, f.owner)
	require.NoError(t, err)

	third, err := f.svc.Join(ctx, queue.JoinInput{BarberID: barberID, CustomerName: "Ada", Phone: "+2348000000001"})
	require.NoError(t, err)
	assert.Equal(t, 1, third.Position)
}

func TestJoin_SamePhoneDifferentBarber(t *testing.T) {
	f := newFixture(t)
	f.store.PutBarber(domain.Barber{ID: "barber-y", AcceptsWalkIns: true, IsAvailable: true})

	f.join(t, "Ada", "+2348000000001")
	e, err := f.svc.Join(context.Background(), queue.JoinInput{BarberID: "barber-y", CustomerName: "Ada", Phone: "+2348000000001"})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Position)
}

func TestJoin_BarberPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		barber  *domain.Barber
		id      string
		wantErr error
	}{
		{
			name:    "unknown barber",
			id:      "nobody",
			wantErr: queue.ErrBarberNotFound,
		},
		{
			name:    "not accepting walk-ins",
			barber:  &domain.Barber{ID: "b-closed", AcceptsWalkIns: false, IsAvailable: true},
			id:      "b-closed",
			wantErr: queue.ErrBarberUnavailable,
		},
		{
			name:    "not available",
			barber:  &domain.Barber{ID: "b-away", AcceptsWalkIns: true, IsAvailable: false},
			id:      "b-away",
			wantErr: queue.ErrBarberUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.barber != nil {
				f.store.PutBarber(*tt.barber)
			}

			_, err := f.svc.Join(context.Background(), queue.JoinInput{BarberID: tt.id, CustomerName: "Ada", Phone: "+2348000000001"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.notifier.messages())
		})
	}
}

func TestJoin_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.failInsert = true

	_, err := f.svc.Join(context.Background(), queue.JoinInput{BarberID: barberID, CustomerName: "Ada", Phone: "+2348000000001"})
	require.ErrorIs(t, err, queue.ErrPersistence)
	assert.ErrorIs(t, err, errStoreDown)
	f.settle(t)
	assert.Empty(t, f.notifier.messages())
	assert.Equal(t, 0, f.feed.count())
}

func TestJoin_NotifierErrorIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("provider down")

	e, err := f.svc.Join(context.Background(), queue.JoinInput{BarberID: barberID, CustomerName: "Ada", Phone: "+2348000000001"})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Position)
	assert.Len(t, f.active(t), 1)
}

func TestStart_MovesToInProgressSilently(t *testing.T) {
	f := newFixture(t)
	a := f.join(t, "Ada", "+2348000000001")
	f.notifier.reset()

	started, err := f.svc.Start(context.Background(), a.ID, f.owner)
	require.NoError(t, err)
	f.settle(t)
	assert.Equal(t, domain.QueueStatusInProgress, started.Status)
	assert.Equal(t, 1, started.Position)
	assert.Empty(t, f.notifier.messages())
}

func TestComplete_RecomputesAndNotifiesSuccessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.join(t, "Ada", "+2348000000001")
	b := f.join(t, "Bola", "+2348000000002")
	_, err := f.svc.Start(ctx, a.ID, f.owner)
	require.NoError(t, err)
	f.notifier.reset()

	done, err := f.svc.Complete(ctx, a.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusCompleted, done.Status)
	f.settle(t)

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)
	assert.Equal(t, 1, active[0].Position)

	assert.Equal(t, []sentMessage{
		{kind: "queue_alert", phone: "+2348000000002", salon: "Fresh Cuts"},
		{kind: "next_in_line", phone: "+2348000000002", salon: "Fresh Cuts"},
	}, f.notifier.messages())
}

func TestComplete_WithoutSuccessorSendsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.join(t, "Ada", "+2348000000001")
	_, err := f.svc.Start(ctx, a.ID, f.owner)
	require.NoError(t, err)
	f.notifier.reset()

	_, err = f.svc.Complete(ctx, a.ID, f.owner)
	require.NoError(t, err)
	f.settle(t)
	assert.Empty(t, f.notifier.messages())
	assert.Empty(t, f.active(t))
}

func TestComplete_NotifierErrorIsSwallowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.join(t, "Ada", "+2348000000001")
	f.join(t, "Bola", "+2348000000002")
	_, err := f.svc.Start(ctx, a.ID, f.owner)
	require.NoError(t, err)
	f.notifier.reset()
	f.notifier.err = errors.New("provider down")

	_, err = f.svc.Complete(ctx, a.ID, f.owner)
	require.NoError(t, err)
	f.settle(t)
	assert.Len(t, f.notifier.messages(), 2)
}

func TestComplete_PersistenceFailureSendsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.join(t, "Ada", "+2348000000001")
	f.join(t, "Bola", "+2348000000002")
	_, err := f.svc.Start(ctx, a.ID, f.owner)
	require.NoError(t, err)
	f.notifier.reset()

	f.repo.failUpdate = true
	_, err = f.svc.Complete(ctx, a.ID, f.owner)
	require.ErrorIs(t, err, queue.ErrPersistence)
	f.settle(t)
	assert.Empty(t, f.notifier.messages())

	got, err := f.store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusInProgress, got.Status)
}

func TestComplete_RecomputeFailureKeepsCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.join(t, "Ada", "+2348000000001")
	b := f.join(t, "Bola", "+2348000000002")
	_, err := f.svc.Start(ctx, a.ID, f.owner)
	require.NoError(t, err)
	f.notifier.reset()
	published := f.feed.count()

	f.repo.failQuery = true
	done, err := f.svc.Complete(ctx, a.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusCompleted, done.Status)
	assert.Equal(t, published+1, f.feed.count())
	f.settle(t)
	assert.Empty(t, f.notifier.messages())

	got, err := f.store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusCompleted, got.Status)

	// retrying the completion is rejected; recompute is the recovery path
	_, err = f.svc.Complete(ctx, a.ID, f.owner)
	assert.ErrorIs(t, err, queue.ErrInvalidTransition)

	f.repo.failQuery = false
	ordered, err := f.svc.Recompute(ctx, barberID, f.owner)
	require.NoError(t, err)
	require.Len(t, ordered, 1)
	assert.Equal(t, b.ID, ordered[0].ID)
	assert.Equal(t, 1, ordered[0].Position)

	f.settle(t)
	assert.Equal(t, []sentMessage{
		{kind: "queue_alert", phone: "+2348000000002", salon: "Fresh Cuts"},
		{kind: "next_in_line", phone: "+2348000000002", salon: "Fresh Cuts"},
	}, f.notifier.messages())

	// the repaired queue is not alerted twice
	_, err = f.svc.Recompute(ctx, barberID, f.owner)
	require.NoError(t, err)
	f.settle(t)
	assert.Len(t, f.notifier.messages(), 2)
}

func TestRecompute_DoesNotAlertUnchangedHead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.join(t, "Ada", "+2348000000001")
	f.join(t, "Bola", "+2348000000002")
	_, err := f.svc.Start(ctx, a.ID, f.owner)
	require.NoError(t, err)
	f.notifier.reset()

	_, err = f.svc.Recompute(ctx, barberID, f.owner)
	require.NoError(t, err)
	f.settle(t)
	assert.Empty(t, f.notifier.messages())
}

// ctxStore fails every call once ctx is done, the way a pgx pool does.
type ctxStore struct {
	*memory.Store
}

func (s ctxStore) Update(ctx context.Context, id string, p domain.QueueEntryPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Update(ctx, id, p)
}

func (s ctxStore) QueryActive(ctx context.Context, barberID string) ([]domain.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.QueryActive(ctx, barberID)
}

// stallingNotifier blocks every send until its context is done.
type stallingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *stallingNotifier) wait(ctx context.Context, kind string) error {
	<-ctx.Done()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, kind)
	return ctx.Err()
}

func (n *stallingNotifier) QueueConfirmation(ctx context.Context, _ *domain.Barber, _ domain.QueueEntry) error {
	return n.wait(ctx, "queue_confirmation")
}

func (n *stallingNotifier) QueueAlert(ctx context.Context, _ *domain.Barber, _ domain.QueueEntry) error {
	return n.wait(ctx, "queue_alert")
}

func (n *stallingNotifier) NextInLine(ctx context.Context, _ *domain.Barber, _ domain.QueueEntry) error {
	return n.wait(ctx, "next_in_line")
}

func (n *stallingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func TestComplete_SlowNotifierDoesNotHoldBackFeed(t *testing.T) {
	memStore := memory.NewStore()
	memStore.PutBarber(domain.Barber{ID: barberID, SalonName: "Fresh Cuts", AcceptsWalkIns: true, IsAvailable: true})
	store := ctxStore{Store: memStore}

	broker := feed.NewBroker(store, nil)
	t.Cleanup(broker.Stop)

	notifier := &stallingNotifier{}
	svc := queue.NewService(store, memStore, broker, notifier, queue.Config{
		AverageServiceMinutes: 20,
		NotifyTimeout:         200 * time.Millisecond,
	})
	owner := domain.Viewer{BarberID: barberID}
	ctx := context.Background()

	a, err := svc.Join(ctx, queue.JoinInput{BarberID: barberID, CustomerName: "Ada", Phone: "+2348000000001"})
	require.NoError(t, err)
	b, err := svc.Join(ctx, queue.JoinInput{BarberID: barberID, CustomerName: "Bola", Phone: "+2348000000002"})
	require.NoError(t, err)
	_, err = svc.Start(ctx, a.ID, owner)
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		latest domain.QueueSnapshot
	)
	unsubscribe, err := broker.Subscribe(ctx, barberID, func(s domain.QueueSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		latest = s
	})
	require.NoError(t, err)
	defer unsubscribe()

	reqCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err = svc.Complete(reqCtx, a.ID, owner)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 100*time.Millisecond)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest.Entries) == 1 &&
			latest.Entries[0].ID == b.ID &&
			latest.Entries[0].Position == 1
	}, 2*time.Second, 10*time.Millisecond)

	drainCtx, drainCancel := context.WithTimeout(ctx, 5*time.Second)
	defer drainCancel()
	require.NoError(t, svc.Drain(drainCtx))
	assert.ElementsMatch(t, []string{"queue_confirmation", "queue_confirmation", "queue_alert", "next_in_line"}, notifier.sent())
}

func TestTransitions_InvalidMovesDoNotTouchStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	waiting := f.join(t, "Ada", "+2348000000001")
	inProgress := f.join(t, "Bola", "+2348000000002")
	_, err := f.svc.Start(ctx, inProgress.ID, f.owner)
	require.NoError(t, err)

	completed := f.join(t, "Chi", "+2348000000003")
	_, err = f.svc.Start(ctx, completed.ID, f.owner)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, completed.ID, f.owner)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		id   string
	}{
		{"complete waiting", func() error { _, err := f.svc.Complete(ctx, waiting.ID, f.owner); return err }, waiting.ID},
		{"start in progress", func() error { _, err := f.svc.Start(ctx, inProgress.ID, f.owner); return err }, inProgress.ID},
		{"start completed", func() error { _, err := f.svc.Start(ctx, completed.ID, f.owner); return err }, completed.ID},
		{"complete completed", func() error { _, err := f.svc.Complete(ctx, completed.ID, f.owner); return err }, completed.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := f.store.Get(ctx, tt.id)
			require.NoError(t, err)

			assert.ErrorIs(t, tt.call(), queue.ErrInvalidTransition)

			after, err := f.store.Get(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestTransitions_RequireOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.join(t, "Ada", "+2348000000001")

	viewers := map[string]domain.Viewer{
		"anonymous":      {},
		"customer":       {Phone: "+2348000000001"},
		"another barber": {BarberID: "barber-y"},
	}

	for name, v := range viewers {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Start(ctx, a.ID, v)
			assert.ErrorIs(t, err, queue.ErrNotOwner)

			_, err = f.svc.Complete(ctx, a.ID, v)
			assert.ErrorIs(t, err, queue.ErrNotOwner)

			_, err = f.svc.Recompute(ctx, barberID, v)
			assert.ErrorIs(t, err, queue.ErrNotOwner)

			_, err = f.svc.UpdateAvailability(ctx, barberID, v, false, false)
			assert.ErrorIs(t, err, queue.ErrNotOwner)
		})
	}
}

func TestStart_UnknownEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Start(context.Background(), "missing", f.owner)
	assert.ErrorIs(t, err, queue.ErrEntryNotFound)
}

func TestRecompute_DenseAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Simulate the join race: two entries share position 2.
	for i, phone := range []string{"+2348000000001", "+2348000000002", "+2348000000003", "+2348000000004"} {
		pos := i + 1
		if i == 2 {
			pos = 2
		}
		require.NoError(t, f.store.Insert(ctx, &domain.QueueEntry{
			BarberID: barberID,
			Phone:    phone,
			Position: pos,
			Status:   domain.QueueStatusWaiting,
		}))
	}

	ordered, err := f.svc.Recompute(ctx, barberID, f.owner)
	require.NoError(t, err)
	for i, e := range ordered {
		assert.Equal(t, i+1, e.Position)
	}

	first := f.active(t)
	again, err := f.svc.Recompute(ctx, barberID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, ordered, again)
	assert.Equal(t, first, f.active(t))
}

func TestView_HidesOtherCustomersNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.join(t, "Ada", "+2348000000001")
	f.join(t, "Bola", "+2348000000002")

	customer, err := f.svc.View(ctx, barberID, domain.Viewer{Phone: "+2348000000002"})
	require.NoError(t, err)
	require.Len(t, customer.Entries, 2)
	assert.Equal(t, queue.AnonymousCustomerName, customer.Entries[0].CustomerName)
	assert.Empty(t, customer.Entries[0].Phone)
	assert.Equal(t, "Bola", customer.Entries[1].CustomerName)
	assert.True(t, customer.Entries[1].IsSelf)

	owner, err := f.svc.View(ctx, barberID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "Ada", owner.Entries[0].CustomerName)
	assert.Equal(t, "Bola", owner.Entries[1].CustomerName)
}

func TestView_UnknownBarber(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.View(context.Background(), "nobody", domain.Viewer{})
	assert.ErrorIs(t, err, queue.ErrBarberNotFound)
}

func TestUpdateAvailability_BlocksJoins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.UpdateAvailability(ctx, barberID, f.owner, true, false)
	require.NoError(t, err)
	assert.False(t, b.IsAvailable)

	_, err = f.svc.Join(ctx, queue.JoinInput{BarberID: barberID, CustomerName: "Ada", Phone: "+2348000000001"})
	assert.ErrorIs(t, err, queue.ErrBarberUnavailable)
}

func TestScenario_FullDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.join(t, "Ada", "+2348000000001")
	b := f.join(t, "Bola", "+2348000000002")
	c := f.join(t, "Chi", "+2348000000003")

	for _, id := range []string{a.ID, b.ID} {
		_, err := f.svc.Start(ctx, id, f.owner)
		require.NoError(t, err)
		_, err = f.svc.Complete(ctx, id, f.owner)
		require.NoError(t, err)
	}

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, c.ID, active[0].ID)
	assert.Equal(t, 1, active[0].Position)

	d := f.join(t, "Dayo", "+2348000000004")
	assert.Equal(t, 2, d.Position)
}
