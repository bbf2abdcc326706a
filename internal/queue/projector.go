package queue

import (
	"sort"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
)

// AnonymousCustomerName replaces customer names the viewer may not see.
const AnonymousCustomerName = "Customer"

// QueueView is the externally visible queue of one barber.
type QueueView struct {
	BarberID    string      `json:"barber_id"`
	Entries     []ViewEntry `json:"entries"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// ViewEntry is one entry as shown to a specific viewer.
type ViewEntry struct {
	ID                   string             `json:"id"`
	CustomerName         string             `json:"customer_name"`
	Phone                string             `json:"phone,omitempty"`
	Position             int                `json:"position"`
	Status               domain.QueueStatus `json:"status"`
	JoinTime             time.Time          `json:"join_time"`
	EstimatedWaitMinutes int                `json:"estimated_wait_minutes"`
	IsSelf               bool               `json:"is_self"`
}

// Projector derives per-viewer queue views from active-entry snapshots.
type Projector struct {
	averageServiceMinutes int
}

// NewProjector creates a projector using the given average service time.
func NewProjector(averageServiceMinutes int) *Projector {
	return &Projector{averageServiceMinutes: averageServiceMinutes}
}

// Project builds the view of barberID's queue for viewer. Completed entries are
// dropped and the rest ordered by position. Wait estimates are computed here and
// never read from the stored join-time snapshot.
func (p *Projector) Project(barberID string, entries []domain.QueueEntry, viewer domain.Viewer) QueueView {
	active := make([]domain.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status.IsActive() {
			active = append(active, e)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Position != active[j].Position {
			return active[i].Position < active[j].Position
		}
		return active[i].JoinTime.Before(active[j].JoinTime)
	})

	owner := viewer.Owns(barberID)
	viewerPhone := domain.NormalizePhone(viewer.Phone)

	view := QueueView{
		BarberID:    barberID,
		Entries:     make([]ViewEntry, 0, len(active)),
		GeneratedAt: time.Now().UTC(),
	}

	for _, e := range active {
		self := viewerPhone != "" && viewerPhone == e.Phone

		ve := ViewEntry{
			ID:                   e.ID,
			CustomerName:         AnonymousCustomerName,
			Position:             e.Position,
			Status:               e.Status,
			JoinTime:             e.JoinTime,
			EstimatedWaitMinutes: p.EstimatedWait(e.Position),
			IsSelf:               self,
		}
		if owner || self {
			ve.CustomerName = e.CustomerName
			ve.Phone = e.Phone
		}
		view.Entries = append(view.Entries, ve)
	}

	return view
}

// EstimatedWait returns the advisory wait for a position.
func (p *Projector) EstimatedWait(position int) int {
	return position * p.averageServiceMinutes
}
