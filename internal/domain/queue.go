package domain

import (
	"strings"
	"time"
)

// QueueStatus represents the lifecycle state of a walk-in queue entry.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusWaiting    QueueStatus = "waiting"
	QueueStatusInProgress QueueStatus = "in_progress"
	QueueStatusCompleted  QueueStatus = "completed"
)

// IsValid checks if the status is a known queue status.
func (s QueueStatus) IsValid() bool {
	return s == QueueStatusWaiting || s == QueueStatusInProgress || s == QueueStatusCompleted
}

// IsActive reports whether entries in this status take part in position arithmetic.
func (s QueueStatus) IsActive() bool {
	return s == QueueStatusWaiting || s == QueueStatusInProgress
}

// QueueEntry is one customer's place in one barber's walk-in line.
type QueueEntry struct {
	ID                   string      `json:"id"`
	BarberID             string      `json:"barber_id"`
	CustomerName         string      `json:"customer_name"`
	Phone                string      `json:"phone"`
	Position             int         `json:"position"`
	JoinTime             time.Time   `json:"join_time"`
	Status               QueueStatus `json:"status"`
	EstimatedWaitMinutes int         `json:"estimated_wait_minutes"`
}

// QueueEntryPatch holds the mutable fields of a queue entry. Nil fields are left unchanged.
type QueueEntryPatch struct {
	Status               *QueueStatus
	Position             *int
	EstimatedWaitMinutes *int
}

// IsEmpty reports whether the patch changes nothing.
func (p QueueEntryPatch) IsEmpty() bool {
	return p.Status == nil && p.Position == nil && p.EstimatedWaitMinutes == nil
}

// Apply copies the patch fields onto the entry.
func (p QueueEntryPatch) Apply(e *QueueEntry) {
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.EstimatedWaitMinutes != nil {
		e.EstimatedWaitMinutes = *p.EstimatedWaitMinutes
	}
}

// Viewer identifies who is looking at a queue. A barber viewer has BarberID set,
// an anonymous customer may identify with Phone only.
type Viewer struct {
	BarberID string
	Phone    string
}

// Owns reports whether the viewer is the barber that owns the given queue.
func (v Viewer) Owns(barberID string) bool {
	return v.BarberID != "" && v.BarberID == barberID
}

// NormalizePhone strips formatting characters from a phone number and converts
// a leading international "00" prefix to "+".
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if strings.HasPrefix(out, "00") {
		out = "+" + out[2:]
	}
	return out
}

// QueueSnapshot is the full active-entry set of one barber at a point in time.
type QueueSnapshot struct {
	BarberID string       `json:"barber_id"`
	Entries  []QueueEntry `json:"entries"`
	TakenAt  time.Time    `json:"taken_at"`
}
