package domain

import "time"

// Barber owns a walk-in queue.
type Barber struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SalonName      string    `json:"salon_name"`
	AcceptsWalkIns bool      `json:"accepts_walkins"`
	IsAvailable    bool      `json:"is_available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CanTakeWalkIns reports whether new customers may join the barber's queue.
func (b *Barber) CanTakeWalkIns() bool {
	return b.AcceptsWalkIns && b.IsAvailable
}

// ChannelType represents a notification delivery channel.
type ChannelType string

// Channel types.
const (
	ChannelTypeWhatsApp ChannelType = "whatsapp"
	ChannelTypeSMS      ChannelType = "sms"
)

// IsValid checks if the channel type is known.
func (t ChannelType) IsValid() bool {
	return t == ChannelTypeWhatsApp || t == ChannelTypeSMS
}
