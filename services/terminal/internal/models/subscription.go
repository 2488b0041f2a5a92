package models

import "time"

// Car is a vehicle registered under a subscription.
type Car struct {
	Plate string `json:"plate"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Color string `json:"color"`
}

// OpenCheckin references a ticket the subscription currently has open.
type OpenCheckin struct {
	TicketID  string    `json:"ticketId"`
	ZoneID    string    `json:"zoneId"`
	CheckinAt time.Time `json:"checkinAt"`
}

// Subscription is fetched on demand and never cached past the workflow that asked for it.
type Subscription struct {
	ID              string        `json:"id"`
	UserName        string        `json:"userName"`
	Active          bool          `json:"active"`
	Category        string        `json:"category"`
	Cars            []Car         `json:"cars"`
	StartsAt        *time.Time    `json:"startsAt,omitempty"`
	ExpiresAt       *time.Time    `json:"expiresAt,omitempty"`
	CurrentCheckins []OpenCheckin `json:"currentCheckins"`
}

// HasOpenTicket reports whether ticketID is among the subscription's open check-ins.
func (s Subscription) HasOpenTicket(ticketID string) bool {
	for _, c := range s.CurrentCheckins {
		if c.TicketID == ticketID {
			return true
		}
	}
	return false
}
