package models

import (
	"encoding/json"
	"time"
)

// Role values carried by the authority's users.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// User is the operator returned by login.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for admin endpoints.
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// ParkingStateReport is one row of the admin occupancy report.
type ParkingStateReport struct {
	ZoneID                  string `json:"zoneId"`
	Name                    string `json:"name"`
	TotalSlots              int    `json:"totalSlots"`
	Occupied                int    `json:"occupied"`
	Free                    int    `json:"free"`
	Reserved                int    `json:"reserved"`
	AvailableForVisitors    int    `json:"availableForVisitors"`
	AvailableForSubscribers int    `json:"availableForSubscribers"`
	SubscriberCount         int    `json:"subscriberCount"`
	Open                    bool   `json:"open"`
}

// CategoryRates is the body of PUT /admin/categories/{id}.
type CategoryRates struct {
	RateNormal  float64 `json:"rateNormal" validate:"gte=0"`
	RateSpecial float64 `json:"rateSpecial" validate:"gte=0"`
}

// RushHour is a weekly window billed at the special rate.
type RushHour struct {
	ID      string `json:"id,omitempty"`
	WeekDay int    `json:"weekDay" validate:"gte=0,lte=6"`
	From    string `json:"from" validate:"required,datetime=15:04"`
	To      string `json:"to" validate:"required,datetime=15:04"`
}

// Vacation is a dated range billed at the special rate.
type Vacation struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name" validate:"required"`
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// AuditEntry is the payload of an admin-update push message.
type AuditEntry struct {
	AdminID    string          `json:"adminId"`
	Action     string          `json:"action"`
	TargetType string          `json:"targetType"`
	TargetID   string          `json:"targetId"`
	Details    json.RawMessage `json:"details,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}
