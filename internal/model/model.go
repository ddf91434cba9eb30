package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         string         `gorm:"default:'user'" json:"role"` // admin, user
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Call statuses.
const (
	CallStatusQueued   = "queued"
	CallStatusDialing  = "dialing"
	CallStatusActive   = "active"
	CallStatusComplete = "completed"
	CallStatusFailed   = "failed"
)

// Call dispositions (terminal outcome of an attempt).
const (
	DispositionAnswered    = "answered"
	DispositionBusy        = "busy"
	DispositionRejected    = "rejected"
	DispositionNoAnswer    = "no_answer"
	DispositionJoinTimeout = "join_timeout"
	DispositionVoicemail   = "voicemail"
	DispositionTransferred = "transferred"
	DispositionError       = "error"
)

// CallRecord is one outbound call attempt. A row is created when the call
// is dispatched and finalized when the orchestration reaches a terminal
// phase.
type CallRecord struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	JobID         string     `gorm:"uniqueIndex;not null" json:"job_id"`
	RoomName      string     `gorm:"index;not null" json:"room_name"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	PhoneNumber   string     `gorm:"index" json:"phone_number"`
	TransferTo    string     `json:"transfer_to,omitempty"`
	Metadata      string     `json:"metadata,omitempty"` // raw job metadata JSON
	Status        string     `gorm:"index;default:'queued'" json:"status"`
	Disposition   string     `gorm:"index" json:"disposition,omitempty"`
	SIPStatusCode int        `json:"sip_status_code,omitempty"`
	SIPStatus     string     `json:"sip_status,omitempty"`
	Error         string     `json:"error,omitempty"`
	DialedAt      *time.Time `json:"dialed_at,omitempty"`
	AnsweredAt    *time.Time `json:"answered_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Webhook struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	URL       string    `gorm:"not null" json:"url"`
	Platform  string    `json:"platform"` // telegram, slack, generic
	ChannelID string    `json:"channel_id"`
	Events    string    `json:"events"` // Comma separated statuses, or "*"
	Template  string    `json:"template"` // "Call to {{.PhoneNumber}}: {{.Disposition}}"
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}
