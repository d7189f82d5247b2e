// Package domain contains the shared-space session ledger models. A session
// tracks one walk-in group from arrival to full settlement: who is present,
// what they consumed, and the pricing snapshot their time is billed under.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// Session is the ledger header for one occupancy. The pricing columns are a
// snapshot of the policy active at start; reloading the pricing file never
// changes an open session's rates.
type Session struct {
	ID       snowflake.ID  `gorm:"primaryKey" json:"id"`
	BranchID snowflake.ID  `gorm:"not null;index" json:"branch_id"`
	ClientID snowflake.ID  `gorm:"not null;index" json:"client_id"`
	Status   SessionStatus `gorm:"type:text;not null;default:'ACTIVE'" json:"status"`

	FirstHourRate       int64 `gorm:"not null" json:"first_hour_rate"`
	AdditionalHourRate  int64 `gorm:"not null" json:"additional_hour_rate"`
	MaxAdditionalCharge int64 `gorm:"not null" json:"max_additional_charge"`

	StartedAt      time.Time     `gorm:"not null" json:"started_at"`
	EndedAt        *time.Time    `gorm:"" json:"ended_at,omitempty"`
	FinalInvoiceID *snowflake.ID `gorm:"index" json:"final_invoice_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Individuals []Individual  `gorm:"foreignKey:SessionID" json:"individuals,omitempty"`
	Items       []SessionItem `gorm:"foreignKey:SessionID" json:"items,omitempty"`
}

func (Session) TableName() string { return "sessions" }

// Individual is one person counted in the session headcount. Exactly one
// individual per session is the primary, tied to the billing client record.
type Individual struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SessionID snowflake.ID `gorm:"not null;index" json:"session_id"`
	Name      string       `gorm:"not null" json:"name"`
	IsPrimary bool         `gorm:"not null;default:false" json:"is_primary"`
	JoinedAt  time.Time    `gorm:"not null" json:"joined_at"`
}

func (Individual) TableName() string { return "session_individuals" }

// SessionItem is a product line on the live ledger. TotalPrice is always
// derived from Quantity and UnitPrice; the two are never updated separately.
type SessionItem struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	SessionID    snowflake.ID `gorm:"not null;index" json:"session_id"`
	ProductID    snowflake.ID `gorm:"not null;index" json:"product_id"`
	Name         string       `gorm:"not null" json:"name"`
	Quantity     int64        `gorm:"not null" json:"quantity"`
	UnitPrice    int64        `gorm:"not null" json:"unit_price"`
	TotalPrice   int64        `gorm:"not null" json:"total_price"`
	AttributedTo string       `gorm:"" json:"attributed_to,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SessionItem) TableName() string { return "session_items" }

// ElapsedSeconds returns whole seconds between the session start and now,
// or the session end once it has completed.
func (s *Session) ElapsedSeconds(now time.Time) int64 {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	elapsed := int64(end.Sub(s.StartedAt) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Headcount returns the number of individuals currently on the ledger.
func (s *Session) Headcount() int { return len(s.Individuals) }
