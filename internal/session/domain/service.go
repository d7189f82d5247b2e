package domain

import (
	"context"
	"errors"

	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
)

// WalkInClient carries the data needed to register a new walk-in client at
// session start when no existing client is referenced.
type WalkInClient struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// StartSessionRequest opens a session. Either ClientID or WalkIn must be
// set. Individuals is the initial group; the first entry is the primary.
type StartSessionRequest struct {
	BranchID    string
	ClientID    string
	WalkIn      *WalkInClient
	Individuals []string
}

type AddIndividualsRequest struct {
	BranchID  string
	SessionID string
	Names     []string
}

type AddItemRequest struct {
	BranchID     string
	SessionID    string
	ProductID    string
	Quantity     int64
	AttributedTo string
}

type UpdateItemRequest struct {
	BranchID     string
	SessionID    string
	ItemID       string
	Quantity     *int64
	UnitPrice    *int64
	AttributedTo *string
}

type RemoveItemRequest struct {
	BranchID  string
	SessionID string
	ItemID    string
}

type GetSessionRequest struct {
	BranchID  string
	SessionID string
}

// PartialExitRequest settles a strict subset of individuals, optionally
// taking part of the product quantities with them.
type PartialExitRequest struct {
	BranchID      string
	SessionID     string
	IndividualIDs []string
	// ItemQuantities maps session item id -> quantity leaving with the
	// exiting group. Values are clamped to the item's live quantity.
	ItemQuantities map[string]int64
}

type CompleteSessionRequest struct {
	BranchID  string
	SessionID string
}

// SessionView is the session snapshot returned to callers, with the live
// running time charge for display. Billing is only realized at settlement.
type SessionView struct {
	Session         Session `json:"session"`
	ElapsedSeconds  int64   `json:"elapsed_seconds"`
	LiveTimeCost    int64   `json:"live_time_cost"`
	LiveTotalAmount int64   `json:"live_total_amount"`
}

type Service interface {
	Start(context.Context, StartSessionRequest) (SessionView, error)
	Get(context.Context, GetSessionRequest) (SessionView, error)
	ListActive(ctx context.Context, branchID string) ([]SessionView, error)
	AddIndividuals(context.Context, AddIndividualsRequest) (SessionView, error)
	AddItem(context.Context, AddItemRequest) (SessionView, error)
	UpdateItem(context.Context, UpdateItemRequest) (SessionView, error)
	RemoveItem(context.Context, RemoveItemRequest) (SessionView, error)
	PartialExit(context.Context, PartialExitRequest) (invoicedomain.Invoice, error)
	Complete(context.Context, CompleteSessionRequest) (invoicedomain.Invoice, error)
}

var (
	ErrInvalidBranch      = errors.New("invalid_branch")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
	ErrNoIndividuals      = errors.New("no_individuals")
	ErrNoClient           = errors.New("no_client")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrSessionCompleted   = errors.New("session_completed")
	ErrIndividualNotFound = errors.New("individual_not_found")
	ErrItemNotFound       = errors.New("item_not_found")
	// ErrFullExitRequired is returned when a partial exit selects every
	// remaining individual; the caller must complete the session instead.
	ErrFullExitRequired = errors.New("full_exit_required")
)
