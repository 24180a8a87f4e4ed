package typification

import (
	"context"
	"fmt"

	"github.com/pagbank/agent-router/pkg/database"
)

// Store persists Tickets. Ownership of the tickets table sits alongside the
// Config Store's database (spec §4.8: "C1-adjacent storage") without being
// part of pkg/store's Config Store API surface, since a Ticket has nothing
// to do with agent versions.
type Store struct {
	db *database.Client
}

// NewStore wraps a database client for ticket persistence.
func NewStore(db *database.Client) *Store {
	return &Store{db: db}
}

// CreateTicket inserts a ticket row.
func (s *Store) CreateTicket(ctx context.Context, t Ticket) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO tickets (ticket_id, session_id, business_unit, product, motive, submotive, conclusion, summary, resolution, assigned_team, typification_partial)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.TicketID, t.SessionID, t.BusinessUnit, t.Product, t.Motive, t.Submotive, t.Conclusion,
		t.Summary, t.Resolution, t.AssignedTeam, t.TypificationPartial,
	)
	if err != nil {
		return fmt.Errorf("typification: create ticket: %w", err)
	}
	return nil
}

// GetTicket fetches one ticket by id.
func (s *Store) GetTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT ticket_id, session_id, business_unit, product, motive, submotive, conclusion, summary, resolution, assigned_team, typification_partial, created_at
		FROM tickets WHERE ticket_id = $1`,
		ticketID,
	)
	var t Ticket
	err := row.Scan(&t.TicketID, &t.SessionID, &t.BusinessUnit, &t.Product, &t.Motive, &t.Submotive,
		&t.Conclusion, &t.Summary, &t.Resolution, &t.AssignedTeam, &t.TypificationPartial, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("typification: get ticket: %w", err)
	}
	return &t, nil
}
