package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spec-kit/sme-router/internal/domain"
	"github.com/spec-kit/sme-router/internal/storage"
)

const ticketsPrefix = "tickets"

// fileTicketRepository stores one JSON document per ticket.
type fileTicketRepository struct {
	store storage.Store
}

// NewFileTicketRepository instantiates the flat-file ticket repository.
func NewFileTicketRepository(store storage.Store) TicketRepository {
	return &fileTicketRepository{store: store}
}

func ticketKey(id string) string {
	return fmt.Sprintf("%s/%s.json", ticketsPrefix, id)
}

func (r *fileTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	exists, err := r.store.Exists(ticketKey(ticket.ID))
	if err != nil {
		return fmt.Errorf("check ticket %s: %w", ticket.ID, err)
	}
	if exists {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	return r.write(ticket)
}

func (r *fileTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	exists, err := r.store.Exists(ticketKey(ticket.ID))
	if err != nil {
		return fmt.Errorf("check ticket %s: %w", ticket.ID, err)
	}
	if !exists {
		return fmt.Errorf("ticket %s: %w", ticket.ID, ErrNotFound)
	}
	return r.write(ticket)
}

func (r *fileTicketRepository) write(ticket *domain.Ticket) error {
	data, err := json.MarshalIndent(ticket, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ticket %s: %w", ticket.ID, err)
	}
	if err := r.store.Write(ticketKey(ticket.ID), data); err != nil {
		return fmt.Errorf("write ticket %s: %w", ticket.ID, err)
	}
	return nil
}

func (r *fileTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	data, err := r.store.Read(ticketKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read ticket %s: %w", id, err)
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, fmt.Errorf("unmarshal ticket %s: %w", id, err)
	}
	return &ticket, nil
}

func (r *fileTicketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	keys, err := r.store.List(ticketsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	sort.Strings(keys)

	var out []domain.Ticket
	for _, key := range keys {
		data, err := r.store.Read(key)
		if err != nil {
			continue
		}
		var ticket domain.Ticket
		if err := json.Unmarshal(data, &ticket); err != nil {
			continue
		}
		if !filter.Matches(&ticket) {
			continue
		}
		out = append(out, ticket)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
