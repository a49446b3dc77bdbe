package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"tradejournal/internal/domain"
)

// JournalRepository keys entries "effectiveDate|id" so a date range
// is a key range
type JournalRepository interface {
	Put(ctx context.Context, userID string, entry domain.JournalEntry) error
	List(ctx context.Context, userID, start, end string) ([]domain.JournalEntry, error)
	ListEffectiveOn(ctx context.Context, userID, date string) ([]domain.JournalEntry, error)
}

type journalRepositoryHandler struct {
	Store DocumentRepository
}

func NewJournalRepository(store DocumentRepository) JournalRepository {
	return journalRepositoryHandler{
		Store: store,
	}
}

func journalKey(entry domain.JournalEntry) string {
	return entry.EffectiveDate + "|" + entry.ID.String()
}

func (h journalRepositoryHandler) Put(ctx context.Context, userID string, entry domain.JournalEntry) error {
	return putJSON(ctx, h.Store, userID, CollectionJournalEntries, journalKey(entry), entry)
}

func (h journalRepositoryHandler) List(ctx context.Context, userID, start, end string) ([]domain.JournalEntry, error) {
	opts := ListOptions{
		StartKey: start,
	}
	if end != "" {
		// "~" sorts after every uuid character
		opts.EndKey = end + "|~"
	}
	docs, err := h.Store.List(ctx, userID, CollectionJournalEntries, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	out := []domain.JournalEntry{}
	for _, doc := range docs {
		entry := domain.JournalEntry{}
		if err := json.Unmarshal(doc.Data, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry %s: %w", doc.Key, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (h journalRepositoryHandler) ListEffectiveOn(ctx context.Context, userID, date string) ([]domain.JournalEntry, error) {
	return h.List(ctx, userID, date, date)
}
