package dal

import (
	"context"
	"errors"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

var ErrInvalidItem = errors.New("invalid catalog item")

// DraftDAL defines the interface for data access layer
type DraftDAL interface {
	// LoadCatalog returns every draftable item. Called once before a draft starts.
	LoadCatalog() ([]models.Item, error)
	// AddItem inserts an item or replaces the one with the same name
	AddItem(item models.Item) error
	// RecordPick appends a committed pick to the history log
	RecordPick(ctx context.Context, rec models.PickRecord) error
	// ListPicks returns the history of one draft, or of all drafts when draftID is empty
	ListPicks(ctx context.Context, draftID string) ([]models.PickRecord, error)
	// Reset restores the seed catalog and clears the history
	Reset() error
	Close() error
}

func validateItem(item models.Item) error {
	if item.Name == "" {
		return errors.Join(ErrInvalidItem, errors.New("empty name"))
	}
	if item.Tier <= 0 {
		return errors.Join(ErrInvalidItem, errors.New("tier must be positive"))
	}
	return nil
}
