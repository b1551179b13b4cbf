package repository

import (
	"context"
	"time"

	"github.com/sakif/address-book/internal/model"
)

// ContactRepository is the data-access contract for contacts.
//
// Implementations translate "no such row" into apperror.ErrNotFound and
// unique-key violations into apperror.ErrConflict, so callers never inspect
// driver errors.
type ContactRepository interface {
	// List returns every contact ordered by id ascending.
	List(ctx context.Context) ([]model.Contact, error)
	GetByID(ctx context.Context, id int64) (*model.Contact, error)
	GetByEmail(ctx context.Context, email string) (*model.Contact, error)
	// Create inserts contact and fills in its ID. The caller sets the timestamps.
	Create(ctx context.Context, contact *model.Contact) error
	// Update applies the non-nil patch fields plus updatedAt and returns the
	// stored row.
	Update(ctx context.Context, id int64, patch model.ContactPatch, updatedAt time.Time) (*model.Contact, error)
	Delete(ctx context.Context, id int64) error
}
