// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// ContactService takes a repository.ContactRepository (interface), never a
// concrete store, so tests inject an in-memory fake and the binary injects
// the SQL store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/address-book/internal/apperror"
	"github.com/sakif/address-book/internal/model"
	"github.com/sakif/address-book/internal/repository"
)

// TimestampPrecision is the resolution every stored timestamp is cut to.
// It matches what the JSON API has always exposed (JavaScript Date
// precision) and is coarser than both SQLite and PostgreSQL storage.
const TimestampPrecision = time.Millisecond

// ContactService handles business logic for contacts.
type ContactService struct {
	repo   repository.ContactRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewContactService creates a new ContactService.
func NewContactService(repo repository.ContactRepository, logger *slog.Logger) *ContactService {
	return &ContactService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// timestamp returns the current time in UTC at TimestampPrecision.
// Truncate also drops the monotonic clock reading, which must not reach the
// database driver.
func (s *ContactService) timestamp() time.Time {
	return s.now().UTC().Truncate(TimestampPrecision)
}

// List returns every contact.
func (s *ContactService) List(ctx context.Context) ([]model.Contact, error) {
	contacts, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list contacts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return contacts, nil
}

// Get retrieves a contact by id.
// Returns apperror.ErrNotFound if the contact doesn't exist.
func (s *ContactService) Get(ctx context.Context, id int64) (*model.Contact, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a new contact.
//
// STRATEGY: "check, then insert"
//  1. Look the email up. A hit is a conflict and nothing is written.
//  2. Otherwise insert with createdAt == updatedAt.
//
// The two steps are not atomic. Two concurrent creates with the same email
// can both pass step 1; the UNIQUE constraint on contacts.email then
// rejects the second insert, and the repository reports that as a conflict
// too. Either way the caller sees apperror.ErrConflict.
func (s *ContactService) Create(ctx context.Context, firstName, lastName, email string) (*model.Contact, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.logger.Info("contact email already registered",
			slog.String("email", email),
			slog.Int64("existing_id", existing.ID),
		)
		return nil, apperror.Conflict("contact", email)
	case !errors.Is(err, apperror.ErrNotFound):
		s.logger.Error("failed to look up contact by email",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("checking email uniqueness: %w", err)
	}

	now := s.timestamp()
	contact := &model.Contact{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create contact",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating contact: %w", err)
	}

	s.logger.Info("contact created",
		slog.Int64("id", contact.ID),
		slog.String("email", contact.Email),
	)

	return contact, nil
}

// Update applies a partial update.
//
// STRATEGY: "fetch, then update"
//  1. Fetch the current row. Missing → apperror.ErrNotFound.
//  2. Write only the fields present in patch, plus a new updatedAt.
//
// updatedAt always moves strictly forward, even when the clock has not
// ticked since the last write (or has stepped backwards): in that case it
// becomes the previous value plus one TimestampPrecision.
func (s *ContactService) Update(ctx context.Context, id int64, patch model.ContactPatch) (*model.Contact, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updatedAt := s.timestamp()
	if !updatedAt.After(current.UpdatedAt) {
		updatedAt = current.UpdatedAt.Add(TimestampPrecision)
	}

	updated, err := s.repo.Update(ctx, id, patch, updatedAt)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Deleted between the fetch and the update.
			return nil, err
		}
		s.logger.Error("failed to update contact",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating contact: %w", err)
	}

	s.logger.Info("contact updated",
		slog.Int64("id", updated.ID),
		slog.Bool("empty_patch", patch.IsEmpty()),
	)

	return updated, nil
}

// Delete removes a contact permanently.
// Returns apperror.ErrNotFound if the contact doesn't exist.
func (s *ContactService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to delete contact",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return err
	}

	s.logger.Info("contact deleted", slog.Int64("id", id))
	return nil
}
