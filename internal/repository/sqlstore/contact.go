package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/sakif/address-book/internal/apperror"
	"github.com/sakif/address-book/internal/model"
	"github.com/sakif/address-book/internal/repository"
)

// compile-time check that *DB implements repository.ContactRepository
var _ repository.ContactRepository = (*DB)(nil)

const contactsTableName = "contacts"

var contactsTable = goqu.T(contactsTableName)

// contactColumns is the mapping table between wire field names (camelCase,
// see the json tags on model.Contact) and storage columns (snake_case).
//
// It is applied in both directions:
//   - read: the SELECT list is built from it, in this order, and
//     scanContact scans in the same order
//   - write: patchRecord looks up the column for each wire field
var contactColumns = []struct {
	field  string
	column string
}{
	{"id", "id"},
	{"firstName", "first_name"},
	{"lastName", "last_name"},
	{"email", "email"},
	{"createdAt", "created_at"},
	{"updatedAt", "updated_at"},
}

// columnFor returns the storage column for a wire field name.
func columnFor(field string) string {
	for _, c := range contactColumns {
		if c.field == field {
			return c.column
		}
	}
	panic("sqlstore: no column mapped for contact field " + field)
}

func selectColumns() []any {
	cols := make([]any, len(contactColumns))
	for i, c := range contactColumns {
		cols[i] = c.column
	}
	return cols
}

type scanner interface {
	Scan(dest ...any) error
}

// scanContact scans one row in selectColumns order. Timestamps come back in
// UTC whatever the driver returns: pgx hands out timestamptz in time.Local.
func scanContact(row scanner, c *model.Contact) error {
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return nil
}

// List returns every contact ordered by id.
//
// There is no pagination: the API contract returns the whole table.
func (db *DB) List(ctx context.Context) ([]model.Contact, error) {
	query, args, err := db.dialect.From(contactsTable).
		Select(selectColumns()...).
		Order(goqu.C(columnFor("id")).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building list query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing contacts: %w", err)
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := scanContact(rows, &c); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating contacts: %w", err)
	}

	return contacts, nil
}

// GetByID retrieves a contact by id.
// Returns apperror.ErrNotFound if no contact has that id.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Contact, error) {
	return db.getBy(ctx, db.conn, "id", id, strconv.FormatInt(id, 10))
}

// GetByEmail retrieves a contact by its (unique) email address.
// Returns apperror.ErrNotFound if no contact has that email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.Contact, error) {
	return db.getBy(ctx, db.conn, "email", email, email)
}

// getBy runs a single-row lookup on the column mapped to field. key is
// only used for error messages.
func (db *DB) getBy(ctx context.Context, q DBTX, field string, value any, key string) (*model.Contact, error) {
	query, args, err := db.dialect.From(contactsTable).
		Select(selectColumns()...).
		Where(goqu.C(columnFor(field)).Eq(value)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building lookup by %s: %w", field, err)
	}

	var c model.Contact
	if err := scanContact(q.QueryRowContext(ctx, query, args...), &c); err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("contact", key)
		}
		return nil, fmt.Errorf("sqlstore: getting contact by %s %s: %w", field, key, err)
	}

	return &c, nil
}

// Create inserts a new contact and fills in contact.ID.
//
// The insert and the read-back run in one transaction. The row is read back
// by email rather than through LastInsertId because the pgx driver does not
// support LastInsertId; email is unique, so the lookup is exact.
//
// A UNIQUE violation on email (two creates racing past the service's
// existence check) is reported as apperror.ErrConflict.
func (db *DB) Create(ctx context.Context, contact *model.Contact) error {
	insert, args, err := db.dialect.Insert(contactsTable).
		Rows(goqu.Record{
			columnFor("firstName"): contact.FirstName,
			columnFor("lastName"):  contact.LastName,
			columnFor("email"):     contact.Email,
			columnFor("createdAt"): contact.CreatedAt,
			columnFor("updatedAt"): contact.UpdatedAt,
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("sqlstore: building insert: %w", err)
	}

	return withTx(ctx, db.conn, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("contact", contact.Email)
			}
			return fmt.Errorf("sqlstore: creating contact: %w", err)
		}

		stored, err := db.getBy(ctx, tx, "email", contact.Email, contact.Email)
		if err != nil {
			return err
		}
		*contact = *stored
		return nil
	})
}

// Update applies the non-nil fields of patch, always sets updated_at, and
// returns the row as stored. Email and created_at are never written here.
//
// Returns apperror.ErrNotFound if no row has that id.
func (db *DB) Update(ctx context.Context, id int64, patch model.ContactPatch, updatedAt time.Time) (*model.Contact, error) {
	update, args, err := db.dialect.Update(contactsTable).
		Set(patchRecord(patch, updatedAt)).
		Where(goqu.C(columnFor("id")).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building update: %w", err)
	}

	key := strconv.FormatInt(id, 10)
	var updated *model.Contact
	err = withTx(ctx, db.conn, func(ctx context.Context, tx DBTX) error {
		result, err := tx.ExecContext(ctx, update, args...)
		if err != nil {
			return fmt.Errorf("sqlstore: updating contact %s: %w", key, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("contact", key)
		}

		updated, err = db.getBy(ctx, tx, "id", id, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// patchRecord converts a patch into column/value pairs through the mapping
// table. Absent fields are left out so they keep their stored value.
func patchRecord(patch model.ContactPatch, updatedAt time.Time) goqu.Record {
	rec := goqu.Record{columnFor("updatedAt"): updatedAt}
	if patch.FirstName != nil {
		rec[columnFor("firstName")] = *patch.FirstName
	}
	if patch.LastName != nil {
		rec[columnFor("lastName")] = *patch.LastName
	}
	return rec
}

// Delete removes a contact permanently.
// Returns apperror.ErrNotFound if no row was deleted.
func (db *DB) Delete(ctx context.Context, id int64) error {
	query, args, err := db.dialect.Delete(contactsTable).
		Where(goqu.C(columnFor("id")).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("sqlstore: building delete: %w", err)
	}

	key := strconv.FormatInt(id, 10)
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting contact %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("contact", key)
	}

	return nil
}
