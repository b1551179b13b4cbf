package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sakif/address-book/internal/apperror"
	"github.com/sakif/address-book/internal/model"
)

// newTestDB opens a fresh in-memory SQLite store with the schema migrated.
// Every call gets its own database, so tests never see each other's rows.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := New(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testNow mirrors the timestamps the service hands to the repository:
// UTC, millisecond precision, no monotonic reading.
func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// createTestContact creates a contact and fails the test if it errors.
func createTestContact(t *testing.T, db *DB, first, last, email string) *model.Contact {
	t.Helper()
	now := testNow()
	c := &model.Contact{FirstName: first, LastName: last, Email: email, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(context.Background(), c); err != nil {
		t.Fatalf("failed to create test contact: %v", err)
	}
	return c
}

func strPtr(s string) *string { return &s }

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate(t *testing.T) {
	db := newTestDB(t)
	now := testNow()

	contact := &model.Contact{
		FirstName: "Jake",
		LastName:  "Peralta",
		Email:     "jake.peralta@x.com",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := db.Create(context.Background(), contact); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if contact.ID == 0 {
		t.Error("Create() did not set contact.ID")
	}
	if !contact.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", contact.CreatedAt, now)
	}
	if !contact.UpdatedAt.Equal(contact.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want it equal to CreatedAt %v", contact.UpdatedAt, contact.CreatedAt)
	}
}

func TestCreate_AssignsIncreasingIDs(t *testing.T) {
	db := newTestDB(t)

	first := createTestContact(t, db, "Jake", "Peralta", "jake@x.com")
	second := createTestContact(t, db, "Amy", "Santiago", "amy@x.com")

	if second.ID <= first.ID {
		t.Errorf("second ID = %d, want greater than %d", second.ID, first.ID)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestContact(t, db, "Jake", "Peralta", "jake@x.com")

	now := testNow()
	dup := &model.Contact{FirstName: "Other", LastName: "Jake", Email: "jake@x.com", CreatedAt: now, UpdatedAt: now}
	err := db.Create(context.Background(), dup)

	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}

	all, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List() returned %d contacts after rejected insert, want 1", len(all))
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestContact(t, db, "Rosa", "Diaz", "rosa@x.com")

	found, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
	if found.FirstName != "Rosa" || found.LastName != "Diaz" || found.Email != "rosa@x.com" {
		t.Errorf("GetByID() = %+v, want Rosa Diaz <rosa@x.com>", found)
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), 829392)

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestContact(t, db, "Terry", "Jeffords", "terry@x.com")

	found, err := db.GetByEmail(context.Background(), "terry@x.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}

	_, err = db.GetByEmail(context.Background(), "nobody@x.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	contacts, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	// An empty table must still produce a non-nil slice so it encodes as [].
	if contacts == nil || len(contacts) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", contacts)
	}
}

func TestList_OrderedByID(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 3; i++ {
		createTestContact(t, db, "Detective", fmt.Sprintf("No%d", i), fmt.Sprintf("det%d@x.com", i))
	}

	contacts, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(contacts) != 3 {
		t.Fatalf("List() returned %d contacts, want 3", len(contacts))
	}
	for i := 1; i < len(contacts); i++ {
		if contacts[i].ID <= contacts[i-1].ID {
			t.Errorf("contacts not ordered by id: %d before %d", contacts[i-1].ID, contacts[i].ID)
		}
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdate_PartialPatch(t *testing.T) {
	db := newTestDB(t)
	original := createTestContact(t, db, "Charles", "Boyle", "charles@x.com")
	later := original.UpdatedAt.Add(time.Second)

	updated, err := db.Update(context.Background(), original.ID, model.ContactPatch{FirstName: strPtr("Chuck")}, later)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.FirstName != "Chuck" {
		t.Errorf("FirstName = %q, want %q", updated.FirstName, "Chuck")
	}
	if updated.LastName != "Boyle" {
		t.Errorf("LastName = %q, want it unchanged", updated.LastName)
	}
	if updated.Email != "charles@x.com" {
		t.Errorf("Email = %q, want it unchanged", updated.Email)
	}
	if !updated.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", original.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", updated.UpdatedAt, later)
	}
}

func TestUpdate_EmptyPatchTouchesUpdatedAt(t *testing.T) {
	db := newTestDB(t)
	original := createTestContact(t, db, "Gina", "Linetti", "gina@x.com")
	later := original.UpdatedAt.Add(time.Millisecond)

	updated, err := db.Update(context.Background(), original.ID, model.ContactPatch{}, later)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.UpdatedAt.After(original.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", updated.UpdatedAt, original.UpdatedAt)
	}
	if updated.FirstName != "Gina" || updated.LastName != "Linetti" {
		t.Errorf("names changed on empty patch: %+v", updated)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Update(context.Background(), 823798242, model.ContactPatch{FirstName: strPtr("X")}, testNow())

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	contact := createTestContact(t, db, "Raymond", "Holt", "holt@x.com")

	if err := db.Delete(context.Background(), contact.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(context.Background(), contact.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete: error = %v, want ErrNotFound", err)
	}

	// Deleting again is still "not found".
	if err := db.Delete(context.Background(), contact.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDelete_IDNotReused(t *testing.T) {
	db := newTestDB(t)
	first := createTestContact(t, db, "Hitchcock", "Michael", "hitchcock@x.com")

	if err := db.Delete(context.Background(), first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	second := createTestContact(t, db, "Scully", "Norm", "scully@x.com")
	if second.ID == first.ID {
		t.Errorf("id %d was reused after delete", first.ID)
	}
}

// =========================================================================
// FULL CRUD LIFECYCLE TEST
// =========================================================================

func TestFullCRUDLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// 1. Create
	contact := createTestContact(t, db, "Jake", "Peralta", "jake.peralta@x.com")

	// 2. Read
	found, err := db.GetByID(ctx, contact.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if found.Email != "jake.peralta@x.com" {
		t.Errorf("Email = %q, want %q", found.Email, "jake.peralta@x.com")
	}

	// 3. Update
	if _, err := db.Update(ctx, contact.ID, model.ContactPatch{LastName: strPtr("Santiago-Peralta")}, found.UpdatedAt.Add(time.Millisecond)); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// 4. List
	all, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].LastName != "Santiago-Peralta" {
		t.Fatalf("List = %+v, want the single updated contact", all)
	}

	// 5. Delete
	if err := db.Delete(ctx, contact.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	final, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	if len(final) != 0 {
		t.Errorf("List after delete returned %d, want 0", len(final))
	}
}
