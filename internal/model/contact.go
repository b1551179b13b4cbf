// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"
)

// Contact is a person in the address book.
//
// The json tags are the wire names (camelCase) and the db tags are the
// column names in the contacts table (snake_case). The repository owns the
// explicit column mapping; the db tags document it next to the field.
type Contact struct {
	ID        int64     `json:"id"        db:"id"`
	FirstName string    `json:"firstName" db:"first_name"`
	LastName  string    `json:"lastName"  db:"last_name"`
	Email     string    `json:"email"     db:"email"` // unique, never updated
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TimestampLayout is the wire format of createdAt and updatedAt: RFC 3339 in
// UTC with exactly three fractional digits ("2020-12-29T16:24:02.000Z").
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// MarshalJSON writes the timestamps in TimestampLayout. time.Time's own
// encoding drops trailing zero fractions, so whole seconds would lose ".000".
func (c Contact) MarshalJSON() ([]byte, error) {
	type contact Contact
	return json.Marshal(struct {
		contact
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{
		contact:   contact(c),
		CreatedAt: c.CreatedAt.UTC().Format(TimestampLayout),
		UpdatedAt: c.UpdatedAt.UTC().Format(TimestampLayout),
	})
}

// ContactPatch carries the fields of a partial update.
//
// WHY POINTERS?
// A nil pointer means "field not sent, leave it alone". An empty string is a
// real value (and rejected by validation before it gets here). With plain
// strings we could not tell the two apart.
type ContactPatch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// IsEmpty reports whether the patch changes no business fields.
// An empty patch is still applied: it bumps updatedAt.
func (p ContactPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil
}
