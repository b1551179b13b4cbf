package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/address-book/internal/apperror"
	"github.com/sakif/address-book/internal/model"
)

// ContactService is what the handlers need from the business layer.
// *service.ContactService satisfies it; tests pass a fake.
type ContactService interface {
	List(ctx context.Context) ([]model.Contact, error)
	Get(ctx context.Context, id int64) (*model.Contact, error)
	Create(ctx context.Context, firstName, lastName, email string) (*model.Contact, error)
	Update(ctx context.Context, id int64, patch model.ContactPatch) (*model.Contact, error)
	Delete(ctx context.Context, id int64) error
}

// ContactHandler serves the /v1/contacts resource.
//
// Write handlers (create, update) expect the validation middleware to have
// run first: by the time they decode the body it holds only known, valid
// fields.
type ContactHandler struct {
	svc    ContactService
	logger *slog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(svc ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, logger: logger}
}

type createContactRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// HandleList returns every contact.
//
// HTTP: GET /v1/contacts
func (h *ContactHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// HandleGet returns a single contact.
//
// HTTP: GET /v1/contacts/{id}
func (h *ContactHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(r)
	if !ok {
		writeStatus(w, http.StatusNotFound)
		return
	}

	contact, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// HandleCreate registers a new contact.
//
// HTTP: POST /v1/contacts
// REQUEST BODY: {"firstName":"Jake","lastName":"Peralta","email":"jake.peralta@x.com"}
// RESPONSES: 201 + contact, 400 (validation), 409 (email taken)
func (h *ContactHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid contact JSON", slog.String("error", err.Error()))
		h.writeError(w, r, apperror.ValidationFailed("value", `"value" must be valid JSON`))
		return
	}

	contact, err := h.svc.Create(r.Context(), req.FirstName, req.LastName, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

// HandleUpdate applies a partial update. Absent fields keep their value;
// email can never change.
//
// HTTP: PATCH /v1/contacts/{id}
// REQUEST BODY: {"firstName":"Jacob"} (any subset of firstName, lastName)
func (h *ContactHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(r)
	if !ok {
		writeStatus(w, http.StatusNotFound)
		return
	}

	var patch model.ContactPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Warn("invalid contact patch JSON", slog.String("error", err.Error()))
		h.writeError(w, r, apperror.ValidationFailed("value", `"value" must be valid JSON`))
		return
	}

	contact, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// HandleDelete removes a contact. Success is 200 with an empty body.
//
// HTTP: DELETE /v1/contacts/{id}
func (h *ContactHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(r)
	if !ok {
		writeStatus(w, http.StatusNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeStatus(w, http.StatusOK)
}

// contactID parses the {id} URL parameter. Anything that is not a positive
// integer cannot name a stored contact, so callers answer 404 for it.
func contactID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
