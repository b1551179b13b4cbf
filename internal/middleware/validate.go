package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/sakif/address-book/internal/handler"
	"github.com/sakif/address-book/internal/validation"
)

// MaxBodyBytes caps request bodies on validated routes.
const MaxBodyBytes = 100 << 10

// Validate parses the JSON body and checks it against schema before the
// route handler runs.
//
// On failure it answers 400 with every violation and the handler never
// runs. On success the body is replaced with the sanitized payload (known
// fields only), so handlers can decode straight into typed structs.
//
// Only application/json bodies are parsed. Any other Content-Type, or none,
// leaves the payload as {}, as does an empty body. Bodies over
// MaxBodyBytes get 413.
func Validate(schema validation.Schema) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isJSON(r.Header.Get("Content-Type")) {
				validateAndServe(schema, map[string]any{}, w, r, next)
				return
			}

			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					handler.WriteValidationError(w, http.StatusRequestEntityTooLarge, []string{
						fmt.Sprintf(`"value" must not exceed %d bytes`, tooLarge.Limit),
					})
					return
				}
				handler.WriteValidationError(w, http.StatusBadRequest, []string{`"value" could not be read`})
				return
			}

			var body any = map[string]any{}
			if len(bytes.TrimSpace(raw)) > 0 {
				if err := json.Unmarshal(raw, &body); err != nil {
					handler.WriteValidationError(w, http.StatusBadRequest, []string{`"value" must be valid JSON`})
					return
				}
			}

			validateAndServe(schema, body, w, r, next)
		})
	}
}

// validateAndServe runs schema over body and either answers 400 or hands the
// sanitized payload to next as the new request body.
func validateAndServe(schema validation.Schema, body any, w http.ResponseWriter, r *http.Request, next http.Handler) {
	res := schema.Validate(body)
	if !res.OK() {
		handler.WriteValidationError(w, http.StatusBadRequest, res.Errors)
		return
	}

	sanitized, err := json.Marshal(res.Value)
	if err != nil {
		// Values came out of json.Unmarshal, so this cannot happen.
		panic(fmt.Sprintf("re-encoding validated body: %v", err))
	}
	r.Body = io.NopCloser(bytes.NewReader(sanitized))
	r.ContentLength = int64(len(sanitized))

	next.ServeHTTP(w, r)
}

// isJSON reports whether contentType names application/json. Parameters
// such as charset are ignored.
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
