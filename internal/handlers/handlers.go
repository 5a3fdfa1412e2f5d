package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"marketplace/db"
	"marketplace/internal/auth"
	"marketplace/internal/upload"

	"github.com/go-playground/validator/v10"
)

// Mailer is the notification collaborator. Delivery is best-effort: the
// handlers log failures and never surface them to the caller.
type Mailer interface {
	SendAssignmentNotice(to, name, projectTitle string) error
}

// Handler wires storage, token issuing, mail and uploads behind the HTTP
// surface.
type Handler struct {
	Store        StorageInterface
	Tokens       *auth.TokenIssuer
	Mail         Mailer
	Deliverables *upload.Saver
	BidVideos    *upload.Saver

	// SecureCookies disables the Secure cookie attribute for local
	// development over plain HTTP.
	SecureCookies bool

	validate *validator.Validate
}

func NewHandler(store StorageInterface, tokens *auth.TokenIssuer, mail Mailer, deliverables, bidVideos *upload.Saver) *Handler {
	return &Handler{
		Store:         store,
		Tokens:        tokens,
		Mail:          mail,
		Deliverables:  deliverables,
		BidVideos:     bidVideos,
		SecureCookies: true,
		validate:      validator.New(),
	}
}

// PingHandler answers "ok" for server health checks.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// decodeAndValidate parses the JSON body into dst and runs the validate
// tags. On failure it writes a 400 and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// storeError maps storage sentinels to HTTP statuses. Anything unexpected
// is logged with context and surfaced as an opaque 500.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, db.ErrConflict):
		writeMessage(w, http.StatusConflict, "Resource already exists")
	default:
		slog.Error("storage failure", "method", r.Method, "path", r.URL.Path, "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
