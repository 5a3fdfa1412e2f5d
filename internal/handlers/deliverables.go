package handlers

import (
	"database/sql"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"marketplace/db"
	"marketplace/internal/upload"

	"github.com/go-chi/chi/v5"
)

// saveSlot stores one optional uploaded file and returns its public path,
// or an empty NullString when the slot was not supplied.
func (h *Handler) saveSlot(form *multipart.Form, field string) (sql.NullString, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return sql.NullString{}, nil
	}
	fh := headers[0]

	file, err := fh.Open()
	if err != nil {
		return sql.NullString{}, err
	}
	defer file.Close()

	url, err := h.Deliverables.Save(file, fh.Filename, fh.Header.Get("Content-Type"), fh.Size)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: url, Valid: true}, nil
}

// SubmitDeliverableHandler handles POST /api/deliverable/projects/{id}/deliverables
// (seller only). The caller must be the project's currently assigned
// seller, and at least one of the six slots (three files, three links) must
// be populated.
func (h *Handler) SubmitDeliverableHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	projectID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || projectID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.Store.GetProject(r.Context(), projectID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if !project.SellerID.Valid || int(project.SellerID.Int64) != claims.UserID {
		writeMessage(w, http.StatusForbidden, "You are not authorized to upload for this project")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 3*h.Deliverables.MaxSize+1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	d := &db.Deliverable{
		ProjectID: project.ID,
		SellerID:  claims.UserID,
		PdfLink:   nullString(r.FormValue("pdfLink")),
		ZipLink:   nullString(r.FormValue("zipLink")),
		VideoLink: nullString(r.FormValue("videoLink")),
	}

	for _, slot := range []struct {
		field string
		dst   *sql.NullString
	}{
		{"pdf", &d.PdfURL},
		{"zip", &d.ZipURL},
		{"video", &d.VideoURL},
	} {
		url, err := h.saveSlot(r.MultipartForm, slot.field)
		if err != nil {
			if errors.Is(err, upload.ErrBadType) || errors.Is(err, upload.ErrFileTooLarge) {
				writeMessage(w, http.StatusBadRequest, err.Error())
				return
			}
			h.storeError(w, r, err)
			return
		}
		*slot.dst = url
	}

	if !d.PdfURL.Valid && !d.ZipURL.Valid && !d.VideoURL.Valid &&
		!d.PdfLink.Valid && !d.ZipLink.Valid && !d.VideoLink.Valid {
		writeMessage(w, http.StatusBadRequest, "Please upload at least one file or provide a link")
		return
	}

	if err := h.Store.CreateDeliverable(r.Context(), d); err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Deliverable uploaded successfully",
		"deliverable": d,
	})
}

// GetDeliverableHandler handles GET /api/deliverable/projects/{id}/deliverables
// for the owning buyer.
func (h *Handler) GetDeliverableHandler(w http.ResponseWriter, r *http.Request) {
	project := ProjectFromContext(r.Context())

	deliverable, err := h.Store.GetProjectDeliverable(r.Context(), project.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "No deliverables found for this project")
			return
		}
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"deliverable": deliverable})
}
