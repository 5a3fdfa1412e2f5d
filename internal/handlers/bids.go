package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"marketplace/db"
	"marketplace/internal/upload"
	"marketplace/models"

	"github.com/go-chi/chi/v5"
)

// CreateBidHandler handles POST /api/bid/bids (seller only). One bid per
// seller per project, and only while the project is still PENDING.
func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	var req models.BidCreateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	exists, err := h.Store.HasBid(r.Context(), req.ProjectID, claims.UserID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if exists {
		writeMessage(w, http.StatusConflict, "You have already placed a bid on this project")
		return
	}

	project, err := h.Store.GetProject(r.Context(), req.ProjectID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if project.Status != db.StatusPending {
		writeMessage(w, http.StatusBadRequest, "This project is no longer accepting bids")
		return
	}

	bid := &db.Bid{
		ProjectID:     req.ProjectID,
		SellerID:      claims.UserID,
		Amount:        int(math.Round(req.Amount)),
		EstimatedTime: req.EstimatedTime,
		Message:       req.Message,
	}
	if err := h.Store.CreateBid(r.Context(), bid); err != nil {
		// The unique constraint closes the race between the HasBid probe
		// and the insert.
		if errors.Is(err, db.ErrConflict) {
			writeMessage(w, http.StatusConflict, "You have already placed a bid on this project")
			return
		}
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Bid placed successfully",
		"bid":     bid,
	})
}

// GetMyBidsHandler handles GET /api/bid/bids/mine (seller only).
func (h *Handler) GetMyBidsHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())
	q := r.URL.Query()

	bids, err := h.Store.GetSellerBids(r.Context(), claims.UserID, q.Get("sortBy"), q.Get("order"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": bids})
}

// GetBidsForProjectHandler handles GET /api/bid/projects/{id}/bids for the
// owning buyer, with seller identity attached to each bid.
func (h *Handler) GetBidsForProjectHandler(w http.ResponseWriter, r *http.Request) {
	project := ProjectFromContext(r.Context())
	q := r.URL.Query()

	bids, err := h.Store.GetBidsForProject(r.Context(), project.ID, q.Get("sortBy"), q.Get("order"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Bids fetched successfully",
		"bids":    bids,
	})
}

// HasBidHandler handles GET /api/bid/projects/{id}/hasBid (seller only), an
// existence probe the client uses to disable duplicate submissions. The
// server still enforces uniqueness on create.
func (h *Handler) HasBidHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	projectID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || projectID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Valid project ID is required")
		return
	}

	exists, err := h.Store.HasBid(r.Context(), projectID, claims.UserID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"hasBid": exists})
}

// UploadBidVideoHandler handles POST /api/bid/bids/video (seller only):
// stores a pitch video and returns its public path for use in a bid message.
func (h *Handler) UploadBidVideoHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.BidVideos.MaxSize+1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Video file is required")
		return
	}
	defer file.Close()

	url, err := h.BidVideos.Save(file, header.Filename, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		if errors.Is(err, upload.ErrBadType) || errors.Is(err, upload.ErrFileTooLarge) {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "Video uploaded successfully",
		"videoUrl": url,
	})
}
