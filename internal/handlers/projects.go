package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"marketplace/db"
	"marketplace/models"

	"github.com/go-chi/chi/v5"
)

// parseProjectFilter reads the sort and filter query parameters shared by
// the listing endpoints. Unknown sort keys fall back to createdAt.
func parseProjectFilter(r *http.Request) db.ProjectFilter {
	q := r.URL.Query()
	f := db.ProjectFilter{
		SortBy:     q.Get("sortBy"),
		Order:      q.Get("order"),
		Department: q.Get("department"),
		Status:     q.Get("status"),
	}
	if f.SortBy == "" {
		f.SortBy = "createdAt"
	}
	if f.Order == "" {
		f.Order = "desc"
	}
	return f
}

// CreateProjectHandler handles POST /api/project/projects (buyer only).
func (h *Handler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	var req models.ProjectCreateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if !req.Deadline.After(time.Now()) {
		writeMessage(w, http.StatusBadRequest, "Deadline must be in the future")
		return
	}

	project := &db.Project{
		Title:       req.Title,
		Description: req.Description,
		BudgetMin:   int(math.Round(req.BudgetMin)),
		BudgetMax:   int(math.Round(req.BudgetMax)),
		Deadline:    req.Deadline,
		Department:  req.Department,
		BuyerID:     claims.UserID,
	}
	if err := h.Store.CreateProject(r.Context(), project); err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Project created successfully",
		"project": project,
	})
}

// GetProjectsHandler handles GET /api/project/projects: the caller's own
// projects as buyer, with sorting and filtering.
func (h *Handler) GetProjectsHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	projects, err := h.Store.GetBuyerProjects(r.Context(), claims.UserID, parseProjectFilter(r))
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Projects fetched successfully",
		"projects": projects,
	})
}

// GetOpenProjectsHandler handles GET /api/project/projects/open (seller
// only): PENDING projects with no assigned seller.
func (h *Handler) GetOpenProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.GetOpenProjects(r.Context(), parseProjectFilter(r))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetMyProjectsHandler handles GET /api/project/projects/my (seller only):
// projects assigned to the caller.
func (h *Handler) GetMyProjectsHandler(w http.ResponseWriter, r *http.Request) {
	claims := IdentityFromContext(r.Context())

	projects, err := h.Store.GetSellerProjects(r.Context(), claims.UserID, parseProjectFilter(r))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProjectHandler handles GET /api/project/projects/{id}.
func (h *Handler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Project fetched successfully",
		"project": project,
	})
}

// GetProjectDetailsHandler handles GET /api/bid/projects/{id}/details
// (seller only): a condensed view used on the bidding page.
func (h *Handler) GetProjectDetailsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || projectID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Valid project ID is required")
		return
	}

	project, err := h.Store.GetProject(r.Context(), projectID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":          strconv.Itoa(project.ID),
		"title":       project.Title,
		"description": project.Description,
		"budget":      fmt.Sprintf("%d - %d", project.BudgetMin, project.BudgetMax),
		"deadline":    project.Deadline.Format("2006-01-02"),
		"status":      project.Status,
	})
}

// UpdateProjectHandler handles PUT /api/project/projects/{id} for the
// owning buyer. A body carrying sellerId assigns the seller and moves the
// project to IN_PROGRESS; otherwise only the supplied fields are updated.
func (h *Handler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	project := ProjectFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	defer r.Body.Close()

	var input struct {
		SellerID *int `json:"sellerId"`
		db.ProjectUpdate
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if input.SellerID != nil {
		h.assignSeller(w, r, project, *input.SellerID)
		return
	}

	updated, err := h.Store.UpdateProject(r.Context(), project.ID, input.ProjectUpdate)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Project updated successfully",
		"project": updated,
	})
}

// assignSeller performs the PENDING -> IN_PROGRESS transition and then
// notifies the seller. The mail is sent after the update committed, in the
// background; a failed send is logged and never fails the assignment.
func (h *Handler) assignSeller(w http.ResponseWriter, r *http.Request, project *db.Project, sellerID int) {
	seller, err := h.Store.GetUserByID(r.Context(), sellerID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if seller.Role != db.RoleSeller {
		writeMessage(w, http.StatusBadRequest, "User is not a seller")
		return
	}

	updated, err := h.Store.AssignSeller(r.Context(), project.ID, seller.ID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	go func(email, name, title string) {
		if err := h.Mail.SendAssignmentNotice(email, name, title); err != nil {
			slog.Error("failed to send selection email", "seller", email, "err", err)
		}
	}(seller.Email, seller.Name, updated.Title)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Seller selected successfully",
		"project": updated,
	})
}

// UpdateProjectStatusHandler handles PUT /api/project/projects/{id}/status.
// The value must be one of the four statuses; transitions between them are
// otherwise unrestricted.
func (h *Handler) UpdateProjectStatusHandler(w http.ResponseWriter, r *http.Request) {
	project := ProjectFromContext(r.Context())

	var req models.StatusUpdateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if !db.ValidStatus(req.Status) {
		writeMessage(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	updated, err := h.Store.SetProjectStatus(r.Context(), project.ID, req.Status)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Status updated",
		"project": updated,
	})
}

// DeleteProjectHandler handles DELETE /api/project/projects/{id} (owning
// buyer): removes the project together with its bids and deliverables.
func (h *Handler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	project := ProjectFromContext(r.Context())

	if err := h.Store.DeleteProjectCascade(r.Context(), project.ID); err != nil {
		h.storeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Project deleted successfully")
}
