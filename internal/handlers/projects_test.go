package handlers_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace/db"
	"marketplace/internal/handlers/testutils"

	"github.com/stretchr/testify/require"
)

func TestCreateProjectHandler(t *testing.T) {
	mockStore := &MockStorage{}
	h := newTestHandler(mockStore, nil, t.TempDir())

	deadline := time.Now().Add(7 * 24 * time.Hour).Format(time.RFC3339)
	reqBody := fmt.Sprintf(`{
        "title": "Logo",
        "description": "Design a logo",
        "budgetMin": 100,
        "budgetMax": 200,
        "deadline": %q,
        "department": "design"
    }`, deadline)
	req := asBuyer(httptest.NewRequest(http.MethodPost, "/api/project/projects", strings.NewReader(reqBody)))
	w := httptest.NewRecorder()

	h.CreateProjectHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.Contains(t, string(body), "Logo")

	require.Len(t, mockStore.createdProjects, 1)
	created := mockStore.createdProjects[0]
	require.Equal(t, db.StatusPending, created.Status)
	require.False(t, created.SellerID.Valid)
	require.Equal(t, 1, created.BuyerID)
}

func TestCreateProjectHandlerPastDeadline(t *testing.T) {
	h := newTestHandler(&MockStorage{}, nil, t.TempDir())

	deadline := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	reqBody := fmt.Sprintf(`{
        "title": "Logo",
        "description": "Design a logo",
        "budgetMin": 100,
        "budgetMax": 200,
        "deadline": %q,
        "department": "design"
    }`, deadline)
	req := asBuyer(httptest.NewRequest(http.MethodPost, "/api/project/projects", strings.NewReader(reqBody)))
	w := httptest.NewRecorder()

	h.CreateProjectHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestCreateProjectHandlerBudgetMaxBelowMin(t *testing.T) {
	h := newTestHandler(&MockStorage{}, nil, t.TempDir())

	deadline := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	reqBody := fmt.Sprintf(`{
        "title": "Logo",
        "description": "Design a logo",
        "budgetMin": 200,
        "budgetMax": 100,
        "deadline": %q,
        "department": "design"
    }`, deadline)
	req := asBuyer(httptest.NewRequest(http.MethodPost, "/api/project/projects", strings.NewReader(reqBody)))
	w := httptest.NewRecorder()

	h.CreateProjectHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestGetProjectsHandler(t *testing.T) {
	h := newTestHandler(&MockStorage{}, nil, t.TempDir())

	req := asBuyer(httptest.NewRequest(http.MethodGet, "/api/project/projects?sortBy=budget&order=asc", nil))
	w := httptest.NewRecorder()

	h.GetProjectsHandler(w, req)

	res := w.Result()
	body, _ := io.ReadAll(res.Body)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Buyer Project")
}

func TestGetOpenProjectsHandler(t *testing.T) {
	h := newTestHandler(&MockStorage{}, nil, t.TempDir())

	req := asSeller(httptest.NewRequest(http.MethodGet, "/api/project/projects/open", nil))
	w := httptest.NewRecorder()

	h.GetOpenProjectsHandler(w, req)

	res := w.Result()
	body, _ := io.ReadAll(res.Body)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Open Project")
}

func TestAssignSellerHandler(t *testing.T) {
	seller := testUser(t, 2, "seller@example.com", db.RoleSeller, "s3cret-pass")
	mockStore := &MockStorage{
		user:    seller,
		project: &db.Project{ID: 5, Title: "Logo", BuyerID: 1, Status: db.StatusPending},
	}
	mail := newMockMailer()
	h := newTestHandler(mockStore, mail, t.TempDir())

	req := asBuyer(httptest.NewRequest(http.MethodPut, "/api/project/projects/5", strings.NewReader(`{"sellerId":2}`)))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
	w := httptest.NewRecorder()

	h.RequireProjectOwnership(http.HandlerFunc(h.UpdateProjectHandler)).ServeHTTP(w, req)

	res := w.Result()
	body, _ := io.ReadAll(res.Body)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), db.StatusInProgress)
	require.Contains(t, string(body), "Seller selected successfully")

	select {
	case to := <-mail.sent:
		require.Equal(t, "seller@example.com", to)
	case <-time.After(time.Second):
		t.Fatal("expected assignment notification")
	}
}

func TestAssignSellerNotificationFailureDoesNotFailAssignment(t *testing.T) {
	seller := testUser(t, 2, "seller@example.com", db.RoleSeller, "s3cret-pass")
	mockStore := &MockStorage{
		user:    seller,
		project: &db.Project{ID: 5, Title: "Logo", BuyerID: 1, Status: db.StatusPending},
	}
	mail := newMockMailer()
	mail.err = fmt.Errorf("smtp down")
	h := newTestHandler(mockStore, mail, t.TempDir())

	req := asBuyer(httptest.NewRequest(http.MethodPut, "/api/project/projects/5", strings.NewReader(`{"sellerId":2}`)))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
	w := httptest.NewRecorder()

	h.RequireProjectOwnership(http.HandlerFunc(h.UpdateProjectHandler)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	<-mail.sent
}

func TestAssignRejectsBuyerAsSeller(t *testing.T) {
	buyer := testUser(t, 3, "other-buyer@example.com", db.RoleBuyer, "s3cret-pass")
	mockStore := &MockStorage{
		user:    buyer,
		project: &db.Project{ID: 5, Title: "Logo", BuyerID: 1, Status: db.StatusPending},
	}
	h := newTestHandler(mockStore, nil, t.TempDir())

	req := asBuyer(httptest.NewRequest(http.MethodPut, "/api/project/projects/5", strings.NewReader(`{"sellerId":3}`)))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
	w := httptest.NewRecorder()

	h.RequireProjectOwnership(http.HandlerFunc(h.UpdateProjectHandler)).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestUpdateProjectHandlerPartialFields(t *testing.T) {
	mockStore := &MockStorage{project: &db.Project{ID: 5, Title: "Old", BuyerID: 1}}
	h := newTestHandler(mockStore, nil, t.TempDir())

	req := asBuyer(httptest.NewRequest(http.MethodPut, "/api/project/projects/5", strings.NewReader(`{"title":"New Title"}`)))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
	w := httptest.NewRecorder()

	h.RequireProjectOwnership(http.HandlerFunc(h.UpdateProjectHandler)).ServeHTTP(w, req)

	res := w.Result()
	body, _ := io.ReadAll(res.Body)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "New Title")
}

func TestUpdateProjectStatusHandler(t *testing.T) {
	mockStore := &MockStorage{project: &db.Project{ID: 5, BuyerID: 1, Status: db.StatusInProgress}}
	h := newTestHandler(mockStore, nil, t.TempDir())

	req := asBuyer(httptest.NewRequest(http.MethodPut, "/api/project/projects/5/status", strings.NewReader(`{"status":"COMPLETED"}`)))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
	w := httptest.NewRecorder()

	h.RequireProjectOwnership(http.HandlerFunc(h.UpdateProjectStatusHandler)).ServeHTTP(w, req)

	res := w.Result()
	body, _ := io.ReadAll(res.Body)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "COMPLETED")
	require.Equal(t, db.StatusCompleted, mockStore.statusUpdates[5])
}

func TestUpdateProjectStatusHandlerInvalidValue(t *testing.T) {
	mockStore := &MockStorage{project: &db.Project{ID: 5, BuyerID: 1}}
	h := newTestHandler(mockStore, nil, t.TempDir())

	req := asBuyer(httptest.NewRequest(http.MethodPut, "/api/project/projects/5/status", strings.NewReader(`{"status":"ARCHIVED"}`)))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
	w := httptest.NewRecorder()

	h.RequireProjectOwnership(http.HandlerFunc(h.UpdateProjectStatusHandler)).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	require.Empty(t, mockStore.statusUpdates)
}

func TestDeleteProjectHandler(t *testing.T) {
	mockStore := &MockStorage{project: &db.Project{ID: 5, BuyerID: 1}}
	h := newTestHandler(mockStore, nil, t.TempDir())

	req := asBuyer(httptest.NewRequest(http.MethodDelete, "/api/project/projects/5", nil))
	req = testutils.WithChiURLParams(req, map[string]string{"id": "5"})
	w := httptest.NewRecorder()

	h.RequireProjectOwnership(http.HandlerFunc(h.DeleteProjectHandler)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	require.Equal(t, []int{5}, mockStore.deletedProjects)
}
