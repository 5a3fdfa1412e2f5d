package handlers_test

import (
	"context"
	"database/sql"
	"net/http"
	"sync"

	"marketplace/db"
	"marketplace/internal/auth"
	"marketplace/internal/handlers"
	"marketplace/internal/upload"
)

// MockStorage implements handlers.StorageInterface. Fixed fields drive the
// default behavior; Func fields override individual calls.
type MockStorage struct {
	user    *db.User
	userErr error

	project    *db.Project
	projectErr error

	hasBid        bool
	createUserErr error
	createBidErr  error
	deliverable   *db.DeliverableWithSeller

	GetUserByIDFunc   func(ctx context.Context, id int) (*db.User, error)
	AssignSellerFunc  func(ctx context.Context, projectID, sellerID int) (*db.Project, error)
	UpdateProjectFunc func(ctx context.Context, id int, upd db.ProjectUpdate) (*db.Project, error)

	mu               sync.Mutex
	refreshTokens    map[int]sql.NullString
	deletedUsers     []int
	deletedProjects  []int
	createdBids      []*db.Bid
	createdProjects  []*db.Project
	createdDelivs    []*db.Deliverable
	statusUpdates    map[int]string
	updatedProfiles  []*db.User
}

func (m *MockStorage) CreateUser(ctx context.Context, u *db.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	u.ID = 1
	return nil
}

func (m *MockStorage) GetUserByID(ctx context.Context, id int) (*db.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	if m.user == nil {
		return nil, db.ErrNotFound
	}
	return m.user, m.userErr
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, db.ErrNotFound
	}
	return m.user, m.userErr
}

func (m *MockStorage) UpdateUserProfile(ctx context.Context, u *db.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedProfiles = append(m.updatedProfiles, u)
	return nil
}

func (m *MockStorage) SetRefreshToken(ctx context.Context, userID int, token sql.NullString) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshTokens == nil {
		m.refreshTokens = map[int]sql.NullString{}
	}
	m.refreshTokens[userID] = token
	return nil
}

func (m *MockStorage) DeleteUserCascade(ctx context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedUsers = append(m.deletedUsers, userID)
	return nil
}

func (m *MockStorage) CreateProject(ctx context.Context, p *db.Project) error {
	p.ID = 1
	p.Status = db.StatusPending
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdProjects = append(m.createdProjects, p)
	return nil
}

func (m *MockStorage) GetProject(ctx context.Context, id int) (*db.Project, error) {
	if m.project == nil {
		return nil, db.ErrNotFound
	}
	return m.project, m.projectErr
}

func (m *MockStorage) UpdateProject(ctx context.Context, id int, upd db.ProjectUpdate) (*db.Project, error) {
	if m.UpdateProjectFunc != nil {
		return m.UpdateProjectFunc(ctx, id, upd)
	}
	if m.project == nil {
		return nil, db.ErrNotFound
	}
	p := *m.project
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	return &p, nil
}

func (m *MockStorage) AssignSeller(ctx context.Context, projectID, sellerID int) (*db.Project, error) {
	if m.AssignSellerFunc != nil {
		return m.AssignSellerFunc(ctx, projectID, sellerID)
	}
	if m.project == nil {
		return nil, db.ErrNotFound
	}
	p := *m.project
	p.SellerID = sql.NullInt64{Int64: int64(sellerID), Valid: true}
	p.Status = db.StatusInProgress
	return &p, nil
}

func (m *MockStorage) SetProjectStatus(ctx context.Context, projectID int, status string) (*db.Project, error) {
	if m.project == nil {
		return nil, db.ErrNotFound
	}
	m.mu.Lock()
	if m.statusUpdates == nil {
		m.statusUpdates = map[int]string{}
	}
	m.statusUpdates[projectID] = status
	m.mu.Unlock()
	p := *m.project
	p.Status = status
	return &p, nil
}

func (m *MockStorage) DeleteProjectCascade(ctx context.Context, projectID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedProjects = append(m.deletedProjects, projectID)
	return nil
}

func (m *MockStorage) GetBuyerProjects(ctx context.Context, buyerID int, f db.ProjectFilter) ([]db.Project, error) {
	return []db.Project{{ID: 1, Title: "Buyer Project", BuyerID: buyerID}}, nil
}

func (m *MockStorage) GetOpenProjects(ctx context.Context, f db.ProjectFilter) ([]db.Project, error) {
	return []db.Project{{ID: 2, Title: "Open Project", Status: db.StatusPending}}, nil
}

func (m *MockStorage) GetSellerProjects(ctx context.Context, sellerID int, f db.ProjectFilter) ([]db.Project, error) {
	return []db.Project{{ID: 3, Title: "Assigned Project", Status: db.StatusInProgress}}, nil
}

func (m *MockStorage) CreateBid(ctx context.Context, b *db.Bid) error {
	if m.createBidErr != nil {
		return m.createBidErr
	}
	b.ID = 1
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdBids = append(m.createdBids, b)
	return nil
}

func (m *MockStorage) HasBid(ctx context.Context, projectID, sellerID int) (bool, error) {
	return m.hasBid, nil
}

func (m *MockStorage) GetSellerBids(ctx context.Context, sellerID int, sortBy, order string) ([]db.BidWithProject, error) {
	return []db.BidWithProject{{
		Bid:          db.Bid{ID: 1, SellerID: sellerID, Amount: 150},
		ProjectTitle: "Logo",
	}}, nil
}

func (m *MockStorage) GetBidsForProject(ctx context.Context, projectID int, sortBy, order string) ([]db.BidWithSeller, error) {
	return []db.BidWithSeller{{
		Bid:         db.Bid{ID: 1, ProjectID: projectID, Amount: 150},
		SellerName:  "Seller A",
		SellerEmail: "seller@example.com",
	}}, nil
}

func (m *MockStorage) CreateDeliverable(ctx context.Context, d *db.Deliverable) error {
	d.ID = 1
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdDelivs = append(m.createdDelivs, d)
	return nil
}

func (m *MockStorage) GetProjectDeliverable(ctx context.Context, projectID int) (*db.DeliverableWithSeller, error) {
	if m.deliverable == nil {
		return nil, db.ErrNotFound
	}
	return m.deliverable, nil
}

// mockMailer records sends on a channel so tests can wait for the
// fire-and-forget notification goroutine.
type mockMailer struct {
	sent chan string
	err  error
}

func newMockMailer() *mockMailer {
	return &mockMailer{sent: make(chan string, 1)}
}

func (m *mockMailer) SendAssignmentNotice(to, name, projectTitle string) error {
	m.sent <- to
	return m.err
}

func newTestHandler(store handlers.StorageInterface, mail handlers.Mailer, uploadDir string) *handlers.Handler {
	tokens := auth.NewTokenIssuer([]byte("test-access"), []byte("test-refresh"))
	if mail == nil {
		mail = newMockMailer()
	}
	h := handlers.NewHandler(store, tokens, mail,
		upload.NewDeliverableSaver(uploadDir),
		upload.NewBidVideoSaver(uploadDir))
	h.SecureCookies = false
	return h
}

func asBuyer(req *http.Request) *http.Request {
	return withIdentity(req, 1, "buyer@example.com", db.RoleBuyer)
}

func asSeller(req *http.Request) *http.Request {
	return withIdentity(req, 2, "seller@example.com", db.RoleSeller)
}

func withIdentity(req *http.Request, id int, email, role string) *http.Request {
	claims := &auth.Claims{UserID: id, Email: email, Role: role}
	return req.WithContext(handlers.ContextWithIdentity(req.Context(), claims))
}
