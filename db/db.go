package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

const uniqueViolation = "23505"

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// User roles.
const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
)

// Project statuses.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// ValidStatus reports whether s is one of the four project statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// User

type User struct {
	ID           int            `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	Password     string         `db:"password" json:"-"`
	Role         string         `db:"role" json:"role"`
	Mobile       sql.NullString `db:"mobile" json:"mobile"`
	RefreshToken sql.NullString `db:"refresh_token" json:"-"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"-"`
}

func (s *Storage) CreateUser(ctx context.Context, u *User) error {
	query := `
        INSERT INTO users (name, email, password, role, mobile)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query, u.Name, u.Email, u.Password, u.Role, u.Mobile).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func (s *Storage) GetUserByID(ctx context.Context, id int) (*User, error) {
	u := &User{}
	query := `SELECT * FROM users WHERE id=$1`
	err := s.db.GetContext(ctx, u, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	query := `SELECT * FROM users WHERE email=$1`
	err := s.db.GetContext(ctx, u, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *Storage) UpdateUserProfile(ctx context.Context, u *User) error {
	query := `
        UPDATE users
        SET name=$1, email=$2, mobile=$3, password=$4, updated_at=NOW()
        WHERE id=$5`
	_, err := s.db.ExecContext(ctx, query, u.Name, u.Email, u.Mobile, u.Password, u.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

// SetRefreshToken overwrites the stored refresh token. One active session
// per user: issuing a new token invalidates the previous one.
func (s *Storage) SetRefreshToken(ctx context.Context, userID int, token sql.NullString) error {
	query := `UPDATE users SET refresh_token=$1, updated_at=NOW() WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, token, userID)
	return err
}

// DeleteUserCascade removes a user and every record that references them,
// all-or-nothing. Projects the user was assigned to as seller survive but
// are reset to PENDING with no seller; projects the user owns as buyer are
// deleted together with their bids and deliverables.
func (s *Storage) DeleteUserCascade(ctx context.Context, userID int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deliverables WHERE seller_id=$1`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bids WHERE seller_id=$1`, userID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
        UPDATE projects SET seller_id=NULL, status=$1, updated_at=NOW()
        WHERE seller_id=$2`, StatusPending, userID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
        DELETE FROM deliverables
        WHERE project_id IN (SELECT id FROM projects WHERE buyer_id=$1)`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
        DELETE FROM bids
        WHERE project_id IN (SELECT id FROM projects WHERE buyer_id=$1)`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE buyer_id=$1`, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Project

type Project struct {
	ID          int           `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	BudgetMin   int           `db:"budget_min" json:"budgetMin"`
	BudgetMax   int           `db:"budget_max" json:"budgetMax"`
	Deadline    time.Time     `db:"deadline" json:"deadline"`
	Department  string        `db:"department" json:"department"`
	Status      string        `db:"status" json:"status"`
	BuyerID     int           `db:"buyer_id" json:"buyerId"`
	SellerID    sql.NullInt64 `db:"seller_id" json:"sellerId"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"-"`
}

func (s *Storage) CreateProject(ctx context.Context, p *Project) error {
	query := `
        INSERT INTO projects
            (title, description, budget_min, budget_max, deadline, department, status, buyer_id)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`
	p.Status = StatusPending
	return s.db.QueryRowContext(ctx, query,
		p.Title, p.Description, p.BudgetMin, p.BudgetMax, p.Deadline, p.Department, p.Status, p.BuyerID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s *Storage) GetProject(ctx context.Context, id int) (*Project, error) {
	p := &Project{}
	query := `SELECT * FROM projects WHERE id=$1`
	err := s.db.GetContext(ctx, p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ProjectUpdate carries the optional fields of a partial project update.
// Nil fields are left untouched.
type ProjectUpdate struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	BudgetMin   *int       `json:"budgetMin"`
	BudgetMax   *int       `json:"budgetMax"`
	Deadline    *time.Time `json:"deadline"`
}

func (s *Storage) UpdateProject(ctx context.Context, id int, upd ProjectUpdate) (*Project, error) {
	query := `
        UPDATE projects
        SET title        = COALESCE($1, title),
            description  = COALESCE($2, description),
            budget_min   = COALESCE($3, budget_min),
            budget_max   = COALESCE($4, budget_max),
            deadline     = COALESCE($5, deadline),
            updated_at   = NOW()
        WHERE id = $6
        RETURNING *`
	p := &Project{}
	err := s.db.GetContext(ctx, p, query,
		upd.Title, upd.Description, upd.BudgetMin, upd.BudgetMax, upd.Deadline, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// AssignSeller sets the seller on a project and moves it to IN_PROGRESS.
func (s *Storage) AssignSeller(ctx context.Context, projectID, sellerID int) (*Project, error) {
	query := `
        UPDATE projects
        SET seller_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING *`
	p := &Project{}
	err := s.db.GetContext(ctx, p, query, sellerID, StatusInProgress, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Storage) SetProjectStatus(ctx context.Context, projectID int, status string) (*Project, error) {
	query := `
        UPDATE projects
        SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING *`
	p := &Project{}
	err := s.db.GetContext(ctx, p, query, status, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// DeleteProjectCascade removes a project with its bids and deliverables in
// one transaction.
func (s *Storage) DeleteProjectCascade(ctx context.Context, projectID int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bids WHERE project_id=$1`, projectID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM deliverables WHERE project_id=$1`, projectID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ProjectFilter narrows and orders project listings.
type ProjectFilter struct {
	Department string
	Status     string
	SortBy     string // createdAt | budget | deadline | title
	Order      string // asc | desc
}

var projectSortColumns = map[string]string{
	"createdAt": "created_at",
	"budget":    "budget_max",
	"deadline":  "deadline",
	"title":     "title",
}

func (f ProjectFilter) orderClause() string {
	col, ok := projectSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

func (f ProjectFilter) conditions(args []interface{}) ([]string, []interface{}) {
	var conds []string
	if f.Department != "" && f.Department != "ALL" {
		args = append(args, f.Department)
		conds = append(conds, fmt.Sprintf("department = $%d", len(args)))
	}
	if f.Status != "" && f.Status != "ALL" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	return conds, args
}

func (s *Storage) GetBuyerProjects(ctx context.Context, buyerID int, f ProjectFilter) ([]Project, error) {
	args := []interface{}{buyerID}
	conds := []string{"buyer_id = $1"}
	extra, args := f.conditions(args)
	conds = append(conds, extra...)

	query := "SELECT * FROM projects WHERE " + strings.Join(conds, " AND ") + f.orderClause()
	projects := []Project{}
	err := s.db.SelectContext(ctx, &projects, query, args...)
	return projects, err
}

// GetOpenProjects lists projects still accepting bids: PENDING and without
// an assigned seller.
func (s *Storage) GetOpenProjects(ctx context.Context, f ProjectFilter) ([]Project, error) {
	args := []interface{}{StatusPending}
	conds := []string{"status = $1", "seller_id IS NULL"}
	extra, args := f.conditions(args)
	conds = append(conds, extra...)

	query := "SELECT * FROM projects WHERE " + strings.Join(conds, " AND ") + f.orderClause()
	projects := []Project{}
	err := s.db.SelectContext(ctx, &projects, query, args...)
	return projects, err
}

func (s *Storage) GetSellerProjects(ctx context.Context, sellerID int, f ProjectFilter) ([]Project, error) {
	args := []interface{}{sellerID}
	conds := []string{"seller_id = $1"}
	extra, args := f.conditions(args)
	conds = append(conds, extra...)

	query := "SELECT * FROM projects WHERE " + strings.Join(conds, " AND ") + f.orderClause()
	projects := []Project{}
	err := s.db.SelectContext(ctx, &projects, query, args...)
	return projects, err
}

// Bid

type Bid struct {
	ID            int       `db:"id" json:"id"`
	ProjectID     int       `db:"project_id" json:"projectId"`
	SellerID      int       `db:"seller_id" json:"sellerId"`
	Amount        int       `db:"amount" json:"amount"`
	EstimatedTime string    `db:"estimated_time" json:"estimatedTime"`
	Message       string    `db:"message" json:"message"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// BidWithSeller is a bid joined with its seller's public identity, shown to
// the project's buyer.
type BidWithSeller struct {
	Bid
	SellerName  string `db:"seller_name" json:"sellerName"`
	SellerEmail string `db:"seller_email" json:"sellerEmail"`
}

// BidWithProject is a bid joined with its project summary, shown to the
// seller that placed it.
type BidWithProject struct {
	Bid
	ProjectTitle  string `db:"project_title" json:"projectTitle"`
	ProjectStatus string `db:"project_status" json:"projectStatus"`
}

func (s *Storage) CreateBid(ctx context.Context, b *Bid) error {
	query := `
        INSERT INTO bids (project_id, seller_id, amount, estimated_time, message)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		b.ProjectID, b.SellerID, b.Amount, b.EstimatedTime, b.Message).
		Scan(&b.ID, &b.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func (s *Storage) HasBid(ctx context.Context, projectID, sellerID int) (bool, error) {
	var count int
	query := `SELECT COUNT(1) FROM bids WHERE project_id=$1 AND seller_id=$2`
	err := s.db.GetContext(ctx, &count, query, projectID, sellerID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var bidSortColumns = map[string]string{
	"createdAt":     "created_at",
	"amount":        "amount",
	"estimatedTime": "estimated_time",
}

func bidOrderClause(prefix, sortBy, order string) string {
	col, ok := bidSortColumns[sortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s%s %s", prefix, col, dir)
}

func (s *Storage) GetSellerBids(ctx context.Context, sellerID int, sortBy, order string) ([]BidWithProject, error) {
	query := `
        SELECT b.*, p.title AS project_title, p.status AS project_status
        FROM bids b
        JOIN projects p ON b.project_id = p.id
        WHERE b.seller_id = $1` + bidOrderClause("b.", sortBy, order)
	bids := []BidWithProject{}
	err := s.db.SelectContext(ctx, &bids, query, sellerID)
	return bids, err
}

func (s *Storage) GetBidsForProject(ctx context.Context, projectID int, sortBy, order string) ([]BidWithSeller, error) {
	query := `
        SELECT b.*, u.name AS seller_name, u.email AS seller_email
        FROM bids b
        JOIN users u ON b.seller_id = u.id
        WHERE b.project_id = $1` + bidOrderClause("b.", sortBy, order)
	bids := []BidWithSeller{}
	err := s.db.SelectContext(ctx, &bids, query, projectID)
	return bids, err
}

// Deliverable

type Deliverable struct {
	ID        int            `db:"id" json:"id"`
	ProjectID int            `db:"project_id" json:"projectId"`
	SellerID  int            `db:"seller_id" json:"sellerId"`
	PdfURL    sql.NullString `db:"pdf_url" json:"pdfUrl"`
	ZipURL    sql.NullString `db:"zip_url" json:"zipUrl"`
	VideoURL  sql.NullString `db:"video_url" json:"videoUrl"`
	PdfLink   sql.NullString `db:"pdf_link" json:"pdfLink"`
	ZipLink   sql.NullString `db:"zip_link" json:"zipLink"`
	VideoLink sql.NullString `db:"video_link" json:"videoLink"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// DeliverableWithSeller attaches the submitting seller's identity.
type DeliverableWithSeller struct {
	Deliverable
	SellerName  string `db:"seller_name" json:"sellerName"`
	SellerEmail string `db:"seller_email" json:"sellerEmail"`
}

func (s *Storage) CreateDeliverable(ctx context.Context, d *Deliverable) error {
	query := `
        INSERT INTO deliverables
            (project_id, seller_id, pdf_url, zip_url, video_url, pdf_link, zip_link, video_link)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query,
		d.ProjectID, d.SellerID, d.PdfURL, d.ZipURL, d.VideoURL, d.PdfLink, d.ZipLink, d.VideoLink).
		Scan(&d.ID, &d.CreatedAt)
}

// GetProjectDeliverable returns the first deliverable submitted for the
// project. Multiple rows per project are possible; the earliest wins.
func (s *Storage) GetProjectDeliverable(ctx context.Context, projectID int) (*DeliverableWithSeller, error) {
	d := &DeliverableWithSeller{}
	query := `
        SELECT d.*, u.name AS seller_name, u.email AS seller_email
        FROM deliverables d
        JOIN users u ON d.seller_id = u.id
        WHERE d.project_id = $1
        ORDER BY d.created_at ASC
        LIMIT 1`
	err := s.db.GetContext(ctx, d, query, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}
