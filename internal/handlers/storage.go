package handlers

import (
	"context"
	"database/sql"

	"marketplace/db"
)

type StorageInterface interface {
	CreateUser(ctx context.Context, u *db.User) error
	GetUserByID(ctx context.Context, id int) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	UpdateUserProfile(ctx context.Context, u *db.User) error
	SetRefreshToken(ctx context.Context, userID int, token sql.NullString) error
	DeleteUserCascade(ctx context.Context, userID int) error

	CreateProject(ctx context.Context, p *db.Project) error
	GetProject(ctx context.Context, id int) (*db.Project, error)
	UpdateProject(ctx context.Context, id int, upd db.ProjectUpdate) (*db.Project, error)
	AssignSeller(ctx context.Context, projectID, sellerID int) (*db.Project, error)
	SetProjectStatus(ctx context.Context, projectID int, status string) (*db.Project, error)
	DeleteProjectCascade(ctx context.Context, projectID int) error
	GetBuyerProjects(ctx context.Context, buyerID int, f db.ProjectFilter) ([]db.Project, error)
	GetOpenProjects(ctx context.Context, f db.ProjectFilter) ([]db.Project, error)
	GetSellerProjects(ctx context.Context, sellerID int, f db.ProjectFilter) ([]db.Project, error)

	CreateBid(ctx context.Context, b *db.Bid) error
	HasBid(ctx context.Context, projectID, sellerID int) (bool, error)
	GetSellerBids(ctx context.Context, sellerID int, sortBy, order string) ([]db.BidWithProject, error)
	GetBidsForProject(ctx context.Context, projectID int, sortBy, order string) ([]db.BidWithSeller, error)

	CreateDeliverable(ctx context.Context, d *db.Deliverable) error
	GetProjectDeliverable(ctx context.Context, projectID int) (*db.DeliverableWithSeller, error)
}
