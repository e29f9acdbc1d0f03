package users

import (
	"context"

	"github.com/dmitrijs2005/usersvc/internal/server/models"
)

// Repository is the user directory port.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByProfileImage(ctx context.Context, name string) (bool, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) error
	Delete(ctx context.Context, id int64) error
	// List returns one page ordered by id plus the total number of matches.
	// A non-empty nameLike keeps users whose name contains it, ignoring case.
	List(ctx context.Context, offset, limit int, nameLike string) ([]*models.User, int, error)
}
