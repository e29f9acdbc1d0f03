// Package services contains server-side business logic. UserService owns the
// user directory API: sign-up, lookup, paging, profile edits, role changes
// and profile images.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"
	"net/url"
	"path"
	"strings"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/dbx"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/config"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usersvc/internal/server/storage"
	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPage keeps (page-1)*limit inside int.
	MaxPage = math.MaxInt / MaxPageLimit
)

// PasswordHashing is implemented by auth.Service.
type PasswordHashing interface {
	HashPassword(password string) (string, error)
}

// NewUser is the sign-up input.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	passwords   PasswordHashing
	images      storage.ImageStore
	config      *config.Config
	logger      logging.Logger
	newID       func() string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, passwords PasswordHashing,
	images storage.ImageStore, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		passwords:   passwords,
		images:      images,
		config:      cfg,
		logger:      logger.With("module", "users"),
		newID:       func() string { return uuid.NewString() },
	}
}

// Create registers a user with role user. Outside prod the configured seed
// email is registered as admin instead.
func (s *UserService) Create(ctx context.Context, in NewUser) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := models.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrorInvalidInput)
	}

	repo := s.repomanager.Users(s.db)

	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	hash, err := s.passwords.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleUser}
	if !s.config.IsProd() && email == models.NormalizeEmail(s.config.SeedAdminEmail) {
		u.Role = models.RoleAdmin
		s.logger.Warn(ctx, "registering seed admin", "email", email, "mode", s.config.Mode)
	}

	created, err := repo.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user created", "user_id", created.ID, "role", created.Role)
	return created.WithoutSecrets(), nil
}

func (s *UserService) FindOne(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.WithoutSecrets(), nil
}

func (s *UserService) FindOneByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return u.WithoutSecrets(), nil
}

func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	return s.repomanager.Users(s.db).ExistsByEmail(ctx, email)
}

// Paginate returns one page of users ordered by id. Page numbers start at 1.
func (s *UserService) Paginate(ctx context.Context, opts models.PageOptions) (*models.Pagination[*models.User], error) {
	opts = normalizePage(opts)

	items, total, err := s.repomanager.Users(s.db).List(ctx, (opts.Page-1)*opts.Limit, opts.Limit, opts.Name)
	if err != nil {
		return nil, err
	}
	for i, u := range items {
		items[i] = u.WithoutSecrets()
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	return &models.Pagination[*models.User]{
		Items: items,
		Meta: models.PageMeta{
			TotalItems:   total,
			ItemCount:    len(items),
			ItemsPerPage: opts.Limit,
			TotalPages:   totalPages,
			CurrentPage:  opts.Page,
		},
		Links: pageLinks(opts, totalPages),
	}, nil
}

func normalizePage(opts models.PageOptions) models.PageOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Page > MaxPage {
		opts.Page = MaxPage
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultPageLimit
	}
	if opts.Limit > MaxPageLimit {
		opts.Limit = MaxPageLimit
	}
	opts.Name = strings.TrimSpace(opts.Name)
	return opts
}

func pageLinks(opts models.PageOptions, totalPages int) models.PageLinks {
	link := func(page int) string {
		l := fmt.Sprintf("%s?limit=%d&page=%d", opts.Route, opts.Limit, page)
		if opts.Name != "" {
			l += "&name=" + url.QueryEscape(opts.Name)
		}
		return l
	}

	links := models.PageLinks{First: link(1), Last: link(max(totalPages, 1))}
	if opts.Page > 1 {
		links.Previous = link(opts.Page - 1)
	}
	if opts.Page < totalPages {
		links.Next = link(opts.Page + 1)
	}
	return links
}

// UpdateOne changes the display name. Email, role and password have their
// own operations.
func (s *UserService) UpdateOne(ctx context.Context, id int64, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrorInvalidInput)
	}
	return s.updateAndReload(ctx, id, models.UserPatch{Name: &name})
}

func (s *UserService) UpdatePassword(ctx context.Context, id int64, password string) (*models.User, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorInvalidInput)
	}
	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := s.updateAndReload(ctx, id, models.UserPatch{PasswordHash: &hash})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "password changed", "user_id", id)
	return u, nil
}

func (s *UserService) UpdateRole(ctx context.Context, id int64, role string) (*models.User, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}

	u, err := s.updateAndReload(ctx, id, models.UserPatch{Role: &r})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "role changed", "user_id", id, "role", r)
	return u, nil
}

func (s *UserService) updateAndReload(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	return dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		repo := s.repomanager.Users(tx)
		if err := repo.Update(ctx, id, patch); err != nil {
			return nil, err
		}
		u, err := repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return u.WithoutSecrets(), nil
	})
}

func (s *UserService) DeleteOne(ctx context.Context, id int64) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// ProfileImageName derives the stored name from an uploaded file name:
// the base name without whitespace, a random suffix, then the extension.
// The result always passes validImageName.
func ProfileImageName(original, id string) string {
	base := path.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := path.Ext(base)
	stem := strings.Join(strings.Fields(strings.TrimSuffix(base, ext)), "")
	name := stem + id + ext
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	return name
}

func validImageName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// UploadProfileImage stores body and points the user's profile image at it.
func (s *UserService) UploadProfileImage(ctx context.Context, userID int64, filename, contentType string, size int64, body io.Reader) (string, error) {
	repo := s.repomanager.Users(s.db)
	if _, err := repo.FindByID(ctx, userID); err != nil {
		return "", err
	}

	name := ProfileImageName(filename, s.newID())

	if err := s.images.Put(ctx, name, body, size, contentType); err != nil {
		return "", err
	}

	if err := repo.Update(ctx, userID, models.UserPatch{ProfileImage: &name}); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "profile image uploaded", "user_id", userID, "image", name)
	return name, nil
}

// ProfileImageURL returns a temporary download URL for an image that is
// some user's current profile image.
func (s *UserService) ProfileImageURL(ctx context.Context, name string) (string, error) {
	if !validImageName(name) {
		return "", fmt.Errorf("%w: bad image name", common.ErrorInvalidInput)
	}
	ok, err := s.repomanager.Users(s.db).ExistsByProfileImage(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: image %s", common.ErrorNotFound, name)
	}
	return s.images.PresignGet(ctx, name)
}
