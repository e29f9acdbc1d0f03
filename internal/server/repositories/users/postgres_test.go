package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var (
	createdAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	columns   = []string{"id", "name", "email", "password_hash", "role", "profile_image", "created_at"}
	selectQ   = `(?s)^SELECT id, name, email, password_hash, role, profile_image, created_at FROM users`
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT INTO users \(name,email,password_hash,role\) VALUES \(\$1,\$2,\$3,\$4\) RETURNING id, created_at$`

	mock.ExpectQuery(q).
		WithArgs("Ann", "a@x.com", "hash", "user").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), createdAt))

	u := &models.User{Name: "Ann", Email: "a@x.com", PasswordHash: "hash", Role: models.RoleUser}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || !got.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := repo.Create(context.Background(), &models.User{Email: "a@x.com", Role: models.RoleUser})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^INSERT INTO users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "a@x.com", Role: models.RoleUser})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ + ` WHERE email = \$1$`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), "Ann", "a@x.com", "hash", "admin", "me.png", createdAt))

	got, err := repo.FindByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != 1 || got.Role != models.RoleAdmin || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.ProfileImage == nil || *got.ProfileImage != "me.png" {
		t.Fatalf("unexpected profile image: %v", got.ProfileImage)
	}
}

func TestFindByID_NullImage(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ + ` WHERE id = \$1$`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(7), "Bob", "b@x.com", "hash", "user", nil, createdAt))

	got, err := repo.FindByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.ProfileImage != nil {
		t.Fatalf("expected nil profile image, got %q", *got.ProfileImage)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQ).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 9)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestExistsByEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT EXISTS \( SELECT 1 FROM users WHERE email = \$1 \)$`
	mock.ExpectQuery(q).WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByEmail(context.Background(), "a@x.com")
	if err != nil || !ok {
		t.Fatalf("ExistsByEmail: got (%v, %v)", ok, err)
	}
}

func TestExistsByProfileImage(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT EXISTS \( SELECT 1 FROM users WHERE profile_image = \$1 \)$`
	mock.ExpectQuery(q).WithArgs("me.png").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.ExistsByProfileImage(context.Background(), "me.png")
	if err != nil || ok {
		t.Fatalf("ExistsByProfileImage: got (%v, %v)", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_SetsOnlyPatchedColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE users SET name = \$1, profile_image = \$2 WHERE id = \$3$`
	mock.ExpectExec(q).WithArgs("New", "pic.png", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	name, img := "New", "pic.png"
	if err := repo.Update(context.Background(), 3, models.UserPatch{Name: &name, ProfileImage: &img}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestUpdate_RoleAndPassword(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE users SET password_hash = \$1, role = \$2 WHERE id = \$3$`
	mock.ExpectExec(q).WithArgs("h2", "editor", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	hash, role := "h2", models.RoleEditor
	if err := repo.Update(context.Background(), 3, models.UserPatch{PasswordHash: &hash, Role: &role}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
}

func TestUpdate_EmptyPatch(t *testing.T) {
	repo, _, db := newRepoWithMock(t)
	defer db.Close()

	err := repo.Update(context.Background(), 3, models.UserPatch{})
	if !errors.Is(err, common.ErrorInvalidInput) {
		t.Fatalf("want common.ErrorInvalidInput, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))

	name := "x"
	err := repo.Update(context.Background(), 404, models.UserPatch{Name: &name})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE FROM users WHERE id = \$1$`).WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE FROM users`).WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 3); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), 4); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestList_WithNameFilter(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT COUNT\(\*\) FROM users WHERE name ILIKE \$1$`).
		WithArgs(`%an\_n%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(selectQ + ` WHERE name ILIKE \$1 ORDER BY id ASC LIMIT 2 OFFSET 2$`).
		WithArgs(`%an\_n%`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(9), "Zan_na", "z@x.com", "h", "user", nil, createdAt))

	got, total, err := repo.List(context.Background(), 2, 2, "an_n")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if total != 3 || len(got) != 1 || got[0].ID != 9 {
		t.Fatalf("unexpected page: total=%d users=%+v", total, got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestList_NoFilter(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT COUNT\(\*\) FROM users$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(selectQ + ` ORDER BY id ASC LIMIT 10 OFFSET 0$`).
		WillReturnRows(sqlmock.NewRows(columns))

	got, total, err := repo.List(context.Background(), 0, 10, "")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if total != 0 || len(got) != 0 {
		t.Fatalf("expected empty page, got total=%d users=%d", total, len(got))
	}
}

func TestList_CountError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT COUNT`).WillReturnError(errors.New("db err"))

	_, _, err := repo.List(context.Background(), 0, 10, "")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
