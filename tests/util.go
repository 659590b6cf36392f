// Package testutil holds the fixtures shared by the tests of several packages.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
	"github.com/caseload/caseload/core/user"
	"github.com/caseload/caseload/storage/database"
	inmemdb "github.com/caseload/caseload/storage/database/inmem"
)

// Password passes the password policy.
const Password = "LolC@t123"

// PrepareDB returns an empty in-memory database.
func PrepareDB(t *testing.T) *inmemdb.DB {
	t.Helper()
	return inmemdb.Open()
}

// PreparePostgres opens, migrates and empties the postgres database configured through the TEST_* environment.
// The test is skipped unless TEST_DATABASE_NAME is set.
func PreparePostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_NAME") == "" {
		t.Skip("TEST_DATABASE_NAME not set")
	}
	if err := os.Setenv("ENV", "TEST"); err != nil {
		t.Fatalf("os.Setenv() failed: %v", err)
	}
	conf := core.NewConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("database.CreateIfNotExist() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	if _, err = db.Exec(`TRUNCATE assignment, "user"`); err != nil {
		t.Fatalf("truncating tables failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	isActive, emailVerified bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:          name,
		Email:         email,
		IsActive:      isActive,
		EmailVerified: emailVerified,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	}
	if pwd == "" {
		pwd = Password
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateAssignment stores an assignment owned by owner, due on `due` ("YYYY-MM-DD").
func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	owner, name, due string,
	status assignment.Status,
) assignment.Assignment {
	t.Helper()
	now := time.Now().UTC()
	a, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		DueDate:   assignment.MustParseDate(due),
		Name:      name,
		Status:    status,
		CreatedBy: owner,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}
