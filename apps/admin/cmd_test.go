package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/caseload/caseload/core/user"
	inmemdb "github.com/caseload/caseload/storage/database/inmem"
	"github.com/caseload/caseload/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo = inmemdb.NewUserRepository(db)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{usrRepo: usrRepo, out: out}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockReadPassword(pwd string) func(fd int) ([]byte, error) {
	return func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if _, err := fs.Stat(fsys, dir); err != nil {
			return err
		}
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "iep_goals", "sql"}, wantErr: errEmbeddedMigrations},
		{name: "fix", args: []string{"migrate", "fix"}, wantErr: errEmbeddedMigrations},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want an error")
			}
		})
	}

	if !strings.Contains(out.String(), "migrate up-to: done\n") {
		t.Errorf("cli.migrate() output = %q, want the command reported done", out.String())
	}
	if strings.Contains(out.String(), "migrate create") {
		t.Errorf("cli.migrate() output = %q, create must not run", out.String())
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe@test.cd", "", true, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lol"}},
		{name: "reset with uppercase email", args: []string{"resetpassword", "-email", " AWE@test.cd "}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := ""
		if ex, ok := tt.extra.(extra); ok {
			pwd = ex.pwd
		}
		readPasswordFunc = mockReadPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if err = refreshedUsr.CheckPassword(pwd); err != nil {
					t.Errorf("failed to update new password: %v", err)
				}
			} else if errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	inactive := testutil.CreateUser(t, usrRepo, "Old Name", "inactive@test.cd", "", false, false)

	type extra struct {
		pwd     string
		email   string
		name    string
		isAdmin bool
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-name", "Teacher"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-email", "teacher@test.cd"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Teacher", "-email", "teacher@test.cd"}, wantErr: errHelp},
		{
			name:  "create",
			args:  []string{"adduser", "-name", " Teacher ", "-email", "Teacher@test.cd"},
			extra: extra{pwd: "lol", email: "teacher@test.cd", name: "Teacher"},
		},
		{
			name:  "create admin",
			args:  []string{"adduser", "-name", "Admin", "-email", "admin@test.cd", "-admin"},
			extra: extra{pwd: "lol", email: "admin@test.cd", name: "Admin", isAdmin: true},
		},
		{
			name:  "reactivate existing",
			args:  []string{"adduser", "-name", "New Name", "-email", inactive.Email},
			extra: extra{pwd: "lmao", email: inactive.Email, name: "New Name"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		ex, _ := tt.extra.(extra)
		readPasswordFunc = mockReadPassword(ex.pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			usr, err := usrRepo.GetUserByEmail(context.Background(), ex.email)
			if err != nil {
				t.Fatalf("GetUserByEmail() failed, %v", err)
			}
			if usr.Name != ex.name {
				t.Errorf("user.Name = %q, want %q", usr.Name, ex.name)
			}
			if !usr.IsActive || !usr.EmailVerified {
				t.Errorf("user must be active and verified, got %+v", usr)
			}
			if usr.IsAdmin != ex.isAdmin {
				t.Errorf("user.IsAdmin = %t, want %t", usr.IsAdmin, ex.isAdmin)
			}
			if err = usr.CheckPassword(ex.pwd); err != nil {
				t.Errorf("user.CheckPassword() failed: %v", err)
			}
		})
	}

	users, err := usrRepo.QueryUsers(context.Background())
	if err != nil {
		t.Fatalf("QueryUsers() failed, %v", err)
	}
	if len(users) != 3 {
		t.Errorf("len(users) = %d, want 3", len(users))
	}
}

func Test_commandLine_listUsers(t *testing.T) {
	cli, out := setup(t)

	now := time.Now()
	testutil.CreateUser(t, usrRepo, "Bea", "bea@test.cd", "", true, true, now.Add(-time.Hour))
	testutil.CreateUser(t, usrRepo, "Ann", "ann@test.cd", "", true, false, now)

	tests := []struct {
		name      string
		args      []string
		wantErr   bool
		wantOrder []string
	}{
		{name: "default ordering", args: []string{"users"}, wantOrder: []string{"ann@test.cd", "bea@test.cd"}},
		{name: "by createdAt", args: []string{"users", "-ordering", "createdAt"}, wantOrder: []string{"bea@test.cd", "ann@test.cd"}},
		{name: "by name desc", args: []string{"users", "-ordering", "-name"}, wantOrder: []string{"bea@test.cd", "ann@test.cd"}},
		{name: "invalid field", args: []string{"users", "-ordering", "password"}, wantErr: true},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %t", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			if len(lines) != len(tt.wantOrder)+1 {
				t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(tt.wantOrder)+1, out.String())
			}
			for i, email := range tt.wantOrder {
				if !strings.Contains(lines[i+1], email) {
					t.Errorf("line %d = %q, want %s", i+1, lines[i+1], email)
				}
			}
		})
	}
}
