package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	appfs "github.com/caseload/caseload/fs"
)

const migrationsDir = "migrations"

var (
	gooseRunFunc = goose.RunFS // mockable

	errEmbeddedMigrations = errors.New("migrations are embedded in the binary: add or renumber them under fs/migrations and rebuild")
)

// migrate runs the goose command args[0] against the embedded migrations.
func (cli *commandLine) migrate(args []string) error {
	command, cmdArgs := args[0], args[1:]
	switch command {
	case "create", "fix":
		// both write to the migrations directory
		return errEmbeddedMigrations
	}

	if err := gooseRunFunc(command, cli.db, appfs.FS, migrationsDir, cmdArgs...); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "migrate %s: done\n", command)
	return nil
}
