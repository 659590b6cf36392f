package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/storage/database"
	sqlxrepos "github.com/caseload/caseload/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	errAndDie(database.CreateIfNotExist(ctx, conf))
	cancel()
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
