package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/caseload/caseload/apiclient"
	"github.com/caseload/caseload/core"
	logsvc "github.com/caseload/caseload/services/logger"
)

const sessionEnv = "CASELOAD_SESSION"

func main() {
	std := log.New(os.Stderr, "TRACKER : ", log.LstdFlags|log.Lshortfile)
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	client, err := apiclient.New(conf.Tracker.APIBaseURL, apiclient.WithTimeout(conf.Tracker.RequestTimeout))
	if err != nil {
		std.Fatal(err)
	}

	cli := commandLine{
		remote:      client,
		conf:        conf.Tracker,
		logger:      logger,
		in:          os.Stdin,
		out:         os.Stdout,
		sessionPath: sessionPath(),
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// sessionPath returns $CASELOAD_SESSION, or caseload/session.yml under the user's config dir.
func sessionPath() string {
	if p := os.Getenv(sessionEnv); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "caseload", "session.yml")
}
