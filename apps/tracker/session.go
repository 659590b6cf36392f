package main

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/caseload/caseload/tracker"
)

var errNotLoggedIn = errors.New("not logged in; run `tracker login -email EMAIL` first")

type sessionFile struct {
	UserID string `yaml:"userId"`
	Email  string `yaml:"email"`
	Token  string `yaml:"token"`
}

func (cli *commandLine) loadSession() (tracker.Session, error) {
	data, err := ioutil.ReadFile(cli.sessionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return tracker.Session{}, errNotLoggedIn
		}
		return tracker.Session{}, errors.Wrap(err, "reading session")
	}
	var sf sessionFile
	if err = yaml.Unmarshal(data, &sf); err != nil {
		return tracker.Session{}, errors.Wrap(err, "decoding session")
	}
	sess := tracker.Session{UserID: sf.UserID, Token: sf.Token}
	if sess.Anonymous() {
		return tracker.Session{}, errNotLoggedIn
	}
	return sess, nil
}

func (cli *commandLine) saveSession(sess tracker.Session, email string) error {
	data, err := yaml.Marshal(sessionFile{UserID: sess.UserID, Email: email, Token: sess.Token})
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = os.MkdirAll(filepath.Dir(cli.sessionPath), 0700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	return errors.Wrap(ioutil.WriteFile(cli.sessionPath, data, 0600), "writing session")
}

func (cli *commandLine) clearSession() error {
	if err := os.Remove(cli.sessionPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session")
	}
	return nil
}
