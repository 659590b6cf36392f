package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/user"
)

// addUser updates or creates an active, verified user.User
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, CreatedAt: now}
	}
	usr.Name = name
	usr.IsActive = true
	usr.EmailVerified = true
	usr.IsAdmin = usr.IsAdmin || isAdmin
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
