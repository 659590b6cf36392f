package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/user"
)

func (cli *commandLine) listUsers(ordering string) error {
	orderings := core.ParseOrderings(ordering)
	if err := user.CheckOrderings(orderings); err != nil {
		return err
	}
	users, err := cli.usrRepo.QueryUsers(context.Background(), orderings...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tACTIVE\tVERIFIED\tADMIN\tLAST LOGIN")
	for _, usr := range users {
		lastLogin := "-"
		if !usr.LastLogin.IsZero() {
			lastLogin = usr.LastLogin.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%t\t%s\n",
			usr.ID, usr.Name, usr.Email, usr.IsActive, usr.EmailVerified, usr.IsAdmin, lastLogin)
	}
	return w.Flush()
}
