package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
	"github.com/caseload/caseload/tracker"
)

var errConfirmationRequired = errors.New("refusing to delete without confirmation; pass -yes")

// draftFlags are the assignment fields settable from the command line.
type draftFlags struct {
	fs                            *flag.FlagSet
	due, name, site, status, typ  *string
	apDate, iepDate               *string
	apSigned, iepSigned, priority *bool
}

func newDraftFlags(fs *flag.FlagSet) *draftFlags {
	return &draftFlags{
		fs:        fs,
		due:       fs.String("due", "", "Due date, YYYY-MM-DD."),
		name:      fs.String("name", "", "Student name."),
		site:      fs.String("site", "", "School site."),
		status:    fs.String("status", "", "\"Not Started\", \"In Progress\" or \"Completed\"."),
		typ:       fs.String("type", "", "\"30-day\", \"Triennial\" or \"Annual Review Plan\"."),
		apSigned:  fs.Bool("ap-signed", false, "AP signed (triennial reviews only)."),
		apDate:    fs.String("ap-date", "", "AP signature date, YYYY-MM-DD."),
		iepSigned: fs.Bool("iep-signed", false, "IEP affirmed."),
		iepDate:   fs.String("iep-date", "", "IEP affirmation date, YYYY-MM-DD."),
		priority:  fs.Bool("priority", false, "Flag as priority."),
	}
}

// apply copies the flags given on the command line into d.
func (df *draftFlags) apply(d *tracker.Draft) error {
	var fldErrs []core.FieldError
	date := func(field, val string) assignment.Date {
		dt, err := assignment.ParseDate(val)
		if err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: field, Error: err.Error()})
		}
		return dt
	}

	df.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "due":
			d.DueDate = date("dueDate", *df.due)
		case "name":
			d.Name = *df.name
		case "site":
			d.SchoolSite = *df.site
		case "status":
			if st, ok := assignment.ParseStatus(*df.status); ok {
				d.Status = st
			} else {
				d.Status = assignment.Status(*df.status)
			}
		case "type":
			if typ, ok := assignment.ParseType(*df.typ); ok {
				d.Type = typ
			} else {
				d.Type = assignment.Type(*df.typ)
			}
		case "ap-signed":
			d.APSigned = *df.apSigned
		case "ap-date":
			d.APDateSigned = date("apDateSigned", *df.apDate)
		case "iep-signed":
			d.IEPSigned = *df.iepSigned
		case "iep-date":
			d.IEPDateSigned = date("iepDateSigned", *df.iepDate)
		case "priority":
			d.Priority = *df.priority
		}
	})
	if d.APSigned && !d.APSignedEnabled() {
		fldErrs = append(fldErrs, core.FieldError{Field: "apSigned", Error: "only triennial reviews have an AP signature"})
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

func parseTab(s string) (tracker.Tab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upcoming":
		return tracker.TabUpcoming, nil
	case "completed":
		return tracker.TabCompleted, nil
	}
	return 0, core.NewValidationError(nil, core.FieldError{Field: "tab", Error: "must be upcoming or completed"})
}

// openStore returns a Store loaded with the signed-in user's assignments.
func (cli *commandLine) openStore(ctx context.Context, load bool) (*tracker.Store, tracker.Session, error) {
	sess, err := cli.loadSession()
	if err != nil {
		return nil, sess, err
	}
	store, err := tracker.NewStore(cli.remote, cli.logger)
	if err != nil {
		return nil, sess, err
	}
	if load {
		rctx, cancel := cli.requestContext(ctx)
		defer cancel()
		if _, err = store.Load(rctx, sess); err != nil {
			return nil, sess, err
		}
	}
	return store, sess, nil
}

func (cli *commandLine) list(ctx context.Context, tabName string) error {
	tab, err := parseTab(tabName)
	if err != nil {
		return err
	}
	store, _, err := cli.openStore(ctx, true)
	if err != nil {
		return err
	}

	view := tracker.NewView(store, tab)
	upcoming, completed := view.Counts()
	_, _ = fmt.Fprintf(cli.out, "%s | Upcoming (%d) | Completed (%d)\n", tab, upcoming, completed)
	cli.printTable(view.Rows())
	return nil
}

func (cli *commandLine) printTable(rows []assignment.Assignment) {
	signed := func(ok bool, d assignment.Date) string {
		switch {
		case !ok:
			return "no"
		case d.IsZero():
			return "yes"
		}
		return d.String()
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDUE\tNAME\tSCHOOL SITE\tSTATUS\tTYPE\tAP\tIEP\tPRIORITY")
	for _, a := range rows {
		prio := ""
		if a.Priority {
			prio = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.DueDate, a.Name, a.SchoolSite, a.Status, a.Type,
			signed(a.APSigned, a.APDateSigned), signed(a.IEPSigned, a.IEPDateSigned), prio)
	}
	_ = w.Flush()
}

func (cli *commandLine) add(ctx context.Context, df *draftFlags) error {
	store, sess, err := cli.openStore(ctx, false)
	if err != nil {
		return err
	}

	dialog := tracker.NewDialog(store)
	if err = dialog.OpenNew(); err != nil {
		return err
	}
	return cli.submit(ctx, sess, dialog, df, "Created")
}

func (cli *commandLine) edit(ctx context.Context, id string, df *draftFlags) error {
	store, sess, err := cli.openStore(ctx, true)
	if err != nil {
		return err
	}

	dialog := tracker.NewDialog(store)
	if err = dialog.OpenEdit(id); err != nil {
		return err
	}
	return cli.submit(ctx, sess, dialog, df, "Updated")
}

func (cli *commandLine) submit(ctx context.Context, sess tracker.Session, dialog *tracker.Dialog, df *draftFlags, verb string) error {
	var applyErr error
	if err := dialog.Edit(func(d *tracker.Draft) { applyErr = df.apply(d) }); err != nil {
		return err
	}
	if applyErr != nil {
		_ = dialog.Cancel()
		return applyErr
	}

	rctx, cancel := cli.requestContext(ctx)
	defer cancel()
	a, err := dialog.Submit(rctx, sess)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s %s\n", verb, a.ID)
	cli.printTable([]assignment.Assignment{a})
	return nil
}

func (cli *commandLine) setStatus(ctx context.Context, id, to string) error {
	status, ok := assignment.ParseStatus(to)
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
	}
	return cli.mutate(ctx, id, func(m *tracker.Mutator, sess tracker.Session) error {
		return m.SetStatus(sess, id, status)
	})
}

func (cli *commandLine) toggle(ctx context.Context, id, field string) error {
	return cli.mutate(ctx, id, func(m *tracker.Mutator, sess tracker.Session) error {
		switch field {
		case "priority":
			if !cli.conf.PersistPriority {
				_, _ = fmt.Fprintln(cli.out, "priority is a local annotation and is not saved")
			}
			return m.TogglePriority(sess, id)
		case "apSigned":
			return m.ToggleAPSigned(sess, id)
		case "iepSigned":
			return m.ToggleIEPSigned(sess, id)
		}
		return core.NewValidationError(nil, core.FieldError{Field: "field", Error: "must be priority, apSigned or iepSigned"})
	})
}

// mutate runs an optimistic change and waits for the API to settle it.
func (cli *commandLine) mutate(ctx context.Context, id string, change func(m *tracker.Mutator, sess tracker.Session) error) error {
	store, sess, err := cli.openStore(ctx, true)
	if err != nil {
		return err
	}
	m, err := tracker.NewMutator(store, cli.logger, tracker.MutatorOptionsFromConfig(cli.conf))
	if err != nil {
		return err
	}

	changeErr := change(m, sess)

	rctx, cancel := cli.requestContext(ctx)
	defer cancel()
	if err = m.Close(rctx); err != nil {
		return errors.Wrap(err, "waiting for the API")
	}
	if changeErr != nil {
		return changeErr
	}
	if mErr, ok := <-m.Errors(); ok {
		return mErr
	}

	if a, ok := store.Get(id); ok {
		cli.printTable([]assignment.Assignment{a})
	}
	return nil
}

func (cli *commandLine) delete(ctx context.Context, id string, yes bool) error {
	store, sess, err := cli.openStore(ctx, true)
	if err != nil {
		return err
	}
	pd, err := store.RequestDelete(id)
	if err != nil {
		return err
	}

	if !yes {
		if !cli.interactive() {
			pd.Cancel()
			return errConfirmationRequired
		}
		ok, err := cli.confirm(fmt.Sprintf("Delete %q due %s?", pd.Assignment.Name, pd.Assignment.DueDate))
		if err != nil || !ok {
			pd.Cancel()
			if err == nil {
				_, _ = fmt.Fprintln(cli.out, "Cancelled")
			}
			return err
		}
	}

	rctx, cancel := cli.requestContext(ctx)
	defer cancel()
	if err = pd.Confirm(rctx, sess); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "Deleted %s\n", id)
	return nil
}

func (cli *commandLine) export(ctx context.Context, output, tabName string) error {
	store, _, err := cli.openStore(ctx, true)
	if err != nil {
		return err
	}
	list := store.Snapshot()
	if tabName != "" {
		tab, err := parseTab(tabName)
		if err != nil {
			return err
		}
		list = tracker.Partition(list, tab)
	}

	f, err := os.Create(output)
	if err != nil {
		return errors.Wrap(err, "creating workbook")
	}
	if err = tracker.Export(f, list); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "closing workbook")
	}
	_, _ = fmt.Fprintf(cli.out, "Wrote %d assignments to %s\n", len(list), output)
	return nil
}
