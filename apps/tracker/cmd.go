package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/tracker"
)

var (
	// mockable
	readPasswordFunc = term.ReadPassword
	isTerminalFunc   = term.IsTerminal

	errHelp = errors.New("help provided")
)

// remote is the API the tracker talks to.
type remote interface {
	tracker.Remote
	Login(ctx context.Context, email, password string) (tracker.Session, error)
}

type commandLine struct {
	remote      remote
	conf        core.TrackerConfig
	logger      core.Logger
	in          io.Reader
	out         io.Writer
	sessionPath string
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  login -email EMAIL - sign in; the password is prompted next")
	_, _ = fmt.Fprintln(cli.out, "  logout - forget the saved session")
	_, _ = fmt.Fprintln(cli.out, "  list [-tab upcoming|completed] - list assignments by due date")
	_, _ = fmt.Fprintln(cli.out, "  add -due DATE -name NAME [FIELDS] - create an assignment")
	_, _ = fmt.Fprintln(cli.out, "  edit -id ID [FIELDS] - change the given fields of an assignment")
	_, _ = fmt.Fprintln(cli.out, "  status -id ID -to STATUS - set the status of an assignment")
	_, _ = fmt.Fprintln(cli.out, "  toggle -id ID -field priority|apSigned|iepSigned - flip a flag of an assignment")
	_, _ = fmt.Fprintln(cli.out, "  delete -id ID [-yes] - delete an assignment")
	_, _ = fmt.Fprintln(cli.out, "  export [-o FILE] [-tab upcoming|completed] - write assignments to an .xlsx workbook")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "login":
		fs := cli.newFlagSet("login")
		email := fs.String("email", "", "Your email. The password will be prompted next.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		return cli.login(ctx, *email)
	case "logout":
		return cli.clearSession()
	case "list":
		fs := cli.newFlagSet("list")
		tab := fs.String("tab", "upcoming", "upcoming or completed.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.list(ctx, *tab)
	case "add":
		df := newDraftFlags(cli.newFlagSet("add"))
		if err := df.fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.add(ctx, df)
	case "edit":
		df := newDraftFlags(cli.newFlagSet("edit"))
		id := df.fs.String("id", "", "The assignment id.")
		if err := df.fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *id == "" {
			df.fs.Usage()
			return errHelp
		}
		return cli.edit(ctx, *id, df)
	case "status":
		fs := cli.newFlagSet("status")
		id := fs.String("id", "", "The assignment id.")
		to := fs.String("to", "", "\"Not Started\", \"In Progress\" or \"Completed\".")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *id == "" || *to == "" {
			fs.Usage()
			return errHelp
		}
		return cli.setStatus(ctx, *id, *to)
	case "toggle":
		fs := cli.newFlagSet("toggle")
		id := fs.String("id", "", "The assignment id.")
		field := fs.String("field", "", "priority, apSigned or iepSigned.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *id == "" || *field == "" {
			fs.Usage()
			return errHelp
		}
		return cli.toggle(ctx, *id, *field)
	case "delete":
		fs := cli.newFlagSet("delete")
		id := fs.String("id", "", "The assignment id.")
		yes := fs.Bool("yes", false, "Do not ask for confirmation.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return cli.delete(ctx, *id, *yes)
	case "export":
		fs := cli.newFlagSet("export")
		output := fs.String("o", tracker.ExportFilename, "The workbook to write.")
		tab := fs.String("tab", "", "Only export the upcoming or completed assignments.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.export(ctx, *output, *tab)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, email string) error {
	_, _ = fmt.Fprint(cli.out, "Password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return errors.Wrap(err, "reading password")
	}

	email = core.CleanString(email, true /* lower */)
	sess, err := cli.remote.Login(ctx, email, string(pwd))
	if err != nil {
		return err
	}
	if err = cli.saveSession(sess, email); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "Logged in as %s\n", email)
	return nil
}

// interactive reports whether answers can be prompted for.
func (cli *commandLine) interactive() bool {
	return isTerminalFunc(int(syscall.Stdin))
}

func (cli *commandLine) confirm(question string) (bool, error) {
	_, _ = fmt.Fprintf(cli.out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.Wrap(err, "reading answer")
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (cli *commandLine) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := cli.conf.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// printError prints field errors one per line, sorted by field.
func printError(w io.Writer, err error) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
		fields := vErr.FieldMap()
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		_, _ = fmt.Fprintln(w, "invalid input:")
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", name, fields[name])
		}
		return
	}
	_, _ = fmt.Fprintf(w, "error: %s\n", err)
}
