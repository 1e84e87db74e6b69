package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Reactivate(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error

	ListForms(ctx context.Context, page int) error
	ShowForm(ctx context.Context, id int64) error
	CreateForm(ctx context.Context) error
	DeleteForm(ctx context.Context, id int64) error
	ChangeStatus(ctx context.Context, id int64, status string) error
	FormAction(ctx context.Context, action string, id int64) error
	AddFunction(ctx context.Context) error
	AddNonfunction(ctx context.Context) error
	RemoveFunction(ctx context.Context, id int64) error
	RemoveNonfunction(ctx context.Context, id int64) error

	OpenThread(ctx context.Context, key models.ThreadKey) error
	ListMessages(ctx context.Context, page int) error
	Send(ctx context.Context, text string) error
	Attach(ctx context.Context, path, text string) error
	SetBlockStatus(ctx context.Context, blockID int64, status string) error
}

const (
	helpLoggedOut = "Available commands: register, reactivate, login, exit"
	helpLoggedIn  = `Available commands:
  forms [page]                       list forms
  form <id>                          select and show a form
  create                             create a form
  delete <id>                        delete a form
  status <id> <status>               request a status change
  complete|accept|merge <id>         form workflow actions
  addfn | addnf                      add a (non)function to the selected form
  rmfn <id> | rmnf <id>              remove a (non)function
  thread <form-id> [fn|nf <id>]      open a thread
  messages [page]                    reload the thread or show another page
  send <text>                        post a message
  attach <path> <text>               post a message with a file
  block <id> normal|urgent           flag a discussion block
  whoami, logout, exit`
)

// runREPL starts a simple read–eval–print loop for the syncbridge CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands and bad
// arguments are reported back to the user. The loop exits on scanner EOF or
// when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed with report and never end
// the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("sb> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			report(a.Register(ctx))

		case "reactivate":
			report(a.Reactivate(ctx))

		case "login":
			report(a.Login(ctx))

		case "logout":
			report(a.Logout(ctx))

		case "whoami":
			report(a.Whoami(ctx))

		case "forms", "l":
			page, err := optionalInt(args)
			if err != nil {
				report(err)
				continue
			}
			report(a.ListForms(ctx, page))

		case "form", "show":
			withID(args, func(id int64) error { return a.ShowForm(ctx, id) })

		case "create":
			report(a.CreateForm(ctx))

		case "delete":
			withID(args, func(id int64) error { return a.DeleteForm(ctx, id) })

		case "status":
			if len(args) != 2 {
				report(errors.New("usage: status <id> <status>"))
				continue
			}
			withID(args[:1], func(id int64) error { return a.ChangeStatus(ctx, id, args[1]) })

		case "complete", "accept", "merge":
			withID(args, func(id int64) error { return a.FormAction(ctx, cmd, id) })

		case "addfn":
			report(a.AddFunction(ctx))

		case "addnf":
			report(a.AddNonfunction(ctx))

		case "rmfn":
			withID(args, func(id int64) error { return a.RemoveFunction(ctx, id) })

		case "rmnf":
			withID(args, func(id int64) error { return a.RemoveNonfunction(ctx, id) })

		case "thread":
			key, err := parseThreadArgs(args)
			if err != nil {
				report(err)
				continue
			}
			report(a.OpenThread(ctx, key))

		case "messages", "m":
			page, err := optionalInt(args)
			if err != nil {
				report(err)
				continue
			}
			report(a.ListMessages(ctx, page))

		case "send":
			report(a.Send(ctx, strings.Join(args, " ")))

		case "attach":
			if len(args) < 2 {
				report(errors.New("usage: attach <path> <text>"))
				continue
			}
			report(a.Attach(ctx, args[0], strings.Join(args[1:], " ")))

		case "block":
			if len(args) != 2 {
				report(errors.New("usage: block <id> normal|urgent"))
				continue
			}
			withID(args[:1], func(id int64) error { return a.SetBlockStatus(ctx, id, args[1]) })

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func report(err error) {
	if err != nil {
		printlnFn(renderError(err))
	}
}

func withID(args []string, fn func(id int64) error) {
	if len(args) != 1 {
		report(errors.New("expected one id argument"))
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		report(err)
		return
	}
	report(fn(id))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// optionalInt parses an optional page argument; none means 0.
func optionalInt(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid page %q", args[0])
	}
	return n, nil
}

// parseThreadArgs reads "<form-id> [fn|nf <id>]".
func parseThreadArgs(args []string) (models.ThreadKey, error) {
	var key models.ThreadKey
	if len(args) != 1 && len(args) != 3 {
		return key, errors.New("usage: thread <form-id> [fn|nf <id>]")
	}
	var err error
	if key.FormID, err = parseID(args[0]); err != nil {
		return key, err
	}
	if len(args) == 1 {
		return key, nil
	}
	id, err := parseID(args[2])
	if err != nil {
		return key, err
	}
	switch args[1] {
	case "fn", "function":
		key.FunctionID = id
	case "nf", "nonfunction":
		key.NonfunctionID = id
	default:
		return key, fmt.Errorf("unknown thread kind %q", args[1])
	}
	return key, nil
}
