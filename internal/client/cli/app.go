package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/syncbridge/internal/client/api"
	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/config"
	"github.com/dmitrijs2005/syncbridge/internal/client/live"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/dmitrijs2005/syncbridge/internal/client/services"
	"github.com/dmitrijs2005/syncbridge/internal/client/tokenstore"
	"github.com/dmitrijs2005/syncbridge/internal/filex"
	"github.com/dmitrijs2005/syncbridge/internal/logging"
	"github.com/spf13/cobra"
)

var errInvalidCredentials = errors.New("invalid email or password")

// App holds the wired client for one command invocation.
type App struct {
	flags *config.Flags
	cfg   *config.Config

	logger logging.Logger
	out    io.Writer
	in     *bufio.Reader

	db      *sql.DB
	api     *api.API
	dialer  *live.Dialer
	session *services.SessionController
	forms   *services.FormsController
	thread  *services.ThreadController
}

// setup loads the configuration and the logger. It does not touch the
// database or the network.
func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := a.flags.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.out = cmd.OutOrStdout()
	a.in = bufio.NewReader(cmd.InOrStdin())
	return nil
}

// open wires the database, the API and the controllers and restores the
// cached session. A failed restore leaves the app logged out.
func (a *App) open(ctx context.Context) error {
	if a.db != nil {
		return nil
	}

	dsn := a.cfg.DatabasePath
	if dsn != ":memory:" {
		if _, err := filex.EnsureParentDir(dsn); err != nil {
			return fmt.Errorf("prepare database dir: %w", err)
		}
	}
	db, err := client.InitDatabase(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	hc, err := client.NewHTTPClient(a.cfg.ServerURL,
		client.WithTimeout(a.cfg.RequestTimeout),
		client.WithLogger(a.logger))
	if err != nil {
		db.Close()
		return err
	}

	a.db = db
	a.api = api.New(hc)
	a.dialer = live.NewDialer(hc.BaseURL(), live.WithLogger(a.logger))
	a.session = services.NewSessionController(a.api.Auth, tokenstore.NewSQLiteStore(db), a.logger)
	a.forms = services.NewFormsController(a.api.Forms, a.api.Functions, a.api.Nonfunctions, a.session, a.logger)
	a.thread = services.NewThreadController(a.api.Messages, a.api.Files, a.session, a.logger, a.cfg.PageSize)

	a.session.Subscribe(func(ch services.SessionChange) {
		a.logger.Info(ctx, "session state changed", "state", ch.State.String())
	})

	if err := a.session.Restore(ctx); err != nil {
		a.logger.Info(ctx, "cached session not restored", "error", err)
	}
	return nil
}

func (a *App) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(context.Background(), "close database", "error", err)
	}
	a.db = nil
	a.api = nil
	a.dialer = nil
	a.session = nil
	a.forms = nil
	a.thread = nil
}

// withClient opens the app, runs fn and releases the database.
func (a *App) withClient(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	defer a.close()
	return fn(ctx)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == services.Authenticated
}

// status is the REPL prompt label.
func (a *App) status() string {
	sess, ok := a.session.Session()
	if !ok {
		return "not logged in"
	}
	label := sess.Email + " (" + string(sess.Role) + ")"
	if st := a.thread.Snapshot(); st.Bound {
		label += " | " + threadLabel(st.Key)
	}
	return label
}

// Register prompts for the account details and registers. It never logs in.
func (a *App) Register(ctx context.Context) error {
	var in models.RegisterInput
	var err error
	if in.Email, err = GetRequiredText(a.in, "Email:", a.out); err != nil {
		return err
	}
	if in.DisplayName, err = GetRequiredText(a.in, "Display name:", a.out); err != nil {
		return err
	}
	if in.Password, err = GetPassword(a.in, a.out); err != nil {
		return err
	}
	if in.LicenseKey, err = GetRequiredText(a.in, "License key:", a.out); err != nil {
		return err
	}
	return a.register(ctx, in)
}

func (a *App) register(ctx context.Context, in models.RegisterInput) error {
	res, err := a.session.Register(ctx, in)
	if err != nil {
		return err
	}
	a.println(renderOK(fmt.Sprintf("Registered %s as %s. You can log in now.", in.Email, res.Role)))
	return nil
}

// Reactivate prompts for credentials and a new license key.
func (a *App) Reactivate(ctx context.Context) error {
	var in models.ReactivateInput
	var err error
	if in.Email, err = GetRequiredText(a.in, "Email:", a.out); err != nil {
		return err
	}
	if in.Password, err = GetPassword(a.in, a.out); err != nil {
		return err
	}
	if in.LicenseKey, err = GetRequiredText(a.in, "License key:", a.out); err != nil {
		return err
	}
	return a.reactivate(ctx, in)
}

func (a *App) reactivate(ctx context.Context, in models.ReactivateInput) error {
	res, err := a.session.Reactivate(ctx, in)
	if err != nil {
		return err
	}
	msg := "License reactivated."
	if res.LicenseExpiresAt != "" {
		msg += " Valid until " + res.LicenseExpiresAt + "."
	}
	a.println(renderOK(msg))
	return nil
}

// Login prompts for credentials and logs in.
func (a *App) Login(ctx context.Context) error {
	email, err := GetRequiredText(a.in, "Email:", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.in, a.out)
	if err != nil {
		return err
	}
	return a.login(ctx, email, password)
}

func (a *App) login(ctx context.Context, email, password string) error {
	sess, err := a.session.Login(ctx, email, password)
	if err != nil {
		if client.IsAuthError(err) {
			return errInvalidCredentials
		}
		return err
	}
	a.println(renderOK("Logged in."))
	a.println(renderSession(sess))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.println("Logged out.")
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	sess, ok := a.session.Session()
	if !ok {
		return client.ErrNotLoggedIn
	}
	a.println(renderSession(sess))
	return nil
}

func (a *App) ListForms(ctx context.Context, page int) error {
	if err := a.forms.RefreshList(ctx, page, a.cfg.PageSize); err != nil {
		return err
	}
	a.println(renderFormPage(a.forms.Snapshot().Page))
	return nil
}

func (a *App) ShowForm(ctx context.Context, id int64) error {
	if err := a.forms.SelectByID(ctx, id); err != nil {
		return err
	}
	a.println(renderFormDetail(a.forms.Selected()))
	return nil
}

// CreateForm prompts for the main form fields and creates it.
func (a *App) CreateForm(ctx context.Context) error {
	var in models.FormInput
	var err error
	if in.Title, err = GetRequiredText(a.in, "Title:", a.out); err != nil {
		return err
	}
	if in.Message, err = GetSimpleText(a.in, "Description:", a.out); err != nil {
		return err
	}
	if in.Budget, err = GetSimpleText(a.in, "Budget:", a.out); err != nil {
		return err
	}
	if in.ExpectedTime, err = GetSimpleText(a.in, "Expected time:", a.out); err != nil {
		return err
	}
	return a.createForm(ctx, in)
}

func (a *App) createForm(ctx context.Context, in models.FormInput) error {
	id, err := a.forms.Create(ctx, in)
	if err != nil {
		return err
	}
	a.println(renderOK(fmt.Sprintf("Created form %d.", id)))
	if d := a.forms.Selected(); d != nil {
		a.println(renderFormDetail(d))
	}
	return nil
}

func (a *App) DeleteForm(ctx context.Context, id int64) error {
	if err := a.forms.Remove(ctx, id); err != nil {
		return err
	}
	a.println(renderOK(fmt.Sprintf("Deleted form %d.", id)))
	return nil
}

func (a *App) ChangeStatus(ctx context.Context, id int64, status string) error {
	res, err := a.forms.ChangeStatus(ctx, id, models.FormStatus(strings.ToLower(status)))
	if err != nil {
		return err
	}
	msg := res.Message
	if msg == "" {
		msg = "Status change submitted."
	}
	a.println(renderOK(msg))
	if d := a.forms.Selected(); d != nil && d.Form.ID == id {
		a.println(renderFormDetail(d))
	}
	return nil
}

func (a *App) OpenThread(ctx context.Context, key models.ThreadKey) error {
	if err := a.thread.Bind(ctx, key); err != nil {
		return err
	}
	a.printThread()
	return nil
}

func (a *App) ListMessages(ctx context.Context, page int) error {
	if err := a.thread.Fetch(ctx, page); err != nil {
		return err
	}
	a.printThread()
	return nil
}

func (a *App) printThread() {
	st := a.thread.Snapshot()
	a.println(renderMessagePage(st.Key, st.Page))
}

func (a *App) Send(ctx context.Context, text string) error {
	id, err := a.thread.Send(ctx, text)
	if err != nil {
		return err
	}
	a.println(renderOK(fmt.Sprintf("Sent message %d.", id)))
	a.printThread()
	return nil
}

// Attach posts text with the file at path attached.
func (a *App) Attach(ctx context.Context, path, text string) error {
	up, closer, err := models.OpenUpload(path)
	if err != nil {
		return fmt.Errorf("%w: %w", client.ErrInvalidArgument, err)
	}
	defer closer.Close()

	msgID, fileID, err := a.thread.SendWithAttachment(ctx, text, up)
	if err != nil {
		if msgID != 0 {
			a.println(mutedStyle.Render(fmt.Sprintf("Message %d was sent without its attachment.", msgID)))
		}
		return err
	}
	a.println(renderOK(fmt.Sprintf("Sent message %d with file %d.", msgID, fileID)))
	a.printThread()
	return nil
}

func (a *App) SetBlockStatus(ctx context.Context, blockID int64, status string) error {
	bs, err := models.ParseBlockStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %w", client.ErrInvalidArgument, err)
	}
	if err := a.thread.UpdateBlockStatus(ctx, blockID, bs); err != nil {
		return err
	}
	a.println(fmt.Sprintf("Block %d is now %s", blockID, blockBadge(bs)))
	return nil
}

// Watch prints the bound thread every time the live feed reports a change.
// It blocks until ctx ends or the feed closes.
func (a *App) Watch(ctx context.Context) error {
	a.println(mutedStyle.Render("Watching " + threadLabel(a.thread.Snapshot().Key) + ", Ctrl-C to stop."))
	return a.thread.Watch(ctx, a.dialer, func(ev live.Event) {
		a.println(mutedStyle.Render("-- " + ev.Action + " --"))
		a.printThread()
	})
}
