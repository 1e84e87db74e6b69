package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/syncbridge/internal/client/api"
	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/live"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/dmitrijs2005/syncbridge/internal/logging"
)

var (
	ErrEmptyMessage = errors.New("message text is empty")
	ErrNoThread     = errors.New("no thread bound")
)

type MessageAPI interface {
	ListMessages(ctx context.Context, token string, q models.MessageQuery) (models.MessagePage, error)
	SendMessage(ctx context.Context, token string, in models.MessageInput) (int64, error)
	UpdateMessage(ctx context.Context, token string, id int64, text string) error
	DeleteMessage(ctx context.Context, token string, id int64) error
	UpdateBlockStatus(ctx context.Context, token string, blockID int64, status models.BlockStatus) error
}

type FileAPI interface {
	UploadFile(ctx context.Context, token string, messageID int64, up models.Upload) (int64, error)
	GetFile(ctx context.Context, token string, id int64) (models.Attachment, error)
	DeleteFile(ctx context.Context, token string, id int64) error
}

// Feed opens a live subscription for a thread.
type Feed interface {
	Subscribe(ctx context.Context, token string, key models.ThreadKey) (*live.Subscription, error)
}

// ThreadState is a point-in-time copy of what ThreadController holds.
type ThreadState struct {
	Key       models.ThreadKey
	Bound     bool
	Page      models.MessagePage
	Busy      bool
	LastError error
}

// ThreadController owns one page of the message thread it is bound to.
type ThreadController struct {
	*tracker

	messages MessageAPI
	files    FileAPI

	mu       sync.Mutex
	key      models.ThreadKey
	bound    bool
	pageNo   int
	pageSize int
	page     models.MessagePage
	// fetchSeq numbers page fetches; only the newest one may commit.
	fetchSeq uint64
}

// NewThreadController returns an unbound controller. pageSize <= 0 selects
// the backend default.
func NewThreadController(messages MessageAPI, files FileAPI, guard AuthGuard, logger logging.Logger, pageSize int) *ThreadController {
	if pageSize <= 0 {
		pageSize = api.DefaultPageSize
	}
	return &ThreadController{
		tracker:  newTracker(guard, logger),
		messages: messages,
		files:    files,
		pageNo:   api.DefaultPage,
		pageSize: pageSize,
	}
}

func (c *ThreadController) Snapshot() ThreadState {
	c.mu.Lock()
	st := ThreadState{Key: c.key, Bound: c.bound, Page: c.page}
	st.Page.Messages = make([]models.Message, len(c.page.Messages))
	for i, m := range c.page.Messages {
		m.Files = append([]models.FileRef(nil), m.Files...)
		st.Page.Messages[i] = m
	}
	c.mu.Unlock()
	st.Busy = c.Busy()
	st.LastError = c.LastError()
	return st
}

func (c *ThreadController) current() (models.ThreadKey, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key, c.pageNo, c.bound
}

// Bind switches the controller to key, drops the held messages and loads
// the first page.
func (c *ThreadController) Bind(ctx context.Context, key models.ThreadKey) error {
	if err := key.Validate(); err != nil {
		return c.fail(fmt.Errorf("%w: %w", client.ErrInvalidArgument, err))
	}

	c.mu.Lock()
	c.key = key
	c.bound = true
	c.pageNo = api.DefaultPage
	c.page = models.MessagePage{}
	c.fetchSeq++
	c.mu.Unlock()

	return c.Fetch(ctx, api.DefaultPage)
}

// Fetch loads page of the bound thread. Zero page reloads the current one.
func (c *ThreadController) Fetch(ctx context.Context, page int) error {
	if _, _, ok := c.current(); !ok {
		return c.fail(ErrNoThread)
	}
	return c.run(ctx, "fetch messages", func(ctx context.Context, token string) error {
		return c.fetch(ctx, token, page)
	})
}

func (c *ThreadController) fetch(ctx context.Context, token string, page int) error {
	c.mu.Lock()
	if page <= 0 {
		page = c.pageNo
	}
	key, size := c.key, c.pageSize
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	res, err := c.messages.ListMessages(ctx, token, models.MessageQuery{Key: key, Page: page, PageSize: size})

	c.mu.Lock()
	defer c.mu.Unlock()
	if (seq != c.fetchSeq || key != c.key) && !client.IsAuthError(err) {
		c.logger.Debug(ctx, "stale message page discarded", "form_id", key.FormID, "page", page, "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	c.page = res
	c.pageNo = page
	return nil
}

func (c *ThreadController) refetchCurrent(token string) func(ctx context.Context) error {
	return func(ctx context.Context) error { return c.fetch(ctx, token, 0) }
}

// threadOp runs a mutation against the bound thread and reloads the current
// page once it succeeded.
func (c *ThreadController) threadOp(ctx context.Context, op string, mutate func(ctx context.Context, token string) error) error {
	if _, _, ok := c.current(); !ok {
		return c.fail(ErrNoThread)
	}
	return c.run(ctx, op, func(ctx context.Context, token string) error {
		return mutateThenRefetch(ctx,
			func(ctx context.Context) error { return mutate(ctx, token) },
			c.refetchCurrent(token))
	})
}

// Send posts text to the bound thread and reloads the page being viewed.
// Blank text is rejected without contacting the backend.
func (c *ThreadController) Send(ctx context.Context, text string) (int64, error) {
	key, _, ok := c.current()
	if !ok {
		return 0, c.fail(ErrNoThread)
	}
	if strings.TrimSpace(text) == "" {
		return 0, c.fail(ErrEmptyMessage)
	}
	var id int64
	err := c.threadOp(ctx, "send message", func(ctx context.Context, token string) (err error) {
		id, err = c.messages.SendMessage(ctx, token, models.NewMessageInput(key, text))
		return err
	})
	return id, err
}

// UploadFile attaches up to an existing message.
func (c *ThreadController) UploadFile(ctx context.Context, messageID int64, up models.Upload) (int64, error) {
	if messageID <= 0 {
		return 0, c.fail(fmt.Errorf("%w: message id is required", client.ErrInvalidArgument))
	}
	var id int64
	err := c.threadOp(ctx, "upload file", func(ctx context.Context, token string) (err error) {
		id, err = c.files.UploadFile(ctx, token, messageID, up)
		return err
	})
	return id, err
}

// SendWithAttachment posts text and then uploads up against the new message.
// The upload starts only after the message was accepted. An oversized file
// is rejected before anything is sent.
func (c *ThreadController) SendWithAttachment(ctx context.Context, text string, up models.Upload) (messageID, fileID int64, err error) {
	key, _, ok := c.current()
	if !ok {
		return 0, 0, c.fail(ErrNoThread)
	}
	if strings.TrimSpace(text) == "" {
		return 0, 0, c.fail(ErrEmptyMessage)
	}
	if up.Size > models.MaxUploadSize {
		return 0, 0, c.fail(fmt.Errorf("%w: %s is %d bytes", client.ErrFileTooLarge, up.Name, up.Size))
	}

	// A failed upload still leaves the new message in the thread, so the page
	// is reloaded unless the session itself was rejected.
	err = c.run(ctx, "send message with attachment", func(ctx context.Context, token string) error {
		var uploadErr error
		err := mutateThenRefetch(ctx,
			func(ctx context.Context) error {
				var err error
				if messageID, err = c.messages.SendMessage(ctx, token, models.NewMessageInput(key, text)); err != nil {
					return err
				}
				fileID, uploadErr = c.files.UploadFile(ctx, token, messageID, up)
				if client.IsAuthError(uploadErr) {
					return uploadErr
				}
				return nil
			},
			c.refetchCurrent(token))
		if err != nil {
			return err
		}
		return uploadErr
	})
	return messageID, fileID, err
}

func (c *ThreadController) DeleteFile(ctx context.Context, id int64) error {
	return c.threadOp(ctx, "delete file", func(ctx context.Context, token string) error {
		return c.files.DeleteFile(ctx, token, id)
	})
}

func (c *ThreadController) UpdateBlockStatus(ctx context.Context, blockID int64, status models.BlockStatus) error {
	return c.threadOp(ctx, "update block status", func(ctx context.Context, token string) error {
		return c.messages.UpdateBlockStatus(ctx, token, blockID, status)
	})
}

func (c *ThreadController) EditMessage(ctx context.Context, id int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return c.fail(ErrEmptyMessage)
	}
	return c.threadOp(ctx, "edit message", func(ctx context.Context, token string) error {
		return c.messages.UpdateMessage(ctx, token, id, text)
	})
}

func (c *ThreadController) DeleteMessage(ctx context.Context, id int64) error {
	return c.threadOp(ctx, "delete message", func(ctx context.Context, token string) error {
		return c.messages.DeleteMessage(ctx, token, id)
	})
}

// GetFile returns attachment metadata. Held state is not touched.
func (c *ThreadController) GetFile(ctx context.Context, id int64) (models.Attachment, error) {
	var att models.Attachment
	err := c.run(ctx, "get file", func(ctx context.Context, token string) (err error) {
		att, err = c.files.GetFile(ctx, token, id)
		return err
	})
	return att, err
}

// Watch follows the live feed of the bound thread and reloads the current
// page on every change until ctx ends or the feed closes. onChange, if not
// nil, is called after each reload attempt.
func (c *ThreadController) Watch(ctx context.Context, feed Feed, onChange func(live.Event)) error {
	key, _, ok := c.current()
	if !ok {
		return c.fail(ErrNoThread)
	}
	token := c.guard.Token()
	if token == "" {
		return c.fail(client.ErrNotLoggedIn)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := feed.Subscribe(ctx, token, key)
	if err != nil {
		return c.watchFailed(ctx, err)
	}

	for ev := range sub.Events() {
		if !ev.Changed() {
			continue
		}
		if k, _, _ := c.current(); k != key {
			c.logger.Debug(ctx, "thread rebound, watch stopped")
			return nil
		}
		err := c.run(ctx, "reload after feed event", func(ctx context.Context, token string) error {
			return c.fetch(ctx, token, 0)
		})
		if onChange != nil {
			onChange(ev)
		}
		if client.IsAuthError(err) || errors.Is(err, client.ErrNotLoggedIn) {
			return err
		}
	}

	if err := sub.Err(); err != nil {
		return c.watchFailed(ctx, err)
	}
	return nil
}

func (c *ThreadController) watchFailed(ctx context.Context, err error) error {
	c.fail(err)
	if client.IsAuthError(err) {
		c.logger.Info(ctx, "live feed rejected the session", "error", err)
		c.guard.Invalidate(ctx, err)
		return err
	}
	c.logger.Warn(ctx, "live feed failed", "error", err)
	return err
}
