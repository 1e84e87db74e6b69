package services

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/live"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/dmitrijs2005/syncbridge/internal/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shopThread = models.ThreadKey{FormID: demoShopID}

func boundThread(t *testing.T, b *backend) *ThreadController {
	t.Helper()
	c := b.thread(b.session)
	require.NoError(t, c.Bind(context.Background(), shopThread))
	b.fake.ResetCalls()
	return c
}

func upload(name string, size int) models.Upload {
	return models.Upload{Name: name, Size: int64(size), Content: bytes.NewReader(bytes.Repeat([]byte("x"), size))}
}

// mutating returns the non-GET calls in order.
func mutating(calls []fakeapi.Call) []string {
	var out []string
	for _, c := range calls {
		if c.Method != http.MethodGet {
			out = append(out, c.Method+" "+c.Path)
		}
	}
	return out
}

func TestThread_RequiresBinding(t *testing.T) {
	c := NewThreadController(&scriptedMessages{}, &scriptedMessages{}, &countingGuard{token: "T"}, nil, 0)
	ctx := context.Background()

	require.ErrorIs(t, c.Fetch(ctx, 1), ErrNoThread)
	_, err := c.Send(ctx, "hi")
	require.ErrorIs(t, err, ErrNoThread)
	require.ErrorIs(t, c.Watch(ctx, nil, nil), ErrNoThread)
}

func TestThread_BindRejectsAmbiguousKey(t *testing.T) {
	c := NewThreadController(&scriptedMessages{}, &scriptedMessages{}, &countingGuard{token: "T"}, nil, 0)

	err := c.Bind(context.Background(), models.ThreadKey{FormID: 1, FunctionID: 2, NonfunctionID: 3})
	require.ErrorIs(t, err, client.ErrInvalidArgument)
	require.ErrorIs(t, err, models.ErrAmbiguousThread)
	assert.False(t, c.Snapshot().Bound)
}

func TestThread_NoTokenNoNetwork(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	c := b.thread(b.session)

	require.ErrorIs(t, c.Bind(ctx, shopThread), client.ErrNotLoggedIn)
	_, err := c.Send(ctx, "hi")
	require.ErrorIs(t, err, client.ErrNotLoggedIn)
	_, err = c.GetFile(ctx, 1)
	require.ErrorIs(t, err, client.ErrNotLoggedIn)
	assert.Empty(t, b.fake.Calls())
}

func TestThread_SendEmptyMakesNoCalls(t *testing.T) {
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	for _, text := range []string{"", "   ", "\n\t"} {
		id, err := c.Send(context.Background(), text)
		require.ErrorIs(t, err, ErrEmptyMessage)
		assert.Zero(t, id)
	}
	assert.Empty(t, b.fake.Calls())
}

func TestThread_SendRefetchesCurrentPage(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	id, err := c.Send(ctx, "hello")
	require.NoError(t, err)
	assert.NotZero(t, id)

	calls := b.fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/api/v1/message", calls[0].Path)
	assert.Equal(t, http.MethodGet, calls[1].Method)
	assert.Equal(t, "1", calls[1].Query.Get("page"))

	st := c.Snapshot()
	require.Len(t, st.Page.Messages, 1)
	assert.Equal(t, "hello", st.Page.Messages[0].TextContent)
	assert.Equal(t, id, st.Page.Messages[0].ID)
	assert.Equal(t, "Demo Client", st.Page.Messages[0].SenderName)
}

func TestThread_SendThenUploadOrder(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	msgID, err := c.Send(ctx, "hi")
	require.NoError(t, err)
	fileID, err := c.UploadFile(ctx, msgID, upload("brief.txt", 16))
	require.NoError(t, err)
	assert.NotZero(t, fileID)

	assert.Equal(t, []string{"POST /api/v1/message", "POST /api/v1/file"}, mutating(b.fake.Calls()))
	files := b.fake.CallsTo(http.MethodPost, "/api/v1/file")
	require.Len(t, files, 1)
	assert.Equal(t, strconv.FormatInt(msgID, 10), files[0].Form.Get("message_id"))

	st := c.Snapshot()
	require.Len(t, st.Page.Messages, 1)
	require.Len(t, st.Page.Messages[0].Files, 1)
	assert.Equal(t, "brief.txt", st.Page.Messages[0].Files[0].FileName)
}

func TestThread_SendWithAttachment(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	msgID, fileID, err := c.SendWithAttachment(ctx, "see attached", upload("a.pdf", 32))
	require.NoError(t, err)
	assert.NotZero(t, fileID)

	assert.Equal(t, []string{"POST /api/v1/message", "POST /api/v1/file"}, mutating(b.fake.Calls()))
	files := b.fake.CallsTo(http.MethodPost, "/api/v1/file")
	require.Len(t, files, 1)
	assert.Equal(t, strconv.FormatInt(msgID, 10), files[0].Form.Get("message_id"))

	att, err := c.GetFile(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, msgID, att.MessageID)
	assert.Equal(t, ".pdf", att.FileExt)
}

func TestThread_SendWithAttachmentRejectsOversizeFirst(t *testing.T) {
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	up := models.Upload{Name: "big.bin", Size: models.MaxUploadSize + 1, Content: bytes.NewReader(nil)}
	_, _, err := c.SendWithAttachment(context.Background(), "hi", up)
	require.ErrorIs(t, err, client.ErrFileTooLarge)
	assert.Empty(t, b.fake.Calls())
}

func TestThread_SendWithAttachmentUploadFailureStillRefetches(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	b.fake.FailNext(http.MethodPost, "/api/v1/file", http.StatusInternalServerError, "INTERNAL_ERROR", "disk")
	msgID, fileID, err := c.SendWithAttachment(ctx, "hi", upload("a.txt", 4))
	require.ErrorIs(t, err, client.ErrServer)
	assert.NotZero(t, msgID)
	assert.Zero(t, fileID)

	st := c.Snapshot()
	require.Len(t, st.Page.Messages, 1)
	assert.Empty(t, st.Page.Messages[0].Files)
}

func TestThread_UploadBoundary(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)
	msgID, err := c.Send(ctx, "files")
	require.NoError(t, err)
	b.fake.ResetCalls()

	tooBig := models.Upload{Name: "big.bin", Size: models.MaxUploadSize + 1, Content: bytes.NewReader(make([]byte, models.MaxUploadSize+1))}
	_, err = c.UploadFile(ctx, msgID, tooBig)
	require.ErrorIs(t, err, client.ErrFileTooLarge)
	assert.Empty(t, b.fake.Calls())

	exact := models.Upload{Name: "exact.bin", Size: models.MaxUploadSize, Content: bytes.NewReader(make([]byte, models.MaxUploadSize))}
	id, err := c.UploadFile(ctx, msgID, exact)
	require.NoError(t, err)
	att, found := b.fake.Attachment(id)
	require.True(t, found)
	assert.Equal(t, models.MaxUploadSize, att.FileSize)
}

func TestThread_UploadNeedsMessageID(t *testing.T) {
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	_, err := c.UploadFile(context.Background(), 0, upload("a", 1))
	require.ErrorIs(t, err, client.ErrInvalidArgument)
	assert.Empty(t, b.fake.Calls())
}

func TestThread_FetchAuthErrorInvalidatesOnceWithoutRetry(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	guard := &countingGuard{token: b.fake.TokenFor(demoClientID)}
	c := b.thread(guard)

	b.fake.FailAlways(http.MethodGet, "/api/v1/messages", http.StatusUnauthorized, "UNAUTHORIZED", "expired")
	err := c.Bind(ctx, shopThread)
	require.ErrorIs(t, err, client.ErrUnauthorized)

	assert.Equal(t, 1, guard.Invalidations())
	assert.Len(t, b.fake.CallsTo(http.MethodGet, "/api/v1/messages"), 1)
	assert.Len(t, b.fake.Calls(), 1)
}

func TestThread_OtherErrorsKeepState(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)
	_, err := c.Send(ctx, "kept")
	require.NoError(t, err)

	b.fake.FailNext(http.MethodGet, "/api/v1/messages", http.StatusServiceUnavailable, "UNAVAILABLE", "down")
	require.Error(t, c.Fetch(ctx, 0))

	st := c.Snapshot()
	require.Len(t, st.Page.Messages, 1)
	assert.Equal(t, "kept", st.Page.Messages[0].TextContent)
	assert.Error(t, st.LastError)
	assert.Equal(t, Authenticated, b.session.State())

	require.NoError(t, c.Fetch(ctx, 0))
	assert.NoError(t, c.LastError())
}

func TestThread_EditDeleteAndBlockStatus(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	id, err := c.Send(ctx, "draft")
	require.NoError(t, err)

	require.NoError(t, c.EditMessage(ctx, id, "final"))
	st := c.Snapshot()
	require.Len(t, st.Page.Messages, 1)
	assert.Equal(t, "final", st.Page.Messages[0].TextContent)

	require.ErrorIs(t, c.EditMessage(ctx, id, " "), ErrEmptyMessage)

	blockID := st.Page.Messages[0].BlockID
	require.NoError(t, c.UpdateBlockStatus(ctx, blockID, models.BlockStatusUrgent))
	status, found := b.fake.BlockStatus(blockID)
	require.True(t, found)
	assert.Equal(t, models.BlockStatusUrgent, status)

	require.NoError(t, c.DeleteMessage(ctx, id))
	assert.Empty(t, c.Snapshot().Page.Messages)
}

func TestThread_DeleteFile(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	_, fileID, err := c.SendWithAttachment(ctx, "x", upload("a.txt", 3))
	require.NoError(t, err)
	require.Len(t, c.Snapshot().Page.Messages[0].Files, 1)

	require.NoError(t, c.DeleteFile(ctx, fileID))
	assert.Empty(t, c.Snapshot().Page.Messages[0].Files)
	_, found := b.fake.Attachment(fileID)
	assert.False(t, found)
}

func TestThread_PagingAndRebind(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := NewThreadController(b.api.Messages, b.api.Files, b.session, nil, 2)
	require.NoError(t, c.Bind(ctx, shopThread))

	for _, text := range []string{"one", "two", "three"} {
		_, err := c.Send(ctx, text)
		require.NoError(t, err)
	}
	require.NoError(t, c.Fetch(ctx, 2))
	st := c.Snapshot()
	assert.Equal(t, 3, st.Page.Total)
	require.Len(t, st.Page.Messages, 1)
	assert.Equal(t, "three", st.Page.Messages[0].TextContent)

	// sending on page 2 reloads page 2
	b.fake.ResetCalls()
	_, err := c.Send(ctx, "four")
	require.NoError(t, err)
	gets := b.fake.CallsTo(http.MethodGet, "/api/v1/messages")
	require.Len(t, gets, 1)
	assert.Equal(t, "2", gets[0].Query.Get("page"))

	fnThread := models.ThreadKey{FormID: demoShopID, FunctionID: 5}
	require.NoError(t, c.Bind(ctx, fnThread))
	st = c.Snapshot()
	assert.Equal(t, fnThread, st.Key)
	assert.Empty(t, st.Page.Messages)
	assert.Equal(t, 1, st.Page.Page)
}

// scriptedMessages implements MessageAPI and FileAPI. Gate, when set, runs
// before ListMessages answers.
type scriptedMessages struct {
	mu    sync.Mutex
	Pages map[models.ThreadKey]models.MessagePage
	Gate  func(models.ThreadKey)
	Errs  map[models.ThreadKey]error
	Log   []string
}

func (s *scriptedMessages) log(op string) {
	s.mu.Lock()
	s.Log = append(s.Log, op)
	s.mu.Unlock()
}

func (s *scriptedMessages) ListMessages(_ context.Context, _ string, q models.MessageQuery) (models.MessagePage, error) {
	s.log("list")
	if s.Gate != nil {
		s.Gate(q.Key)
	}
	if err := s.Errs[q.Key]; err != nil {
		return models.MessagePage{}, err
	}
	return s.Pages[q.Key], nil
}

func (s *scriptedMessages) SendMessage(context.Context, string, models.MessageInput) (int64, error) {
	s.log("send")
	return 100, nil
}

func (s *scriptedMessages) UpdateMessage(context.Context, string, int64, string) error { return nil }
func (s *scriptedMessages) DeleteMessage(context.Context, string, int64) error         { return nil }
func (s *scriptedMessages) UpdateBlockStatus(context.Context, string, int64, models.BlockStatus) error {
	return nil
}

func (s *scriptedMessages) UploadFile(_ context.Context, _ string, messageID int64, _ models.Upload) (int64, error) {
	s.log("upload:" + strconv.FormatInt(messageID, 10))
	return 200, nil
}

func (s *scriptedMessages) GetFile(context.Context, string, int64) (models.Attachment, error) {
	return models.Attachment{}, nil
}

func (s *scriptedMessages) DeleteFile(context.Context, string, int64) error { return nil }

func TestThread_StaleFetchDiscardedAfterRebind(t *testing.T) {
	ctx := context.Background()
	a := models.ThreadKey{FormID: 1}
	b := models.ThreadKey{FormID: 2}
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	msgs := &scriptedMessages{
		Pages: map[models.ThreadKey]models.MessagePage{
			a: {Messages: []models.Message{{ID: 1, TextContent: "from A"}}, Page: 1, Total: 1},
			b: {Messages: []models.Message{{ID: 2, TextContent: "from B"}}, Page: 1, Total: 1},
		},
		Gate: func(k models.ThreadKey) {
			if k == a {
				once.Do(func() { close(entered) })
				<-release
			}
		},
	}
	c := NewThreadController(msgs, msgs, &countingGuard{token: "T"}, nil, 0)

	done := make(chan error, 1)
	go func() { done <- c.Bind(ctx, a) }()
	<-entered

	require.NoError(t, c.Bind(ctx, b))
	close(release)
	require.NoError(t, <-done)

	st := c.Snapshot()
	assert.Equal(t, b, st.Key)
	require.Len(t, st.Page.Messages, 1)
	assert.Equal(t, "from B", st.Page.Messages[0].TextContent)
}

func TestThread_StaleFetchFailure(t *testing.T) {
	a := models.ThreadKey{FormID: 1}
	b := models.ThreadKey{FormID: 2}

	tests := []struct {
		name              string
		err               error
		wantErr           error
		wantInvalidations int
	}{
		{name: "server error is discarded", err: client.ErrServer},
		{name: "auth error still invalidates", err: client.ErrUnauthorized, wantErr: client.ErrUnauthorized, wantInvalidations: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			entered := make(chan struct{})
			release := make(chan struct{})
			var once sync.Once
			msgs := &scriptedMessages{
				Pages: map[models.ThreadKey]models.MessagePage{
					b: {Messages: []models.Message{{ID: 2, TextContent: "from B"}}, Page: 1, Total: 1},
				},
				Errs: map[models.ThreadKey]error{a: tt.err},
				Gate: func(k models.ThreadKey) {
					if k == a {
						once.Do(func() { close(entered) })
						<-release
					}
				},
			}
			guard := &countingGuard{token: "T"}
			c := NewThreadController(msgs, msgs, guard, nil, 0)

			done := make(chan error, 1)
			go func() { done <- c.Bind(ctx, a) }()
			<-entered

			require.NoError(t, c.Bind(ctx, b))
			close(release)
			err := <-done
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NoError(t, c.LastError())
			}
			assert.Equal(t, tt.wantInvalidations, guard.Invalidations())

			st := c.Snapshot()
			assert.Equal(t, b, st.Key)
			require.Len(t, st.Page.Messages, 1)
		})
	}
}

func TestThread_SendWithAttachmentUsesReturnedID(t *testing.T) {
	msgs := &scriptedMessages{}
	c := NewThreadController(msgs, msgs, &countingGuard{token: "T"}, nil, 0)
	require.NoError(t, c.Bind(context.Background(), models.ThreadKey{FormID: 1}))
	msgs.Log = nil

	msgID, fileID, err := c.SendWithAttachment(context.Background(), "hi", upload("f", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(100), msgID)
	assert.Equal(t, int64(200), fileID)
	assert.Equal(t, []string{"send", "upload:100", "list"}, msgs.Log)
}

func TestThread_WatchRefetchesOnFeedEvents(t *testing.T) {
	b := newBackend(t)
	b.login(t, fakeapi.DemoClientEmail)
	c := boundThread(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []live.Event
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, b.dialer, func(ev live.Event) {
			mu.Lock()
			seen = append(seen, ev)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool { return b.fake.Subscribers(shopThread.Room()) == 1 }, 5*time.Second, 10*time.Millisecond)

	// another client of the same account posts through its own controller
	other := b.thread(b.session)
	require.NoError(t, other.Bind(context.Background(), shopThread))
	_, err := other.Send(context.Background(), "from elsewhere")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := c.Snapshot().Page.Messages
		return len(msgs) == 1 && msgs[0].TextContent == "from elsewhere"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, "create", seen[0].Action)
}

func TestThread_WatchInvalidTokenInvalidates(t *testing.T) {
	b := newBackend(t)
	guard := &countingGuard{token: "bogus"}
	msgs := &scriptedMessages{}
	c := NewThreadController(msgs, msgs, guard, nil, 0)
	require.NoError(t, c.Bind(context.Background(), shopThread))

	err := c.Watch(context.Background(), b.dialer, nil)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 1, guard.Invalidations())
}
