package api

import (
	"context"
	"io"
	"sync"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
)

type call struct {
	Req  client.Request
	Body []byte
}

// fakeRequester answers with canned bodies keyed by "METHOD path".
type fakeRequester struct {
	mu        sync.Mutex
	Responses map[string]string
	Err       error
	Calls     []call
	LastReq   client.Request
}

func newFake(responses map[string]string) *fakeRequester {
	return &fakeRequester{Responses: responses}
}

func (f *fakeRequester) Do(_ context.Context, req client.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := call{Req: req}
	if mp, ok := req.Body.(*client.Multipart); ok && mp.File != nil {
		b, err := io.ReadAll(mp.File)
		if err != nil {
			return nil, err
		}
		c.Body = b
	}
	f.Calls = append(f.Calls, c)
	f.LastReq = req

	if f.Err != nil {
		return nil, f.Err
	}
	return []byte(f.Responses[req.Method+" "+req.Path]), nil
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
