package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
)

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// decode unwraps a success envelope. When required is set a null or absent
// data object is an error; otherwise the returned pointer may be nil.
func decode[T any](raw []byte, required bool) (envelope[T], error) {
	var env envelope[T]
	if len(bytes.TrimSpace(raw)) == 0 {
		if required {
			return env, fmt.Errorf("%w: empty body", client.ErrMalformedResponse)
		}
		return env, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: %v", client.ErrMalformedResponse, err)
	}
	if required && env.Data == nil {
		return env, fmt.Errorf("%w: missing data", client.ErrMalformedResponse)
	}
	return env, nil
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return client.ErrNotLoggedIn
	}
	return nil
}

func requireID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s is required", client.ErrInvalidArgument, name)
	}
	return nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", client.ErrInvalidArgument, name)
	}
	return nil
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// API groups the resource clients over one transport.
type API struct {
	Auth         *AuthAPI
	Forms        *FormAPI
	Functions    *FunctionAPI
	Nonfunctions *NonfunctionAPI
	Messages     *MessageAPI
	Files        *FileAPI
}

func New(r client.Requester) *API {
	return &API{
		Auth:         &AuthAPI{r: r},
		Forms:        &FormAPI{r: r},
		Functions:    &FunctionAPI{r: r},
		Nonfunctions: &NonfunctionAPI{r: r},
		Messages:     &MessageAPI{r: r},
		Files:        &FileAPI{r: r},
	}
}

type rawData = json.RawMessage

func unmarshalData(data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", client.ErrMalformedResponse, err)
	}
	return nil
}

func malformed(what string) error {
	return fmt.Errorf("%w: %s", client.ErrMalformedResponse, what)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", client.ErrInvalidArgument, err)
}
