package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

type FormAPI struct {
	r client.Requester
}

// ListForms returns one page of the forms visible to the caller. Page and
// pageSize below 1 fall back to the defaults.
func (a *FormAPI) ListForms(ctx context.Context, token string, page, pageSize int) (models.FormPage, error) {
	if err := requireToken(token); err != nil {
		return models.FormPage{}, err
	}
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	raw, err := a.r.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   "/api/v1/forms",
		Query:  url.Values{"page": {strconv.Itoa(page)}, "page_size": {strconv.Itoa(pageSize)}},
		Token:  token,
	})
	if err != nil {
		return models.FormPage{}, err
	}
	env, err := decode[models.FormPage](raw, true)
	if err != nil {
		return models.FormPage{}, err
	}

	out := *env.Data
	if out.Forms == nil {
		out.Forms = []models.Form{}
	}
	if out.Page == 0 {
		out.Page = page
	}
	if out.PageSize == 0 {
		out.PageSize = pageSize
	}
	return out, nil
}

func (a *FormAPI) GetForm(ctx context.Context, token string, id int64) (models.Form, error) {
	if err := requireToken(token); err != nil {
		return models.Form{}, err
	}
	if err := requireID("form id", id); err != nil {
		return models.Form{}, err
	}
	raw, err := a.r.Do(ctx, client.Request{Method: http.MethodGet, Path: idPath("/api/v1/form/%d", id), Token: token})
	if err != nil {
		return models.Form{}, err
	}
	env, err := decode[models.Form](raw, true)
	if err != nil {
		return models.Form{}, err
	}
	return *env.Data, nil
}

// CreateForm submits a main form and returns its id.
func (a *FormAPI) CreateForm(ctx context.Context, token string, in models.FormInput) (int64, error) {
	if err := requireToken(token); err != nil {
		return 0, err
	}
	if err := requireField("title", in.Title); err != nil {
		return 0, err
	}
	var data struct {
		FormID int64 `json:"form_id"`
	}
	if err := a.post(ctx, token, "/api/v1/form", in, &data); err != nil {
		return 0, err
	}
	return data.FormID, nil
}

func (a *FormAPI) UpdateForm(ctx context.Context, token string, id int64, upd models.FormUpdate) error {
	if err := requireToken(token); err != nil {
		return err
	}
	if err := requireID("form id", id); err != nil {
		return err
	}
	if upd.Empty() {
		return fmt.Errorf("%w: no fields to update", client.ErrInvalidArgument)
	}
	_, err := a.r.Do(ctx, client.Request{Method: http.MethodPut, Path: idPath("/api/v1/form/%d", id), Body: upd, Token: token})
	return err
}

func (a *FormAPI) DeleteForm(ctx context.Context, token string, id int64) error {
	return a.simple(ctx, token, http.MethodDelete, "/api/v1/form/%d", id, nil)
}

// CreateSubform attaches a change request to the main form and returns the
// subform id.
func (a *FormAPI) CreateSubform(ctx context.Context, token string, mainID int64, in models.FormInput) (int64, error) {
	if err := requireToken(token); err != nil {
		return 0, err
	}
	if err := requireID("form id", mainID); err != nil {
		return 0, err
	}
	if err := requireField("title", in.Title); err != nil {
		return 0, err
	}
	var data struct {
		SubformID int64 `json:"subform_id"`
	}
	if err := a.post(ctx, token, idPath("/api/v1/form/%d/subform", mainID), in, &data); err != nil {
		return 0, err
	}
	return data.SubformID, nil
}

func (a *FormAPI) MergeSubform(ctx context.Context, token string, mainID int64) error {
	return a.simple(ctx, token, http.MethodPost, "/api/v1/form/%d/subform/merge", mainID, nil)
}

// UpdateFormStatus requests a status transition. The backend decides whether
// it is legal; the result is informational only.
func (a *FormAPI) UpdateFormStatus(ctx context.Context, token string, id int64, status models.FormStatus) (models.StatusResult, error) {
	if err := requireToken(token); err != nil {
		return models.StatusResult{}, err
	}
	if err := requireID("form id", id); err != nil {
		return models.StatusResult{}, err
	}
	if err := requireField("status", string(status)); err != nil {
		return models.StatusResult{}, err
	}
	raw, err := a.r.Do(ctx, client.Request{
		Method: http.MethodPut,
		Path:   idPath("/api/v1/form/%d/status", id),
		Body:   map[string]string{"status": string(status)},
		Token:  token,
	})
	if err != nil {
		return models.StatusResult{}, err
	}
	env, err := decode[models.StatusResult](raw, false)
	if err != nil {
		return models.StatusResult{}, err
	}
	var out models.StatusResult
	if env.Data != nil {
		out = *env.Data
	}
	out.Message = env.Message
	return out, nil
}

// CompleteForm records the caller's confirmation that the form is done.
func (a *FormAPI) CompleteForm(ctx context.Context, token string, id int64) error {
	return a.simple(ctx, token, http.MethodPost, "/api/v1/form/%d/complete", id, nil)
}

func (a *FormAPI) AcceptNegotiation(ctx context.Context, token string, id int64) error {
	return a.simple(ctx, token, http.MethodPost, "/api/v1/form/%d/accept-negotiation", id, nil)
}

func (a *FormAPI) post(ctx context.Context, token, path string, body, out any) error {
	return postDecode(ctx, a.r, token, path, body, out)
}

func (a *FormAPI) simple(ctx context.Context, token, method, format string, id int64, body any) error {
	return simpleCall(ctx, a.r, token, method, format, "form id", id, body)
}

// postDecode sends body and decodes the required data object into out.
func postDecode(ctx context.Context, r client.Requester, token, path string, body, out any) error {
	raw, err := r.Do(ctx, client.Request{Method: http.MethodPost, Path: path, Body: body, Token: token})
	if err != nil {
		return err
	}
	return decodeInto(raw, out)
}

func decodeInto(raw []byte, out any) error {
	env, err := decode[rawData](raw, true)
	if err != nil {
		return err
	}
	if err := unmarshalData(*env.Data, out); err != nil {
		return err
	}
	return nil
}

// simpleCall issues an id-addressed request whose answer carries no data.
func simpleCall(ctx context.Context, r client.Requester, token, method, format, idName string, id int64, body any) error {
	if err := requireToken(token); err != nil {
		return err
	}
	if err := requireID(idName, id); err != nil {
		return err
	}
	_, err := r.Do(ctx, client.Request{Method: method, Path: idPath(format, id), Body: body, Token: token})
	return err
}
