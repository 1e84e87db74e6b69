package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
)

type FunctionAPI struct {
	r client.Requester
}

func (a *FunctionAPI) ListFunctions(ctx context.Context, token string, formID int64) ([]models.Function, error) {
	var data struct {
		Functions []models.Function `json:"functions"`
	}
	if err := listChildren(ctx, a.r, token, "/api/v1/functions", formID, &data); err != nil {
		return nil, err
	}
	if data.Functions == nil {
		return []models.Function{}, nil
	}
	return data.Functions, nil
}

func (a *FunctionAPI) CreateFunction(ctx context.Context, token string, in models.FunctionInput) (int64, error) {
	if err := requireToken(token); err != nil {
		return 0, err
	}
	if err := requireID("form_id", in.FormID); err != nil {
		return 0, err
	}
	if err := requireField("name", in.Name); err != nil {
		return 0, err
	}
	return createChild(ctx, a.r, token, "/api/v1/function", in)
}

func (a *FunctionAPI) UpdateFunction(ctx context.Context, token string, id int64, upd models.FunctionUpdate) error {
	return simpleCall(ctx, a.r, token, http.MethodPut, "/api/v1/function/%d", "function id", id, upd)
}

func (a *FunctionAPI) DeleteFunction(ctx context.Context, token string, id int64) error {
	return simpleCall(ctx, a.r, token, http.MethodDelete, "/api/v1/function/%d", "function id", id, nil)
}

type NonfunctionAPI struct {
	r client.Requester
}

func (a *NonfunctionAPI) ListNonfunctions(ctx context.Context, token string, formID int64) ([]models.Nonfunction, error) {
	var data struct {
		Nonfunctions []models.Nonfunction `json:"nonfunctions"`
	}
	if err := listChildren(ctx, a.r, token, "/api/v1/nonfunctions", formID, &data); err != nil {
		return nil, err
	}
	if data.Nonfunctions == nil {
		return []models.Nonfunction{}, nil
	}
	return data.Nonfunctions, nil
}

func (a *NonfunctionAPI) CreateNonfunction(ctx context.Context, token string, in models.NonfunctionInput) (int64, error) {
	if err := requireToken(token); err != nil {
		return 0, err
	}
	if err := requireID("form_id", in.FormID); err != nil {
		return 0, err
	}
	if err := requireField("name", in.Name); err != nil {
		return 0, err
	}
	return createChild(ctx, a.r, token, "/api/v1/nonfunction", in)
}

func (a *NonfunctionAPI) UpdateNonfunction(ctx context.Context, token string, id int64, upd models.NonfunctionUpdate) error {
	return simpleCall(ctx, a.r, token, http.MethodPut, "/api/v1/nonfunction/%d", "nonfunction id", id, upd)
}

func (a *NonfunctionAPI) DeleteNonfunction(ctx context.Context, token string, id int64) error {
	return simpleCall(ctx, a.r, token, http.MethodDelete, "/api/v1/nonfunction/%d", "nonfunction id", id, nil)
}

func listChildren(ctx context.Context, r client.Requester, token, path string, formID int64, out any) error {
	if err := requireToken(token); err != nil {
		return err
	}
	if err := requireID("form_id", formID); err != nil {
		return err
	}
	raw, err := r.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  url.Values{"form_id": {itoa(formID)}},
		Token:  token,
	})
	if err != nil {
		return err
	}
	return decodeInto(raw, out)
}

func createChild(ctx context.Context, r client.Requester, token, path string, body any) (int64, error) {
	var data struct {
		ID *int64 `json:"id"`
	}
	if err := postDecode(ctx, r, token, path, body, &data); err != nil {
		return 0, err
	}
	if data.ID == nil {
		return 0, fmt.Errorf("%w: missing id", client.ErrMalformedResponse)
	}
	return *data.ID, nil
}
