package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/syncbridge/internal/client/client"
	"github.com/dmitrijs2005/syncbridge/internal/client/models"
)

type AuthAPI struct {
	r client.Requester
}

func (a *AuthAPI) Login(ctx context.Context, email, password string) (models.LoginResult, error) {
	if err := requireField("email", email); err != nil {
		return models.LoginResult{}, err
	}
	if err := requireField("password", password); err != nil {
		return models.LoginResult{}, err
	}

	raw, err := a.r.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return models.LoginResult{}, err
	}
	env, err := decode[models.LoginResult](raw, true)
	if err != nil {
		return models.LoginResult{}, err
	}
	if env.Data.AccessToken == "" {
		return models.LoginResult{}, fmt.Errorf("%w: missing access_token", client.ErrMalformedResponse)
	}
	return *env.Data, nil
}

// Me returns the identity behind token.
func (a *AuthAPI) Me(ctx context.Context, token string) (models.User, error) {
	if err := requireToken(token); err != nil {
		return models.User{}, err
	}
	raw, err := a.r.Do(ctx, client.Request{Method: http.MethodGet, Path: "/api/v1/auth/me", Token: token})
	if err != nil {
		return models.User{}, err
	}
	env, err := decode[models.User](raw, true)
	if err != nil {
		return models.User{}, err
	}
	return *env.Data, nil
}

// Register creates an account. It does not log in, even though the backend
// answers with a token.
func (a *AuthAPI) Register(ctx context.Context, in models.RegisterInput) (models.RegisterResult, error) {
	for _, f := range []struct{ name, value string }{
		{"email", in.Email},
		{"password", in.Password},
		{"display_name", in.DisplayName},
		{"license_key", in.LicenseKey},
	} {
		if err := requireField(f.name, f.value); err != nil {
			return models.RegisterResult{}, err
		}
	}
	return a.registerCall(ctx, "/api/v1/auth/register", in)
}

// Reactivate binds a new license key to an existing account.
func (a *AuthAPI) Reactivate(ctx context.Context, in models.ReactivateInput) (models.RegisterResult, error) {
	for _, f := range []struct{ name, value string }{
		{"email", in.Email},
		{"password", in.Password},
		{"license_key", in.LicenseKey},
	} {
		if err := requireField(f.name, f.value); err != nil {
			return models.RegisterResult{}, err
		}
	}
	return a.registerCall(ctx, "/api/v1/auth/reactivate", in)
}

func (a *AuthAPI) registerCall(ctx context.Context, path string, body any) (models.RegisterResult, error) {
	raw, err := a.r.Do(ctx, client.Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return models.RegisterResult{}, err
	}
	env, err := decode[models.RegisterResult](raw, false)
	if err != nil {
		return models.RegisterResult{}, err
	}
	var out models.RegisterResult
	if env.Data != nil {
		out = *env.Data
	}
	out.Status = env.Status
	out.Message = env.Message
	return out, nil
}
