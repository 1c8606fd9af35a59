package api

import (
	"context"
	"net/http"

	"github.com/hitoshi/photoshare/internal/model"
)

// Login はメールアドレスとパスワードで認証する。
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResult, error) {
	body, err := jsonBody(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var out authDTO
	if err := c.do(ctx, request{
		endpoint:    "users_login",
		method:      http.MethodPost,
		path:        "/api/users/login",
		body:        body,
		contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	return toAuthResult(out), nil
}

// Register はユーザーを登録する。確認用パスワードの一致はバックエンドでも検証される。
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error) {
	body, err := jsonBody(map[string]string{
		"name":            c.sanitizer.Sanitize(reg.Name),
		"email":           reg.Email,
		"password":        reg.Password,
		"confirmPassword": reg.ConfirmPassword,
	})
	if err != nil {
		return nil, err
	}

	var out authDTO
	if err := c.do(ctx, request{
		endpoint:    "users_register",
		method:      http.MethodPost,
		path:        "/api/users/register",
		body:        body,
		contentType: "application/json",
	}, &out); err != nil {
		return nil, err
	}
	result := toAuthResult(out)
	result.User.Name = c.sanitizer.Sanitize(reg.Name)
	return result, nil
}

// Current はトークンに対応するログイン中のユーザーを返す。
func (c *Client) Current(ctx context.Context) (*model.UserSummary, error) {
	var out userDTO
	if err := c.do(ctx, request{
		endpoint: "users_profile",
		method:   http.MethodGet,
		path:     "/api/users/profile",
	}, &out); err != nil {
		return nil, err
	}
	return c.toSummary(out), nil
}

func toAuthResult(d authDTO) *model.AuthResult {
	return &model.AuthResult{
		User: model.UserSummary{
			ID:        d.ID,
			AvatarRef: d.ProfileImage,
		},
		Token: d.Token,
	}
}
