package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/photoshare/internal/model"
)

// GetProfile は指定ユーザーのプロフィールを取得する。
func (c *Client) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var out userDTO
	if err := c.do(ctx, request{
		endpoint: "users_get",
		method:   http.MethodGet,
		path:     "/api/users/" + url.PathEscape(userID),
		notFound: func() *model.APIError { return model.NewUserNotFoundError(userID) },
	}, &out); err != nil {
		return nil, err
	}
	return c.toProfile(out), nil
}
