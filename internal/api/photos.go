package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/hitoshi/photoshare/internal/model"
)

// ListByOwner は指定ユーザーの写真一覧を取得する。
func (c *Client) ListByOwner(ctx context.Context, userID string) ([]model.Photo, error) {
	var out []photoDTO
	if err := c.do(ctx, request{
		endpoint: "photos_user",
		method:   http.MethodGet,
		path:     "/api/photos/user/" + url.PathEscape(userID),
		notFound: func() *model.APIError { return model.NewUserNotFoundError(userID) },
	}, &out); err != nil {
		return nil, err
	}
	return c.toPhotos(out), nil
}

// ListBySearch はタイトルで写真を検索する。
func (c *Client) ListBySearch(ctx context.Context, term string) ([]model.Photo, error) {
	var out []photoDTO
	if err := c.do(ctx, request{
		endpoint: "photos_search",
		method:   http.MethodGet,
		path:     "/api/photos/search",
		query:    url.Values{"q": []string{term}},
	}, &out); err != nil {
		return nil, err
	}
	return c.toPhotos(out), nil
}

// GetOne は指定IDの写真を取得する。
func (c *Client) GetOne(ctx context.Context, photoID string) (*model.Photo, error) {
	var out photoDTO
	if err := c.do(ctx, request{
		endpoint: "photos_get",
		method:   http.MethodGet,
		path:     "/api/photos/" + url.PathEscape(photoID),
		notFound: func() *model.APIError { return model.NewPhotoNotFoundError(photoID) },
	}, &out); err != nil {
		return nil, err
	}
	p := c.toPhoto(out)
	return &p, nil
}

// Create はタイトルと画像をmultipartで送信し、写真を公開する。
// マークアップだけのタイトルは除去後に空になるため、送信せずにタイトル未入力エラーを返す。
func (c *Client) Create(ctx context.Context, title string, image model.Image) (*model.Photo, error) {
	title = c.sanitizer.Sanitize(title)
	if title == "" {
		return nil, model.NewTitleRequiredError()
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("title", title); err != nil {
		return nil, model.NewNetworkError(fmt.Errorf("multipartの生成に失敗しました: %w", err))
	}

	filename := image.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := image.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(image.Data)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, model.NewNetworkError(fmt.Errorf("multipartの生成に失敗しました: %w", err))
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, model.NewNetworkError(fmt.Errorf("multipartの生成に失敗しました: %w", err))
	}
	if err := mw.Close(); err != nil {
		return nil, model.NewNetworkError(fmt.Errorf("multipartの生成に失敗しました: %w", err))
	}

	var out photoDTO
	if err := c.do(ctx, request{
		endpoint:    "photos_create",
		method:      http.MethodPost,
		path:        "/api/photos",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out); err != nil {
		return nil, err
	}
	p := c.toPhoto(out)
	return &p, nil
}

// Update は写真のタイトルを更新する。Createと同じくタイトルが空になる場合は送信しない。
func (c *Client) Update(ctx context.Context, photoID, title string) (*model.Photo, error) {
	title = c.sanitizer.Sanitize(title)
	if title == "" {
		return nil, model.NewTitleRequiredError()
	}

	body, err := jsonBody(map[string]string{"title": title})
	if err != nil {
		return nil, err
	}

	var out photoDTO
	if err := c.do(ctx, request{
		endpoint:    "photos_update",
		method:      http.MethodPut,
		path:        "/api/photos/" + url.PathEscape(photoID),
		body:        body,
		contentType: "application/json",
		notFound:    func() *model.APIError { return model.NewPhotoNotFoundError(photoID) },
	}, &out); err != nil {
		return nil, err
	}
	// タイトルだけを返すバックエンドではIDが空になる
	if out.ID == "" {
		out.ID = photoID
	}
	p := c.toPhoto(out)
	return &p, nil
}

// Delete は写真を削除する。
func (c *Client) Delete(ctx context.Context, photoID string) error {
	return c.do(ctx, request{
		endpoint: "photos_delete",
		method:   http.MethodDelete,
		path:     "/api/photos/" + url.PathEscape(photoID),
		notFound: func() *model.APIError { return model.NewPhotoNotFoundError(photoID) },
	}, nil)
}

// Like はlikeがtrueならPUT、falseならDELETEでいいねの状態を送信する。
// バックエンドが写真全体を返さない場合はnilを返す。
func (c *Client) Like(ctx context.Context, photoID string, like bool) (*model.Photo, error) {
	method := http.MethodPut
	endpoint := "photos_like"
	if !like {
		method = http.MethodDelete
		endpoint = "photos_unlike"
	}

	var out likeDTO
	if err := c.do(ctx, request{
		endpoint: endpoint,
		method:   method,
		path:     "/api/photos/like/" + url.PathEscape(photoID),
		notFound: func() *model.APIError { return model.NewPhotoNotFoundError(photoID) },
	}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, nil
	}
	p := c.toPhoto(out.photoDTO)
	return &p, nil
}
