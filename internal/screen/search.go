package screen

import (
	"context"
	"log/slog"

	"github.com/hitoshi/photoshare/internal/asset"
	"github.com/hitoshi/photoshare/internal/auth"
	"github.com/hitoshi/photoshare/internal/lifecycle"
	"github.com/hitoshi/photoshare/internal/message"
	"github.com/hitoshi/photoshare/internal/photo"
	"github.com/hitoshi/photoshare/internal/query"
)

// SearchScreen は検索結果画面。
// ロケーションの検索語が変わるたびに検索結果を読み込み直す。
type SearchScreen struct {
	auth   *auth.Store
	photos *photo.Store
	reader *query.Reader
	assets *asset.Resolver
	logger *slog.Logger
}

// NewSearchScreen はSearchScreenを生成する。
func NewSearchScreen(
	a *auth.Store,
	photos *photo.Store,
	reader *query.Reader,
	assets *asset.Resolver,
	logger *slog.Logger,
) *SearchScreen {
	return &SearchScreen{auth: a, photos: photos, reader: reader, assets: assets, logger: logger}
}

// Open はロケーションの購読を開始する。戻り値の関数で購読を解除する。
// 検索語が変わるたびにctxで検索を実行する。
func (s *SearchScreen) Open(ctx context.Context) (closeFn func()) {
	return s.reader.Subscribe(func(term string) {
		if err := s.Search(ctx, term); err != nil {
			s.logger.Warn("検索に失敗しました",
				slog.String("term", term),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Search は検索語で検索結果を読み込む。
func (s *SearchScreen) Search(ctx context.Context, term string) error {
	return checkErr(s.auth, s.photos.LoadBySearch(ctx, term))
}

// Term は現在の検索語を返す。
func (s *SearchScreen) Term() string {
	return s.reader.Term()
}

// Results は検索結果を返す。
func (s *SearchScreen) Results() []PhotoView {
	return toPhotoViews(s.photos.Photos(), s.auth.UserID(), s.assets)
}

// NoResults は検索が成功して結果が0件かどうかを返す。
func (s *SearchScreen) NoResults() bool {
	return s.photos.LoadState().Status == lifecycle.Succeeded && len(s.photos.Photos()) == 0
}

// Loading は検索中かどうかを返す。
func (s *SearchScreen) Loading() bool {
	return s.photos.LoadState().Loading()
}

// Like は閲覧者のいいねを反転する。
func (s *SearchScreen) Like(ctx context.Context, photoID string) error {
	return checkErr(s.auth, s.photos.ToggleLike(ctx, photoID, s.auth.UserID()))
}

// Message は表示中のメッセージを返す。
func (s *SearchScreen) Message() (message.Message, bool) {
	return s.photos.Message()
}
