package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/photoshare/internal/api"
	"github.com/hitoshi/photoshare/internal/asset"
	"github.com/hitoshi/photoshare/internal/auth"
	"github.com/hitoshi/photoshare/internal/config"
	"github.com/hitoshi/photoshare/internal/credential"
	"github.com/hitoshi/photoshare/internal/lifecycle"
	"github.com/hitoshi/photoshare/internal/logger"
	"github.com/hitoshi/photoshare/internal/message"
	"github.com/hitoshi/photoshare/internal/metrics"
	"github.com/hitoshi/photoshare/internal/middleware"
	"github.com/hitoshi/photoshare/internal/model"
	"github.com/hitoshi/photoshare/internal/photo"
	"github.com/hitoshi/photoshare/internal/profile"
	"github.com/hitoshi/photoshare/internal/query"
	"github.com/hitoshi/photoshare/internal/screen"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでロガーを作り直す
	l := logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, l, nil
}

// App はストアと画面を組み立てたクライアント。
// 1回のコマンド実行ごとに生成し、セッションは認証情報ファイルで引き継ぐ。
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	registry *prometheus.Registry
	creds    *credential.FileStore
	auth     *auth.Store
	profiles *profile.Store
	photos   *photo.Store
	assets   *asset.Resolver
	reader   *query.Reader
}

// New は全依存関係をワイヤリングしてAppを生成する。
// コマンドの結果はoutに出力する。
func New(cfg *config.Config, l *slog.Logger, out io.Writer) *App {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. 認証情報ストア
	creds := credential.NewFileStore(cfg.CredentialFile)

	// 3. APIクライアント
	limit := rate.Limit(cfg.APIRateLimit)
	if cfg.APIRateLimit <= 0 {
		limit = rate.Inf
	}
	client := api.NewClient(
		cfg.APIBaseURL,
		&http.Client{Timeout: cfg.APITimeout},
		l,
		api.WithLimiter(rate.NewLimiter(limit, cfg.APIRateBurst)),
		api.WithTokenSource(credential.TokenSource(creds)),
		api.WithRecorder(collector),
	)

	// 4. ストア
	clock := message.SystemClock{}
	return &App{
		cfg:      cfg,
		logger:   l,
		out:      out,
		registry: registry,
		creds:    creds,
		auth:     auth.NewStore(client, creds, l, auth.StoreConfig{Clock: clock, Recorder: collector}),
		profiles: profile.NewStore(client, l, profile.StoreConfig{Clock: clock, Recorder: collector}),
		photos: photo.NewStore(client, l, photo.StoreConfig{
			Clock:      clock,
			Recorder:   collector,
			ClearDelay: cfg.MessageClearDelay,
		}),
		assets: asset.NewResolver(cfg.UploadsBaseURL),
		reader: query.NewReader(cfg.SearchParam),
	}
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析して実行する。
// 結果はoutに、ログはlogwに出力する。argsにはos.Args[1:]を渡す。
func Run(out, logw io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	if cmd == CommandHelp {
		fmt.Fprint(out, usage)
		return nil
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		baseURL := strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
		if baseURL == "" {
			return errors.New("API_BASE_URL is not set")
		}
		return runHealthcheck(baseURL)
	}

	cfg, l, err := Init(logw)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	l.Debug("starting command",
		slog.String("command", string(cmd)),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := New(cfg, l, out)
	if cfg.MetricsAddr != "" {
		shutdown := a.serveMetrics(cfg.MetricsAddr)
		defer shutdown()
	}
	return a.Execute(ctx, cmd, rest)
}

// Execute はサブコマンドを実行する。
func (a *App) Execute(ctx context.Context, cmd Command, args []string) error {
	if cmd.needsSession() {
		if err := a.restore(ctx); err != nil {
			return err
		}
	}

	switch cmd {
	case CommandLogin:
		return a.login(ctx, args)
	case CommandRegister:
		return a.register(ctx, args)
	case CommandLogout:
		return a.logout()
	case CommandWhoami:
		return a.whoami()
	case CommandProfile:
		return a.profile(ctx, args)
	case CommandSearch:
		return a.search(ctx, args)
	case CommandPhoto:
		return a.photo(ctx, args)
	case CommandPublish:
		return a.publish(ctx, args)
	case CommandUpdate:
		return a.update(ctx, args)
	case CommandDelete:
		return a.delete(ctx, args)
	case CommandLike:
		return a.like(ctx, args)
	default:
		fmt.Fprint(a.out, usage)
		return nil
	}
}

// restore は保存済みトークンからセッションを復元する。
// セッションが無効な場合は案内を表示し、未ログインとして続行する。
func (a *App) restore(ctx context.Context) error {
	err := a.auth.Restore(ctx)
	if err == nil {
		return nil
	}
	if model.IsKind(err, model.KindAuth) {
		if msg, ok := a.auth.Message(); ok {
			fmt.Fprintln(a.out, msg.Text)
		}
		return nil
	}
	return err
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError(CommandLogin)
	}
	s := screen.NewAuthScreen(a.auth)
	s.Enter()
	if err := s.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "ログインしました。(%s)\n", a.auth.UserID())
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return usageError(CommandRegister)
	}
	s := screen.NewAuthScreen(a.auth)
	s.Enter()
	if err := s.Register(ctx, model.Registration{
		Name:            args[0],
		Email:           args[1],
		Password:        args[2],
		ConfirmPassword: args[3],
	}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "登録しました。(%s)\n", a.auth.UserID())
	return nil
}

func (a *App) logout() error {
	if err := a.auth.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ログアウトしました。")
	return nil
}

func (a *App) whoami() error {
	session := a.auth.Session()
	if !session.Authenticated() {
		fmt.Fprintln(a.out, "ログインしていません。")
		return nil
	}
	name := ""
	if session.Profile != nil {
		name = session.Profile.Name
	}
	fmt.Fprintf(a.out, "%s (%s)\n", name, session.UserID)
	return nil
}

func (a *App) profile(ctx context.Context, args []string) error {
	userID := a.auth.UserID()
	if len(args) > 0 {
		userID = args[0]
	}
	if userID == "" {
		return usageError(CommandProfile)
	}

	s := screen.NewProfileScreen(a.auth, a.profiles, a.photos, a.assets)
	defer s.Close()
	if err := s.Enter(ctx, userID); err != nil {
		return err
	}

	v := s.View()
	fmt.Fprintf(a.out, "%s (%s)\n", v.Profile.Name, v.Profile.ID)
	if v.Profile.Bio != "" {
		fmt.Fprintln(a.out, v.Profile.Bio)
	}
	if v.AvatarURL != "" {
		fmt.Fprintln(a.out, v.AvatarURL)
	}
	fmt.Fprintln(a.out)
	a.printPhotos(v.Photos)
	return nil
}

func (a *App) search(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(CommandSearch)
	}

	s := screen.NewSearchScreen(a.auth, a.photos, a.reader, a.assets, a.logger)
	closeFn := s.Open(ctx)
	defer closeFn()

	if err := a.reader.Navigate(searchLocation(a.cfg.SearchParam, args[0])); err != nil {
		return err
	}
	if st := a.photos.LoadState(); st.Status == lifecycle.Failed {
		return errors.New(st.Error)
	}
	if s.NoResults() {
		fmt.Fprintf(a.out, "「%s」に一致する写真はありません。\n", s.Term())
		return nil
	}
	a.printPhotos(s.Results())
	return nil
}

// searchLocation は引数がURLであればそのまま、検索語であれば検索ページのURLを返す。
func searchLocation(param, arg string) string {
	if strings.Contains(arg, "?") || strings.Contains(arg, "://") {
		return arg
	}
	return "/search?" + url.Values{param: {arg}}.Encode()
}

func (a *App) photo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(CommandPhoto)
	}
	s := screen.NewPhotoScreen(a.auth, a.photos, a.assets)
	if err := s.Enter(ctx, args[0]); err != nil {
		return err
	}
	if v, ok := s.View(args[0]); ok {
		a.printPhotos([]screen.PhotoView{v})
	}
	return nil
}

func (a *App) publish(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError(CommandPublish)
	}
	s, err := a.ownProfile(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	image, err := readImage(args[1])
	if err != nil {
		return err
	}
	s.SetNewTitle(args[0])
	s.SetNewImage(image)
	if err := s.Publish(ctx); err != nil {
		return err
	}
	a.printMessage()
	return nil
}

func (a *App) update(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError(CommandUpdate)
	}
	s, err := a.ownProfile(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.BeginEdit(args[0]); err != nil {
		return err
	}
	s.SetEditTitle(args[1])
	if err := s.SubmitEdit(ctx); err != nil {
		return err
	}
	a.printMessage()
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(CommandDelete)
	}
	s, err := a.ownProfile(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(ctx, args[0]); err != nil {
		return err
	}
	a.printMessage()
	return nil
}

func (a *App) like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(CommandLike)
	}
	s := screen.NewPhotoScreen(a.auth, a.photos, a.assets)
	if err := s.Enter(ctx, args[0]); err != nil {
		return err
	}
	if err := s.Like(ctx, args[0]); err != nil {
		return err
	}
	a.printMessage()
	if v, ok := s.View(args[0]); ok {
		a.printPhotos([]screen.PhotoView{v})
	}
	return nil
}

// ownProfile はログイン中のユーザーのプロフィール画面を開く。
func (a *App) ownProfile(ctx context.Context) (*screen.ProfileScreen, error) {
	userID := a.auth.UserID()
	if userID == "" {
		return nil, model.NewAuthError("この操作にはログインが必要です。", nil)
	}
	s := screen.NewProfileScreen(a.auth, a.profiles, a.photos, a.assets)
	if err := s.Enter(ctx, userID); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// readImage は公開する画像ファイルを読み込む。Content-Typeは拡張子から推定する。
func readImage(path string) (model.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Image{}, fmt.Errorf("画像ファイルの読み込みに失敗しました: %w", err)
	}
	return model.Image{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func (a *App) printPhotos(photos []screen.PhotoView) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, p := range photos {
		liked := ""
		if p.Liked {
			liked = " ★"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\tいいね %d%s\t%s\n", p.ID, p.Title, p.OwnerName, p.Likes, liked, p.ImageURL)
	}
	tw.Flush()
}

func (a *App) printMessage() {
	if msg, ok := a.photos.Message(); ok {
		fmt.Fprintln(a.out, msg.Text)
	}
}

func usageError(cmd Command) error {
	for _, line := range strings.Split(usage, "\n") {
		line = strings.TrimSpace(line)
		if line == string(cmd) || strings.HasPrefix(line, string(cmd)+" ") {
			return fmt.Errorf("使い方: photoshare %s", line)
		}
	}
	return fmt.Errorf("使い方: photoshare %s", cmd)
}

// serveMetrics は/metricsエンドポイントをバックグラウンドで提供し、停止用の関数を返す。
func (a *App) serveMetrics(addr string) (shutdown func()) {
	handler := metrics.SetupMetricsRoute(a.registry,
		middleware.NewRecoveryMiddleware(a.logger),
		middleware.NewLoggingMiddleware(a.logger),
	)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("metrics server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Error("metrics server shutdown failed", slog.String("error", err.Error()))
		}
	}
}

// runHealthcheck はバックエンドに到達できるかを確認する。
// 5xxまたは接続エラーの場合にエラーを返す。
func runHealthcheck(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
