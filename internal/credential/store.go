// Package credential はセッショントークンの永続化を提供する。
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"

	"github.com/hitoshi/photoshare/internal/backend"
)

// fileFormat は認証情報ファイルのJSON形式。
type fileFormat struct {
	Token string `json:"token"`
}

// FileStore はJSONファイルにトークンを保存するCredentialStore。
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore はFileStoreを生成する。ファイルは最初の保存時に作成される。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path は保存先のファイルパスを返す。
func (s *FileStore) Path() string {
	return s.path
}

// PersistToken はトークンをファイルに書き込む。
// ディレクトリは0700、ファイルは0600で作成する。
func (s *FileStore) PersistToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("認証情報ディレクトリの作成に失敗しました: %w", err)
	}
	data, err := json.Marshal(fileFormat{Token: token})
	if err != nil {
		return fmt.Errorf("認証情報のエンコードに失敗しました: %w", err)
	}

	// 書き込み途中のファイルを読まないよう、一時ファイルからリネームする
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("認証情報の書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("認証情報の書き込みに失敗しました: %w", err)
	}
	return nil
}

// ClearToken は認証情報ファイルを削除する。ファイルがない場合は何もしない。
func (s *FileStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("認証情報の削除に失敗しました: %w", err)
	}
	return nil
}

// ReadToken は保存済みトークンを返す。
// ファイルがない場合は空文字列、内容が壊れている場合はエラーを返す。
func (s *FileStore) ReadToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("認証情報の読み取りに失敗しました: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("認証情報の形式が不正です: %w", err)
	}
	return f.Token, nil
}

// MemoryStore はメモリ上にトークンを保持するCredentialStore。
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// PersistToken はトークンを保持する。
func (s *MemoryStore) PersistToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// ClearToken は保持しているトークンを破棄する。
func (s *MemoryStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// ReadToken は保持しているトークンを返す。
func (s *MemoryStore) ReadToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// storeTokenSource はCredentialStoreをoauth2.TokenSourceとして公開する。
type storeTokenSource struct {
	store backend.CredentialStore
}

// TokenSource は保存済みトークンをBearerトークンとして返すTokenSourceを生成する。
// トークンが未保存の場合はAccessTokenが空のトークンを返し、Valid()はfalseになる。
// 毎回ストアから読み直すため、ログイン・ログアウトは次のリクエストから反映される。
func TokenSource(store backend.CredentialStore) oauth2.TokenSource {
	return storeTokenSource{store: store}
}

// Token は保存済みトークンを読み取る。
func (ts storeTokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.store.ReadToken()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

var (
	_ backend.CredentialStore = (*FileStore)(nil)
	_ backend.CredentialStore = (*MemoryStore)(nil)
)
