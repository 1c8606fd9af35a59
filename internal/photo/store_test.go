package photo

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/photoshare/internal/lifecycle"
	"github.com/hitoshi/photoshare/internal/message"
	"github.com/hitoshi/photoshare/internal/model"
)

// --- モック ---

type mockPhotoAPI struct {
	listByOwnerFn  func(ctx context.Context, userID string) ([]model.Photo, error)
	listBySearchFn func(ctx context.Context, term string) ([]model.Photo, error)
	getOneFn       func(ctx context.Context, photoID string) (*model.Photo, error)
	createFn       func(ctx context.Context, title string, image model.Image) (*model.Photo, error)
	updateFn       func(ctx context.Context, photoID, title string) (*model.Photo, error)
	deleteFn       func(ctx context.Context, photoID string) error
	likeFn         func(ctx context.Context, photoID string, like bool) (*model.Photo, error)

	mu    sync.Mutex
	calls int
}

func (m *mockPhotoAPI) count() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockPhotoAPI) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockPhotoAPI) ListByOwner(ctx context.Context, userID string) ([]model.Photo, error) {
	m.count()
	return m.listByOwnerFn(ctx, userID)
}
func (m *mockPhotoAPI) ListBySearch(ctx context.Context, term string) ([]model.Photo, error) {
	m.count()
	return m.listBySearchFn(ctx, term)
}
func (m *mockPhotoAPI) GetOne(ctx context.Context, photoID string) (*model.Photo, error) {
	m.count()
	return m.getOneFn(ctx, photoID)
}
func (m *mockPhotoAPI) Create(ctx context.Context, title string, image model.Image) (*model.Photo, error) {
	m.count()
	return m.createFn(ctx, title, image)
}
func (m *mockPhotoAPI) Update(ctx context.Context, photoID, title string) (*model.Photo, error) {
	m.count()
	return m.updateFn(ctx, photoID, title)
}
func (m *mockPhotoAPI) Delete(ctx context.Context, photoID string) error {
	m.count()
	return m.deleteFn(ctx, photoID)
}
func (m *mockPhotoAPI) Like(ctx context.Context, photoID string, like bool) (*model.Photo, error) {
	m.count()
	return m.likeFn(ctx, photoID, like)
}

const testDelay = 2 * time.Second

func newTestStore(api *mockPhotoAPI) (*Store, *message.ManualClock) {
	clock := message.NewManualClock()
	var buf bytes.Buffer
	s := NewStore(api, slog.New(slog.NewJSONHandler(&buf, nil)), StoreConfig{
		Clock:      clock,
		ClearDelay: testDelay,
	})
	return s, clock
}

func ownerPhotos(ids ...string) []model.Photo {
	photos := make([]model.Photo, 0, len(ids))
	for _, id := range ids {
		photos = append(photos, model.Photo{ID: id, Title: "title-" + id, OwnerID: "u1", Likes: model.NewLikes()})
	}
	return photos
}

// seeded はユーザーu1の一覧を読み込み済みのストアを返す。
func seeded(t *testing.T, api *mockPhotoAPI, photos []model.Photo) (*Store, *message.ManualClock) {
	t.Helper()
	api.listByOwnerFn = func(ctx context.Context, userID string) ([]model.Photo, error) {
		return photos, nil
	}
	s, clock := newTestStore(api)
	require.NoError(t, s.LoadByOwner(context.Background(), "u1"))
	return s, clock
}

func ids(photos []model.Photo) []string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.ID
	}
	return out
}

// --- 読み込み ---

func TestStore_LoadByOwner_ReplacesCollectionAndScope(t *testing.T) {
	api := &mockPhotoAPI{
		listByOwnerFn: func(ctx context.Context, userID string) ([]model.Photo, error) {
			if userID == "u1" {
				return ownerPhotos("1", "2"), nil
			}
			return []model.Photo{{ID: "9", OwnerID: userID}}, nil
		},
	}
	s, _ := newTestStore(api)

	require.NoError(t, s.LoadByOwner(context.Background(), "u1"))
	assert.Equal(t, []string{"1", "2"}, ids(s.Photos()))
	assert.Equal(t, Scope{Kind: ScopeOwner, Key: "u1"}, s.Scope())
	assert.Equal(t, lifecycle.Succeeded, s.LoadState().Status)

	require.NoError(t, s.LoadByOwner(context.Background(), "u2"))
	assert.Equal(t, []string{"9"}, ids(s.Photos()), "スコープの切り替えでマージしてはならない")
	assert.Equal(t, Scope{Kind: ScopeOwner, Key: "u2"}, s.Scope())
}

func TestStore_LoadByOwner_StaleResponseDiscarded(t *testing.T) {
	startedA := make(chan struct{})
	releaseA := make(chan struct{})
	api := &mockPhotoAPI{
		listByOwnerFn: func(ctx context.Context, userID string) ([]model.Photo, error) {
			if userID == "a" {
				close(startedA)
				<-releaseA
				return []model.Photo{{ID: "a1", OwnerID: "a"}}, nil
			}
			return []model.Photo{{ID: "b1", OwnerID: "b"}}, nil
		},
	}
	s, _ := newTestStore(api)

	done := make(chan error, 1)
	go func() { done <- s.LoadByOwner(context.Background(), "a") }()
	<-startedA

	require.NoError(t, s.LoadByOwner(context.Background(), "b"))
	close(releaseA)

	assert.ErrorIs(t, <-done, model.ErrSuperseded)
	assert.Equal(t, []string{"b1"}, ids(s.Photos()))
	assert.Equal(t, Scope{Kind: ScopeOwner, Key: "b"}, s.Scope())
	assert.Equal(t, lifecycle.Succeeded, s.LoadState().Status)
}

func TestStore_LoadByOwner_StaleFailureDiscarded(t *testing.T) {
	startedA := make(chan struct{})
	releaseA := make(chan struct{})
	api := &mockPhotoAPI{
		listByOwnerFn: func(ctx context.Context, userID string) ([]model.Photo, error) {
			if userID == "a" {
				close(startedA)
				<-releaseA
				return nil, model.NewNetworkError(errors.New("timeout"))
			}
			return []model.Photo{{ID: "b1", OwnerID: "b"}}, nil
		},
	}
	s, _ := newTestStore(api)

	done := make(chan error, 1)
	go func() { done <- s.LoadByOwner(context.Background(), "a") }()
	<-startedA
	require.NoError(t, s.LoadByOwner(context.Background(), "b"))
	close(releaseA)

	assert.ErrorIs(t, <-done, model.ErrSuperseded)
	assert.Equal(t, lifecycle.Succeeded, s.LoadState().Status)
	_, ok := s.Message()
	assert.False(t, ok)
}

func TestStore_LoadBySearch_SameKeyLastIssuedWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var n int
	var mu sync.Mutex
	api := &mockPhotoAPI{
		listBySearchFn: func(ctx context.Context, term string) ([]model.Photo, error) {
			mu.Lock()
			n++
			first := n == 1
			mu.Unlock()
			if first {
				close(started)
				<-release
				return []model.Photo{{ID: "old"}}, nil
			}
			return []model.Photo{{ID: "new"}}, nil
		},
	}
	s, _ := newTestStore(api)

	done := make(chan error, 1)
	go func() { done <- s.LoadBySearch(context.Background(), "sea") }()
	<-started
	require.NoError(t, s.LoadBySearch(context.Background(), "sea"))
	close(release)

	assert.ErrorIs(t, <-done, model.ErrSuperseded)
	assert.Equal(t, []string{"new"}, ids(s.Photos()))
}

func TestStore_LoadOne(t *testing.T) {
	api := &mockPhotoAPI{
		getOneFn: func(ctx context.Context, photoID string) (*model.Photo, error) {
			return &model.Photo{ID: photoID, Title: "detail"}, nil
		},
	}
	s, _ := newTestStore(api)

	require.NoError(t, s.LoadOne(context.Background(), "42"))
	assert.Equal(t, []string{"42"}, ids(s.Photos()))
	assert.Equal(t, Scope{Kind: ScopeSingle, Key: "42"}, s.Scope())
}

func TestStore_Load_FailureEmptiesCollection(t *testing.T) {
	fail := false
	api := &mockPhotoAPI{
		listByOwnerFn: func(ctx context.Context, userID string) ([]model.Photo, error) {
			if fail {
				return nil, model.NewUserNotFoundError(userID)
			}
			return ownerPhotos("1"), nil
		},
	}
	s, clock := newTestStore(api)
	require.NoError(t, s.LoadByOwner(context.Background(), "u1"))

	fail = true
	err := s.LoadByOwner(context.Background(), "ghost")
	assert.True(t, model.IsKind(err, model.KindNotFound))
	assert.Empty(t, s.Photos())
	assert.Equal(t, Scope{Kind: ScopeOwner, Key: "ghost"}, s.Scope())
	assert.Equal(t, lifecycle.Failed, s.LoadState().Status)

	msg, ok := s.Message()
	require.True(t, ok)
	assert.Equal(t, message.Error, msg.Kind)
	clock.Advance(testDelay + time.Millisecond)
	_, ok = s.Message()
	assert.False(t, ok)
}

func TestStore_Load_DeduplicatesIDs(t *testing.T) {
	api := &mockPhotoAPI{
		listBySearchFn: func(ctx context.Context, term string) ([]model.Photo, error) {
			return []model.Photo{{ID: "1", Title: "first"}, {ID: "2"}, {ID: "1", Title: "dup"}}, nil
		},
	}
	s, _ := newTestStore(api)

	require.NoError(t, s.LoadBySearch(context.Background(), "x"))
	photos := s.Photos()
	assert.Equal(t, []string{"1", "2"}, ids(photos))
	assert.Equal(t, "first", photos[0].Title)
}

func TestStore_Load_NotifiesReplacedIDs(t *testing.T) {
	fail := false
	api := &mockPhotoAPI{
		listByOwnerFn: func(ctx context.Context, userID string) ([]model.Photo, error) {
			if fail {
				return nil, model.NewNetworkError(errors.New("offline"))
			}
			return ownerPhotos("1", "2", "1"), nil
		},
		listBySearchFn: func(ctx context.Context, term string) ([]model.Photo, error) {
			return ownerPhotos("9"), nil
		},
	}
	s, _ := newTestStore(api)

	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, s.LoadByOwner(context.Background(), "u1"))
	require.NoError(t, s.LoadBySearch(context.Background(), "forest"))
	fail = true
	require.Error(t, s.LoadByOwner(context.Background(), "u1"))

	require.Len(t, events, 3)
	assert.Equal(t, Event{Kind: EventReplaced, PhotoIDs: []string{"1", "2"}}, events[0])
	assert.Equal(t, Event{Kind: EventReplaced, PhotoIDs: []string{"9"}}, events[1])
	assert.Equal(t, EventReplaced, events[2].Kind)
	assert.Empty(t, events[2].PhotoIDs, "失敗時は空のコレクションとして通知する")
}

func TestStore_Load_StaleResponseNotNotified(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &mockPhotoAPI{
		listByOwnerFn: func(ctx context.Context, userID string) ([]model.Photo, error) {
			if userID == "slow" {
				close(started)
				<-release
			}
			return ownerPhotos(userID), nil
		},
	}
	s, _ := newTestStore(api)

	var mu sync.Mutex
	var events []Event
	s.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	done := make(chan error, 1)
	go func() { done <- s.LoadByOwner(context.Background(), "slow") }()
	<-started
	require.NoError(t, s.LoadByOwner(context.Background(), "fast"))
	close(release)
	assert.ErrorIs(t, <-done, model.ErrSuperseded)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, []string{"fast"}, events[0].PhotoIDs)
}

// --- 公開 ---

func TestStore_Publish_EmptyTitleSkipsNetwork(t *testing.T) {
	api := &mockPhotoAPI{}
	s, _ := newTestStore(api)

	_, err := s.Publish(context.Background(), "   ", model.Image{Data: []byte("x")})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.KindValidation, apiErr.Kind)
	assert.Equal(t, model.ErrCodeTitleRequired, apiErr.Code)
	assert.Equal(t, 0, api.Calls(), "検証エラーでは通信してはならない")
	assert.Equal(t, lifecycle.Failed, s.MutationState().Status)

	msg, ok := s.Message()
	require.True(t, ok)
	assert.Equal(t, message.Error, msg.Kind)
}

func TestStore_Publish_EmptyImageSkipsNetwork(t *testing.T) {
	api := &mockPhotoAPI{}
	s, _ := newTestStore(api)

	_, err := s.Publish(context.Background(), "夕焼け", model.Image{})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.ErrCodeImageRequired, apiErr.Code)
	assert.Equal(t, 0, api.Calls())
}

func TestStore_Publish_AppendsWhenScopeMatchesOwner(t *testing.T) {
	api := &mockPhotoAPI{
		createFn: func(ctx context.Context, title string, image model.Image) (*model.Photo, error) {
			return &model.Photo{ID: "3", Title: title, OwnerID: "u1"}, nil
		},
	}
	s, clock := seeded(t, api, ownerPhotos("1", "2"))

	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	p, err := s.Publish(context.Background(), " 夕焼け ", model.Image{Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "夕焼け", p.Title)
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Photos()))
	assert.Equal(t, lifecycle.Succeeded, s.MutationState().Status)

	require.Len(t, events, 1)
	assert.Equal(t, EventPublished, events[0].Kind)
	assert.Equal(t, "3", events[0].PhotoID)

	msg, ok := s.Message()
	require.True(t, ok)
	assert.Equal(t, message.Success, msg.Kind)

	clock.Advance(testDelay - time.Millisecond)
	_, ok = s.Message()
	assert.True(t, ok)
	clock.Advance(2 * time.Millisecond)
	_, ok = s.Message()
	assert.False(t, ok)
}

func TestStore_Publish_DifferentScopeUntouched(t *testing.T) {
	api := &mockPhotoAPI{
		createFn: func(ctx context.Context, title string, image model.Image) (*model.Photo, error) {
			return &model.Photo{ID: "3", Title: title, OwnerID: "me"}, nil
		},
	}
	s, _ := seeded(t, api, ownerPhotos("1"))

	_, err := s.Publish(context.Background(), "t", model.Image{Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(s.Photos()))
}

func TestStore_Publish_Failure(t *testing.T) {
	api := &mockPhotoAPI{
		createFn: func(ctx context.Context, title string, image model.Image) (*model.Photo, error) {
			return nil, model.NewNetworkError(errors.New("reset"))
		},
	}
	s, _ := seeded(t, api, ownerPhotos("1"))

	_, err := s.Publish(context.Background(), "t", model.Image{Data: []byte("png")})
	assert.True(t, model.IsKind(err, model.KindNetwork))
	assert.Equal(t, []string{"1"}, ids(s.Photos()))
	assert.Equal(t, lifecycle.Failed, s.MutationState().Status)
	assert.False(t, s.Pending(OpPublish, ""))
}

// --- 更新 ---

func TestStore_Update_ReplacesTitleInPlace(t *testing.T) {
	photos := ownerPhotos("1", "7", "9")
	photos[1].Likes = model.NewLikes("u2", "u3")
	api := &mockPhotoAPI{
		updateFn: func(ctx context.Context, photoID, title string) (*model.Photo, error) {
			return &model.Photo{ID: photoID, Title: title}, nil
		},
	}
	s, _ := seeded(t, api, photos)

	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, s.Update(context.Background(), "7", "New Title"))

	got := s.Photos()
	assert.Equal(t, []string{"1", "7", "9"}, ids(got))
	assert.Equal(t, "New Title", got[1].Title)
	assert.Equal(t, 2, got[1].LikeCount(), "いいねは保持される")
	require.Len(t, events, 1)
	assert.Equal(t, EventUpdated, events[0].Kind)
	assert.Equal(t, "7", events[0].PhotoID)
}

func TestStore_Update_NetworkFailureKeepsTitle(t *testing.T) {
	api := &mockPhotoAPI{
		updateFn: func(ctx context.Context, photoID, title string) (*model.Photo, error) {
			return nil, model.NewNetworkError(errors.New("offline"))
		},
	}
	s, _ := seeded(t, api, ownerPhotos("7"))

	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	err := s.Update(context.Background(), "7", "New Title")
	assert.True(t, model.IsKind(err, model.KindNetwork))

	p, ok := s.Photo("7")
	require.True(t, ok)
	assert.Equal(t, "title-7", p.Title)
	assert.Equal(t, lifecycle.Failed, s.MutationState().Status)
	assert.Empty(t, events, "失敗時はイベントを通知しない")
}

func TestStore_Update_AbsentPhotoIsNotFound(t *testing.T) {
	api := &mockPhotoAPI{}
	s, _ := seeded(t, api, ownerPhotos("1"))
	before := api.Calls()

	err := s.Update(context.Background(), "404", "x")
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.KindNotFound, apiErr.Kind)
	assert.Equal(t, before, api.Calls())
}

// --- 削除 ---

func TestStore_Delete_RemovesAndNotifies(t *testing.T) {
	api := &mockPhotoAPI{deleteFn: func(ctx context.Context, photoID string) error { return nil }}
	s, _ := seeded(t, api, ownerPhotos("1", "2", "3"))

	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, s.Delete(context.Background(), "2"))
	assert.Equal(t, []string{"1", "3"}, ids(s.Photos()))
	require.Len(t, events, 1)
	assert.Equal(t, Event{Kind: EventDeleted, PhotoID: "2"}, events[0])
}

func TestStore_Delete_AbsentPhotoIsConflict(t *testing.T) {
	api := &mockPhotoAPI{}
	s, _ := seeded(t, api, ownerPhotos("1"))
	before := api.Calls()

	err := s.Delete(context.Background(), "2")
	assert.True(t, model.IsKind(err, model.KindConflict))
	assert.Equal(t, before, api.Calls())
}

func TestStore_Delete_ServerNotFoundStillRemoves(t *testing.T) {
	api := &mockPhotoAPI{deleteFn: func(ctx context.Context, photoID string) error {
		return model.NewPhotoNotFoundError(photoID)
	}}
	s, _ := seeded(t, api, ownerPhotos("1", "2"))

	var deleted []string
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventDeleted {
			deleted = append(deleted, ev.PhotoID)
		}
	})

	err := s.Delete(context.Background(), "2")
	assert.True(t, model.IsKind(err, model.KindConflict))
	assert.Equal(t, []string{"1"}, ids(s.Photos()))
	assert.Equal(t, []string{"2"}, deleted)
}

func TestStore_Delete_NetworkFailureKeepsPhoto(t *testing.T) {
	api := &mockPhotoAPI{deleteFn: func(ctx context.Context, photoID string) error {
		return model.NewNetworkError(errors.New("offline"))
	}}
	s, _ := seeded(t, api, ownerPhotos("1", "2"))

	err := s.Delete(context.Background(), "2")
	assert.True(t, model.IsKind(err, model.KindNetwork))
	assert.Equal(t, []string{"1", "2"}, ids(s.Photos()))
}

// --- いいね ---

func likeAPI() *mockPhotoAPI {
	return &mockPhotoAPI{likeFn: func(ctx context.Context, photoID string, like bool) (*model.Photo, error) {
		return nil, nil
	}}
}

func TestStore_ToggleLike_Scenario(t *testing.T) {
	api := likeAPI()
	s, _ := seeded(t, api, []model.Photo{{ID: "1", Title: "A", OwnerID: "u1", Likes: model.NewLikes()}})

	require.NoError(t, s.ToggleLike(context.Background(), "1", "u1"))
	p, _ := s.Photo("1")
	assert.Equal(t, model.NewLikes("u1"), p.Likes)

	require.NoError(t, s.ToggleLike(context.Background(), "1", "u1"))
	p, _ = s.Photo("1")
	assert.Equal(t, model.NewLikes(), p.Likes)
}

func TestStore_ToggleLike_IsInvolution(t *testing.T) {
	for _, initial := range []map[string]struct{}{
		model.NewLikes(),
		model.NewLikes("u1"),
		model.NewLikes("u2", "u3"),
		model.NewLikes("u1", "u2"),
	} {
		api := likeAPI()
		s, _ := seeded(t, api, []model.Photo{{ID: "1", OwnerID: "u1", Likes: initial}})

		require.NoError(t, s.ToggleLike(context.Background(), "1", "u1"))
		require.NoError(t, s.ToggleLike(context.Background(), "1", "u1"))

		p, _ := s.Photo("1")
		assert.Equal(t, initial, p.Likes)
	}
}

func TestStore_ToggleLike_SendsExplicitDirection(t *testing.T) {
	var directions []bool
	api := &mockPhotoAPI{likeFn: func(ctx context.Context, photoID string, like bool) (*model.Photo, error) {
		directions = append(directions, like)
		return nil, nil
	}}
	photos := ownerPhotos("1")
	photos[0].Likes = model.NewLikes("u1")
	s, _ := seeded(t, api, photos)

	require.NoError(t, s.ToggleLike(context.Background(), "1", "u1"))
	require.NoError(t, s.ToggleLike(context.Background(), "1", "u1"))
	assert.Equal(t, []bool{false, true}, directions)
}

func TestStore_ToggleLike_AdoptsServerLikes(t *testing.T) {
	api := &mockPhotoAPI{likeFn: func(ctx context.Context, photoID string, like bool) (*model.Photo, error) {
		// 他のユーザーのいいねも反映された状態が返る
		return &model.Photo{ID: photoID, Likes: model.NewLikes("u1", "u3", "u4")}, nil
	}}
	photos := ownerPhotos("1")
	photos[0].Likes = model.NewLikes("u2")
	s, _ := seeded(t, api, photos)

	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, s.ToggleLike(context.Background(), "1", "u1"))
	p, _ := s.Photo("1")
	assert.Equal(t, model.NewLikes("u1", "u3", "u4"), p.Likes)
	assert.Equal(t, "title-1", p.Title, "likes以外は変更しない")
	require.Len(t, events, 1)
	assert.Equal(t, model.NewLikes("u1", "u3", "u4"), events[0].Photo.Likes)
}

func TestStore_ToggleLike_FailureLeavesLikesUntouched(t *testing.T) {
	api := &mockPhotoAPI{likeFn: func(ctx context.Context, photoID string, like bool) (*model.Photo, error) {
		return nil, model.NewNetworkError(errors.New("offline"))
	}}
	photos := ownerPhotos("1")
	photos[0].Likes = model.NewLikes("u2")
	s, _ := seeded(t, api, photos)

	err := s.ToggleLike(context.Background(), "1", "u1")
	assert.True(t, model.IsKind(err, model.KindNetwork))
	p, _ := s.Photo("1")
	assert.Equal(t, model.NewLikes("u2"), p.Likes)
	assert.Equal(t, lifecycle.Failed, s.MutationState().Status)
}

func TestStore_ToggleLike_RequiresUser(t *testing.T) {
	api := likeAPI()
	s, _ := seeded(t, api, ownerPhotos("1"))
	before := api.Calls()

	err := s.ToggleLike(context.Background(), "1", "")
	assert.True(t, model.IsKind(err, model.KindAuth))
	assert.Equal(t, before, api.Calls())
}

func TestStore_ToggleLike_AbsentPhotoIsConflict(t *testing.T) {
	api := likeAPI()
	s, _ := seeded(t, api, ownerPhotos("1"))

	err := s.ToggleLike(context.Background(), "x", "u1")
	assert.True(t, model.IsKind(err, model.KindConflict))
}

// --- 重複送信とメッセージ ---

func TestStore_DuplicateMutationRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &mockPhotoAPI{deleteFn: func(ctx context.Context, photoID string) error {
		close(started)
		<-release
		return nil
	}}
	s, _ := seeded(t, api, ownerPhotos("1", "2"))
	before := api.Calls()

	done := make(chan error, 1)
	go func() { done <- s.Delete(context.Background(), "1") }()
	<-started

	assert.True(t, s.Pending(OpDelete, "1"))
	assert.False(t, s.Pending(OpDelete, "2"))
	assert.True(t, s.MutationState().Loading())
	assert.ErrorIs(t, s.Delete(context.Background(), "1"), model.ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, before+1, api.Calls(), "2回目の削除は送信されない")
	assert.False(t, s.Pending(OpDelete, "1"))
}

func TestStore_MessagesShareOneChannel(t *testing.T) {
	api := &mockPhotoAPI{
		deleteFn: func(ctx context.Context, photoID string) error { return nil },
		likeFn: func(ctx context.Context, photoID string, like bool) (*model.Photo, error) {
			return nil, nil
		},
	}
	s, clock := seeded(t, api, ownerPhotos("1", "2"))

	require.NoError(t, s.Delete(context.Background(), "1"))
	clock.Advance(testDelay / 2)
	require.NoError(t, s.ToggleLike(context.Background(), "2", "u9"))

	msg, ok := s.Message()
	require.True(t, ok)
	assert.Equal(t, "いいねしました。", msg.Text, "最後の操作のメッセージだけが表示される")

	// 最初のタイマーは置き換えられているので、最初の期限では消えない
	clock.Advance(testDelay/2 + time.Millisecond)
	_, ok = s.Message()
	assert.True(t, ok)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(testDelay / 2)
	_, ok = s.Message()
	assert.False(t, ok)
}

func TestStore_Unsubscribe(t *testing.T) {
	api := &mockPhotoAPI{deleteFn: func(ctx context.Context, photoID string) error { return nil }}
	s, _ := seeded(t, api, ownerPhotos("1", "2"))

	count := 0
	unsubscribe := s.Subscribe(func(Event) { count++ })
	require.NoError(t, s.Delete(context.Background(), "1"))
	unsubscribe()
	require.NoError(t, s.Delete(context.Background(), "2"))

	assert.Equal(t, 1, count)
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	api := &mockPhotoAPI{}
	photos := ownerPhotos("1")
	photos[0].Likes = model.NewLikes("u1")
	s, _ := seeded(t, api, photos)

	snap := s.Photos()
	snap[0].Title = "mutated"
	delete(snap[0].Likes, "u1")

	p, _ := s.Photo("1")
	assert.Equal(t, "title-1", p.Title)
	assert.True(t, p.LikedBy("u1"))
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "none", Scope{}.String())
	assert.Equal(t, "owner:u1", Scope{Kind: ScopeOwner, Key: "u1"}.String())
	assert.Equal(t, "search:sea", Scope{Kind: ScopeSearch, Key: "sea"}.String())
	assert.Equal(t, "single:7", Scope{Kind: ScopeSingle, Key: "7"}.String())
}
