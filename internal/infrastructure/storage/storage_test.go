package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoryScanner/internal/domain"
)

func samplePayload(at time.Time, titles ...string) domain.Payload {
	articles := make([]domain.Story, 0, len(titles))
	for _, title := range titles {
		articles = append(articles, domain.Story{
			ID:    title,
			Type:  domain.TypeStory,
			Title: title,
			URL:   "https://example.com/" + title,
			Tags:  []string{"AI"},
		})
	}
	if len(articles) > 0 {
		articles[0].Stories = []domain.Story{{ID: titles[0] + "-n", Type: domain.TypeStory, Title: "nested"}}
	}
	return domain.NewPayload(at, articles)
}

func TestFileStore_SaveAndLatest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "payload.json")
	store := NewFileStore(path)
	assert.Equal(t, path, store.Path())

	_, err := store.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoPayload)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(context.Background(), samplePayload(at, "a", "b")))

	got, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, got.LastUpdated)
	require.Len(t, got.Articles, 2)
	assert.Equal(t, "a", got.Articles[0].Title)
	require.Len(t, got.Articles[0].Stories, 1)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "last_updated")
	assert.Contains(t, doc, "articles")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_SaveReplaces(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "payload.json"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, samplePayload(time.Unix(1, 0), "old")))
	require.NoError(t, store.Save(ctx, samplePayload(time.Unix(2, 0), "new")))

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, got.Articles, 1)
	assert.Equal(t, "new", got.Articles[0].Title)
}

func TestFileStore_EmptyPayloadKeepsList(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(context.Background(), domain.NewPayload(time.Unix(0, 0), nil)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"articles": []`)
}

func TestFileStore_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewFileStore(filepath.Join(t.TempDir(), "payload.json"))
	assert.ErrorIs(t, store.Save(ctx, samplePayload(time.Now())), context.Canceled)
}

func openSQLite(t *testing.T, retain int) *SnapshotRepository {
	t.Helper()
	repo, err := Open(context.Background(), DriverSQLite, ":memory:", retain)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSnapshotRepository_LatestEmpty(t *testing.T) {
	t.Parallel()

	repo := openSQLite(t, 0)
	_, err := repo.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoPayload)
}

func TestSnapshotRepository_SaveLatestHistory(t *testing.T) {
	t.Parallel()

	repo := openSQLite(t, 2)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, samplePayload(base, "first")))
	require.NoError(t, repo.Save(ctx, samplePayload(base.Add(time.Hour), "second", "extra")))
	require.NoError(t, repo.Save(ctx, samplePayload(base.Add(2*time.Hour), "third")))

	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, got.Articles, 1)
	assert.Equal(t, "third", got.Articles[0].Title)
	assert.Equal(t, base.Add(2*time.Hour), got.LastUpdated)

	history, err := repo.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2, "older snapshots are pruned")
	assert.Equal(t, base.Add(2*time.Hour), history[0].LastUpdated)
	assert.Equal(t, 1, history[0].Articles)
	assert.Equal(t, 1, history[0].Stories)
	assert.Equal(t, 2, history[1].Articles)
	assert.NotEmpty(t, history[0].ID)
}

func TestSnapshotRepository_RetainZeroKeepsAll(t *testing.T) {
	t.Parallel()

	repo := openSQLite(t, 0)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Save(ctx, samplePayload(time.Unix(int64(i), 0), "x")))
	}

	history, err := repo.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "dsn", 1)
	assert.Error(t, err)
}

type stubStore struct {
	payload domain.Payload
	err     error
	saved   int
}

func (s *stubStore) Save(context.Context, domain.Payload) error {
	s.saved++
	return s.err
}

func (s *stubStore) Latest(context.Context) (domain.Payload, error) {
	return s.payload, s.err
}

func TestFanoutStore_Save(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := &stubStore{err: boom}
	ok := &stubStore{}

	fan := NewFanoutStore(failing, nil, ok)
	err := fan.Save(context.Background(), samplePayload(time.Now(), "a"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, failing.saved)
	assert.Equal(t, 1, ok.saved, "a failing store must not block the rest")
}

func TestFanoutStore_Latest(t *testing.T) {
	t.Parallel()

	want := samplePayload(time.Unix(10, 0), "hit")
	empty := &stubStore{err: domain.ErrNoPayload}
	hit := &stubStore{payload: want}

	got, err := NewFanoutStore(empty, hit).Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = NewFanoutStore(empty).Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoPayload)

	boom := errors.New("disk")
	_, err = NewFanoutStore(&stubStore{err: boom}, empty).Latest(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = NewFanoutStore().Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoPayload)
}

func TestFanoutStore_FileAndSQL(t *testing.T) {
	t.Parallel()

	file := NewFileStore(filepath.Join(t.TempDir(), "payload.json"))
	repo := openSQLite(t, 5)
	fan := NewFanoutStore(file, repo)

	ctx := context.Background()
	require.NoError(t, fan.Save(ctx, samplePayload(time.Unix(100, 0), "both")))

	fromFile, err := file.Latest(ctx)
	require.NoError(t, err)
	fromSQL, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, fromFile.Articles[0].URL, fromSQL.Articles[0].URL)
}
