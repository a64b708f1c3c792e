package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoryScanner/internal/domain"
)

type immediateDriver struct {
	started bool
	stopped bool
}

func (d *immediateDriver) Start(_ context.Context, job func(time.Time)) error {
	d.started = true
	job(time.Now())
	return nil
}

func (d *immediateDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestScheduler_RunsPipeline(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	pipeline := NewPipeline(PipelineDeps{
		Source: fakeSource{stories: []domain.Story{{ID: "a", URL: "https://a.com"}}},
		Store:  store,
	})
	driver := &immediateDriver{}
	s := NewScheduler(driver, pipeline, nil)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.True(t, driver.started)
	assert.True(t, driver.stopped)
	require.Len(t, store.saved, 1)
	assert.Len(t, store.saved[0].Articles, 1)
}

func TestScheduler_NilDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}

type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (b blockingSource) Collect(context.Context) ([]domain.Story, []domain.SourceError) {
	close(b.entered)
	<-b.release
	return []domain.Story{{ID: "a", URL: "https://a.com"}}, nil
}

func TestScheduler_RunNowRejectsOverlap(t *testing.T) {
	t.Parallel()

	src := blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	store := &memoryStore{}
	s := NewScheduler(nil, NewPipeline(PipelineDeps{Source: src, Store: store}), nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		done <- err
	}()
	<-src.entered

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(src.release)
	require.NoError(t, <-done)
	require.Len(t, store.saved, 1)

	payload, err := NewScheduler(nil, NewPipeline(PipelineDeps{Source: fakeSource{}}), nil).RunNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payload.Articles)
}
