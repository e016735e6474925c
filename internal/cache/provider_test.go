package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookhub/internal/book"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func sampleRecord() *book.Record {
	return &book.Record{
		Title:          "Dune",
		OriginalSource: book.SourceProviderA,
		ExternalID:     "abc123",
		Authors:        []string{"Frank Herbert"},
		Categories:     []string{"Fiction"},
	}
}

func TestProviderCache_GetByID_MissThenHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := book.NewMockProvider(ctrl)
	next.EXPECT().Source().Return(book.SourceProviderA).AnyTimes()
	next.EXPECT().GetByID(gomock.Any(), "abc123").Return(sampleRecord(), nil).Times(1)

	store := newMemStore()
	c := NewProviderCache(next, store, 10*time.Minute, nil)

	first, err := c.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, first)

	key := Key(book.SourceProviderA, "abc123")
	assert.Equal(t, "bookhub:provider:PROVIDER_A:abc123", key)
	assert.Contains(t, store.data, key)
	assert.Equal(t, 10*time.Minute, store.ttls[key])

	second, err := c.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProviderCache_GetByID_NotFoundIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := book.NewMockProvider(ctrl)
	next.EXPECT().Source().Return(book.SourceProviderB).AnyTimes()
	next.EXPECT().GetByID(gomock.Any(), "OL1W").Return(nil, nil).Times(2)

	store := newMemStore()
	c := NewProviderCache(next, store, 0, nil)

	for i := 0; i < 2; i++ {
		rec, err := c.GetByID(context.Background(), "OL1W")
		require.NoError(t, err)
		assert.Nil(t, rec)
	}
	assert.Empty(t, store.data)
}

func TestProviderCache_StoreFailuresFallThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := book.NewMockProvider(ctrl)
	next.EXPECT().Source().Return(book.SourceProviderA).AnyTimes()
	next.EXPECT().GetByID(gomock.Any(), "abc123").Return(sampleRecord(), nil)

	store := newMemStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	c := NewProviderCache(next, store, time.Minute, nil)

	rec, err := c.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Dune", rec.Title)
}

func TestProviderCache_CorruptEntryIsRefetched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	next := book.NewMockProvider(ctrl)
	next.EXPECT().Source().Return(book.SourceProviderA).AnyTimes()
	next.EXPECT().GetByID(gomock.Any(), "abc123").Return(sampleRecord(), nil)

	store := newMemStore()
	store.data[Key(book.SourceProviderA, "abc123")] = []byte("{not json")
	c := NewProviderCache(next, store, time.Minute, nil)

	rec, err := c.GetByID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", rec.ExternalID)
}

func TestProviderCache_SearchPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	filters := book.Filters{book.FilterTitle: "Dune"}
	want := book.NewPage(book.SourceProviderA, nil, 1, 10, 0)

	next := book.NewMockProvider(ctrl)
	next.EXPECT().Source().Return(book.SourceProviderA).AnyTimes()
	next.EXPECT().Search(gomock.Any(), filters, 1, 10).Return(want, nil)

	c := NewProviderCache(next, newMemStore(), time.Minute, nil)
	got, err := c.Search(context.Background(), filters, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, book.SourceProviderA, c.Source())
}
