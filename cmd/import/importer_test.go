package main

import (
	"context"
	"errors"
	"testing"

	"bookhub/internal/book"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Source() book.Source { return book.SourceProviderB }

func (m *mockProvider) Search(ctx context.Context, filters book.Filters, page, maxPerPage int) (book.Page, error) {
	args := m.Called(ctx, filters, page, maxPerPage)
	return args.Get(0).(book.Page), args.Error(1)
}

func (m *mockProvider) GetByID(ctx context.Context, externalID string) (*book.Record, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*book.Record), args.Error(1)
}

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) Save(ctx context.Context, payload book.SavePayload) (book.Record, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(book.Record), args.Error(1)
}

func hit(id string) book.Record {
	return book.Record{Title: "t-" + id, OriginalSource: book.SourceProviderB, ExternalID: id}
}

func savedAs(id int64) book.Record {
	return book.Record{ID: &id, Title: "saved", OriginalSource: book.SourceProviderB, ExternalID: "x"}
}

func payload(id string) book.SavePayload {
	return book.SavePayload{Source: book.SourceProviderB, ExternalID: id}
}

func TestImporter_Run(t *testing.T) {
	filters := book.Filters{book.FilterCategory: "science fiction"}
	provider := new(mockProvider)
	saver := new(mockSaver)

	provider.On("Search", mock.Anything, filters, 1, 2).
		Return(book.NewPage(book.SourceProviderB, []book.Record{hit("OL1W"), hit("OL2W")}, 1, 2, 3), nil)
	provider.On("Search", mock.Anything, filters, 2, 2).
		Return(book.NewPage(book.SourceProviderB, []book.Record{hit("OL3W")}, 2, 2, 3), nil)

	saver.On("Save", mock.Anything, payload("OL1W")).Return(savedAs(1), nil)
	saver.On("Save", mock.Anything, payload("OL2W")).Return(book.Record{}, book.ErrNotFound)
	saver.On("Save", mock.Anything, payload("OL3W")).Return(book.Record{}, &book.SaveFailedError{Err: errors.New("boom")})

	res, err := NewImporter(provider, saver, nil).Run(context.Background(), Options{
		Filters:    filters,
		Pages:      5,
		MaxPerPage: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, Result{Seen: 3, Saved: 1, Skipped: 1, Failed: 1}, res)
	provider.AssertNumberOfCalls(t, "Search", 2)
	saver.AssertExpectations(t)
}

func TestImporter_DryRun(t *testing.T) {
	provider := new(mockProvider)
	saver := new(mockSaver)
	provider.On("Search", mock.Anything, mock.Anything, 1, 10).
		Return(book.NewPage(book.SourceProviderB, []book.Record{hit("OL1W")}, 1, 10, 1), nil)

	res, err := NewImporter(provider, saver, nil).Run(context.Background(), Options{
		Filters:    book.Filters{book.FilterTitle: "Dune"},
		Pages:      1,
		MaxPerPage: 10,
		DryRun:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Seen: 1, Skipped: 1}, res)
	saver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestImporter_SearchErrorAborts(t *testing.T) {
	provider := new(mockProvider)
	invalid := &book.InvalidFilterError{Source: book.SourceProviderB}
	provider.On("Search", mock.Anything, mock.Anything, 1, 10).Return(book.Page{}, invalid)

	_, err := NewImporter(provider, new(mockSaver), nil).Run(context.Background(), Options{Pages: 1, MaxPerPage: 10})
	assert.ErrorIs(t, err, invalid)
}
