package session

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/askbot/core/provider"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresProvider(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectProviderSQL)).
		WithArgs("U1").
		WillReturnRows(sqlmock.NewRows([]string{"selected_provider"}).AddRow("chatgpt"))

	id, ok, err := store.Provider(context.Background(), "U1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, provider.ChatGPT, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProviderMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectProviderSQL)).
		WithArgs("U404").
		WillReturnRows(sqlmock.NewRows([]string{"selected_provider"}))

	_, ok, err := store.Provider(context.Background(), "U404")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetProviderUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(upsertProviderSQL)).
		WithArgs("U1", "gemini").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SetProvider(context.Background(), "U1", provider.Gemini))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresErrorsAreWrapped(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(upsertProviderSQL)).WillReturnError(boom)
	mock.ExpectQuery(regexp.QuoteMeta(selectProviderSQL)).WillReturnError(boom)

	assert.ErrorIs(t, store.SetProvider(context.Background(), "U1", provider.Gemini), boom)
	_, _, err := store.Provider(context.Background(), "U1")
	assert.ErrorIs(t, err, boom)
}
