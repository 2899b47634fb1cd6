package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/search-service/pkg/database"
	apperrors "github.com/velora/search-service/pkg/errors"
)

func newBehaviorMock(t *testing.T) (pgxmock.PgxPoolIface, *BehaviorRepository) {
	t.Helper()

	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewBehaviorRepository(mock)
}

func TestBehaviorRepository_CategoryStats_AggregatesSignals(t *testing.T) {
	mock, repo := newBehaviorMock(t)

	mock.ExpectQuery("JOIN categories d ON").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "purchases", "searches", "views"}).
			AddRow("c1", "Shoes", 4, 2, 7).
			AddRow("c2", "Bags", 0, 1, 3))

	stats, err := repo.CategoryStats(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "c1", stats[0].ID)
	assert.Equal(t, 4, stats[0].Purchases)
	assert.Equal(t, 2, stats[0].Searches)
	assert.Equal(t, 7, stats[0].Views)
	assert.Equal(t, 13, stats[0].Total())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBehaviorRepository_BrandStats_UsesBrandDimension(t *testing.T) {
	mock, repo := newBehaviorMock(t)

	mock.ExpectQuery("JOIN brands d ON").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "purchases", "searches", "views"}).
			AddRow("b1", "Acme", 1, 0, 2))

	stats, err := repo.BrandStats(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "Acme", stats[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBehaviorRepository_Stats_QueryErrorIsDataSourceUnavailable(t *testing.T) {
	mock, repo := newBehaviorMock(t)

	mock.ExpectQuery("JOIN categories d ON").
		WithArgs("u1").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.CategoryStats(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDataSourceUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBehaviorRepository_TopSearchTerms(t *testing.T) {
	mock, repo := newBehaviorMock(t)

	mock.ExpectQuery("SELECT term").
		WithArgs("u1", 10).
		WillReturnRows(pgxmock.NewRows([]string{"term"}).AddRow("sneakers").AddRow("wallet"))

	terms, err := repo.TopSearchTerms(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"sneakers", "wallet"}, terms)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBehaviorRepository_UserLocale_UnknownUserIsEmpty(t *testing.T) {
	mock, repo := newBehaviorMock(t)

	mock.ExpectQuery("SELECT COALESCE\\(locale, ''\\) FROM users").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"locale"}))

	locale, err := repo.UserLocale(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, locale)

	require.NoError(t, mock.ExpectationsWereMet())
}
