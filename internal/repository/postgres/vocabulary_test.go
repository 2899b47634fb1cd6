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

func newVocabularyMock(t *testing.T) (pgxmock.PgxPoolIface, *VocabularyRepository) {
	t.Helper()

	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewVocabularyRepository(mock)
}

func TestVocabularyRepository_BestMatch_ReturnsTopTerm(t *testing.T) {
	mock, repo := newVocabularyMock(t)

	mock.ExpectQuery("SELECT term, source, score FROM").
		WithArgs("smartphon", 0.3).
		WillReturnRows(pgxmock.NewRows([]string{"term", "source", "score"}).
			AddRow("smartphone", "product", 0.75))

	match, err := repo.BestMatch(context.Background(), "smartphon", 0.3)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "smartphone", match.Term)
	assert.Equal(t, "product", match.Source)
	assert.InDelta(t, 0.75, match.Score, 1e-9)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVocabularyRepository_BestMatch_NoRowsIsNil(t *testing.T) {
	mock, repo := newVocabularyMock(t)

	mock.ExpectQuery("SELECT term, source, score FROM").
		WithArgs("xylophone", 0.3).
		WillReturnRows(pgxmock.NewRows([]string{"term", "source", "score"}))

	match, err := repo.BestMatch(context.Background(), "xylophone", 0.3)
	require.NoError(t, err)
	assert.Nil(t, match)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVocabularyRepository_BestMatch_QueryErrorIsDataSourceUnavailable(t *testing.T) {
	mock, repo := newVocabularyMock(t)

	mock.ExpectQuery("SELECT term, source, score FROM").
		WithArgs("smartphon", 0.3).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.BestMatch(context.Background(), "smartphon", 0.3)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDataSourceUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVocabularyRepository_Suggest_ReturnsMatches(t *testing.T) {
	mock, repo := newVocabularyMock(t)

	mock.ExpectQuery("SELECT term, source, score FROM").
		WithArgs("smart", 0.2, 5).
		WillReturnRows(pgxmock.NewRows([]string{"term", "source", "score"}).
			AddRow("smartphone", "product", 0.6).
			AddRow("smartwatch", "product", 0.55))

	matches, err := repo.Suggest(context.Background(), "smart", 0.2, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "smartphone", matches[0].Term)
	assert.Equal(t, "smartwatch", matches[1].Term)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVocabularyRepository_Suggest_DefaultsLimit(t *testing.T) {
	mock, repo := newVocabularyMock(t)

	mock.ExpectQuery("SELECT term, source, score FROM").
		WithArgs("smart", 0.2, 10).
		WillReturnRows(pgxmock.NewRows([]string{"term", "source", "score"}))

	matches, err := repo.Suggest(context.Background(), "smart", 0.2, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, mock.ExpectationsWereMet())
}
