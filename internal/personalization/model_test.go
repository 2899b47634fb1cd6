package personalization

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/repository"
	apperrors "github.com/velora/search-service/pkg/errors"
)

type stubBehavior struct {
	categories map[string][]repository.InteractionStat
	brands     map[string][]repository.InteractionStat
	terms      map[string][]string
	locales    map[string]string
	failFor    map[string]error
}

func (s *stubBehavior) CategoryStats(_ context.Context, userID string) ([]repository.InteractionStat, error) {
	if err := s.failFor[userID]; err != nil {
		return nil, err
	}
	return s.categories[userID], nil
}

func (s *stubBehavior) BrandStats(_ context.Context, userID string) ([]repository.InteractionStat, error) {
	if err := s.failFor[userID]; err != nil {
		return nil, err
	}
	return s.brands[userID], nil
}

func (s *stubBehavior) TopSearchTerms(_ context.Context, userID string, limit int) ([]string, error) {
	terms := s.terms[userID]
	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms, nil
}

func (s *stubBehavior) UserLocale(_ context.Context, userID string) (string, error) {
	return s.locales[userID], nil
}

type stubPrefs struct {
	saved   map[string]*domain.PreferenceProfile
	userIDs []string
}

func (s *stubPrefs) Save(_ context.Context, profile *domain.PreferenceProfile) error {
	if s.saved == nil {
		s.saved = make(map[string]*domain.PreferenceProfile)
	}
	s.saved[profile.UserID] = profile
	return nil
}

func (s *stubPrefs) Get(_ context.Context, userID string) (*domain.PreferenceProfile, error) {
	p, ok := s.saved[userID]
	if !ok {
		return nil, apperrors.NotFound("preference profile", userID)
	}
	return p, nil
}

func (s *stubPrefs) ListUserIDs(_ context.Context, _ bool, afterID string, limit int) ([]string, error) {
	var out []string
	for _, id := range s.userIDs {
		if id > afterID {
			out = append(out, id)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func testModelConfig() Config {
	return Config{
		PurchasesWeight:      0.5,
		SearchesWeight:       0.3,
		ViewsWeight:          0.2,
		CategoryBoostPercent: 15,
		BrandBoostPercent:    10,
		MinInteractions:      3,
		CacheTTL:             15 * time.Minute,
	}
}

func newTestModel(t *testing.T, behavior *stubBehavior, prefs *stubPrefs) *Model {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(behavior, prefs, cache.NewRedisStore(client), testModelConfig(), slog.New(slog.DiscardHandler))
}

func TestModel_Calculate_WeightedScoring(t *testing.T) {
	ctx := context.Background()
	behavior := &stubBehavior{
		categories: map[string][]repository.InteractionStat{
			"u1": {
				// 10*0.5 + 0 + 0 = 5.0
				{ID: "c-purchases", Name: "Shoes", Purchases: 10},
				// 0 + 10*0.3 + 0 = 3.0
				{ID: "c-searches", Name: "Bags", Searches: 10},
				// 0 + 0 + 10*0.2 = 2.0
				{ID: "c-views", Name: "Hats", Views: 10},
			},
		},
		locales: map[string]string{"u1": "en"},
	}
	model := newTestModel(t, behavior, &stubPrefs{})

	profile, err := model.Calculate(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, profile.Categories, 3)
	assert.Equal(t, "c-purchases", profile.Categories[0].ID)
	assert.Equal(t, "c-searches", profile.Categories[1].ID)
	assert.Equal(t, "c-views", profile.Categories[2].ID)

	// Scores normalize against the user's own maximum.
	assert.InDelta(t, 100, profile.Categories[0].Score, 1e-9)
	assert.InDelta(t, 60, profile.Categories[1].Score, 1e-9)
	assert.InDelta(t, 40, profile.Categories[2].Score, 1e-9)

	assert.Equal(t, 15, profile.Categories[0].BoostPercent)
	assert.Equal(t, "en", profile.Locale)
}

func TestModel_Calculate_MinInteractionsFilter(t *testing.T) {
	ctx := context.Background()
	behavior := &stubBehavior{
		categories: map[string][]repository.InteractionStat{
			"u1": {
				{ID: "c-active", Name: "Shoes", Purchases: 2, Views: 1},
				{ID: "c-noise", Name: "Bags", Views: 2},
			},
		},
	}
	model := newTestModel(t, behavior, &stubPrefs{})

	profile, err := model.Calculate(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, profile.Categories, 1)
	assert.Equal(t, "c-active", profile.Categories[0].ID)
}

func TestModel_Calculate_LimitsFavorites(t *testing.T) {
	ctx := context.Background()
	categories := make([]repository.InteractionStat, 8)
	for i := range categories {
		categories[i] = repository.InteractionStat{
			ID:        string(rune('a' + i)),
			Name:      "Category",
			Purchases: 10 - i,
		}
	}
	brands := make([]repository.InteractionStat, 5)
	for i := range brands {
		brands[i] = repository.InteractionStat{
			ID:        string(rune('a' + i)),
			Name:      "Brand",
			Purchases: 10 - i,
		}
	}
	behavior := &stubBehavior{
		categories: map[string][]repository.InteractionStat{"u1": categories},
		brands:     map[string][]repository.InteractionStat{"u1": brands},
	}
	model := newTestModel(t, behavior, &stubPrefs{})

	profile, err := model.Calculate(ctx, "u1")
	require.NoError(t, err)

	assert.Len(t, profile.Categories, domain.MaxFavoriteCategories)
	assert.Len(t, profile.Brands, domain.MaxFavoriteBrands)
}

func TestModel_Calculate_MoreInteractionsNeverLowerRank(t *testing.T) {
	ctx := context.Background()
	behavior := &stubBehavior{
		categories: map[string][]repository.InteractionStat{
			"u1": {
				{ID: "c-light", Name: "Bags", Purchases: 2, Searches: 2, Views: 2},
				{ID: "c-heavy", Name: "Shoes", Purchases: 4, Searches: 4, Views: 4},
			},
		},
	}
	model := newTestModel(t, behavior, &stubPrefs{})

	profile, err := model.Calculate(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, profile.Categories, 2)
	assert.Equal(t, "c-heavy", profile.Categories[0].ID)
	assert.Greater(t, profile.Categories[0].Score, profile.Categories[1].Score)
}

func TestModel_Profile_ServesStoredProfile(t *testing.T) {
	ctx := context.Background()
	prefs := &stubPrefs{saved: map[string]*domain.PreferenceProfile{
		"u1": {UserID: "u1", Categories: []domain.PreferenceEntry{{ID: "c1", Name: "Shoes", Score: 100, BoostPercent: 15}}},
	}}
	model := newTestModel(t, &stubBehavior{}, prefs)

	profile, err := model.Profile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "u1", profile.UserID)
}

func TestModel_Profile_UnknownUserIsNil(t *testing.T) {
	ctx := context.Background()
	model := newTestModel(t, &stubBehavior{}, &stubPrefs{})

	profile, err := model.Profile(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestModel_Profile_EmptyUserIDIsNil(t *testing.T) {
	ctx := context.Background()
	model := newTestModel(t, &stubBehavior{}, &stubPrefs{})

	profile, err := model.Profile(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestModel_BatchCalculate_ContinuesPastUserFailure(t *testing.T) {
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	behavior := &stubBehavior{
		categories: map[string][]repository.InteractionStat{},
		failFor:    map[string]error{"u3": errors.New("behavioral query failed")},
	}
	for _, u := range users {
		behavior.categories[u] = []repository.InteractionStat{
			{ID: "c1", Name: "Shoes", Purchases: 5},
		}
	}
	prefs := &stubPrefs{userIDs: users}
	model := newTestModel(t, behavior, prefs)

	result, err := model.BatchCalculate(ctx, BatchOptions{BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 4, result.Updated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	assert.NotContains(t, prefs.saved, "u3")
}

func TestModel_BatchCalculate_SkipsInactiveUsers(t *testing.T) {
	ctx := context.Background()
	behavior := &stubBehavior{
		categories: map[string][]repository.InteractionStat{
			"u1": {{ID: "c1", Name: "Shoes", Purchases: 5}},
		},
	}
	prefs := &stubPrefs{userIDs: []string{"u1", "u2"}}
	model := newTestModel(t, behavior, prefs)

	result, err := model.BatchCalculate(ctx, BatchOptions{BatchSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
}

func TestModel_Calculate_InvalidatesCachedProfile(t *testing.T) {
	ctx := context.Background()
	behavior := &stubBehavior{
		categories: map[string][]repository.InteractionStat{
			"u1": {{ID: "c-old", Name: "Shoes", Purchases: 5}},
		},
	}
	prefs := &stubPrefs{}
	model := newTestModel(t, behavior, prefs)

	_, err := model.Calculate(ctx, "u1")
	require.NoError(t, err)

	// Warm the cache.
	profile, err := model.Profile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "c-old", profile.Categories[0].ID)

	// Recompute with different behavior; the cached copy must not survive.
	behavior.categories["u1"] = []repository.InteractionStat{
		{ID: "c-new", Name: "Bags", Purchases: 9},
	}
	_, err = model.Calculate(ctx, "u1")
	require.NoError(t, err)

	profile, err = model.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c-new", profile.Categories[0].ID)
}
