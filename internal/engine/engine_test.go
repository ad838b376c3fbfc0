package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/config"
	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/Veraticus/spice-ml/internal/service"
	"github.com/Veraticus/spice-ml/internal/storage"
	"github.com/Veraticus/spice-ml/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T, store *storage.MemoryStore, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(store, DefaultConfig(), opts...)
}

func TestEngine_StatusUntrained(t *testing.T) {
	e := newTestEngine(t, storage.NewMemoryStore())

	status, err := e.Status(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", status.UserID)
	assert.False(t, status.Categorizer.Trained)
	assert.False(t, status.Forecaster.Trained)
	assert.NotNil(t, status.Categorizer.Categories)
	assert.NotNil(t, status.Forecaster.Categories)
}

func TestEngine_RejectsEmptyUser(t *testing.T) {
	e := newTestEngine(t, storage.NewMemoryStore())

	_, err := e.Status(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyUserID)
	_, err = e.TrainCategorizer(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestEngine_CategorizerFlow(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := newTestEngine(t, store)

	suggested, err := e.SuggestedCategories(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCategories, suggested)

	_, err = e.Predict(ctx, "user-1", model.Transaction{Description: "Whole Foods", Amount: -20})
	assert.ErrorIs(t, err, common.ErrNotTrained)

	result, err := e.TrainCategorizer(ctx, "user-1", testutil.ThreeCategories(t, 20, 20))
	require.NoError(t, err)
	assert.Equal(t, 3, result.NumCategories)

	pred, err := e.Predict(ctx, "user-1", model.Transaction{Description: "Whole Foods Market", Amount: -18})
	require.NoError(t, err)
	assert.Equal(t, "Food", pred.Category)

	suggested, err = e.SuggestedCategories(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bills", "Food", "Transportation"}, suggested)

	// A fresh engine on the same store picks the model up again.
	other := newTestEngine(t, store)
	preds, err := other.PredictBatch(ctx, "user-1", []model.Transaction{
		{Description: "Comcast Internet", Amount: -90},
		{Description: "Metro Transit", Amount: -30},
	})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Bills", preds[0].Category)
	assert.Equal(t, "Transportation", preds[1].Category)

	status, err := other.Status(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, status.Categorizer.Trained)
}

func TestEngine_TrainInsufficientData(t *testing.T) {
	e := newTestEngine(t, storage.NewMemoryStore())
	txns := testutil.NewBuilder(t).WithCategory(testutil.Food, 10, 10).Build()

	_, err := e.TrainCategorizer(context.Background(), "user-1", txns)
	assert.ErrorIs(t, err, common.ErrInsufficientData)
	_, err = e.TrainForecaster(context.Background(), "user-1", txns)
	assert.ErrorIs(t, err, common.ErrInsufficientData)
}

func TestEngine_ForecastFlow(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	progress := 0
	e := newTestEngine(t, storage.NewMemoryStore(), WithForecastProgress(func(model.CategoryTrainingResult) {
		mu.Lock()
		progress++
		mu.Unlock()
	}))

	_, err := e.Forecast(ctx, "user-1", 30)
	assert.ErrorIs(t, err, common.ErrNotTrained)

	result, err := e.TrainForecaster(ctx, "user-1", testutil.ThreeCategories(t, 40, 40))
	require.NoError(t, err)
	assert.Equal(t, 3, result.CategoriesTrained)
	assert.Equal(t, 3, progress)

	summary, err := e.Forecast(ctx, "user-1", 30)
	require.NoError(t, err)
	assert.Len(t, summary.Categories, 3)
	assert.NotEmpty(t, summary.Insights)

	fc, err := e.ForecastCategory(ctx, "user-1", "Food", 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, fc.Status)
	assert.Len(t, fc.DailyForecast, 7)

	missing, err := e.ForecastCategory(ctx, "user-1", "Travel", 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNotTrained, missing.Status)

	next, err := e.ForecastNextMonth(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 44, next.ForecastPeriodDays)

	status, err := e.Status(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, status.Forecaster.Trained)
	assert.Equal(t, []string{"Food", "Transportation", "Bills"}, status.Forecaster.Categories)
}

func TestEngine_ForecastPeriodValidation(t *testing.T) {
	e := newTestEngine(t, storage.NewMemoryStore())

	for _, periods := range []int{0, -1, 366} {
		_, err := e.Forecast(context.Background(), "user-1", periods)
		assert.ErrorIs(t, err, ErrInvalidPeriods, "periods=%d", periods)
		_, err = e.ForecastCategory(context.Background(), "user-1", "Food", periods)
		assert.ErrorIs(t, err, ErrInvalidPeriods, "periods=%d", periods)
	}

	// Valid bounds get past validation and fail only because nothing is trained.
	for _, periods := range []int{1, 365} {
		_, err := e.Forecast(context.Background(), "user-1", periods)
		assert.ErrorIs(t, err, common.ErrNotTrained)
	}
}

func TestEngine_Users(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := newTestEngine(t, store)

	users, err := e.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, users)

	_, err = e.TrainCategorizer(ctx, "user-2", testutil.ThreeCategories(t, 20, 20))
	require.NoError(t, err)
	_, err = e.TrainForecaster(ctx, "user-2", testutil.ThreeCategories(t, 40, 40))
	require.NoError(t, err)
	_, err = e.TrainForecaster(ctx, "user-1", testutil.ThreeCategories(t, 40, 40))
	require.NoError(t, err)

	users, err = e.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, users)
}

func TestEngine_UsersWithoutLister(t *testing.T) {
	store := struct{ service.ArtifactStore }{storage.NewMemoryStore()}
	e := New(store, DefaultConfig())

	_, err := e.Users(context.Background())
	assert.ErrorIs(t, err, ErrCannotList)
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		MinTransactions:   80,
		MaxParallelFits:   2,
		DefaultCategories: []string{"Rent", "Other"},
	}

	got := ConfigFrom(cfg)
	assert.Equal(t, 80, got.Categorizer.MinTransactions)
	assert.Equal(t, 80, got.Forecaster.MinTransactions)
	assert.Equal(t, 2, got.Forecaster.MaxParallelFits)
	assert.Equal(t, []string{"Rent", "Other"}, got.DefaultCategories)

	defaults := ConfigFrom(&config.Config{})
	assert.Equal(t, DefaultConfig(), defaults)
}
