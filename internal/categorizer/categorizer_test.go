package categorizer

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/Veraticus/spice-ml/internal/service"
	"github.com/Veraticus/spice-ml/internal/storage"
	"github.com/Veraticus/spice-ml/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC)

func newTestCategorizer(t *testing.T, store service.ArtifactStore) *Categorizer {
	t.Helper()
	return New(context.Background(), "user-1", store, DefaultConfig(), WithClock(func() time.Time { return fixedNow }))
}

func coffee() model.Transaction {
	return model.Transaction{
		Description: "Starbucks Coffee",
		Amount:      -14.5,
		Date:        time.Date(2024, time.February, 3, 8, 15, 0, 0, time.UTC),
	}
}

func TestCategorizer_UntrainedByDefault(t *testing.T) {
	c := newTestCategorizer(t, storage.NewMemoryStore())

	assert.False(t, c.IsTrained())
	assert.Empty(t, c.Categories())
	assert.Zero(t, c.FeatureWidth())

	_, err := c.Predict(coffee())
	assert.ErrorIs(t, err, common.ErrNotTrained)
	_, err = c.PredictBatch(nil)
	assert.ErrorIs(t, err, common.ErrNotTrained)
}

func TestCategorizer_TrainThreshold(t *testing.T) {
	tests := []struct {
		name    string
		food    int
		bills   int
		wantErr bool
	}{
		{name: "one below minimum", food: 25, bills: 24, wantErr: true},
		{name: "exactly minimum", food: 25, bills: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCategorizer(t, storage.NewMemoryStore())
			txns := testutil.NewBuilder(t).
				WithCategory(testutil.Food, tt.food, tt.food).
				WithCategory(testutil.Bills, tt.bills, tt.bills).
				Build()

			result, err := c.Train(context.Background(), txns)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInsufficientData)
				assert.False(t, c.IsTrained())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 50, result.NumTransactions)
			assert.True(t, c.IsTrained())
		})
	}
}

func TestCategorizer_UnlabeledDoNotCount(t *testing.T) {
	c := newTestCategorizer(t, storage.NewMemoryStore())
	txns := testutil.NewBuilder(t).WithCategory(testutil.Food, 40, 40).Build()
	txns = append(txns, testutil.NewBuilder(t).WithCategory(testutil.Bills, 20, 20).Unlabeled().Build()...)

	_, err := c.Train(context.Background(), txns)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInsufficientData)
	assert.Contains(t, err.Error(), "labeled")
}

func TestCategorizer_ThreeCategoryScenario(t *testing.T) {
	c := newTestCategorizer(t, storage.NewMemoryStore())

	result, err := c.Train(context.Background(), testutil.ThreeCategories(t, 20, 20))
	require.NoError(t, err)
	assert.Equal(t, 60, result.NumTransactions)
	assert.Equal(t, 3, result.NumCategories)
	assert.GreaterOrEqual(t, result.Accuracy, 0.75)
	assert.LessOrEqual(t, result.Accuracy, 1.0)
	assert.Equal(t, fixedNow, result.TrainedAt)

	assert.Equal(t, []string{"Bills", "Food", "Transportation"}, c.Categories())

	pred, err := c.Predict(coffee())
	require.NoError(t, err)
	assert.Equal(t, "Food", pred.Category)
	require.Len(t, pred.Alternatives, 3)
	assert.Equal(t, pred.Category, pred.Alternatives[0].Category)
	assert.InDelta(t, pred.Confidence, pred.Alternatives[0].Confidence, 1e-12)
	assert.GreaterOrEqual(t, pred.Alternatives[0].Confidence, pred.Alternatives[1].Confidence)
	assert.GreaterOrEqual(t, pred.Alternatives[1].Confidence, pred.Alternatives[2].Confidence)

	var sum float64
	for _, a := range pred.Alternatives {
		sum += a.Confidence
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestCategorizer_Deterministic(t *testing.T) {
	txns := testutil.ThreeCategories(t, 20, 20)
	probe := []model.Transaction{
		coffee(),
		{Description: "Uber ride home", Amount: -27},
		{Description: "completely unknown merchant", Amount: -3},
	}

	first := newTestCategorizer(t, storage.NewMemoryStore())
	r1, err := first.Train(context.Background(), txns)
	require.NoError(t, err)
	second := newTestCategorizer(t, storage.NewMemoryStore())
	r2, err := second.Train(context.Background(), txns)
	require.NoError(t, err)

	assert.Equal(t, r1.Accuracy, r2.Accuracy)

	p1, err := first.PredictBatch(probe)
	require.NoError(t, err)
	p2, err := second.PredictBatch(probe)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestCategorizer_FeatureWidthFrozen(t *testing.T) {
	c := newTestCategorizer(t, storage.NewMemoryStore())
	_, err := c.Train(context.Background(), testutil.ThreeCategories(t, 20, 20))
	require.NoError(t, err)

	width := c.FeatureWidth()
	assert.Greater(t, width, 5)

	preds, err := c.PredictBatch([]model.Transaction{
		{Description: "never seen words at all", Amount: -1},
		{Description: "", Amount: 0},
		coffee(),
	})
	require.NoError(t, err)
	assert.Len(t, preds, 3)
	assert.Equal(t, width, c.FeatureWidth())
}

func TestCategorizer_NoDatesMode(t *testing.T) {
	c := newTestCategorizer(t, storage.NewMemoryStore())
	txns := testutil.NewBuilder(t).
		WithCategory(testutil.Food, 30, 30).
		WithCategory(testutil.Bills, 30, 30).
		WithoutDates().
		Build()

	_, err := c.Train(context.Background(), txns)
	require.NoError(t, err)

	pred, err := c.Predict(coffee())
	require.NoError(t, err)
	assert.Equal(t, "Food", pred.Category)
	assert.Len(t, pred.Alternatives, 2)
}

func TestCategorizer_PredictBatchEmpty(t *testing.T) {
	c := newTestCategorizer(t, storage.NewMemoryStore())
	_, err := c.Train(context.Background(), testutil.ThreeCategories(t, 20, 20))
	require.NoError(t, err)

	preds, err := c.PredictBatch([]model.Transaction{})
	require.NoError(t, err)
	assert.NotNil(t, preds)
	assert.Empty(t, preds)
}

func TestCategorizer_PersistenceRoundTrip(t *testing.T) {
	stores := map[string]func(t *testing.T) service.ArtifactStore{
		"memory": func(*testing.T) service.ArtifactStore { return storage.NewMemoryStore() },
		"file":   func(t *testing.T) service.ArtifactStore { return testutil.SetupFileStore(t) },
		"sqlite": func(t *testing.T) service.ArtifactStore { return testutil.SetupSQLiteStore(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			trained := newTestCategorizer(t, store)
			_, err := trained.Train(context.Background(), testutil.ThreeCategories(t, 20, 20))
			require.NoError(t, err)

			for _, artifact := range []string{ArtifactVectorizer, ArtifactScaler, ArtifactClassifier, ArtifactMetadata} {
				ok, err := store.Exists(context.Background(), trained.scope(), artifact)
				require.NoError(t, err)
				assert.True(t, ok, artifact)
			}

			reloaded := newTestCategorizer(t, store)
			require.True(t, reloaded.IsTrained())
			assert.Equal(t, trained.Categories(), reloaded.Categories())
			assert.Equal(t, trained.FeatureWidth(), reloaded.FeatureWidth())

			probe := []model.Transaction{coffee(), {Description: "Shell gas", Amount: -40}}
			want, err := trained.PredictBatch(probe)
			require.NoError(t, err)
			got, err := reloaded.PredictBatch(probe)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCategorizer_PartialBundleIsUntrained(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	scope := service.Scope{UserID: "user-1", Family: service.FamilyCategorizer}
	require.NoError(t, store.Put(ctx, scope, ArtifactVectorizer, []byte(`{"vocabulary":["coffee"],"idf":[1]}`)))

	c := newTestCategorizer(t, store)
	assert.False(t, c.IsTrained())
}

func TestCategorizer_CorruptArtifactIsUntrained(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	trained := newTestCategorizer(t, store)
	_, err := trained.Train(ctx, testutil.ThreeCategories(t, 20, 20))
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, trained.scope(), ArtifactClassifier, []byte("not json")))

	c := newTestCategorizer(t, store)
	assert.False(t, c.IsTrained())
}

func TestCategorizer_FailedLoadKeepsState(t *testing.T) {
	ctx := context.Background()
	c := newTestCategorizer(t, storage.NewMemoryStore())
	_, err := c.Train(ctx, testutil.ThreeCategories(t, 20, 20))
	require.NoError(t, err)

	c.store = storage.NewMemoryStore()
	assert.False(t, c.Load(ctx))
	assert.True(t, c.IsTrained())
}
