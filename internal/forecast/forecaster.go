package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/insights"
	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/Veraticus/spice-ml/internal/service"
	"github.com/Veraticus/spice-ml/internal/timeseries"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Artifact names of the forecaster bundle.
const (
	ArtifactMetadata = "metadata"
	ArtifactStats    = "category_stats"
	modelPrefix      = "model_"
)

// Config controls forecaster training.
type Config struct {
	Model           ModelConfig
	MinTransactions int
	MinDays         int
	MaxParallelFits int
}

// DefaultConfig requires 50 transactions overall and 30 days per category.
func DefaultConfig() Config {
	return Config{
		Model:           DefaultModelConfig(),
		MinTransactions: 50,
		MinDays:         30,
		MaxParallelFits: 4,
	}
}

// ProgressFunc is called once per category as training finishes it. It may
// be called from several goroutines at once.
type ProgressFunc func(result model.CategoryTrainingResult)

// Option customizes a Forecaster.
type Option func(*Forecaster)

// WithClock replaces time.Now.
func WithClock(clock service.Clock) Option {
	return func(f *Forecaster) {
		f.now = clock
	}
}

// WithProgress registers a per-category progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Forecaster) {
		f.progress = fn
	}
}

type metadata struct {
	SavedAt    time.Time `json:"saved_at"`
	UserID     string    `json:"user_id"`
	RunID      string    `json:"run_id"`
	Categories []string  `json:"categories"`
	// Models maps each category to the artifact holding its model.
	Models map[string]string `json:"models,omitempty"`
}

// Forecaster holds one fitted model per category for a single user.
type Forecaster struct {
	store    service.ArtifactStore
	now      service.Clock
	progress ProgressFunc
	models   map[string]*Model
	stats    map[string]model.CategoryStats
	userID   string
	order    []string
	cfg      Config
	mu       sync.RWMutex
}

// New creates a forecaster for userID and loads any persisted models.
// Missing or unreadable state leaves the forecaster untrained.
func New(ctx context.Context, userID string, store service.ArtifactStore, cfg Config, opts ...Option) *Forecaster {
	if cfg.MinDays <= 0 {
		cfg.MinDays = DefaultConfig().MinDays
	}
	if cfg.MaxParallelFits <= 0 {
		cfg.MaxParallelFits = 1
	}
	f := &Forecaster{
		store:  store,
		now:    time.Now,
		userID: userID,
		cfg:    cfg,
		models: make(map[string]*Model),
		stats:  make(map[string]model.CategoryStats),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.Load(ctx)
	return f
}

func (f *Forecaster) scope() service.Scope {
	return service.Scope{UserID: f.userID, Family: service.FamilyForecaster}
}

// IsTrained reports whether at least one category has a fitted model.
func (f *Forecaster) IsTrained() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.models) > 0
}

// Categories returns the trained categories in training order.
func (f *Forecaster) Categories() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

type fitOutcome struct {
	model  *Model
	result model.CategoryTrainingResult
	stats  model.CategoryStats
}

// Train fits an independent model per category. Categories with fewer than
// MinDays distinct days are reported as insufficient_data and get no model.
// The previous state is replaced entirely and persisted best effort.
func (f *Forecaster) Train(ctx context.Context, txns []model.Transaction) (*model.ForecasterTrainingResult, error) {
	slog.Info("Training expense forecaster", "user_id", f.userID, "transactions", len(txns))

	if len(txns) < f.cfg.MinTransactions {
		return nil, fmt.Errorf("%w: need at least %d transactions to train, got %d",
			common.ErrInsufficientData, f.cfg.MinTransactions, len(txns))
	}

	categories := firstSeenCategories(txns)
	outcomes := make([]fitOutcome, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxParallelFits)
	for i, category := range categories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := f.fitCategory(txns, category)
			if err != nil {
				return fmt.Errorf("category %q: %w", category, err)
			}
			outcomes[i] = outcome
			if f.progress != nil {
				f.progress(outcome.result)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		common.LogError(err, "Forecaster training failed", common.Fields{"user_id": f.userID})
		return nil, fmt.Errorf("train forecaster: %w", err)
	}

	models := make(map[string]*Model)
	stats := make(map[string]model.CategoryStats)
	var order []string
	results := make([]model.CategoryTrainingResult, 0, len(outcomes))
	for i, o := range outcomes {
		results = append(results, o.result)
		if o.model == nil {
			continue
		}
		models[categories[i]] = o.model
		stats[categories[i]] = o.stats
		order = append(order, categories[i])
	}

	f.mu.Lock()
	f.models, f.stats, f.order = models, stats, order
	f.mu.Unlock()

	if err := f.Save(ctx); err != nil {
		common.LogError(err, "Failed to save forecaster models", common.Fields{"user_id": f.userID})
	}

	return &model.ForecasterTrainingResult{
		UserID:            f.userID,
		CategoriesTrained: len(order),
		TotalCategories:   len(categories),
		Results:           results,
		TrainedAt:         f.now(),
	}, nil
}

func (f *Forecaster) fitCategory(txns []model.Transaction, category string) (fitOutcome, error) {
	points := timeseries.Daily(txns, category)
	if len(points) < f.cfg.MinDays {
		slog.Warn("Insufficient data for category",
			"user_id", f.userID,
			"category", category,
			"days", len(points))
		return fitOutcome{result: model.CategoryTrainingResult{
			Category:      category,
			Status:        model.StatusInsufficientData,
			DaysAvailable: len(points),
		}}, nil
	}

	m, err := Fit(points, f.cfg.Model)
	if err != nil {
		return fitOutcome{}, err
	}
	stats := timeseries.Stats(points)
	return fitOutcome{
		model: m,
		stats: stats,
		result: model.CategoryTrainingResult{
			Category:         category,
			Status:           model.StatusTrained,
			DaysOfData:       len(points),
			MeanDailyExpense: stats.Mean,
		},
	}, nil
}

// ForecastCategory predicts periods days after the category's history.
// Every value and bound is clamped to be non-negative. An unknown category
// yields a not_trained result rather than an error.
func (f *Forecaster) ForecastCategory(category string, periods int) model.CategoryForecast {
	f.mu.RLock()
	m, ok := f.models[category]
	stats, hasStats := f.stats[category]
	f.mu.RUnlock()

	if !ok {
		return model.CategoryForecast{
			Category:      category,
			Status:        model.StatusNotTrained,
			DailyForecast: []model.DailyForecast{},
		}
	}

	estimates := m.Forecast(periods)
	days := make([]model.DailyForecast, 0, len(estimates))
	var total float64
	for _, e := range estimates {
		d := model.DailyForecast{
			Date:            e.Date.Format("2006-01-02"),
			PredictedAmount: math.Max(0, e.Yhat),
			LowerBound:      math.Max(0, e.Lower),
			UpperBound:      math.Max(0, e.Upper),
		}
		total += d.PredictedAmount
		days = append(days, d)
	}

	out := model.CategoryForecast{
		Category:      category,
		Status:        model.StatusSuccess,
		ForecastDays:  periods,
		DailyForecast: days,
		MonthlyTotal:  total,
	}
	if hasStats {
		s := stats
		out.Statistics = &s
	}
	return out
}

// ForecastAll forecasts every trained category and attaches insights.
func (f *Forecaster) ForecastAll(periods int) *model.ForecastSummary {
	summary := &model.ForecastSummary{
		UserID:             f.userID,
		ForecastPeriodDays: periods,
		Categories:         make(map[string]model.CategoryForecast),
		CategoryOrder:      []string{},
	}

	var ordered []model.CategoryForecast
	for _, category := range f.Categories() {
		fc := f.ForecastCategory(category, periods)
		if fc.Status != model.StatusSuccess {
			continue
		}
		summary.Categories[category] = fc
		summary.CategoryOrder = append(summary.CategoryOrder, category)
		summary.TotalPredictedExpense += fc.MonthlyTotal
		ordered = append(ordered, fc)
	}

	now := f.now()
	summary.Insights = insights.Generate(ordered, now)
	summary.GeneratedAt = now
	return summary
}

// ForecastNextMonth forecasts through the last day of next calendar month.
func (f *Forecaster) ForecastNextMonth() *model.ForecastSummary {
	return f.ForecastAll(DaysUntilEndOfNextMonth(f.now()))
}

// DaysUntilEndOfNextMonth counts calendar days from now to the last day of
// the following month.
func DaysUntilEndOfNextMonth(now time.Time) int {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	last := time.Date(y, m+2, 0, 0, 0, 0, 0, time.UTC)
	return int(last.Sub(today) / day)
}

// Save persists every model, the statistics and the metadata as one bundle.
func (f *Forecaster) Save(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	artifacts := make(map[string][]byte, len(f.models)+2)
	names := make(map[string]string, len(f.models))
	for category, m := range f.models {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("%w: encode model %q: %w", common.ErrPersistence, category, err)
		}
		name := ModelArtifactName(category)
		if _, taken := artifacts[name]; taken {
			return fmt.Errorf("%w: artifact name collision for category %q", common.ErrPersistence, category)
		}
		artifacts[name] = data
		names[category] = name
	}

	stats, err := json.Marshal(f.stats)
	if err != nil {
		return fmt.Errorf("%w: encode stats: %w", common.ErrPersistence, err)
	}
	artifacts[ArtifactStats] = stats

	meta, err := json.Marshal(metadata{
		UserID:     f.userID,
		Categories: f.order,
		Models:     names,
		SavedAt:    f.now(),
		RunID:      uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %w", common.ErrPersistence, err)
	}
	artifacts[ArtifactMetadata] = meta

	if err := f.store.PutBundle(ctx, f.scope(), artifacts); err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	slog.Info("Forecaster models saved", "scope", f.scope().String(), "models", len(f.models))
	return nil
}

// Load replaces the in-memory state with the persisted bundle. It reports
// false when no metadata exists or it cannot be read. Missing model blobs are
// skipped.
func (f *Forecaster) Load(ctx context.Context) bool {
	if f.store == nil {
		return false
	}

	raw, err := f.store.Get(ctx, f.scope(), ArtifactMetadata)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			common.LogError(err, "Error loading forecaster metadata", common.Fields{"user_id": f.userID})
		}
		return false
	}
	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		common.LogError(err, "Corrupt forecaster metadata", common.Fields{"user_id": f.userID})
		return false
	}

	stats := make(map[string]model.CategoryStats)
	if raw, err := f.store.Get(ctx, f.scope(), ArtifactStats); err == nil {
		if err := json.Unmarshal(raw, &stats); err != nil {
			common.LogError(err, "Corrupt forecaster statistics", common.Fields{"user_id": f.userID})
			stats = make(map[string]model.CategoryStats)
		}
	}

	models := make(map[string]*Model)
	var order []string
	for _, category := range meta.Categories {
		name, ok := meta.Models[category]
		if !ok {
			name = ModelArtifactName(category)
		}
		raw, err := f.store.Get(ctx, f.scope(), name)
		if err != nil {
			continue
		}
		var m Model
		if err := json.Unmarshal(raw, &m); err != nil {
			common.LogError(err, "Corrupt forecaster model", common.Fields{
				"user_id":  f.userID,
				"category": category,
			})
			continue
		}
		models[category] = &m
		order = append(order, category)
	}

	f.mu.Lock()
	f.models, f.stats, f.order = models, stats, order
	f.mu.Unlock()

	slog.Debug("Loaded forecaster models", "user_id", f.userID, "models", len(models))
	return true
}

// ModelArtifactName maps a category to its artifact name. The name is a
// digest of the category so distinct categories never share an artifact and
// long names stay within filesystem limits.
func ModelArtifactName(category string) string {
	sum := sha256.Sum256([]byte(category))
	return modelPrefix + hex.EncodeToString(sum[:16])
}

func firstSeenCategories(txns []model.Transaction) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range txns {
		c := txns[i].Category
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
