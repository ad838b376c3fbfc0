// Package engine exposes the per-user categorization and forecasting models
// behind a single facade.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/spice-ml/internal/categorizer"
	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/config"
	"github.com/Veraticus/spice-ml/internal/forecast"
	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/Veraticus/spice-ml/internal/service"
)

// Forecast horizon limits.
const (
	DefaultPeriods = 30
	MaxPeriods     = 365
)

// Request validation errors.
var (
	ErrInvalidPeriods = errors.New("periods must be between 1 and 365")
	ErrEmptyUserID    = errors.New("user id cannot be empty")
	ErrCannotList     = errors.New("storage backend cannot list users")
)

// Config holds configuration options for both model families.
type Config struct {
	DefaultCategories []string
	Categorizer       categorizer.Config
	Forecaster        forecast.Config
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultCategories: config.DefaultCategories,
		Categorizer:       categorizer.DefaultConfig(),
		Forecaster:        forecast.DefaultConfig(),
	}
}

// ConfigFrom derives engine settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	if len(cfg.DefaultCategories) > 0 {
		c.DefaultCategories = cfg.DefaultCategories
	}
	if cfg.MinTransactions > 0 {
		c.Categorizer.MinTransactions = cfg.MinTransactions
		c.Forecaster.MinTransactions = cfg.MinTransactions
	}
	if cfg.MaxParallelFits > 0 {
		c.Forecaster.MaxParallelFits = cfg.MaxParallelFits
	}
	return c
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for every model the engine creates.
func WithClock(clock service.Clock) Option {
	return func(e *Engine) {
		e.now = clock
	}
}

// WithForecastProgress reports each category as forecaster training
// finishes it.
func WithForecastProgress(fn forecast.ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// Engine caches one categorizer and one forecaster per user. Models are
// loaded from the store the first time a user is seen.
type Engine struct {
	store        service.ArtifactStore
	now          service.Clock
	progress     forecast.ProgressFunc
	categorizers map[string]Categorizer
	forecasters  map[string]Forecaster
	cfg          Config
	mu           sync.Mutex
}

// New creates an engine persisting models in store.
func New(store service.ArtifactStore, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		now:          time.Now,
		cfg:          cfg,
		categorizers: make(map[string]Categorizer),
		forecasters:  make(map[string]Forecaster),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) categorizer(ctx context.Context, userID string) (Categorizer, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.categorizers[userID]
	if !ok {
		c = categorizer.New(ctx, userID, e.store, e.cfg.Categorizer, categorizer.WithClock(e.now))
		e.categorizers[userID] = c
	}
	return c, nil
}

func (e *Engine) forecaster(ctx context.Context, userID string) (Forecaster, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.forecasters[userID]
	if !ok {
		opts := []forecast.Option{forecast.WithClock(e.now)}
		if e.progress != nil {
			opts = append(opts, forecast.WithProgress(e.progress))
		}
		f = forecast.New(ctx, userID, e.store, e.cfg.Forecaster, opts...)
		e.forecasters[userID] = f
	}
	return f, nil
}

// TrainCategorizer retrains the user's categorizer from scratch.
func (e *Engine) TrainCategorizer(ctx context.Context, userID string, txns []model.Transaction) (*model.CategorizerTrainingResult, error) {
	c, err := e.categorizer(ctx, userID)
	if err != nil {
		return nil, err
	}
	result, err := c.Train(ctx, txns)
	if err != nil {
		if !common.IsExpected(err) {
			common.LogError(err, "Categorizer training failed", common.Fields{"user_id": userID})
		}
		return nil, fmt.Errorf("train categorizer for %s: %w", userID, err)
	}
	return result, nil
}

// Predict categorizes a single transaction.
func (e *Engine) Predict(ctx context.Context, userID string, txn model.Transaction) (model.Prediction, error) {
	c, err := e.categorizer(ctx, userID)
	if err != nil {
		return model.Prediction{}, err
	}
	return c.Predict(txn)
}

// PredictBatch categorizes txns; results align with the input.
func (e *Engine) PredictBatch(ctx context.Context, userID string, txns []model.Transaction) ([]model.Prediction, error) {
	c, err := e.categorizer(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.PredictBatch(txns)
}

// SuggestedCategories returns the user's learned labels, or the configured
// defaults when no categorizer has been trained.
func (e *Engine) SuggestedCategories(ctx context.Context, userID string) ([]string, error) {
	c, err := e.categorizer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsTrained() {
		return c.Categories(), nil
	}
	out := make([]string, len(e.cfg.DefaultCategories))
	copy(out, e.cfg.DefaultCategories)
	return out, nil
}

// TrainForecaster retrains every category model of the user's forecaster.
func (e *Engine) TrainForecaster(ctx context.Context, userID string, txns []model.Transaction) (*model.ForecasterTrainingResult, error) {
	f, err := e.forecaster(ctx, userID)
	if err != nil {
		return nil, err
	}
	result, err := f.Train(ctx, txns)
	if err != nil {
		return nil, fmt.Errorf("train forecaster for %s: %w", userID, err)
	}
	return result, nil
}

// Forecast predicts periods days for every trained category.
func (e *Engine) Forecast(ctx context.Context, userID string, periods int) (*model.ForecastSummary, error) {
	if err := validatePeriods(periods); err != nil {
		return nil, err
	}
	f, err := e.trainedForecaster(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.ForecastAll(periods), nil
}

// ForecastCategory predicts periods days for one category. An unknown
// category yields a not_trained result.
func (e *Engine) ForecastCategory(ctx context.Context, userID, category string, periods int) (model.CategoryForecast, error) {
	if err := validatePeriods(periods); err != nil {
		return model.CategoryForecast{}, err
	}
	f, err := e.trainedForecaster(ctx, userID)
	if err != nil {
		return model.CategoryForecast{}, err
	}
	return f.ForecastCategory(category, periods), nil
}

// ForecastNextMonth predicts through the end of next calendar month.
func (e *Engine) ForecastNextMonth(ctx context.Context, userID string) (*model.ForecastSummary, error) {
	f, err := e.trainedForecaster(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.ForecastNextMonth(), nil
}

func (e *Engine) trainedForecaster(ctx context.Context, userID string) (Forecaster, error) {
	f, err := e.forecaster(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !f.IsTrained() {
		slog.Debug("Forecast requested before training", "user_id", userID)
		return nil, fmt.Errorf("forecaster for %s: %w", userID, common.ErrNotTrained)
	}
	return f, nil
}

// Status reports whether each model family is trained for the user.
func (e *Engine) Status(ctx context.Context, userID string) (model.ModelStatus, error) {
	c, err := e.categorizer(ctx, userID)
	if err != nil {
		return model.ModelStatus{}, err
	}
	f, err := e.forecaster(ctx, userID)
	if err != nil {
		return model.ModelStatus{}, err
	}
	return model.ModelStatus{
		UserID: userID,
		Categorizer: model.FamilyStatus{
			Trained:    c.IsTrained(),
			Categories: nonNil(c.Categories()),
		},
		Forecaster: model.FamilyStatus{
			Trained:    f.IsTrained(),
			Categories: nonNil(f.Categories()),
		},
	}, nil
}

// Users returns every user with persisted artifacts of either family.
func (e *Engine) Users(ctx context.Context) ([]string, error) {
	lister, ok := e.store.(service.ScopeLister)
	if !ok {
		return nil, ErrCannotList
	}
	var users []string
	for _, family := range []service.Family{service.FamilyCategorizer, service.FamilyForecaster} {
		found, err := lister.ListScopes(ctx, family)
		if err != nil {
			return nil, fmt.Errorf("list %s users: %w", family, err)
		}
		users = append(users, found...)
	}
	slices.Sort(users)
	return nonNil(slices.Compact(users)), nil
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return nil
}

func validatePeriods(periods int) error {
	if periods < 1 || periods > MaxPeriods {
		return fmt.Errorf("%w: got %d", ErrInvalidPeriods, periods)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
