// Package categorizer predicts transaction categories with a per-user
// random forest over description and amount features.
package categorizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/features"
	"github.com/Veraticus/spice-ml/internal/forest"
	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/Veraticus/spice-ml/internal/service"
	"github.com/Veraticus/spice-ml/internal/text"
	"github.com/google/uuid"
)

const maxAlternatives = 3

// Config controls categorizer training.
type Config struct {
	Forest          forest.Config
	MaxFeatures     int
	MinTransactions int
	TestFraction    float64
	SplitSeed       uint64
}

// DefaultConfig requires 50 labeled transactions and holds out 20% for
// evaluation.
func DefaultConfig() Config {
	return Config{
		Forest:          forest.DefaultConfig(),
		MaxFeatures:     text.DefaultMaxFeatures,
		MinTransactions: 50,
		TestFraction:    0.2,
		SplitSeed:       42,
	}
}

// Option customizes a Categorizer.
type Option func(*Categorizer)

// WithClock replaces time.Now.
func WithClock(clock service.Clock) Option {
	return func(c *Categorizer) {
		c.now = clock
	}
}

// Categorizer holds the fitted feature pipeline and classifier of one user.
type Categorizer struct {
	store      service.ArtifactStore
	now        service.Clock
	extractor  *features.Extractor
	classifier *forest.Forest
	userID     string
	cfg        Config
	mu         sync.RWMutex
}

// New creates a categorizer for userID and loads any persisted model.
func New(ctx context.Context, userID string, store service.ArtifactStore, cfg Config, opts ...Option) *Categorizer {
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = DefaultConfig().TestFraction
	}
	c := &Categorizer{
		store:  store,
		now:    time.Now,
		userID: userID,
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Load(ctx)
	return c
}

func (c *Categorizer) scope() service.Scope {
	return service.Scope{UserID: c.userID, Family: service.FamilyCategorizer}
}

// IsTrained reports whether a fitted model is available.
func (c *Categorizer) IsTrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.classifier != nil && c.classifier.Fitted()
}

// Categories returns the sorted label set of the fitted classifier.
func (c *Categorizer) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.classifier == nil {
		return nil
	}
	out := make([]string, len(c.classifier.Classes))
	copy(out, c.classifier.Classes)
	return out
}

// FeatureWidth is the frozen feature vector length, or 0 when untrained.
func (c *Categorizer) FeatureWidth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.extractor == nil {
		return 0
	}
	return c.extractor.Width()
}

// Train fits the feature pipeline on every labeled transaction, fits the
// classifier on a stratified 80% split and reports accuracy on the rest.
// The classifier fitted on the split is the one kept and persisted.
func (c *Categorizer) Train(ctx context.Context, txns []model.Transaction) (*model.CategorizerTrainingResult, error) {
	slog.Info("Training categorizer", "user_id", c.userID, "transactions", len(txns))

	if len(txns) < c.cfg.MinTransactions {
		return nil, fmt.Errorf("%w: need at least %d transactions to train, got %d",
			common.ErrInsufficientData, c.cfg.MinTransactions, len(txns))
	}
	labeled := make([]model.Transaction, 0, len(txns))
	for i := range txns {
		if txns[i].IsLabeled() {
			labeled = append(labeled, txns[i])
		}
	}
	if len(labeled) < c.cfg.MinTransactions {
		return nil, fmt.Errorf("%w: need at least %d labeled transactions, got %d",
			common.ErrInsufficientData, c.cfg.MinTransactions, len(labeled))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extractor := features.NewExtractor(c.cfg.MaxFeatures)
	rows, err := extractor.FitTransform(labeled)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	labels := make([]string, len(labeled))
	categories := make(map[string]struct{})
	for i := range labeled {
		labels[i] = labeled[i].Category
		categories[labels[i]] = struct{}{}
	}

	trainIdx, testIdx := stratifiedSplit(labels, c.cfg.TestFraction, c.cfg.SplitSeed)
	classifier := forest.New(c.cfg.Forest)
	if err := classifier.Fit(pickRows(rows, trainIdx), pickLabels(labels, trainIdx)); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	accuracy, err := evaluate(classifier, pickRows(rows, testIdx), pickLabels(labels, testIdx))
	if err != nil {
		return nil, fmt.Errorf("evaluate classifier: %w", err)
	}
	slog.Info("Categorizer trained",
		"user_id", c.userID,
		"accuracy", accuracy,
		"train_size", len(trainIdx),
		"test_size", len(testIdx))

	c.mu.Lock()
	c.extractor, c.classifier = extractor, classifier
	c.mu.Unlock()

	if err := c.Save(ctx); err != nil {
		common.LogError(err, "Failed to save categorizer", common.Fields{"user_id": c.userID})
	}

	return &model.CategorizerTrainingResult{
		Accuracy:        accuracy,
		NumTransactions: len(labeled),
		NumCategories:   len(categories),
		TrainedAt:       c.now(),
	}, nil
}

func evaluate(classifier *forest.Forest, rows [][]float64, labels []string) (float64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	correct := 0
	for i, row := range rows {
		got, err := classifier.Predict(row)
		if err != nil {
			return 0, err
		}
		if got == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(rows)), nil
}

// Predict returns the most likely category of txn with its top alternatives.
func (c *Categorizer) Predict(txn model.Transaction) (model.Prediction, error) {
	preds, err := c.PredictBatch([]model.Transaction{txn})
	if err != nil {
		return model.Prediction{}, err
	}
	return preds[0], nil
}

// PredictBatch predicts every transaction; results align with the input.
func (c *Categorizer) PredictBatch(txns []model.Transaction) ([]model.Prediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.classifier == nil || !c.classifier.Fitted() {
		return nil, common.ErrNotTrained
	}
	if len(txns) == 0 {
		return []model.Prediction{}, nil
	}

	rows, err := c.extractor.Transform(txns)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	out := make([]model.Prediction, len(rows))
	for i, row := range rows {
		proba, err := c.classifier.PredictProba(row)
		if err != nil {
			return nil, fmt.Errorf("predict transaction %d: %w", i, err)
		}
		out[i] = rank(c.classifier.Classes, proba)
	}
	return out, nil
}

// rank orders classes by descending probability. Ties keep the sorted label
// order, so the result is stable across runs.
func rank(classes []string, proba []float64) model.Prediction {
	order := make([]int, len(classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return proba[order[a]] > proba[order[b]]
	})

	n := min(maxAlternatives, len(order))
	alts := make([]model.Alternative, n)
	for i := 0; i < n; i++ {
		alts[i] = model.Alternative{Category: classes[order[i]], Confidence: proba[order[i]]}
	}
	return model.Prediction{
		Category:     alts[0].Category,
		Confidence:   alts[0].Confidence,
		Alternatives: alts,
	}
}

// Save writes the vectorizer, scaler, classifier and metadata as one bundle.
func (c *Categorizer) Save(ctx context.Context) error {
	c.mu.RLock()
	if c.classifier == nil || c.extractor == nil {
		c.mu.RUnlock()
		return common.ErrNotTrained
	}
	b := &Bundle{
		Vectorizer: c.extractor.Vectorizer,
		Scaler:     c.extractor.Scaler,
		Classifier: c.classifier,
		Metadata: Metadata{
			SavedAt:      c.now(),
			UserID:       c.userID,
			RunID:        uuid.NewString(),
			Categories:   c.classifier.Classes,
			FeatureWidth: c.extractor.Width(),
			HasDates:     c.extractor.UseDates,
		},
	}
	artifacts, err := b.Encode()
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	if err := c.store.PutBundle(ctx, c.scope(), artifacts); err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	slog.Info("Categorizer saved", "scope", c.scope().String(), "categories", len(b.Metadata.Categories))
	return nil
}

// Load replaces the in-memory model with the persisted bundle. It reports
// false, leaving the current state untouched, when any core artifact is
// missing or unreadable.
func (c *Categorizer) Load(ctx context.Context) bool {
	if c.store == nil {
		return false
	}
	b, err := readBundle(ctx, c.store, c.scope())
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			common.LogError(err, "Error loading categorizer", common.Fields{"user_id": c.userID})
		}
		return false
	}

	extractor := &features.Extractor{
		Vectorizer: b.Vectorizer,
		Scaler:     b.Scaler,
		UseDates:   b.Scaler.Width() > 1,
	}
	if extractor.Width() != b.Classifier.Width {
		common.LogError(features.ErrFeatureWidth, "Categorizer artifacts disagree", common.Fields{
			"user_id":    c.userID,
			"extractor":  extractor.Width(),
			"classifier": b.Classifier.Width,
		})
		return false
	}

	c.mu.Lock()
	c.extractor, c.classifier = extractor, b.Classifier
	c.mu.Unlock()

	slog.Debug("Loaded categorizer", "user_id", c.userID, "categories", len(b.Classifier.Classes))
	return true
}
