package engine

import (
	"context"

	"github.com/Veraticus/spice-ml/internal/model"
)

// Categorizer defines the contract of a per-user transaction categorizer.
type Categorizer interface {
	Train(ctx context.Context, txns []model.Transaction) (*model.CategorizerTrainingResult, error)
	Predict(txn model.Transaction) (model.Prediction, error)
	PredictBatch(txns []model.Transaction) ([]model.Prediction, error)
	IsTrained() bool
	Categories() []string
}

// Forecaster defines the contract of a per-user expense forecaster.
type Forecaster interface {
	Train(ctx context.Context, txns []model.Transaction) (*model.ForecasterTrainingResult, error)
	ForecastCategory(category string, periods int) model.CategoryForecast
	ForecastAll(periods int) *model.ForecastSummary
	ForecastNextMonth() *model.ForecastSummary
	IsTrained() bool
	Categories() []string
}
