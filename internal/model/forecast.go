package model

import "time"

// TrainingStatus is the per-category outcome of a forecaster training run.
type TrainingStatus string

// Training status constants.
const (
	StatusTrained          TrainingStatus = "trained"
	StatusInsufficientData TrainingStatus = "insufficient_data"
)

// ForecastStatus is the outcome of a per-category forecast request.
type ForecastStatus string

// Forecast status constants.
const (
	StatusSuccess    ForecastStatus = "success"
	StatusNotTrained ForecastStatus = "not_trained"
)

// CategoryStats caches summary statistics of a category's daily series.
type CategoryStats struct {
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	DaysOfData int     `json:"days_of_data"`
}

// CategoryTrainingResult is reported for every category seen during training.
type CategoryTrainingResult struct {
	Category         string         `json:"category"`
	Status           TrainingStatus `json:"status"`
	DaysOfData       int            `json:"days_of_data,omitempty"`
	DaysAvailable    int            `json:"days_available,omitempty"`
	MeanDailyExpense float64        `json:"mean_daily_expense,omitempty"`
}

// ForecasterTrainingResult summarizes a forecaster training run.
type ForecasterTrainingResult struct {
	TrainedAt         time.Time                `json:"trained_at"`
	UserID            string                   `json:"user_id"`
	Results           []CategoryTrainingResult `json:"results"`
	CategoriesTrained int                      `json:"categories_trained"`
	TotalCategories   int                      `json:"total_categories"`
}

// DailyForecast is one predicted day. Every amount is non-negative.
type DailyForecast struct {
	Date            string  `json:"date"`
	PredictedAmount float64 `json:"predicted_amount"`
	LowerBound      float64 `json:"lower_bound"`
	UpperBound      float64 `json:"upper_bound"`
}

// CategoryForecast is the forecast for a single category.
type CategoryForecast struct {
	Statistics    *CategoryStats  `json:"statistics,omitempty"`
	Category      string          `json:"category"`
	Status        ForecastStatus  `json:"status"`
	DailyForecast []DailyForecast `json:"daily_forecast"`
	ForecastDays  int             `json:"forecast_days"`
	MonthlyTotal  float64         `json:"monthly_total"`
}

// ForecastSummary aggregates the forecasts of every trained category.
type ForecastSummary struct {
	GeneratedAt           time.Time                   `json:"generated_at"`
	Categories            map[string]CategoryForecast `json:"categories"`
	UserID                string                      `json:"user_id"`
	CategoryOrder         []string                    `json:"category_order"`
	Insights              []string                    `json:"insights"`
	ForecastPeriodDays    int                         `json:"forecast_period_days"`
	TotalPredictedExpense float64                     `json:"total_predicted_expense"`
}
