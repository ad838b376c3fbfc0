package model

import "time"

// Alternative is one ranked candidate label for a transaction.
type Alternative struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Prediction is the categorizer output for one transaction.
type Prediction struct {
	Category     string        `json:"category"`
	Alternatives []Alternative `json:"alternatives"`
	Confidence   float64       `json:"confidence"`
}

// CategorizerTrainingResult summarizes a categorizer training run.
type CategorizerTrainingResult struct {
	TrainedAt       time.Time `json:"trained_at"`
	Accuracy        float64   `json:"accuracy"`
	NumTransactions int       `json:"num_transactions"`
	NumCategories   int       `json:"num_categories"`
}

// FamilyStatus describes whether one model family is usable for a user.
type FamilyStatus struct {
	Categories []string `json:"categories"`
	Trained    bool     `json:"trained"`
}

// ModelStatus reports both model families for a user.
type ModelStatus struct {
	UserID      string       `json:"user_id"`
	Categorizer FamilyStatus `json:"categorizer"`
	Forecaster  FamilyStatus `json:"forecaster"`
}
