// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction is a single financial transaction as supplied by the caller.
//
// Amount is signed: negative values are money leaving the account, positive
// values are money coming in. A zero Date means the record carries no date and
// an empty Category means the record is unlabeled.
type Transaction struct {
	Date        time.Time
	Description string
	Category    string
	Amount      float64
}

// HasDate reports whether the transaction carries a date.
func (t *Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// IsLabeled reports whether the transaction has a category label.
func (t *Transaction) IsLabeled() bool {
	return t.Category != ""
}

// Day returns the calendar day of the transaction at midnight UTC.
func (t *Transaction) Day() time.Time {
	y, m, d := t.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
