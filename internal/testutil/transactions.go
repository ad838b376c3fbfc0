// Package testutil provides deterministic transaction fixtures and store
// helpers shared by package tests.
package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/Veraticus/spice-ml/internal/model"
)

// DefaultStart is the first day of every generated history.
var DefaultStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// CategorySpec describes how to generate one category's transactions.
type CategorySpec struct {
	Name         string
	Descriptions []string
	BaseAmount   float64
	Count        int
	DistinctDays int
}

// Standard category specs used across tests.
var (
	Food = CategorySpec{
		Name:         "Food",
		Descriptions: []string{"Starbucks Coffee #123", "Whole Foods Market", "Chipotle Burrito Bowl", "Local Grocery Store"},
		BaseAmount:   15,
	}
	Transportation = CategorySpec{
		Name:         "Transportation",
		Descriptions: []string{"Uber Trip Downtown", "Shell Gas Station", "Metro Transit Pass", "Lyft Ride Airport"},
		BaseAmount:   30,
	}
	Bills = CategorySpec{
		Name:         "Bills",
		Descriptions: []string{"Electric Utility Bill", "Comcast Internet Service", "Water Bill Payment", "Verizon Wireless Phone"},
		BaseAmount:   90,
	}
)

// Builder assembles a deterministic transaction list.
type Builder struct {
	t       testing.TB
	start   time.Time
	specs   []CategorySpec
	noDates bool
	noLabel bool
}

// NewBuilder creates a builder starting at DefaultStart.
func NewBuilder(t testing.TB) *Builder {
	t.Helper()
	return &Builder{t: t, start: DefaultStart}
}

// StartingAt moves the first generated day.
func (b *Builder) StartingAt(start time.Time) *Builder {
	b.start = start
	return b
}

// WithCategory adds count transactions of spec spread over days distinct days.
func (b *Builder) WithCategory(spec CategorySpec, count, days int) *Builder {
	spec.Count = count
	spec.DistinctDays = days
	b.specs = append(b.specs, spec)
	return b
}

// WithoutDates drops every date.
func (b *Builder) WithoutDates() *Builder {
	b.noDates = true
	return b
}

// Unlabeled drops every category label.
func (b *Builder) Unlabeled() *Builder {
	b.noLabel = true
	return b
}

// Build generates the transactions, interleaving categories so that the
// output is not grouped by label.
func (b *Builder) Build() []model.Transaction {
	b.t.Helper()

	perSpec := make([][]model.Transaction, len(b.specs))
	longest := 0
	for s, spec := range b.specs {
		if spec.Count <= 0 || spec.DistinctDays <= 0 || len(spec.Descriptions) == 0 {
			b.t.Fatalf("invalid category spec %q", spec.Name)
		}
		perSpec[s] = b.generate(spec)
		longest = max(longest, len(perSpec[s]))
	}

	var out []model.Transaction
	for i := 0; i < longest; i++ {
		for s := range perSpec {
			if i < len(perSpec[s]) {
				out = append(out, perSpec[s][i])
			}
		}
	}
	return out
}

func (b *Builder) generate(spec CategorySpec) []model.Transaction {
	txns := make([]model.Transaction, spec.Count)
	for i := range txns {
		dayOffset := i % spec.DistinctDays
		hour := 8 + (i*5)%12
		wobble := math.Sin(float64(i)) * spec.BaseAmount * 0.2
		txns[i] = model.Transaction{
			Description: spec.Descriptions[i%len(spec.Descriptions)],
			Amount:      -math.Round((spec.BaseAmount+wobble)*100) / 100,
			Category:    spec.Name,
		}
		if !b.noDates {
			txns[i].Date = b.start.AddDate(0, 0, dayOffset).Add(time.Duration(hour) * time.Hour)
		}
		if b.noLabel {
			txns[i].Category = ""
		}
	}
	return txns
}

// ThreeCategories returns count transactions for each of Food,
// Transportation and Bills, each spread over days distinct days.
func ThreeCategories(t testing.TB, count, days int) []model.Transaction {
	t.Helper()
	return NewBuilder(t).
		WithCategory(Food, count, days).
		WithCategory(Transportation, count, days).
		WithCategory(Bills, count, days).
		Build()
}
