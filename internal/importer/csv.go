package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-ml/internal/model"
)

// CSVParser reads files with a header row naming description and amount
// columns, plus optional date and category columns, in any order.
type CSVParser struct{}

// Parse decodes every row of r.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	descCol, ok := cols["description"]
	if !ok {
		return nil, errors.New("CSV header has no description column")
	}
	amountCol, ok := cols["amount"]
	if !ok {
		return nil, errors.New("CSV header has no amount column")
	}
	dateCol, hasDate := cols["date"]
	categoryCol, hasCategory := cols["category"]

	var txns []model.Transaction
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(record[amountCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q", line, record[amountCol])
		}
		tx := model.Transaction{
			Description: record[descCol],
			Amount:      amount,
		}
		if hasDate {
			if tx.Date, err = ParseDate(record[dateCol]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if hasCategory {
			tx.Category = strings.TrimSpace(record[categoryCol])
		}
		txns = append(txns, tx)
	}
	return txns, nil
}
