package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/spice-ml/internal/model"
)

// jsonTransaction is the wire form of a transaction record.
type jsonTransaction struct {
	Category    *string `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
}

// JSONParser reads either a bare array of records or an object with a
// "transactions" array.
type JSONParser struct{}

// Parse decodes every record of r.
func (p *JSONParser) Parse(_ context.Context, r io.Reader) ([]model.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	var records []jsonTransaction
	if err := json.Unmarshal(data, &records); err != nil {
		var wrapped struct {
			Transactions []jsonTransaction `json:"transactions"`
		}
		if werr := json.Unmarshal(data, &wrapped); werr != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		records = wrapped.Transactions
	}

	txns := make([]model.Transaction, 0, len(records))
	for i, rec := range records {
		date, err := ParseDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		tx := model.Transaction{
			Description: rec.Description,
			Amount:      rec.Amount,
			Date:        date,
		}
		if rec.Category != nil {
			tx.Category = *rec.Category
		}
		txns = append(txns, tx)
	}
	return txns, nil
}
