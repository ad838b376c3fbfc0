// Package importer loads transaction lists from JSON, CSV and OFX/QFX files.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spice-ml/internal/model"
)

// ErrUnsupportedFormat is returned for files whose format cannot be detected.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format identifies an input file format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatOFX  Format = "ofx"
)

// Parser reads transactions from r.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error)
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".ofx", ".qfx":
		return FormatOFX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ParserFor returns the parser of format.
func ParserFor(format Format) (Parser, error) {
	switch format {
	case FormatJSON:
		return &JSONParser{}, nil
	case FormatCSV:
		return &CSVParser{}, nil
	case FormatOFX:
		return NewOFXParser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// LoadFile reads every transaction of the file at path. "-" reads JSON from
// standard input.
func LoadFile(ctx context.Context, path string) ([]model.Transaction, error) {
	if path == "-" {
		return (&JSONParser{}).Parse(ctx, os.Stdin)
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	parser, err := ParserFor(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Failed to close input file", "path", path, "error", cerr)
		}
	}()

	txns, err := parser.Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	slog.Debug("Loaded transactions", "path", path, "format", format, "count", len(txns))
	return txns, nil
}

// LoadFiles concatenates the transactions of every path and drops duplicates.
func LoadFiles(ctx context.Context, paths ...string) ([]model.Transaction, error) {
	var all []model.Transaction
	for _, path := range paths {
		txns, err := LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		all = append(all, txns...)
	}
	return Dedupe(all), nil
}

// Dedupe keeps the first of every group of transactions sharing a date,
// amount and description.
func Dedupe(txns []model.Transaction) []model.Transaction {
	seen := make(map[string]bool, len(txns))
	out := make([]model.Transaction, 0, len(txns))
	for i := range txns {
		h := txns[i].GenerateHash()
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, txns[i])
	}
	if dropped := len(txns) - len(out); dropped > 0 {
		slog.Info("Dropped duplicate transactions", "count", dropped)
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseDate accepts ISO-8601 timestamps, plain dates and US-style dates.
// An empty string is a missing date and yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
