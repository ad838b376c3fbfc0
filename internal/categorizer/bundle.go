package categorizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/features"
	"github.com/Veraticus/spice-ml/internal/forest"
	"github.com/Veraticus/spice-ml/internal/service"
	"github.com/Veraticus/spice-ml/internal/text"
)

// Artifact names of the categorizer bundle.
const (
	ArtifactVectorizer = "vectorizer"
	ArtifactScaler     = "scaler"
	ArtifactClassifier = "classifier"
	ArtifactMetadata   = "metadata"
)

// Metadata describes a saved categorizer.
type Metadata struct {
	SavedAt      time.Time `json:"saved_at"`
	UserID       string    `json:"user_id"`
	RunID        string    `json:"run_id"`
	Categories   []string  `json:"categories"`
	FeatureWidth int       `json:"feature_width"`
	HasDates     bool      `json:"has_dates"`
}

// Bundle is the full persisted state of a categorizer. The three core
// artifacts are only useful together.
type Bundle struct {
	Vectorizer *text.Vectorizer
	Scaler     *features.Scaler
	Classifier *forest.Forest
	Metadata   Metadata
}

// Encode serializes every artifact of the bundle.
func (b *Bundle) Encode() (map[string][]byte, error) {
	parts := map[string]any{
		ArtifactVectorizer: b.Vectorizer,
		ArtifactScaler:     b.Scaler,
		ArtifactClassifier: b.Classifier,
		ArtifactMetadata:   b.Metadata,
	}
	out := make(map[string][]byte, len(parts))
	for name, v := range parts {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// readBundle loads the three core artifacts of scope. It fails if any of them
// is missing or cannot be decoded; metadata is optional.
func readBundle(ctx context.Context, store service.ArtifactStore, scope service.Scope) (*Bundle, error) {
	b := &Bundle{
		Vectorizer: &text.Vectorizer{},
		Scaler:     &features.Scaler{},
		Classifier: &forest.Forest{},
	}
	core := []struct {
		name string
		dst  any
	}{
		{ArtifactVectorizer, b.Vectorizer},
		{ArtifactScaler, b.Scaler},
		{ArtifactClassifier, b.Classifier},
	}
	for _, part := range core {
		raw, err := store.Get(ctx, scope, part.name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", part.name, err)
		}
		if err := json.Unmarshal(raw, part.dst); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", common.ErrPersistence, part.name, err)
		}
	}

	raw, err := store.Get(ctx, scope, ArtifactMetadata)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &b.Metadata); err != nil {
			return nil, fmt.Errorf("%w: decode metadata: %w", common.ErrPersistence, err)
		}
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	if !b.Vectorizer.Fitted() || !b.Scaler.Fitted() || !b.Classifier.Fitted() {
		return nil, fmt.Errorf("%w: incomplete categorizer bundle", common.ErrPersistence)
	}
	return b, nil
}
