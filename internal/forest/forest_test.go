package forest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separableData() ([][]float64, []string) {
	var x [][]float64
	var y []string
	for i := 0; i < 30; i++ {
		v := float64(i) / 10
		x = append(x, []float64{v, 0})
		y = append(y, "low")
		x = append(x, []float64{v + 10, 1})
		y = append(y, "high")
	}
	return x, y
}

func TestForest_FitPredict(t *testing.T) {
	x, y := separableData()
	f := New(DefaultConfig())
	require.NoError(t, f.Fit(x, y))

	assert.True(t, f.Fitted())
	assert.Equal(t, []string{"high", "low"}, f.Classes)

	label, err := f.Predict([]float64{0.5, 0})
	require.NoError(t, err)
	assert.Equal(t, "low", label)

	proba, err := f.PredictProba([]float64{12, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, proba[0]+proba[1], 1e-9)
	assert.Greater(t, proba[0], proba[1])
}

func TestForest_Deterministic(t *testing.T) {
	x, y := separableData()
	a := New(DefaultConfig())
	b := New(DefaultConfig())
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))

	for _, probe := range [][]float64{{1, 0}, {5, 0.5}, {11, 1}} {
		pa, err := a.PredictProba(probe)
		require.NoError(t, err)
		pb, err := b.PredictProba(probe)
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
	}
}

func TestForest_SingleClass(t *testing.T) {
	f := New(Config{Trees: 5, MaxDepth: 3, Seed: 1})
	require.NoError(t, f.Fit([][]float64{{1}, {2}, {3}}, []string{"a", "a", "a"}))

	proba, err := f.PredictProba([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, proba)
}

func TestForest_Errors(t *testing.T) {
	f := New(DefaultConfig())
	_, err := f.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.Error(t, f.Fit(nil, nil))
	assert.Error(t, f.Fit([][]float64{{1}}, []string{"a", "b"}))
	assert.Error(t, f.Fit([][]float64{{1}, {1, 2}}, []string{"a", "b"}))

	x, y := separableData()
	require.NoError(t, f.Fit(x, y))
	_, err = f.PredictProba([]float64{1})
	assert.Error(t, err)
}

func TestForest_JSONRoundTrip(t *testing.T) {
	x, y := separableData()
	f := New(Config{Trees: 10, MaxDepth: 4, Seed: 7, BalanceClasses: true})
	require.NoError(t, f.Fit(x, y))

	data, err := json.Marshal(f)
	require.NoError(t, err)
	var restored Forest
	require.NoError(t, json.Unmarshal(data, &restored))

	for _, row := range x {
		want, err := f.PredictProba(row)
		require.NoError(t, err)
		got, err := restored.PredictProba(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
