// Package forecast predicts future daily spending per category.
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Veraticus/spice-ml/internal/timeseries"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	weeklyPeriod = 7.0
	yearlyPeriod = 365.25
	day          = 24 * time.Hour
)

// ModelConfig holds the fixed smoothing hyperparameters of the additive model.
type ModelConfig struct {
	NChangepoints         int     `json:"n_changepoints"`
	ChangepointRange      float64 `json:"changepoint_range"`
	ChangepointPriorScale float64 `json:"changepoint_prior_scale"`
	SeasonalityPriorScale float64 `json:"seasonality_prior_scale"`
	TrendPriorScale       float64 `json:"trend_prior_scale"`
	IntervalWidth         float64 `json:"interval_width"`
	WeeklyOrder           int     `json:"weekly_order"`
	YearlyOrder           int     `json:"yearly_order"`
	YearlyMinDays         int     `json:"yearly_min_days"`
}

// DefaultModelConfig returns weekly seasonality always on, yearly seasonality
// from 365 days of history, changepoint prior 0.05 and seasonality prior 10.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		NChangepoints:         25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		TrendPriorScale:       5,
		IntervalWidth:         0.8,
		WeeklyOrder:           3,
		YearlyOrder:           10,
		YearlyMinDays:         365,
	}
}

// Estimate is a point prediction with its uncertainty interval.
type Estimate struct {
	Date  time.Time
	Yhat  float64
	Lower float64
	Upper float64
}

// Model is a fitted additive model: piecewise-linear trend plus weekly and
// optionally yearly Fourier seasonality, fitted on a daily series.
type Model struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Changepoints []float64 `json:"changepoints"`
	Beta         []float64 `json:"beta"`
	TScale       float64   `json:"t_scale"`
	YScale       float64   `json:"y_scale"`
	Sigma        float64   `json:"sigma"`
	TrendSpread  float64   `json:"trend_spread"`
	Z            float64   `json:"z"`
	WeeklyOrder  int       `json:"weekly_order"`
	YearlyOrder  int       `json:"yearly_order"`
	HistoryDays  int       `json:"history_days"`
	Yearly       bool      `json:"yearly"`
}

// Fit estimates the model on points, which must be sorted by date.
// The fit is a MAP estimate under Gaussian priors, solved as penalized least
// squares; the noise variance is re-estimated over a few passes.
func Fit(points []timeseries.Point, cfg ModelConfig) (*Model, error) {
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("fit model: need at least 2 points, got %d", n)
	}

	m := &Model{
		Start:       points[0].Date,
		End:         points[n-1].Date,
		WeeklyOrder: cfg.WeeklyOrder,
		HistoryDays: n,
		Yearly:      n >= cfg.YearlyMinDays,
		Z:           distuv.UnitNormal.Quantile(0.5 + cfg.IntervalWidth/2),
	}
	if m.Yearly {
		m.YearlyOrder = cfg.YearlyOrder
	}

	m.TScale = m.End.Sub(m.Start).Hours() / 24
	if m.TScale <= 0 {
		m.TScale = 1
	}
	for _, p := range points {
		m.YScale = math.Max(m.YScale, math.Abs(p.Value))
	}
	if m.YScale == 0 {
		m.YScale = 1
	}

	ts := make([]float64, n)
	y := make([]float64, n)
	for i, p := range points {
		ts[i] = m.scaledTime(p.Date)
		y[i] = p.Value / m.YScale
	}
	m.Changepoints = placeChangepoints(ts, cfg)

	p := m.width()
	x := mat.NewDense(n, p, nil)
	for i, pt := range points {
		x.SetRow(i, m.row(pt.Date))
	}

	priors := m.priorScales(cfg)
	yv := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)

	_, yVar := stat.PopMeanVariance(y, nil)
	noise := math.Max(yVar, 1e-4)
	var beta mat.VecDense
	for pass := 0; pass < 3; pass++ {
		a := mat.DenseCopyOf(&xtx)
		for j := 0; j < p; j++ {
			a.Set(j, j, a.At(j, j)+noise/(priors[j]*priors[j]))
		}
		if err := beta.SolveVec(a, &xty); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return nil, fmt.Errorf("fit model: %w", err)
			}
			slog.Debug("Ill-conditioned forecast fit", "condition", float64(cond))
		}

		var fitted mat.VecDense
		fitted.MulVec(x, &beta)
		var sse float64
		for i := 0; i < n; i++ {
			r := y[i] - fitted.AtVec(i)
			sse += r * r
		}
		noise = math.Max(sse/float64(n), 1e-6)
	}

	m.Beta = make([]float64, p)
	for j := range m.Beta {
		m.Beta[j] = beta.AtVec(j)
	}
	m.Sigma = math.Sqrt(noise) * m.YScale

	deltas := m.Beta[2 : 2+len(m.Changepoints)]
	for _, d := range deltas {
		m.TrendSpread += math.Abs(d)
	}
	if len(deltas) > 0 {
		m.TrendSpread /= float64(len(deltas))
	}
	return m, nil
}

// Predict evaluates the model on arbitrary dates.
func (m *Model) Predict(dates []time.Time) []Estimate {
	out := make([]Estimate, len(dates))
	for i, d := range dates {
		row := m.row(d)
		var yhat float64
		for j, v := range row {
			yhat += v * m.Beta[j]
		}
		yhat *= m.YScale

		sd := m.Sigma
		if h := m.scaledTime(d) - 1; h > 0 {
			trend := m.TrendSpread * h * m.YScale
			sd = math.Sqrt(m.Sigma*m.Sigma + trend*trend)
		}
		out[i] = Estimate{
			Date:  d,
			Yhat:  yhat,
			Lower: yhat - m.Z*sd,
			Upper: yhat + m.Z*sd,
		}
	}
	return out
}

// Forecast predicts the periods days following the last history day.
func (m *Model) Forecast(periods int) []Estimate {
	if periods <= 0 {
		return nil
	}
	dates := make([]time.Time, periods)
	for i := range dates {
		dates[i] = m.End.Add(time.Duration(i+1) * day)
	}
	return m.Predict(dates)
}

func (m *Model) scaledTime(d time.Time) float64 {
	return d.Sub(m.Start).Hours() / 24 / m.TScale
}

func (m *Model) width() int {
	return 2 + len(m.Changepoints) + 2*m.WeeklyOrder + 2*m.YearlyOrder
}

// row builds the design row: intercept, slope, changepoint hinges, then
// weekly and yearly Fourier terms over days since the Unix epoch.
func (m *Model) row(d time.Time) []float64 {
	t := m.scaledTime(d)
	row := make([]float64, 0, m.width())
	row = append(row, 1, t)
	for _, c := range m.Changepoints {
		row = append(row, math.Max(0, t-c))
	}
	epochDays := float64(d.Unix()) / 86400
	row = fourier(row, epochDays, weeklyPeriod, m.WeeklyOrder)
	row = fourier(row, epochDays, yearlyPeriod, m.YearlyOrder)
	return row
}

func (m *Model) priorScales(cfg ModelConfig) []float64 {
	scales := make([]float64, 0, m.width())
	scales = append(scales, cfg.TrendPriorScale, cfg.TrendPriorScale)
	for range m.Changepoints {
		scales = append(scales, cfg.ChangepointPriorScale)
	}
	for i := 0; i < 2*(m.WeeklyOrder+m.YearlyOrder); i++ {
		scales = append(scales, cfg.SeasonalityPriorScale)
	}
	return scales
}

func fourier(row []float64, t, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * t / period
		row = append(row, math.Sin(arg), math.Cos(arg))
	}
	return row
}

// placeChangepoints spreads candidate changepoints uniformly over the first
// ChangepointRange of the history rows.
func placeChangepoints(ts []float64, cfg ModelConfig) []float64 {
	histSize := int(math.Floor(float64(len(ts)) * cfg.ChangepointRange))
	count := cfg.NChangepoints
	if count+1 > histSize {
		count = histSize - 1
	}
	if count <= 0 {
		return nil
	}
	cps := make([]float64, 0, count)
	for i := 1; i <= count; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(count)))
		cps = append(cps, ts[idx])
	}
	return cps
}
