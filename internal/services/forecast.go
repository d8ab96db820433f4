package services

import (
	"math"

	"finman/internal/core"
)

// Forecast method names reported alongside predictions.
const (
	MethodConstant = "constant"
	MethodLinear   = "linear"
	MethodSmoothed = "smoothed"
)

// Holt smoothing coefficients. Tuned for slow-moving monthly aggregates.
const (
	holtAlpha = 0.5
	holtBeta  = 0.3
)

// linearWindow limits the regression to recent history so old regimes do
// not drag the trend line.
const linearWindow = 6

// smoothedMinPoints is the history length at which double exponential
// smoothing takes over from the regression.
const smoothedMinPoints = 12

// Forecast is a one-step-ahead prediction over a monthly series.
type Forecast struct {
	Next   core.Money
	Method string
	// TrendPct is the average month-over-month change of the recent
	// history, as a percentage of the first value in the window.
	TrendPct float64
}

// PredictNext forecasts the next value of a monthly series.
//
// Fewer than two points predict zero; a single observation fixes a level
// but not a direction. Short histories get a least-squares line over the
// recent window; once a year of data exists, Holt double exponential
// smoothing tracks level and trend shifts better than a single global line.
func PredictNext(series []core.Money) Forecast {
	switch {
	case len(series) < 2:
		return Forecast{Method: MethodConstant}
	case len(series) < smoothedMinPoints:
		return Forecast{Next: linearNext(series), Method: MethodLinear, TrendPct: trendPct(series)}
	default:
		return Forecast{Next: holtNext(series), Method: MethodSmoothed, TrendPct: trendPct(series)}
	}
}

// PredictAhead extends the forecast n steps by feeding predictions back
// into the series.
func PredictAhead(series []core.Money, steps int) []core.Money {
	extended := make([]core.Money, len(series), len(series)+steps)
	copy(extended, series)

	out := make([]core.Money, 0, steps)
	for i := 0; i < steps; i++ {
		next := PredictNext(extended).Next
		out = append(out, next)
		extended = append(extended, next)
	}
	return out
}

func linearNext(series []core.Money) core.Money {
	window := series
	if len(window) > linearWindow {
		window = window[len(window)-linearWindow:]
	}

	n := float64(len(window))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range window {
		x := float64(i)
		y := float64(v.Cents)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return window[len(window)-1]
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	next := slope*n + intercept
	return core.Money{Cents: int64(math.Round(next))}
}

func holtNext(series []core.Money) core.Money {
	level := float64(series[0].Cents)
	trend := float64(series[1].Cents - series[0].Cents)

	for _, v := range series[1:] {
		prevLevel := level
		level = holtAlpha*float64(v.Cents) + (1-holtAlpha)*(level+trend)
		trend = holtBeta*(level-prevLevel) + (1-holtBeta)*trend
	}

	return core.Money{Cents: int64(math.Round(level + trend))}
}

func trendPct(series []core.Money) float64 {
	window := series
	if len(window) > linearWindow {
		window = window[len(window)-linearWindow:]
	}
	first := float64(window[0].Cents)
	if first == 0 {
		return 0
	}
	last := float64(window[len(window)-1].Cents)
	months := float64(len(window) - 1)
	if months == 0 {
		return 0
	}
	return (last - first) / first / months * 100
}
