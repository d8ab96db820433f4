// Package calc implements the financial formulas used across the tracker:
// loan EMIs and amortization, SIP and lump-sum compounding, CAGR and XIRR.
//
// Inputs and outputs are integer paise; intermediate compounding math runs in
// float64 and is rounded half-up back to paise at the boundary.
package calc

import (
	"errors"
	"math"
	"time"

	"finman/internal/core"
)

// Max deductible investment under Section 80C, in paise (₹1.5 lakh).
const section80CCapCents int64 = 150000 * 100

var ErrMismatchedSeries = errors.New("cashflows and dates must have the same length")

func roundCents(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// EMI returns the equated monthly installment for a loan:
// P·r·(1+r)^n / ((1+r)^n − 1) with monthly rate r. A zero rate degrades to
// straight principal division.
func EMI(principal core.Money, annualRatePct float64, tenureMonths int) core.Money {
	if tenureMonths <= 0 {
		return core.Money{}
	}
	p := float64(principal.Cents)
	r := annualRatePct / (12 * 100)
	if r <= 0 {
		return core.Money{Cents: roundCents(p / float64(tenureMonths))}
	}
	pow := math.Pow(1+r, float64(tenureMonths))
	emi := p * r * pow / (pow - 1)
	return core.Money{Cents: roundCents(emi)}
}

// SIPValue returns total invested and the future value of a monthly SIP after
// the given number of contributions, using the annuity-due formula
// A·(((1+i)^n − 1)/i)·(1+i).
func SIPValue(monthly core.Money, annualReturnPct float64, months int) (invested, value core.Money) {
	if months <= 0 {
		return core.Money{}, core.Money{}
	}
	a := float64(monthly.Cents)
	i := annualReturnPct / (12 * 100)
	invested = core.Money{Cents: monthly.Cents * int64(months)}
	if i <= 0 {
		return invested, invested
	}
	fv := a * ((math.Pow(1+i, float64(months)) - 1) / i) * (1 + i)
	return invested, core.Money{Cents: roundCents(fv)}
}

// LumpSumValue returns the maturity value of a one-off deposit compounded
// annually for a possibly fractional number of years: P·(1+r)^t.
func LumpSumValue(principal core.Money, annualRatePct float64, years float64) core.Money {
	if years <= 0 {
		return principal
	}
	v := float64(principal.Cents) * math.Pow(1+annualRatePct/100, years)
	return core.Money{Cents: roundCents(v)}
}

// ScheduleRow is one month of a loan amortization schedule.
type ScheduleRow struct {
	Month     int        `json:"month"`
	EMI       core.Money `json:"emi"`
	Interest  core.Money `json:"interest"`
	Principal core.Money `json:"principal"`
	Balance   core.Money `json:"balance"`
}

// AmortizationSchedule expands a loan into its month-by-month repayment rows.
// The closing balance is clamped at zero to absorb rounding drift in the
// final installment.
func AmortizationSchedule(principal core.Money, annualRatePct float64, tenureMonths int, emi core.Money) []ScheduleRow {
	if tenureMonths <= 0 {
		return nil
	}
	r := annualRatePct / (12 * 100)
	rows := make([]ScheduleRow, 0, tenureMonths)
	balance := float64(principal.Cents)
	for month := 1; month <= tenureMonths; month++ {
		interest := balance * r
		principalPaid := float64(emi.Cents) - interest
		balance -= principalPaid
		rows = append(rows, ScheduleRow{
			Month:     month,
			EMI:       emi,
			Interest:  core.Money{Cents: roundCents(interest)},
			Principal: core.Money{Cents: roundCents(principalPaid)},
			Balance:   core.Money{Cents: max64(roundCents(balance), 0)},
		})
	}
	return rows
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// MonthsBetween counts whole calendar months from start to end.
func MonthsBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// CAGR returns the compound annual growth rate in percent, or 0 when the
// inputs make it undefined.
func CAGR(initial, final core.Money, years float64) float64 {
	if initial.Cents <= 0 || years <= 0 {
		return 0
	}
	ratio := float64(final.Cents) / float64(initial.Cents)
	return round2((math.Pow(ratio, 1/years) - 1) * 100)
}

// XIRR computes the annualized internal rate of return in percent for dated
// cashflows (negative for investments, positive for returns) via
// Newton-Raphson with at most 100 iterations.
func XIRR(cashflows []core.Money, dates []time.Time) (float64, error) {
	if len(cashflows) != len(dates) {
		return 0, ErrMismatchedSeries
	}
	if len(cashflows) == 0 {
		return 0, nil
	}

	first := dates[0]
	years := make([]float64, len(dates))
	for i, d := range dates {
		years[i] = d.Sub(first).Hours() / 24 / 365.25
	}

	rate := 0.1
	for iter := 0; iter < 100; iter++ {
		var npv, dnpv float64
		for i, cf := range cashflows {
			v := float64(cf.Cents)
			npv += v / math.Pow(1+rate, years[i])
			dnpv += -v * years[i] / math.Pow(1+rate, years[i]+1)
		}
		if math.Abs(dnpv) < 1e-6 {
			break
		}
		rate -= npv / dnpv
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, nil
	}
	return round2(rate * 100), nil
}

// TaxSavings80C returns the tax saved by an investment under Section 80C,
// capped at the ₹1.5 lakh eligibility limit.
func TaxSavings80C(investment core.Money, taxRatePct float64) core.Money {
	eligible := investment.Cents
	if eligible > section80CCapCents {
		eligible = section80CCapCents
	}
	if eligible < 0 {
		eligible = 0
	}
	return core.Money{Cents: roundCents(float64(eligible) * taxRatePct / 100)}
}

// EmergencyFund returns the recommended emergency fund: the monthly expense
// figure times the number of months to cover.
func EmergencyFund(monthlyExpenses core.Money, months int) core.Money {
	if months <= 0 {
		months = 6
	}
	return core.Money{Cents: monthlyExpenses.Cents * int64(months)}
}

// Allocate splits a total across categories by percentage.
func Allocate(total core.Money, percentages map[string]float64) map[string]core.Money {
	out := make(map[string]core.Money, len(percentages))
	for category, pct := range percentages {
		out[category] = core.Money{Cents: roundCents(float64(total.Cents) * pct / 100)}
	}
	return out
}

func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
