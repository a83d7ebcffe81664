// Package display renders conversion results for people. Conversion itself never rounds;
// rounding to two decimal places happens only here.
package display

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dalfonso89/currency-converter/internal/models"
)

const places = 2

// Amount rounds v half away from zero to two decimal places
func Amount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Conversion renders the single-line CLI result, e.g. "100 USD = 14000.00 KES".
// The input amount is shown as entered.
func Conversion(result models.ConversionResult) string {
	return fmt.Sprintf("%s %s = %s %s",
		decimal.NewFromFloat(result.Amount).String(), result.From, Amount(result.Converted), result.To)
}

// BatchLine renders one batch entry with both amounts fixed to two places
func BatchLine(result models.ConversionResult) string {
	if result.Err != nil {
		return fmt.Sprintf("%s %s -> %s: %v", Amount(result.Amount), result.From, result.To, result.Err)
	}
	return fmt.Sprintf("%s %s = %s %s", Amount(result.Amount), result.From, Amount(result.Converted), result.To)
}

// LastUpdated renders the table timestamp, e.g. "Rates last updated: 2023-11-14 22:13:20 UTC"
func LastUpdated(table models.RateTable) string {
	if table.LastUpdated.IsZero() {
		return "Rates last updated: unknown"
	}
	return "Rates last updated: " + table.LastUpdated.UTC().Format(time.DateTime) + " UTC"
}
