package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/dalfonso89/currency-converter/internal/models"
)

// ParseAmount converts user input into an amount accepted by Convert
func ParseAmount(input string) (float64, error) {
	trimmed := strings.TrimSpace(input)
	amount, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, &InvalidAmountError{Input: strconv.Quote(input), Reason: "not a number"}
	}
	if err := validateAmount(amount); err != nil {
		return 0, err
	}
	return amount, nil
}

func validateAmount(amount float64) error {
	switch {
	case math.IsNaN(amount) || math.IsInf(amount, 0):
		return &InvalidAmountError{Input: formatAmount(amount), Reason: "not a number"}
	case amount <= 0:
		return &InvalidAmountError{Input: formatAmount(amount), Reason: "must be positive"}
	}
	return nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'g', -1, 64)
}

// rateFor returns the usable rate for code; non-positive rates are unusable
func rateFor(code string, rates models.RateTable) (float64, error) {
	rate, ok := rates.Rate(code)
	if !ok || !(rate > 0) || math.IsInf(rate, 0) {
		return 0, &InvalidCurrencyError{Code: models.NormalizeCode(code)}
	}
	return rate, nil
}

// PairRate returns how many units of to one unit of from buys
func PairRate(from, to string, rates models.RateTable) (float64, error) {
	fromRate, err := rateFor(from, rates)
	if err != nil {
		return 0, err
	}
	toRate, err := rateFor(to, rates)
	if err != nil {
		return 0, err
	}
	return toRate / fromRate, nil
}

// Convert returns amount expressed in to, using rates[to]/rates[from].
// The result is not rounded.
func Convert(amount float64, from, to string, rates models.RateTable) (float64, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}
	rate, err := PairRate(from, to, rates)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// ConvertBatch converts every request against the same table.
// Every request yields a result in input order; failed entries carry Err and a zero
// Converted amount, and a *BatchError summarising them is returned.
func ConvertBatch(requests []models.ConversionRequest, rates models.RateTable) ([]models.ConversionResult, error) {
	results := make([]models.ConversionResult, len(requests))
	var failures []*EntryError

	for i, request := range requests {
		request.From = models.NormalizeCode(request.From)
		request.To = models.NormalizeCode(request.To)
		results[i].ConversionRequest = request

		converted, err := Convert(request.Amount, request.From, request.To, rates)
		if err != nil {
			results[i].Err = err
			failures = append(failures, &EntryError{Index: i, Err: err})
			continue
		}
		results[i].Converted = converted
		results[i].Rate, _ = PairRate(request.From, request.To, rates)
	}

	if len(failures) > 0 {
		return results, &BatchError{Total: len(requests), Failures: failures}
	}
	return results, nil
}
