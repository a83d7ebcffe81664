package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies the failures the converter can report
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeRateFetch
	ErrorTypeInvalidCurrency
	ErrorTypeInvalidAmount
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateFetch:
		return "rate_fetch"
	case ErrorTypeInvalidCurrency:
		return "invalid_currency"
	case ErrorTypeInvalidAmount:
		return "invalid_amount"
	default:
		return "unknown"
	}
}

// RateFetchError reports a failed round trip to the rate provider.
// StatusCode is zero when no response was received.
type RateFetchError struct {
	Base            string
	StatusCode      int
	ProviderMessage string
	Cause           error
}

func (e *RateFetchError) Error() string {
	var message strings.Builder
	fmt.Fprintf(&message, "fetching %s rates", e.Base)
	if e.StatusCode != 0 {
		fmt.Fprintf(&message, ": provider returned status %d", e.StatusCode)
	}
	if e.ProviderMessage != "" {
		fmt.Fprintf(&message, ": provider reported %q", e.ProviderMessage)
	}
	if e.Cause != nil {
		fmt.Fprintf(&message, ": %v", e.Cause)
	}
	return message.String()
}

func (e *RateFetchError) Unwrap() error {
	return e.Cause
}

// InvalidCurrencyError reports a code with no usable rate in the consulted table
type InvalidCurrencyError struct {
	Code string
}

func (e *InvalidCurrencyError) Error() string {
	return fmt.Sprintf("invalid currency code %q", e.Code)
}

// InvalidAmountError reports an amount that is not a positive finite number
type InvalidAmountError struct {
	Input  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: %s", e.Input, e.Reason)
}

// EntryError ties a batch entry's failure to its position in the input
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("conversion %d: %v", e.Index, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// BatchError is returned alongside batch results when at least one entry failed
type BatchError struct {
	Total    int
	Failures []*EntryError
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d conversions failed: %v", len(e.Failures), e.Total, e.Failures[0])
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, failure := range e.Failures {
		errs[i] = failure
	}
	return errs
}

// Classify returns the ErrorType of the first typed converter error in err's chain
func Classify(err error) ErrorType {
	var (
		fetchErr    *RateFetchError
		currencyErr *InvalidCurrencyError
		amountErr   *InvalidAmountError
	)
	switch {
	case err == nil:
		return ErrorTypeUnknown
	case errors.As(err, &fetchErr):
		return ErrorTypeRateFetch
	case errors.As(err, &currencyErr):
		return ErrorTypeInvalidCurrency
	case errors.As(err, &amountErr):
		return ErrorTypeInvalidAmount
	default:
		return ErrorTypeUnknown
	}
}
