package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

// AmountMessage is the caller-facing message for any rejected payment amount.
const AmountMessage = "Amount must be a positive number greater than 0"

var (
	errAmountFormat   = errors.New("amount is not a finite decimal")
	errAmountTooLarge = errors.New("amount exceeds 999999999999.99")
)

// ParseAmount accepts a JSON number or a numeric JSON string and returns a positive amount with at most
// two decimal places.
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	value, err := parseDecimalField(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !value.IsPositive() {
		return decimal.Zero, errors.New("amount must be greater than zero")
	}
	return value, nil
}

// parseDecimalField decodes a monetary JSON value allowing zero. Empty or null input is an error.
func parseDecimalField(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Zero, errors.New("amount is required")
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return decimal.Zero, errAmountFormat
		}
		text = strings.TrimSpace(text)
	}
	if text == "" || strings.ContainsAny(text, "xXpP_") {
		return decimal.Zero, errAmountFormat
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errAmountFormat
	}
	if value.Exponent() < -models.Cents && !value.Equal(value.Round(models.Cents)) {
		return decimal.Zero, errors.New("amount has more than two decimal places")
	}
	if value.Abs().GreaterThan(models.MaxAmount) {
		return decimal.Zero, errAmountTooLarge
	}
	return value.Round(models.Cents), nil
}
