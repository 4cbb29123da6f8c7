package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReceiptPrefix starts every receipt number.
const ReceiptPrefix = "RCP-"

// ReceiptSequenceDigits is the zero-padded width of the per-month sequence.
const ReceiptSequenceDigits = 5

// ReceiptPeriod returns the YYMM period a timestamp falls into in the given location.
func ReceiptPeriod(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("0601")
}

// FormatReceiptNumber renders RCP-{YYMM}-{NNNNN}.
func FormatReceiptNumber(period string, seq int) string {
	return fmt.Sprintf("%s%s-%0*d", ReceiptPrefix, period, ReceiptSequenceDigits, seq)
}

// ReceiptPeriodPattern is a LIKE pattern matching every receipt of a period.
func ReceiptPeriodPattern(period string) string {
	return ReceiptPrefix + period + "-%"
}

// ParseReceiptNumber splits a receipt number into its period and sequence.
func ParseReceiptNumber(number string) (string, int, error) {
	rest, ok := strings.CutPrefix(number, ReceiptPrefix)
	if !ok {
		return "", 0, fmt.Errorf("receipt %q: missing prefix", number)
	}
	period, seqPart, ok := strings.Cut(rest, "-")
	if !ok || len(period) != 4 {
		return "", 0, fmt.Errorf("receipt %q: malformed period", number)
	}
	if _, err := time.Parse("0601", period); err != nil {
		return "", 0, fmt.Errorf("receipt %q: malformed period: %w", number, err)
	}
	if len(seqPart) < ReceiptSequenceDigits {
		return "", 0, fmt.Errorf("receipt %q: sequence too short", number)
	}
	seq, err := strconv.Atoi(seqPart)
	if err != nil || seq <= 0 {
		return "", 0, fmt.Errorf("receipt %q: malformed sequence", number)
	}
	return period, seq, nil
}
