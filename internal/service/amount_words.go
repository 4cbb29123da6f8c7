package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	wordOnes = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten",
		"Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	wordTens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// AmountInWords spells an amount using Indian grouping (thousand, lakh, crore), e.g.
// 125000.50 -> "One Lakh Twenty Five Thousand Rupees and Fifty Paise Only".
func AmountInWords(amount decimal.Decimal, unit, subunit string) string {
	if unit == "" {
		unit = "Rupees"
	}
	if subunit == "" {
		subunit = "Paise"
	}
	amount = amount.Abs().Round(2)
	whole := amount.IntPart()
	fraction := amount.Sub(decimal.NewFromInt(whole)).Shift(2).IntPart()

	var b strings.Builder
	if whole == 0 {
		b.WriteString("Zero")
	} else {
		b.WriteString(indianWords(whole))
	}
	b.WriteString(" " + unit)
	if fraction > 0 {
		b.WriteString(" and " + belowHundred(fraction) + " " + subunit)
	}
	b.WriteString(" Only")
	return b.String()
}

func indianWords(n int64) string {
	var parts []string
	if crore := n / 10000000; crore > 0 {
		// Anything at or beyond a hundred crore is spelled recursively, e.g. "One Hundred Crore".
		parts = append(parts, indianWords(crore)+" Crore")
		n %= 10000000
	}
	if lakh := n / 100000; lakh > 0 {
		parts = append(parts, belowHundred(lakh)+" Lakh")
		n %= 100000
	}
	if thousand := n / 1000; thousand > 0 {
		parts = append(parts, belowHundred(thousand)+" Thousand")
		n %= 1000
	}
	if hundred := n / 100; hundred > 0 {
		parts = append(parts, wordOnes[hundred]+" Hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, belowHundred(n))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int64) string {
	if n < 20 {
		return wordOnes[n]
	}
	if n%10 == 0 {
		return wordTens[n/10]
	}
	return wordTens[n/10] + " " + wordOnes[n%10]
}
