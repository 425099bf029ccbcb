package docs

import (
	"fmt"
	"strings"

	"tourdesk/internal/core"
)

var onesWords = [...]string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen",
}

var tensWords = [...]string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy",
	"eighty", "ninety",
}

var scaleWords = [...]struct {
	value int64
	word  string
}{
	{1_000_000_000, "billion"},
	{1_000_000, "million"},
	{1_000, "thousand"},
}

func wordsBelowThousand(n int64) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, onesWords[n/100], "hundred")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 20:
		parts = append(parts, onesWords[n])
	default:
		t := tensWords[n/10]
		if n%10 != 0 {
			t += "-" + onesWords[n%10]
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

func numberWords(n int64) string {
	if n == 0 {
		return "zero"
	}
	var parts []string
	for _, s := range scaleWords {
		if n >= s.value {
			parts = append(parts, wordsBelowThousand(n/s.value), s.word)
			n %= s.value
		}
	}
	if n > 0 {
		parts = append(parts, wordsBelowThousand(n))
	}
	return strings.Join(parts, " ")
}

// AmountInWords spells out an amount for invoices, in the common
// "One thousand two hundred and 50/100 USD" banking style.
func AmountInWords(m core.Money) string {
	cents := m.Cents
	prefix := ""
	if cents < 0 {
		prefix = "minus "
		cents = -cents
	}
	w := prefix + numberWords(cents/100)
	w = strings.ToUpper(w[:1]) + w[1:]
	return fmt.Sprintf("%s and %02d/100 %s", w, cents%100, m.Currency)
}
