package docs

import (
	"testing"

	"tourdesk/internal/core"
)

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{"zero", 0, "Zero and 00/100 USD"},
		{"cents only", 50, "Zero and 50/100 USD"},
		{"teens", 1700, "Seventeen and 00/100 USD"},
		{"hyphenated tens", 4200, "Forty-two and 00/100 USD"},
		{"hundreds", 90000, "Nine hundred and 00/100 USD"},
		{"thousands with cents", 125050, "One thousand two hundred fifty and 50/100 USD"},
		{"millions", 250000000, "Two million five hundred thousand and 00/100 USD"},
		{"negative", -7500, "Minus seventy-five and 00/100 USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountInWords(core.Money{Cents: tt.cents, Currency: "USD"})
			if got != tt.want {
				t.Errorf("AmountInWords(%d) = %q, want %q", tt.cents, got, tt.want)
			}
		})
	}
}
