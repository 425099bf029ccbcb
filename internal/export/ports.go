package export

import (
	"context"
	"time"
)

// Row is one ledger line as written to the external accounting sheet.
type Row struct {
	Date        time.Time
	Reference   string
	Kind        string
	Direction   string
	Treasury    string
	BookingRef  string
	Amount      float64
	Currency    string
	Description string
	Voided      bool
}

// LedgerWriter is the outbound port for the external ledger.
type LedgerWriter interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}
