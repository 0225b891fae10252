package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// InvoiceSeries identifies one invoice numbering stream.
type InvoiceSeries struct {
	Prefix string
	Width  int
}

var (
	SaleSeries     = InvoiceSeries{Prefix: "SALE", Width: 4}
	POSSeries      = InvoiceSeries{Prefix: "POS", Width: 5}
	PurchaseSeries = InvoiceSeries{Prefix: "PUR", Width: 4}
)

// Format renders {PREFIX}-{YYYYMMDD}-{sequence}, zero-padded to the series width.
func (s InvoiceSeries) Format(at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%0*d", s.Prefix, at.Format("20060102"), s.Width, seq)
}

// nextInvoiceNoTx advances the series counter inside tx and returns the formatted number.
// The upsert holds the counter row lock until tx ends, so two postings of the same series
// can never draw the same value.
func nextInvoiceNoTx(ctx context.Context, tx pgx.Tx, series InvoiceSeries, at time.Time) (string, error) {
	var seq int64
	err := tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (prefix, last_number)
		VALUES ($1, 1)
		ON CONFLICT (prefix)
		DO UPDATE SET last_number = invoice_sequences.last_number + 1
		RETURNING last_number
	`, series.Prefix).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s invoice sequence: %w", series.Prefix, err)
	}
	return series.Format(at, seq), nil
}
