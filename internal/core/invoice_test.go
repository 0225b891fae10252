package core_test

import (
	"testing"
	"time"

	"branchpos/internal/core"
)

func TestInvoiceSeries_Format(t *testing.T) {
	at := time.Date(2026, 3, 7, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		series core.InvoiceSeries
		seq    int64
		want   string
	}{
		{core.SaleSeries, 1, "SALE-20260307-0001"},
		{core.POSSeries, 42, "POS-20260307-00042"},
		{core.PurchaseSeries, 9999, "PUR-20260307-9999"},
		{core.PurchaseSeries, 10000, "PUR-20260307-10000"},
	}
	for _, tt := range tests {
		if got := tt.series.Format(at, tt.seq); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}
