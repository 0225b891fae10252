package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"branchpos/internal/app"
	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

type fakeApp struct {
	app.ApplicationService

	lastStock  core.StockFilter
	lastReport core.ReportFilter
}

func (f *fakeApp) GetStockLevels(_ context.Context, _ core.Principal, sf core.StockFilter) ([]core.StockLevel, error) {
	f.lastStock = sf
	return []core.StockLevel{
		{BranchName: "Main", SKU: "BEV-001", ProductName: "Water", Quantity: decimal.NewFromInt(3), MinimumStock: decimal.NewFromInt(10), IsLow: true},
	}, nil
}

func (f *fakeApp) ReportTable(_ context.Context, _ core.Principal, name string, rf core.ReportFilter) (*app.ReportTable, error) {
	f.lastReport = rf
	if name == "dashboard" {
		return nil, core.ErrConflict
	}
	return &app.ReportTable{
		Title:   "Daily profit",
		Columns: []string{"Metric", "Value"},
		Rows:    [][]any{{"Gross profit", decimal.RequireFromString("1100.5")}},
	}, nil
}

func (f *fakeApp) Report(_ context.Context, _ core.Principal, name string, _ core.ReportFilter) (any, error) {
	return map[string]int{"today_sales_count": 4}, nil
}

func (f *fakeApp) GetSale(_ context.Context, _ core.Principal, id int) (*core.Sale, error) {
	return nil, &core.NotFoundError{Entity: "sale", ID: id}
}

var owner = core.Principal{UserID: 1, Role: core.RoleOwner}

func TestRunLowStockSetsFilter(t *testing.T) {
	f := &fakeApp{}
	var out bytes.Buffer
	if err := Run(context.Background(), f, owner, []string{"low-stock", "2"}, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !f.lastStock.LowOnly {
		t.Error("low-stock should set LowOnly")
	}
	if f.lastStock.BranchID == nil || *f.lastStock.BranchID != 2 {
		t.Errorf("branch filter = %v, want 2", f.lastStock.BranchID)
	}
	if !strings.Contains(out.String(), "LOW STOCK") || !strings.Contains(out.String(), "BEV-001") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunDailyProfitParsesDate(t *testing.T) {
	f := &fakeApp{}
	var out bytes.Buffer
	if err := Run(context.Background(), f, owner, []string{"daily-profit", "2026-03-14"}, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if f.lastReport.Date == nil || !f.lastReport.Date.Equal(want) {
		t.Errorf("report date = %v, want %v", f.lastReport.Date, want)
	}
	if !strings.Contains(out.String(), "1100.50") {
		t.Errorf("decimal cell not rendered with two places:\n%s", out.String())
	}
}

func TestRunDashboardFallsBackToJSON(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), &fakeApp{}, owner, []string{"report", "dashboard"}, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), `"today_sales_count": 4`) {
		t.Errorf("expected JSON payload, got:\n%s", out.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	cases := [][]string{
		nil,
		{"bogus"},
		{"stock", "main"},
		{"sale"},
		{"sale", "x"},
		{"report"},
		{"daily-profit", "14/03/2026"},
	}
	for _, args := range cases {
		err := Run(context.Background(), &fakeApp{}, owner, args, &bytes.Buffer{})
		if !errors.Is(err, ErrUsage) {
			t.Errorf("Run(%v) = %v, want ErrUsage", args, err)
		}
	}
}

func TestRunPropagatesServiceErrors(t *testing.T) {
	err := Run(context.Background(), &fakeApp{}, owner, []string{"sale", "9"}, &bytes.Buffer{})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Mineral Water", 7); got != "Mineral" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
