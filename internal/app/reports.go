package app

import (
	"context"
	"fmt"
	"time"

	"branchpos/internal/core"
)

// ReportNames lists every report Report accepts, in menu order.
var ReportNames = []string{
	"dashboard",
	"daily-profit",
	"monthly-profit",
	"sales-summary",
	"purchase-summary",
	"top-selling-products",
	"sales-by-category",
	"daily-sales",
	"daily-purchases",
	"monthly-sales",
	"monthly-profit-per-branch",
	"year-over-year",
	"top-suppliers",
	"expense-summary",
}

func (s *appService) runReport(ctx context.Context, name string, f core.ReportFilter) (any, error) {
	r := s.svc.Reports
	switch name {
	case "dashboard":
		return r.Dashboard(ctx, f)
	case "daily-profit":
		return r.DailyProfit(ctx, f)
	case "monthly-profit":
		return r.MonthlyProfit(ctx, f)
	case "sales-summary":
		return r.SalesSummary(ctx, f)
	case "purchase-summary":
		return r.PurchaseSummary(ctx, f)
	case "top-selling-products":
		return r.TopSellingProducts(ctx, f)
	case "sales-by-category":
		return r.SalesByCategory(ctx, f)
	case "daily-sales":
		return r.DailySales(ctx, f)
	case "daily-purchases":
		return r.DailyPurchases(ctx, f)
	case "monthly-sales":
		return r.MonthlySales(ctx, f)
	case "monthly-profit-per-branch":
		return r.MonthlyProfitPerBranch(ctx, f)
	case "year-over-year":
		return r.YearOverYear(ctx, f)
	case "top-suppliers":
		return r.TopSuppliers(ctx, f)
	case "expense-summary":
		return r.ExpenseSummary(ctx, f)
	}
	return nil, fmt.Errorf("report %q: %w", name, core.ErrNotFound)
}

// Report runs a named report. Managers are pinned to their own branch.
func (s *appService) Report(ctx context.Context, p core.Principal, name string, f core.ReportFilter) (any, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	branchID, err := scopeBranch(p, f.BranchID)
	if err != nil {
		return nil, err
	}
	f.BranchID = branchID

	start := time.Now()
	data, err := s.runReport(ctx, name, f)
	if err != nil {
		return nil, err
	}
	s.log.WithField("report", name).WithField("elapsed_ms", time.Since(start).Milliseconds()).Debug("report generated")
	return data, nil
}

func (s *appService) ReportTable(ctx context.Context, p core.Principal, name string, f core.ReportFilter) (*ReportTable, error) {
	data, err := s.Report(ctx, p, name, f)
	if err != nil {
		return nil, err
	}
	return tabulate(name, data)
}

var profitColumns = []string{"Sales", "Revenue", "Cost", "Gross Profit", "Expenses", "Net Profit", "Margin %"}

func profitCells(ps core.ProfitSummary) []any {
	return []any{ps.SalesCount, ps.Revenue, ps.Cost, ps.GrossProfit, ps.Expenses, ps.NetProfit, ps.Margin}
}

// tabulate flattens a report payload into spreadsheet rows. The dashboard is a
// mixed card layout and has no tabular form.
func tabulate(name string, data any) (*ReportTable, error) {
	t := &ReportTable{Title: name}
	switch d := data.(type) {
	case *core.DailyProfitReport:
		t.Columns = append([]string{"Date"}, profitColumns...)
		t.Rows = [][]any{append([]any{d.Date}, profitCells(d.ProfitSummary)...)}
	case *core.MonthlyProfitReport:
		t.Columns = append([]string{"Date"}, profitColumns...)
		for _, day := range d.Days {
			t.Rows = append(t.Rows, append([]any{day.Date}, profitCells(day.ProfitSummary)...))
		}
		t.Rows = append(t.Rows, append([]any{"Total"}, profitCells(d.Totals)...))
	case *core.SalesSummaryReport:
		t.Columns = []string{"Metric", "Value"}
		t.Rows = [][]any{
			{"From", d.From}, {"To", d.To}, {"Sales", d.SalesCount},
			{"Subtotal", d.Subtotal}, {"Discount", d.Discount}, {"Tax", d.Tax},
			{"Total", d.Total}, {"Paid", d.Paid}, {"Due", d.Due},
			{"Profit", d.Profit}, {"Average Sale", d.AverageSale},
		}
		for _, m := range d.ByPaymentMethod {
			t.Rows = append(t.Rows, []any{"Payment: " + m.Method, m.Total})
		}
	case *core.PurchaseSummaryReport:
		t.Columns = []string{"From", "To", "Purchases", "Subtotal", "Discount", "Tax", "Total", "Paid", "Due"}
		t.Rows = [][]any{{d.From, d.To, d.PurchaseCount, d.Subtotal, d.Discount, d.Tax, d.Total, d.Paid, d.Due}}
	case []core.ProductSales:
		t.Columns = []string{"Product ID", "Product", "SKU", "Quantity", "Revenue", "Profit"}
		for _, r := range d {
			t.Rows = append(t.Rows, []any{r.ProductID, r.ProductName, r.SKU, r.Quantity, r.Revenue, r.Profit})
		}
	case []core.CategorySales:
		t.Columns = []string{"Category", "Quantity", "Revenue", "Profit"}
		for _, r := range d {
			t.Rows = append(t.Rows, []any{r.CategoryName, r.Quantity, r.Revenue, r.Profit})
		}
	case []core.DailyTotal:
		t.Columns = []string{"Date", "Count", "Total"}
		for _, r := range d {
			t.Rows = append(t.Rows, []any{r.Date, r.Count, r.Total})
		}
	case []core.MonthlyTotal:
		t.Columns = []string{"Month", "Count", "Total", "Profit"}
		for _, r := range d {
			t.Rows = append(t.Rows, []any{time.Month(r.Month).String(), r.Count, r.Total, r.Profit})
		}
	case []core.BranchProfit:
		t.Columns = append([]string{"Branch"}, profitColumns...)
		for _, r := range d {
			t.Rows = append(t.Rows, append([]any{r.BranchName}, profitCells(r.ProfitSummary)...))
		}
	case *core.YearOverYearReport:
		t.Columns = []string{"Month", fmt.Sprint(d.Year), fmt.Sprint(d.PreviousYear), "Growth %"}
		for _, r := range d.Months {
			t.Rows = append(t.Rows, []any{time.Month(r.Month).String(), r.Current, r.Previous, r.Growth})
		}
		t.Rows = append(t.Rows, []any{"Total", d.CurrentTotal, d.PreviousTotal, d.Growth})
	case []core.SupplierPurchases:
		t.Columns = []string{"Supplier ID", "Supplier", "Purchases", "Total", "Due"}
		for _, r := range d {
			t.Rows = append(t.Rows, []any{r.SupplierID, r.SupplierName, r.PurchaseCount, r.Total, r.Due})
		}
	case *core.ExpenseSummaryReport:
		t.Columns = []string{"Category", "Count", "Total"}
		for _, r := range d.ByCategory {
			t.Rows = append(t.Rows, []any{r.Category, r.Count, r.Total})
		}
		t.Rows = append(t.Rows, []any{"Total", "", d.Total})
	default:
		return nil, fmt.Errorf("report %q cannot be exported: %w", name, core.ErrConflict)
	}
	return t, nil
}
