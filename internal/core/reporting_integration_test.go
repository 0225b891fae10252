package core_test

import (
	"context"
	"testing"
	"time"

	"branchpos/internal/core"
)

func TestReports_ProfitAndSummaries(t *testing.T) {
	pool := setupTestDB(t)
	sales, purchases, _ := postingServices(pool)
	expenses := core.NewExpenseService(pool)
	reports := core.NewReportingService(pool, func() time.Time { return postingDay })
	ctx := context.Background()

	if _, err := purchases.CreatePurchase(ctx, owner, core.PurchaseInput{
		BranchID: mainBranch, SupplierID: supplierID,
		Items: []core.CartLine{line(riceID, "10")},
	}); err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}
	setStock(t, pool, northBranch, soapID, "20")

	// Main: 2 × 450 against cost 400 → revenue 900, profit 100.
	if _, err := sales.CreateSale(ctx, owner, cashSale(mainBranch, line(riceID, "2"))); err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	// North: 5 × 40 against cost 30 → revenue 200, profit 50.
	north := cashSale(northBranch, line(soapID, "5"))
	north.PaymentMethod = core.PaymentMobileBanking
	if _, err := sales.CreateSale(ctx, owner, north); err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	if _, err := expenses.Create(ctx, owner, core.ExpenseInput{
		BranchID: mainBranch, Title: "Electricity", Amount: dec("30"), ExpenseDate: postingDay, Category: "utilities",
	}); err != nil {
		t.Fatalf("Create expense failed: %v", err)
	}

	daily, err := reports.DailyProfit(ctx, core.ReportFilter{})
	if err != nil {
		t.Fatalf("DailyProfit failed: %v", err)
	}
	if daily.Date != "2026-03-07" || daily.SalesCount != 2 {
		t.Errorf("unexpected daily header: %+v", daily)
	}
	if !daily.Revenue.Equal(dec("1100")) || !daily.GrossProfit.Equal(dec("150")) || !daily.NetProfit.Equal(dec("120")) {
		t.Errorf("expected revenue 1100 gross 150 net 120, got %s %s %s", daily.Revenue, daily.GrossProfit, daily.NetProfit)
	}
	// 150 / 1100 × 100
	if !daily.Margin.Equal(dec("13.64")) {
		t.Errorf("expected margin 13.64, got %s", daily.Margin)
	}

	branch := mainBranch
	mainOnly, err := reports.DailyProfit(ctx, core.ReportFilter{BranchID: &branch})
	if err != nil {
		t.Fatalf("DailyProfit (branch) failed: %v", err)
	}
	if !mainOnly.Revenue.Equal(dec("900")) || !mainOnly.NetProfit.Equal(dec("70")) {
		t.Errorf("expected main revenue 900 net 70, got %s %s", mainOnly.Revenue, mainOnly.NetProfit)
	}

	monthly, err := reports.MonthlyProfit(ctx, core.ReportFilter{})
	if err != nil {
		t.Fatalf("MonthlyProfit failed: %v", err)
	}
	if len(monthly.Days) != 31 || !monthly.Totals.GrossProfit.Equal(dec("150")) {
		t.Errorf("expected 31 days with gross 150, got %d days gross %s", len(monthly.Days), monthly.Totals.GrossProfit)
	}

	perBranch, err := reports.MonthlyProfitPerBranch(ctx, core.ReportFilter{})
	if err != nil {
		t.Fatalf("MonthlyProfitPerBranch failed: %v", err)
	}
	if len(perBranch) != 2 || perBranch[0].BranchName != "Main Branch" || !perBranch[1].GrossProfit.Equal(dec("50")) {
		t.Errorf("unexpected per-branch rows: %+v", perBranch)
	}

	summary, err := reports.SalesSummary(ctx, core.ReportFilter{})
	if err != nil {
		t.Fatalf("SalesSummary failed: %v", err)
	}
	if summary.SalesCount != 2 || !summary.AverageSale.Equal(dec("550")) || len(summary.ByPaymentMethod) != 2 {
		t.Errorf("unexpected sales summary: %+v", summary)
	}

	top, err := reports.TopSellingProducts(ctx, core.ReportFilter{Limit: 1})
	if err != nil {
		t.Fatalf("TopSellingProducts failed: %v", err)
	}
	if len(top) != 1 || top[0].ProductID != soapID {
		t.Errorf("expected soap as top seller, got %+v", top)
	}

	yoy, err := reports.YearOverYear(ctx, core.ReportFilter{Year: 2026})
	if err != nil {
		t.Fatalf("YearOverYear failed: %v", err)
	}
	if len(yoy.Months) != 12 || !yoy.Months[2].Current.Equal(dec("1100")) || !yoy.Growth.IsZero() {
		t.Errorf("unexpected year-over-year: %+v", yoy)
	}

	series, err := reports.DailyPurchases(ctx, core.ReportFilter{})
	if err != nil {
		t.Fatalf("DailyPurchases failed: %v", err)
	}
	if len(series) != 7 || series[6].Count != 1 || !series[6].Total.Equal(dec("4000")) {
		t.Errorf("unexpected purchase series: %+v", series)
	}
}

func TestReports_DeletedSalesDoNotCount(t *testing.T) {
	pool := setupTestDB(t)
	sales, _, _ := postingServices(pool)
	reports := core.NewReportingService(pool, func() time.Time { return postingDay })
	ctx := context.Background()
	setStock(t, pool, mainBranch, riceID, "5")

	sale, err := sales.CreateSale(ctx, owner, cashSale(mainBranch, line(riceID, "1")))
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	if err := sales.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("DeleteSale failed: %v", err)
	}

	dash, err := reports.Dashboard(ctx, core.ReportFilter{})
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if dash.TodaySales.Count != 0 || len(dash.RecentSales) != 0 {
		t.Errorf("deleted sale leaked into dashboard: %+v", dash)
	}
	if dash.TotalProducts != 2 || !dash.SupplierDue.Equal(dec("1000")) {
		t.Errorf("unexpected dashboard counters: %+v", dash)
	}
}

func TestReports_RejectsInvertedRange(t *testing.T) {
	pool := setupTestDB(t)
	reports := core.NewReportingService(pool, nil)

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := reports.SalesSummary(context.Background(), core.ReportFilter{From: &from, To: &to}); err == nil {
		t.Fatal("expected a validation error for from > to")
	}
}
