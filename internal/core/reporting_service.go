package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	dateLayout         = "2006-01-02"
	defaultReportLimit = 10
	maxReportLimit     = 100
	maxReportRangeDays = 366
)

// Scopes shared by the aggregate queries. $1 and $2 bound the document date
// (inclusive), $3 is an optional branch id.
const (
	saleScope     = `s.deleted_at IS NULL AND s.sale_date BETWEEN $1 AND $2 AND ($3::int IS NULL OR s.branch_id = $3)`
	purchaseScope = `pu.deleted_at IS NULL AND pu.purchase_date BETWEEN $1 AND $2 AND ($3::int IS NULL OR pu.branch_id = $3)`
	expenseScope  = `e.deleted_at IS NULL AND e.expense_date BETWEEN $1 AND $2 AND ($3::int IS NULL OR e.branch_id = $3)`
)

type reportingService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewReportingService constructs a ReportingService backed by the given pool.
// now supplies "today" for reports whose filter leaves the date unset; nil means time.Now.
func NewReportingService(pool *pgxpool.Pool, now func() time.Time) ReportingService {
	if now == nil {
		now = time.Now
	}
	return &reportingService{pool: pool, now: now}
}

// ── Filter resolution ─────────────────────────────────────────────────────────

func (s *reportingService) day(f ReportFilter) time.Time {
	if f.Date != nil {
		return dateOnly(*f.Date)
	}
	return dateOnly(s.now())
}

func (s *reportingService) yearMonth(f ReportFilter) (int, int, error) {
	today := s.now()
	year, month := f.Year, f.Month
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = int(today.Month())
	}
	verr := NewValidationError()
	if year < 1900 || year > 9999 {
		verr.Add("year", "The year must be between 1900 and 9999.")
	}
	if month < 1 || month > 12 {
		verr.Add("month", "The month must be between 1 and 12.")
	}
	return year, month, verr.OrNil()
}

func monthBounds(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1)
}

// dateRange resolves From/To, defaulting to the first of the current month through today.
func (s *reportingService) dateRange(f ReportFilter) (time.Time, time.Time, error) {
	today := dateOnly(s.now())
	from, to := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today
	if f.From != nil {
		from = dateOnly(*f.From)
	}
	if f.To != nil {
		to = dateOnly(*f.To)
	}
	if from.After(to) {
		return from, to, fieldError("to", "The to date must be a date after or equal to from.")
	}
	if to.Sub(from) > maxReportRangeDays*24*time.Hour {
		return from, to, fieldError("to", fmt.Sprintf("The range may not exceed %d days.", maxReportRangeDays))
	}
	return from, to, nil
}

func reportLimit(f ReportFilter) int {
	switch {
	case f.Limit <= 0:
		return defaultReportLimit
	case f.Limit > maxReportLimit:
		return maxReportLimit
	}
	return f.Limit
}

func newProfitSummary(count int, revenue, cost, gross, expenses decimal.Decimal) ProfitSummary {
	return ProfitSummary{
		SalesCount:  count,
		Revenue:     Round2(revenue),
		Cost:        Round2(cost),
		GrossProfit: Round2(gross),
		Expenses:    Round2(expenses),
		NetProfit:   Round2(gross.Sub(expenses)),
		Margin:      Margin(gross, revenue),
	}
}

func (p ProfitSummary) add(o ProfitSummary) ProfitSummary {
	return newProfitSummary(p.SalesCount+o.SalesCount,
		p.Revenue.Add(o.Revenue), p.Cost.Add(o.Cost), p.GrossProfit.Add(o.GrossProfit), p.Expenses.Add(o.Expenses))
}

// ── Profit ────────────────────────────────────────────────────────────────────

// profitFor aggregates revenue, cost, line profit and expenses over [from, to].
func (s *reportingService) profitFor(ctx context.Context, from, to time.Time, branchID *int) (ProfitSummary, error) {
	var (
		count                          int
		revenue, cost, gross, expenses decimal.Decimal
	)
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*)                  FROM sales s WHERE `+saleScope+`),
			(SELECT COALESCE(SUM(s.total), 0) FROM sales s WHERE `+saleScope+`),
			(SELECT COALESCE(SUM(si.unit_cost * si.quantity), 0)
			   FROM sale_items si JOIN sales s ON s.id = si.sale_id WHERE `+saleScope+`),
			(SELECT COALESCE(SUM(si.profit), 0)
			   FROM sale_items si JOIN sales s ON s.id = si.sale_id WHERE `+saleScope+`),
			(SELECT COALESCE(SUM(e.amount), 0) FROM expenses e WHERE `+expenseScope+`)`,
		from, to, branchID,
	).Scan(&count, &revenue, &cost, &gross, &expenses)
	if err != nil {
		return ProfitSummary{}, fmt.Errorf("failed to aggregate profit: %w", err)
	}
	return newProfitSummary(count, revenue, cost, gross, expenses), nil
}

func (s *reportingService) DailyProfit(ctx context.Context, f ReportFilter) (*DailyProfitReport, error) {
	day := s.day(f)
	summary, err := s.profitFor(ctx, day, day, f.BranchID)
	if err != nil {
		return nil, err
	}
	return &DailyProfitReport{Date: day.Format(dateLayout), ProfitSummary: summary}, nil
}

func (s *reportingService) MonthlyProfit(ctx context.Context, f ReportFilter) (*MonthlyProfitReport, error) {
	year, month, err := s.yearMonth(f)
	if err != nil {
		return nil, err
	}
	from, to := monthBounds(year, month)

	type dayAgg struct {
		count                          int
		revenue, cost, gross, expenses decimal.Decimal
	}
	days := make(map[string]*dayAgg)
	get := func(d time.Time) *dayAgg {
		k := d.Format(dateLayout)
		if days[k] == nil {
			days[k] = &dayAgg{}
		}
		return days[k]
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.sale_date, COUNT(*), COALESCE(SUM(s.total), 0)
		FROM sales s WHERE `+saleScope+`
		GROUP BY s.sale_date`, from, to, f.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily revenue: %w", err)
	}
	for rows.Next() {
		var d time.Time
		var count int
		var revenue decimal.Decimal
		if err := rows.Scan(&d, &count, &revenue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan daily revenue: %w", err)
		}
		a := get(d)
		a.count, a.revenue = count, revenue
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT s.sale_date, COALESCE(SUM(si.unit_cost * si.quantity), 0), COALESCE(SUM(si.profit), 0)
		FROM sale_items si JOIN sales s ON s.id = si.sale_id
		WHERE `+saleScope+`
		GROUP BY s.sale_date`, from, to, f.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily profit: %w", err)
	}
	for rows.Next() {
		var d time.Time
		var cost, gross decimal.Decimal
		if err := rows.Scan(&d, &cost, &gross); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan daily profit: %w", err)
		}
		a := get(d)
		a.cost, a.gross = cost, gross
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT e.expense_date, COALESCE(SUM(e.amount), 0)
		FROM expenses e WHERE `+expenseScope+`
		GROUP BY e.expense_date`, from, to, f.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily expenses: %w", err)
	}
	for rows.Next() {
		var d time.Time
		var amount decimal.Decimal
		if err := rows.Scan(&d, &amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan daily expenses: %w", err)
		}
		get(d).expenses = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report := &MonthlyProfitReport{Year: year, Month: month, Totals: newProfitSummary(0, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero)}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		a := get(d)
		summary := newProfitSummary(a.count, a.revenue, a.cost, a.gross, a.expenses)
		report.Days = append(report.Days, DailyProfitReport{Date: d.Format(dateLayout), ProfitSummary: summary})
		report.Totals = report.Totals.add(summary)
	}
	return report, nil
}

func (s *reportingService) MonthlyProfitPerBranch(ctx context.Context, f ReportFilter) ([]BranchProfit, error) {
	year, month, err := s.yearMonth(f)
	if err != nil {
		return nil, err
	}
	from, to := monthBounds(year, month)

	rows, err := s.pool.Query(ctx, `
		SELECT b.id, b.name,
		       COALESCE(sa.cnt, 0), COALESCE(sa.revenue, 0),
		       COALESCE(it.cost, 0), COALESCE(it.profit, 0),
		       COALESCE(ex.amount, 0)
		FROM branches b
		LEFT JOIN (
			SELECT s.branch_id, COUNT(*) AS cnt, SUM(s.total) AS revenue
			FROM sales s WHERE `+saleScope+` GROUP BY s.branch_id
		) sa ON sa.branch_id = b.id
		LEFT JOIN (
			SELECT s.branch_id, SUM(si.unit_cost * si.quantity) AS cost, SUM(si.profit) AS profit
			FROM sale_items si JOIN sales s ON s.id = si.sale_id
			WHERE `+saleScope+` GROUP BY s.branch_id
		) it ON it.branch_id = b.id
		LEFT JOIN (
			SELECT e.branch_id, SUM(e.amount) AS amount
			FROM expenses e WHERE `+expenseScope+` GROUP BY e.branch_id
		) ex ON ex.branch_id = b.id
		WHERE b.deleted_at IS NULL AND ($3::int IS NULL OR b.id = $3)
		ORDER BY b.name`, from, to, f.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate branch profit: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BranchProfit, error) {
		var (
			bp                             BranchProfit
			count                          int
			revenue, cost, gross, expenses decimal.Decimal
		)
		err := row.Scan(&bp.BranchID, &bp.BranchName, &count, &revenue, &cost, &gross, &expenses)
		bp.ProfitSummary = newProfitSummary(count, revenue, cost, gross, expenses)
		return bp, err
	})
}

// ── Sales ─────────────────────────────────────────────────────────────────────

func (s *reportingService) SalesSummary(ctx context.Context, f ReportFilter) (*SalesSummaryReport, error) {
	from, to, err := s.dateRange(f)
	if err != nil {
		return nil, err
	}
	r := &SalesSummaryReport{From: from.Format(dateLayout), To: to.Format(dateLayout)}
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(s.subtotal), 0), COALESCE(SUM(s.discount), 0), COALESCE(SUM(s.tax), 0),
		       COALESCE(SUM(s.total), 0), COALESCE(SUM(s.paid_amount), 0), COALESCE(SUM(s.due_amount), 0),
		       (SELECT COALESCE(SUM(si.profit), 0) FROM sale_items si JOIN sales s ON s.id = si.sale_id WHERE `+saleScope+`)
		FROM sales s WHERE `+saleScope, from, to, f.BranchID,
	).Scan(&r.SalesCount, &r.Subtotal, &r.Discount, &r.Tax, &r.Total, &r.Paid, &r.Due, &r.Profit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales summary: %w", err)
	}
	if r.SalesCount > 0 {
		r.AverageSale = Round2(r.Total.Div(decimal.NewFromInt(int64(r.SalesCount))))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.payment_method, COUNT(*), COALESCE(SUM(s.total), 0)
		FROM sales s WHERE `+saleScope+`
		GROUP BY s.payment_method
		ORDER BY SUM(s.total) DESC`, from, to, f.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by payment method: %w", err)
	}
	r.ByPaymentMethod, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (PaymentMethodTotal, error) {
		var m PaymentMethodTotal
		err := row.Scan(&m.Method, &m.Count, &m.Total)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sales by payment method: %w", err)
	}
	return r, nil
}

func (s *reportingService) TopSellingProducts(ctx context.Context, f ReportFilter) ([]ProductSales, error) {
	from, to, err := s.dateRange(f)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.sku, SUM(si.quantity), SUM(si.subtotal), SUM(si.profit)
		FROM sale_items si
		JOIN sales s    ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE `+saleScope+`
		GROUP BY p.id, p.name, p.sku
		ORDER BY SUM(si.quantity) DESC, p.id
		LIMIT $4`, from, to, f.BranchID, reportLimit(f))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductSales, error) {
		var p ProductSales
		err := row.Scan(&p.ProductID, &p.ProductName, &p.SKU, &p.Quantity, &p.Revenue, &p.Profit)
		return p, err
	})
}

func (s *reportingService) SalesByCategory(ctx context.Context, f ReportFilter) ([]CategorySales, error) {
	from, to, err := s.dateRange(f)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, COALESCE(c.name, 'Uncategorized'), SUM(si.quantity), SUM(si.subtotal), SUM(si.profit)
		FROM sale_items si
		JOIN sales s         ON s.id = si.sale_id
		JOIN products p      ON p.id = si.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE `+saleScope+`
		GROUP BY c.id, c.name
		ORDER BY SUM(si.subtotal) DESC`, from, to, f.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by category: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CategorySales, error) {
		var c CategorySales
		err := row.Scan(&c.CategoryID, &c.CategoryName, &c.Quantity, &c.Revenue, &c.Profit)
		return c, err
	})
}

func (s *reportingService) DailySales(ctx context.Context, f ReportFilter) ([]DailyTotal, error) {
	from, to, err := s.dateRange(f)
	if err != nil {
		return nil, err
	}
	return s.dailySeries(ctx, `
		SELECT s.sale_date, COUNT(*), COALESCE(SUM(s.total), 0)
		FROM sales s WHERE `+saleScope+`
		GROUP BY s.sale_date`, from, to, f.BranchID)
}

func (s *reportingService) DailyPurchases(ctx context.Context, f ReportFilter) ([]DailyTotal, error) {
	from, to, err := s.dateRange(f)
	if err != nil {
		return nil, err
	}
	return s.dailySeries(ctx, `
		SELECT pu.purchase_date, COUNT(*), COALESCE(SUM(pu.total), 0)
		FROM purchases pu WHERE `+purchaseScope+`
		GROUP BY pu.purchase_date`, from, to, f.BranchID)
}

// dailySeries runs a (date, count, total) query and fills the days it omits with zeros.
func (s *reportingService) dailySeries(ctx context.Context, query string, from, to time.Time, branchID *int) ([]DailyTotal, error) {
	rows, err := s.pool.Query(ctx, query, from, to, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily totals: %w", err)
	}
	found, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DailyTotal, error) {
		var (
			d  time.Time
			dt DailyTotal
		)
		err := row.Scan(&d, &dt.Count, &dt.Total)
		dt.Date = d.Format(dateLayout)
		return dt, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily totals: %w", err)
	}
	byDate := make(map[string]DailyTotal, len(found))
	for _, dt := range found {
		byDate[dt.Date] = dt
	}

	var series []DailyTotal
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		k := d.Format(dateLayout)
		dt, ok := byDate[k]
		if !ok {
			dt = DailyTotal{Date: k, Total: decimal.Zero}
		}
		series = append(series, dt)
	}
	return series, nil
}

func (s *reportingService) MonthlySales(ctx context.Context, f ReportFilter) ([]MonthlyTotal, error) {
	year, _, err := s.yearMonth(ReportFilter{Year: f.Year})
	if err != nil {
		return nil, err
	}
	return s.monthlyTotals(ctx, year, f.BranchID)
}

// monthlyTotals returns twelve rows, January first, for year.
func (s *reportingService) monthlyTotals(ctx context.Context, year int, branchID *int) ([]MonthlyTotal, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	months := make([]MonthlyTotal, 12)
	for i := range months {
		months[i] = MonthlyTotal{Month: i + 1, Total: decimal.Zero, Profit: decimal.Zero}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(MONTH FROM s.sale_date)::int, COUNT(*), COALESCE(SUM(s.total), 0)
		FROM sales s WHERE `+saleScope+`
		GROUP BY 1`, from, to, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly sales: %w", err)
	}
	for rows.Next() {
		var m, count int
		var total decimal.Decimal
		if err := rows.Scan(&m, &count, &total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan monthly sales: %w", err)
		}
		months[m-1].Count, months[m-1].Total = count, total
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT EXTRACT(MONTH FROM s.sale_date)::int, COALESCE(SUM(si.profit), 0)
		FROM sale_items si JOIN sales s ON s.id = si.sale_id
		WHERE `+saleScope+`
		GROUP BY 1`, from, to, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly profit: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m int
		var profit decimal.Decimal
		if err := rows.Scan(&m, &profit); err != nil {
			return nil, fmt.Errorf("failed to scan monthly profit: %w", err)
		}
		months[m-1].Profit = profit
	}
	return months, rows.Err()
}

func (s *reportingService) YearOverYear(ctx context.Context, f ReportFilter) (*YearOverYearReport, error) {
	year, _, err := s.yearMonth(ReportFilter{Year: f.Year})
	if err != nil {
		return nil, err
	}
	current, err := s.monthlyTotals(ctx, year, f.BranchID)
	if err != nil {
		return nil, err
	}
	previous, err := s.monthlyTotals(ctx, year-1, f.BranchID)
	if err != nil {
		return nil, err
	}

	r := &YearOverYearReport{Year: year, PreviousYear: year - 1, CurrentTotal: decimal.Zero, PreviousTotal: decimal.Zero}
	for i := range current {
		r.Months = append(r.Months, YearOverYearRow{
			Month:    i + 1,
			Current:  current[i].Total,
			Previous: previous[i].Total,
			Growth:   Growth(current[i].Total, previous[i].Total),
		})
		r.CurrentTotal = r.CurrentTotal.Add(current[i].Total)
		r.PreviousTotal = r.PreviousTotal.Add(previous[i].Total)
	}
	r.Growth = Growth(r.CurrentTotal, r.PreviousTotal)
	return r, nil
}

// ── Purchases and expenses ────────────────────────────────────────────────────

func (s *reportingService) PurchaseSummary(ctx context.Context, f ReportFilter) (*PurchaseSummaryReport, error) {
	from, to, err := s.dateRange(f)
	if err != nil {
		return nil, err
	}
	r := &PurchaseSummaryReport{From: from.Format(dateLayout), To: to.Format(dateLayout)}
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(pu.subtotal), 0), COALESCE(SUM(pu.discount), 0), COALESCE(SUM(pu.tax), 0),
		       COALESCE(SUM(pu.total), 0), COALESCE(SUM(pu.paid_amount), 0), COALESCE(SUM(pu.due_amount), 0)
		FROM purchases pu WHERE `+purchaseScope, from, to, f.BranchID,
	).Scan(&r.PurchaseCount, &r.Subtotal, &r.Discount, &r.Tax, &r.Total, &r.Paid, &r.Due)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate purchase summary: %w", err)
	}
	return r, nil
}

func (s *reportingService) TopSuppliers(ctx context.Context, f ReportFilter) ([]SupplierPurchases, error) {
	from, to, err := s.dateRange(f)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT sp.id, sp.name, COUNT(*), SUM(pu.total), SUM(pu.due_amount)
		FROM purchases pu
		JOIN suppliers sp ON sp.id = pu.supplier_id
		WHERE `+purchaseScope+`
		GROUP BY sp.id, sp.name
		ORDER BY SUM(pu.total) DESC, sp.id
		LIMIT $4`, from, to, f.BranchID, reportLimit(f))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top suppliers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SupplierPurchases, error) {
		var sp SupplierPurchases
		err := row.Scan(&sp.SupplierID, &sp.SupplierName, &sp.PurchaseCount, &sp.Total, &sp.Due)
		return sp, err
	})
}

func (s *reportingService) ExpenseSummary(ctx context.Context, f ReportFilter) (*ExpenseSummaryReport, error) {
	from, to, err := s.dateRange(f)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(NULLIF(e.category, ''), 'Uncategorized'), COUNT(*), SUM(e.amount)
		FROM expenses e WHERE `+expenseScope+`
		GROUP BY 1
		ORDER BY SUM(e.amount) DESC`, from, to, f.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	byCategory, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ExpenseCategoryTotal, error) {
		var c ExpenseCategoryTotal
		err := row.Scan(&c.Category, &c.Count, &c.Total)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan expenses: %w", err)
	}

	r := &ExpenseSummaryReport{From: from.Format(dateLayout), To: to.Format(dateLayout), Total: decimal.Zero, ByCategory: byCategory}
	for _, c := range byCategory {
		r.Total = r.Total.Add(c.Total)
	}
	return r, nil
}

// ── Dashboard ─────────────────────────────────────────────────────────────────

func (s *reportingService) Dashboard(ctx context.Context, f ReportFilter) (*DashboardReport, error) {
	today := s.day(f)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	todayProfit, err := s.profitFor(ctx, today, today, f.BranchID)
	if err != nil {
		return nil, err
	}
	monthProfit, err := s.profitFor(ctx, monthStart, today, f.BranchID)
	if err != nil {
		return nil, err
	}

	r := &DashboardReport{
		Date:          today.Format(dateLayout),
		TodaySales:    DailyTotal{Date: today.Format(dateLayout), Count: todayProfit.SalesCount, Total: todayProfit.Revenue},
		TodayExpenses: todayProfit.Expenses,
		TodayProfit:   todayProfit.GrossProfit,
		MonthSales:    monthProfit.Revenue,
		MonthProfit:   monthProfit.GrossProfit,
	}

	r.TodayPurchases.Date = r.Date
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(pu.total), 0)
		FROM purchases pu WHERE `+purchaseScope, today, today, f.BranchID,
	).Scan(&r.TodayPurchases.Count, &r.TodayPurchases.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate today's purchases: %w", err)
	}

	// Supplier balances are company-wide; a branch view sums its own purchase dues instead.
	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*)
			   FROM branch_stocks bs JOIN products p ON p.id = bs.product_id
			  WHERE p.deleted_at IS NULL AND p.is_active
			    AND bs.quantity <= p.minimum_stock
			    AND ($1::int IS NULL OR bs.branch_id = $1)),
			(SELECT COUNT(*) FROM products WHERE deleted_at IS NULL AND is_active),
			CASE WHEN $1::int IS NULL
			     THEN (SELECT COALESCE(SUM(current_balance), 0) FROM suppliers)
			     ELSE (SELECT COALESCE(SUM(due_amount), 0) FROM purchases WHERE deleted_at IS NULL AND branch_id = $1)
			END`, f.BranchID,
	).Scan(&r.LowStockCount, &r.TotalProducts, &r.SupplierDue)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard counters: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.invoice_no, b.name, s.customer_name, s.total, s.payment_status, s.created_at
		FROM sales s JOIN branches b ON b.id = s.branch_id
		WHERE s.deleted_at IS NULL AND ($1::int IS NULL OR s.branch_id = $1)
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 5`, f.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent sales: %w", err)
	}
	r.RecentSales, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecentSale, error) {
		var rs RecentSale
		err := row.Scan(&rs.ID, &rs.InvoiceNo, &rs.BranchName, &rs.CustomerName, &rs.Total, &rs.PaymentStatus, &rs.CreatedAt)
		return rs, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent sales: %w", err)
	}
	return r, nil
}
