package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReportFilter carries every parameter a report may read. Each report uses only the
// fields it needs; unset fields fall back to the current day, month or year.
type ReportFilter struct {
	BranchID *int
	Date     *time.Time
	From     *time.Time
	To       *time.Time
	Year     int
	Month    int
	Limit    int
}

// ProfitSummary is the profit breakdown shared by the profit reports.
// GrossProfit is the sum of the sale line profit snapshots; NetProfit subtracts expenses.
type ProfitSummary struct {
	SalesCount  int             `json:"sales_count"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	Expenses    decimal.Decimal `json:"expenses"`
	NetProfit   decimal.Decimal `json:"net_profit"`
	Margin      decimal.Decimal `json:"profit_margin"`
}

type DailyProfitReport struct {
	Date string `json:"date"`
	ProfitSummary
}

type MonthlyProfitReport struct {
	Year   int                 `json:"year"`
	Month  int                 `json:"month"`
	Days   []DailyProfitReport `json:"days"`
	Totals ProfitSummary       `json:"totals"`
}

type PaymentMethodTotal struct {
	Method string          `json:"payment_method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type SalesSummaryReport struct {
	From            string               `json:"from"`
	To              string               `json:"to"`
	SalesCount      int                  `json:"sales_count"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	Discount        decimal.Decimal      `json:"discount"`
	Tax             decimal.Decimal      `json:"tax"`
	Total           decimal.Decimal      `json:"total"`
	Paid            decimal.Decimal      `json:"paid"`
	Due             decimal.Decimal      `json:"due"`
	Profit          decimal.Decimal      `json:"profit"`
	AverageSale     decimal.Decimal      `json:"average_sale"`
	ByPaymentMethod []PaymentMethodTotal `json:"by_payment_method"`
}

type PurchaseSummaryReport struct {
	From          string          `json:"from"`
	To            string          `json:"to"`
	PurchaseCount int             `json:"purchase_count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Due           decimal.Decimal `json:"due"`
}

type ProductSales struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	Profit      decimal.Decimal `json:"profit"`
}

type CategorySales struct {
	CategoryID   *int            `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
	Profit       decimal.Decimal `json:"profit"`
}

// DailyTotal is one day of a daily-sales or daily-purchases series.
type DailyTotal struct {
	Date  string          `json:"date"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// MonthlyTotal is one calendar month of a yearly sales series.
type MonthlyTotal struct {
	Month  int             `json:"month"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
	Profit decimal.Decimal `json:"profit"`
}

type BranchProfit struct {
	BranchID   int    `json:"branch_id"`
	BranchName string `json:"branch_name"`
	ProfitSummary
}

type YearOverYearRow struct {
	Month    int             `json:"month"`
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Growth   decimal.Decimal `json:"growth"`
}

type YearOverYearReport struct {
	Year          int               `json:"year"`
	PreviousYear  int               `json:"previous_year"`
	Months        []YearOverYearRow `json:"months"`
	CurrentTotal  decimal.Decimal   `json:"current_total"`
	PreviousTotal decimal.Decimal   `json:"previous_total"`
	Growth        decimal.Decimal   `json:"growth"`
}

type SupplierPurchases struct {
	SupplierID    int             `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	PurchaseCount int             `json:"purchase_count"`
	Total         decimal.Decimal `json:"total"`
	Due           decimal.Decimal `json:"due"`
}

type ExpenseCategoryTotal struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type ExpenseSummaryReport struct {
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	Total      decimal.Decimal        `json:"total"`
	ByCategory []ExpenseCategoryTotal `json:"by_category"`
}

// RecentSale is the dashboard's compact view of a sale.
type RecentSale struct {
	ID            int             `json:"id"`
	InvoiceNo     string          `json:"invoice_no"`
	BranchName    string          `json:"branch_name"`
	CustomerName  string          `json:"customer_name"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type DashboardReport struct {
	Date           string          `json:"date"`
	TodaySales     DailyTotal      `json:"today_sales"`
	TodayPurchases DailyTotal      `json:"today_purchases"`
	TodayExpenses  decimal.Decimal `json:"today_expenses"`
	TodayProfit    decimal.Decimal `json:"today_profit"`
	MonthSales     decimal.Decimal `json:"month_sales"`
	MonthProfit    decimal.Decimal `json:"month_profit"`
	LowStockCount  int             `json:"low_stock_count"`
	TotalProducts  int             `json:"total_products"`
	SupplierDue    decimal.Decimal `json:"supplier_due"`
	RecentSales    []RecentSale    `json:"recent_sales"`
}

// ReportingService provides read-only aggregates over sales, purchases and expenses.
// Soft-deleted documents never contribute to a report.
type ReportingService interface {
	Dashboard(ctx context.Context, f ReportFilter) (*DashboardReport, error)
	DailyProfit(ctx context.Context, f ReportFilter) (*DailyProfitReport, error)
	MonthlyProfit(ctx context.Context, f ReportFilter) (*MonthlyProfitReport, error)
	SalesSummary(ctx context.Context, f ReportFilter) (*SalesSummaryReport, error)
	PurchaseSummary(ctx context.Context, f ReportFilter) (*PurchaseSummaryReport, error)
	TopSellingProducts(ctx context.Context, f ReportFilter) ([]ProductSales, error)
	SalesByCategory(ctx context.Context, f ReportFilter) ([]CategorySales, error)
	DailySales(ctx context.Context, f ReportFilter) ([]DailyTotal, error)
	DailyPurchases(ctx context.Context, f ReportFilter) ([]DailyTotal, error)
	MonthlySales(ctx context.Context, f ReportFilter) ([]MonthlyTotal, error)
	MonthlyProfitPerBranch(ctx context.Context, f ReportFilter) ([]BranchProfit, error)
	YearOverYear(ctx context.Context, f ReportFilter) (*YearOverYearReport, error)
	TopSuppliers(ctx context.Context, f ReportFilter) ([]SupplierPurchases, error)
	ExpenseSummary(ctx context.Context, f ReportFilter) (*ExpenseSummaryReport, error)
}
