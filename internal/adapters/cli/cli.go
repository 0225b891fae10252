package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"branchpos/internal/app"
	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage")

const usage = `Available commands:
  stock [branch-id]                stock levels
  low-stock [branch-id]            products at or below minimum stock
  products [search]                active catalogue
  daily-profit [YYYY-MM-DD]        profit for one day (default today)
  report <name> [YYYY-MM-DD]       any report by name (see: report list)
  sale <id>                        one sale with its lines`

// Usage returns the command summary printed by help.
func Usage() string { return usage }

// Run executes one command on behalf of p and writes a plain-text rendering to out.
// args[0] is the command name.
func Run(ctx context.Context, svc app.ApplicationService, p core.Principal, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command\n%s", ErrUsage, usage)
	}

	switch strings.ToLower(args[0]) {
	case "stock", "st":
		f, err := stockFilter(args[1:])
		if err != nil {
			return err
		}
		levels, err := svc.GetStockLevels(ctx, p, f)
		if err != nil {
			return err
		}
		printStock(out, "STOCK LEVELS", levels)

	case "low-stock", "low":
		f, err := stockFilter(args[1:])
		if err != nil {
			return err
		}
		f.LowOnly = true
		levels, err := svc.GetStockLevels(ctx, p, f)
		if err != nil {
			return err
		}
		printStock(out, "LOW STOCK", levels)

	case "products", "prod":
		f := core.ProductFilter{ActiveOnly: true, Search: strings.Join(args[1:], " ")}
		products, err := svc.ListProducts(ctx, p, f)
		if err != nil {
			return err
		}
		printProducts(out, products)

	case "daily-profit", "profit":
		return runReport(ctx, svc, p, "daily-profit", args[1:], out)

	case "report", "rep":
		if len(args) < 2 {
			return fmt.Errorf("%w: report <name> [YYYY-MM-DD]", ErrUsage)
		}
		if args[1] == "list" {
			for _, name := range app.ReportNames {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		}
		return runReport(ctx, svc, p, args[1], args[2:], out)

	case "sale":
		if len(args) < 2 {
			return fmt.Errorf("%w: sale <id>", ErrUsage)
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: sale id must be an integer", ErrUsage)
		}
		sale, err := svc.GetSale(ctx, p, id)
		if err != nil {
			return err
		}
		printSale(out, sale)

	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, args[0], usage)
	}
	return nil
}

func stockFilter(args []string) (core.StockFilter, error) {
	var f core.StockFilter
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return f, fmt.Errorf("%w: branch id must be an integer", ErrUsage)
		}
		f.BranchID = &id
	}
	return f, nil
}

// runReport prints a tabular report. Reports without a table form (the dashboard) are printed as JSON.
func runReport(ctx context.Context, svc app.ApplicationService, p core.Principal, name string, args []string, out io.Writer) error {
	var f core.ReportFilter
	if len(args) > 0 {
		d, err := time.Parse("2006-01-02", args[0])
		if err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrUsage)
		}
		f.Date = &d
	}

	table, err := svc.ReportTable(ctx, p, name, f)
	if err == nil {
		printTable(out, table)
		return nil
	}
	if !errors.Is(err, core.ErrConflict) {
		return err
	}

	data, err := svc.Report(ctx, p, name, f)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ── Rendering ─────────────────────────────────────────────────────────────────

const ruleWidth = 78

func header(out io.Writer, title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", ruleWidth))
	fmt.Fprintf(out, "  %s\n", title)
	fmt.Fprintln(out, strings.Repeat("=", ruleWidth))
}

func printStock(out io.Writer, title string, levels []core.StockLevel) {
	header(out, title)
	if len(levels) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	fmt.Fprintf(out, "  %-16s %-10s %-28s %10s %8s\n", "BRANCH", "SKU", "PRODUCT", "QTY", "MIN")
	fmt.Fprintln(out, strings.Repeat("-", ruleWidth))
	for _, l := range levels {
		flag := ""
		if l.IsLow {
			flag = " LOW"
		}
		fmt.Fprintf(out, "  %-16s %-10s %-28s %10s %8s%s\n",
			truncate(l.BranchName, 16), truncate(l.SKU, 10), truncate(l.ProductName, 28),
			l.Quantity.String(), l.MinimumStock.String(), flag)
	}
}

func printProducts(out io.Writer, products []core.Product) {
	header(out, "PRODUCTS")
	fmt.Fprintf(out, "  %-6s %-10s %-32s %12s %12s\n", "ID", "SKU", "NAME", "COST", "PRICE")
	fmt.Fprintln(out, strings.Repeat("-", ruleWidth))
	for _, p := range products {
		fmt.Fprintf(out, "  %-6d %-10s %-32s %12s %12s\n",
			p.ID, truncate(p.SKU, 10), truncate(p.Name, 32),
			p.PurchasePrice.StringFixed(2), p.SellingPrice.StringFixed(2))
	}
}

func printSale(out io.Writer, s *core.Sale) {
	header(out, fmt.Sprintf("SALE %s (%s)", s.InvoiceNo, s.Kind))
	fmt.Fprintf(out, "  Branch   : %s\n", s.BranchName)
	fmt.Fprintf(out, "  Date     : %s\n", s.SaleDate.Format("2006-01-02"))
	fmt.Fprintf(out, "  Salesman : %s\n", s.UserName)
	if s.CustomerName != "" {
		fmt.Fprintf(out, "  Customer : %s %s\n", s.CustomerName, s.CustomerPhone)
	}
	fmt.Fprintln(out, strings.Repeat("-", ruleWidth))
	fmt.Fprintf(out, "  %-32s %10s %12s %14s\n", "ITEM", "QTY", "PRICE", "SUBTOTAL")
	for _, it := range s.Items {
		fmt.Fprintf(out, "  %-32s %10s %12s %14s\n",
			truncate(it.ProductName, 32), it.Quantity.String(), it.UnitPrice.StringFixed(2), it.Subtotal.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", ruleWidth))
	fmt.Fprintf(out, "  %-56s %14s\n", "Subtotal", s.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "  %-56s %14s\n", "Discount", s.Discount.StringFixed(2))
	fmt.Fprintf(out, "  %-56s %14s\n", "Tax", s.Tax.StringFixed(2))
	fmt.Fprintf(out, "  %-56s %14s\n", "Total", s.Total.StringFixed(2))
	fmt.Fprintf(out, "  %-56s %14s\n", "Paid", s.PaidAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-56s %14s\n", "Due", s.DueAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-56s %14s\n", "Status", s.PaymentStatus)
	fmt.Fprintln(out, strings.Repeat("=", ruleWidth))
}

func printTable(out io.Writer, t *app.ReportTable) {
	header(out, strings.ToUpper(t.Title))
	if len(t.Columns) == 0 {
		return
	}
	width := (ruleWidth - 2) / len(t.Columns)
	if width < 8 {
		width = 8
	}
	var b strings.Builder
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "%-*s", width, truncate(strings.ToUpper(c), width-1))
	}
	fmt.Fprintf(out, "  %s\n", strings.TrimRight(b.String(), " "))
	fmt.Fprintln(out, strings.Repeat("-", ruleWidth))
	for _, row := range t.Rows {
		b.Reset()
		for _, v := range row {
			fmt.Fprintf(&b, "%-*s", width, truncate(cell(v), width-1))
		}
		fmt.Fprintf(out, "  %s\n", strings.TrimRight(b.String(), " "))
	}
}

func cell(v any) string {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.StringFixed(2)
	case decimal.NullDecimal:
		if !d.Valid {
			return "-"
		}
		return d.Decimal.StringFixed(2)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
