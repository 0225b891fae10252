package web

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"branchpos/internal/core"
)

const dateLayout = "2006-01-02"

// queryParser reads typed query parameters and collects every bad one into a
// single validation error.
type queryParser struct {
	q    url.Values
	errs *core.ValidationError
}

func newQueryParser(q url.Values) *queryParser {
	return &queryParser{q: q, errs: core.NewValidationError()}
}

func (p *queryParser) optionalInt(name string) *int {
	v := strings.TrimSpace(p.q.Get(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs.Add(name, fmt.Sprintf("The %s must be an integer.", strings.ReplaceAll(name, "_", " ")))
		return nil
	}
	return &n
}

func (p *queryParser) intOr(name string, def int) int {
	if n := p.optionalInt(name); n != nil {
		return *n
	}
	return def
}

// date reads the first non-empty parameter among names as YYYY-MM-DD.
func (p *queryParser) date(names ...string) *time.Time {
	for _, name := range names {
		v := strings.TrimSpace(p.q.Get(name))
		if v == "" {
			continue
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			p.errs.Add(name, fmt.Sprintf("The %s does not match the format Y-m-d.", strings.ReplaceAll(name, "_", " ")))
			return nil
		}
		return &t
	}
	return nil
}

func (p *queryParser) boolean(name string) bool {
	switch strings.ToLower(strings.TrimSpace(p.q.Get(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (p *queryParser) str(name string) string {
	return strings.TrimSpace(p.q.Get(name))
}

func (p *queryParser) err() error {
	return p.errs.OrNil()
}

func parseReportFilter(q url.Values) (core.ReportFilter, error) {
	p := newQueryParser(q)
	f := core.ReportFilter{
		BranchID: p.optionalInt("branch_id"),
		Date:     p.date("date"),
		From:     p.date("from", "start_date"),
		To:       p.date("to", "end_date"),
		Year:     p.intOr("year", 0),
		Month:    p.intOr("month", 0),
		Limit:    p.intOr("limit", 0),
	}
	return f, p.err()
}

func parseSaleFilter(q url.Values) (core.SaleFilter, error) {
	p := newQueryParser(q)
	f := core.SaleFilter{
		BranchID:      p.optionalInt("branch_id"),
		UserID:        p.optionalInt("user_id"),
		From:          p.date("from", "start_date"),
		To:            p.date("to", "end_date"),
		PaymentStatus: core.PaymentStatus(p.str("payment_status")),
		Kind:          core.SaleKind(p.str("kind")),
		Search:        p.str("search"),
		Limit:         p.intOr("limit", 0),
	}
	return f, p.err()
}

func parsePurchaseFilter(q url.Values) (core.PurchaseFilter, error) {
	p := newQueryParser(q)
	f := core.PurchaseFilter{
		BranchID:      p.optionalInt("branch_id"),
		SupplierID:    p.optionalInt("supplier_id"),
		From:          p.date("from", "start_date"),
		To:            p.date("to", "end_date"),
		PaymentStatus: core.PaymentStatus(p.str("payment_status")),
		Search:        p.str("search"),
		Limit:         p.intOr("limit", 0),
	}
	return f, p.err()
}

func parseExpenseFilter(q url.Values) (core.ExpenseFilter, error) {
	p := newQueryParser(q)
	f := core.ExpenseFilter{
		BranchID: p.optionalInt("branch_id"),
		From:     p.date("from", "start_date"),
		To:       p.date("to", "end_date"),
		Category: p.str("category"),
	}
	return f, p.err()
}

func parseProductFilter(q url.Values) (core.ProductFilter, error) {
	p := newQueryParser(q)
	f := core.ProductFilter{
		Search:     p.str("search"),
		CategoryID: p.optionalInt("category_id"),
		ActiveOnly: p.boolean("active_only"),
	}
	return f, p.err()
}

func parseStockFilter(q url.Values) (core.StockFilter, error) {
	p := newQueryParser(q)
	f := core.StockFilter{
		BranchID: p.optionalInt("branch_id"),
		LowOnly:  p.boolean("low_only"),
		Search:   p.str("search"),
	}
	return f, p.err()
}
