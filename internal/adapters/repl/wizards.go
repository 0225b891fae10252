package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"branchpos/internal/app"
	"branchpos/internal/core"

	"github.com/shopspring/decimal"
)

// handleCheckout runs an interactive POS checkout. The branch defaults to the
// operator's own branch; owners must name one.
func handleCheckout(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService, p core.Principal, args []string) error {
	var branchID int
	switch {
	case len(args) > 0:
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			fmt.Fprintln(out, "Usage: /checkout [branch-id]")
			return nil
		}
		branchID = id
	case p.BranchID != nil:
		branchID = *p.BranchID
	default:
		fmt.Fprintln(out, "Usage: /checkout <branch-id>  (owners must name a branch)")
		return nil
	}

	fmt.Fprintf(out, "Checkout at branch %d\n", branchID)
	fmt.Fprintln(out, "Enter cart lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(out, "Format per line: <product-id> <quantity> [unit-price]")

	var items []app.CartItemRequest
	for {
		fmt.Fprintf(out, "  Line %d: ", len(items)+1)
		raw := readLine(reader)
		switch strings.ToLower(raw) {
		case "cancel":
			fmt.Fprintln(out, "Checkout cancelled.")
			return nil
		case "done":
		case "":
			continue
		default:
			item, ok := parseCartLine(raw)
			if !ok {
				fmt.Fprintln(out, "  Invalid line. Use: <product-id> <quantity> [unit-price]")
				continue
			}
			items = append(items, item)
			continue
		}
		break
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "Cart is empty. Nothing posted.")
		return nil
	}

	fmt.Fprint(out, "Payment method [cash]: ")
	method := core.PaymentMethod(strings.ToLower(readLine(reader)))
	if method == "" {
		method = core.PaymentCash
	}

	fmt.Fprint(out, "Paid amount (blank = exact total): ")
	var paid decimal.NullDecimal
	if raw := readLine(reader); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fmt.Fprintln(out, "Invalid amount. Checkout cancelled.")
			return nil
		}
		paid = decimal.NewNullDecimal(d)
	}

	fmt.Fprint(out, "Customer name (optional): ")
	customer := readLine(reader)

	inv, err := svc.CheckoutPOS(ctx, p, app.POSCheckoutRequest{
		BranchID:      branchID,
		PaymentMethod: method,
		CustomerName:  customer,
		PaidAmount:    paid,
		CartItems:     items,
	})
	if err != nil {
		return err
	}
	printInvoice(out, inv)
	return nil
}

func parseCartLine(raw string) (app.CartItemRequest, bool) {
	parts := strings.Fields(raw)
	if len(parts) < 2 {
		return app.CartItemRequest{}, false
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil || id <= 0 {
		return app.CartItemRequest{}, false
	}
	qty, err := decimal.NewFromString(parts[1])
	if err != nil || !qty.IsPositive() {
		return app.CartItemRequest{}, false
	}
	item := app.CartItemRequest{ProductID: id, Quantity: qty}
	if len(parts) >= 3 {
		price, err := decimal.NewFromString(parts[2])
		if err != nil || price.IsNegative() {
			return app.CartItemRequest{}, false
		}
		item.UnitPrice = decimal.NewNullDecimal(price)
	}
	return item, true
}

func readLine(reader *bufio.Reader) string {
	s, _ := reader.ReadString('\n')
	return strings.TrimSpace(s)
}

func printInvoice(out io.Writer, inv *core.Invoice) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %s\n", inv.Business.Name)
	fmt.Fprintf(out, "  Invoice %s  %s\n", inv.InvoiceNo, inv.Date.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "  Branch  %s\n", inv.Branch.Name)
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, it := range inv.Items {
		fmt.Fprintf(out, "  %-30s %8s x %8s %10s\n",
			it.Name, it.Quantity.String(), it.UnitPrice.StringFixed(2), it.Subtotal.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
	pay := inv.Payment
	fmt.Fprintf(out, "  %-46s %12s\n", "Subtotal", pay.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "  %-46s %12s\n", "Discount", pay.Discount.StringFixed(2))
	fmt.Fprintf(out, "  %-46s %12s\n", "Tax", pay.Tax.StringFixed(2))
	fmt.Fprintf(out, "  %-46s %12s\n", "Total", pay.Total.StringFixed(2))
	fmt.Fprintf(out, "  %-46s %12s\n", "Paid", pay.PaidAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-46s %12s\n", "Change", pay.ChangeAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-46s %12s\n", "Due", pay.DueAmount.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 62))
}
