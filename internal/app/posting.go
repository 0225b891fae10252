package app

import (
	"context"
	"errors"

	"branchpos/internal/core"

	"github.com/sirupsen/logrus"
)

// ── Sales ─────────────────────────────────────────────────────────────────────

func (s *appService) CreateSale(ctx context.Context, p core.Principal, req CreateSaleRequest) (*core.Sale, error) {
	req.BranchID = defaultBranch(p, req.BranchID)
	saleDate, err := req.validate()
	if err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, req.BranchID); err != nil {
		return nil, err
	}

	sale, err := s.svc.Sales.CreateSale(ctx, p, core.SaleInput{
		BranchID:      req.BranchID,
		SaleDate:      saleDate,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Discount:      req.Discount,
		Tax:           req.Tax,
		PaidAmount:    req.PaidAmount,
		Note:          req.Note,
		Items:         cartLines(req.Items),
	})
	if err != nil {
		s.postingFailed(err, "sale", p, req.BranchID)
		return nil, err
	}

	s.metrics.SalePosted(string(sale.Kind), sale.Total.InexactFloat64())
	s.log.WithFields(logrus.Fields{
		"invoice_no": sale.InvoiceNo,
		"branch_id":  sale.BranchID,
		"user_id":    p.UserID,
		"total":      sale.Total.StringFixed(2),
	}).Info("sale posted")
	return sale, nil
}

func (s *appService) CheckoutPOS(ctx context.Context, p core.Principal, req POSCheckoutRequest) (*core.Invoice, error) {
	req.BranchID = defaultBranch(p, req.BranchID)
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, req.BranchID); err != nil {
		return nil, err
	}

	inv, err := s.svc.Sales.CheckoutPOS(ctx, p, core.POSInput{
		BranchID:      req.BranchID,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		TaxRate:       req.TaxRate,
		PaidAmount:    req.PaidAmount,
		Note:          req.Note,
		Items:         cartLines(req.CartItems),
	})
	if err != nil {
		s.postingFailed(err, "pos", p, req.BranchID)
		return nil, renameCartErrors(err, "cart_items")
	}

	s.metrics.SalePosted(string(core.SaleKindPOS), inv.Payment.Total.InexactFloat64())
	s.log.WithFields(logrus.Fields{
		"invoice_no": inv.InvoiceNo,
		"branch_id":  inv.Branch.ID,
		"user_id":    p.UserID,
		"total":      inv.Payment.Total.StringFixed(2),
	}).Info("pos checkout posted")
	return inv, nil
}

func (s *appService) GetSale(ctx context.Context, p core.Principal, id int) (*core.Sale, error) {
	sale, err := s.svc.Sales.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, sale.BranchID); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *appService) GetInvoice(ctx context.Context, p core.Principal, id int) (*core.Invoice, error) {
	inv, err := s.svc.Sales.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, inv.Branch.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListSales scopes non-owners to their branch; salesmen only see their own sales.
func (s *appService) ListSales(ctx context.Context, p core.Principal, f core.SaleFilter) ([]core.Sale, error) {
	branchID, err := scopeBranch(p, f.BranchID)
	if err != nil {
		return nil, err
	}
	f.BranchID = branchID
	if p.Role == core.RoleSalesman {
		uid := p.UserID
		f.UserID = &uid
	}
	return s.svc.Sales.ListSales(ctx, f)
}

func (s *appService) UpdateSale(ctx context.Context, p core.Principal, id int, req UpdateSaleRequest) (*core.Sale, error) {
	if _, err := s.GetSale(ctx, p, id); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Sales.UpdateSale(ctx, id, core.SaleUpdate{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
		PaidAmount:    req.PaidAmount,
	})
}

func (s *appService) DeleteSale(ctx context.Context, p core.Principal, id int) error {
	sale, err := s.GetSale(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.svc.Sales.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.metrics.Reversed("sale")
	s.log.WithFields(logrus.Fields{
		"invoice_no": sale.InvoiceNo,
		"branch_id":  sale.BranchID,
		"user_id":    p.UserID,
	}).Info("sale deleted, stock restored")
	return nil
}

// ── Purchases ─────────────────────────────────────────────────────────────────

func (s *appService) CreatePurchase(ctx context.Context, p core.Principal, req PurchaseRequest) (*core.Purchase, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	req.BranchID = defaultBranch(p, req.BranchID)
	purchaseDate, err := req.validate()
	if err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, req.BranchID); err != nil {
		return nil, err
	}

	pur, err := s.svc.Purchases.CreatePurchase(ctx, p, core.PurchaseInput{
		BranchID:     req.BranchID,
		SupplierID:   req.SupplierID,
		PurchaseDate: purchaseDate,
		Discount:     req.Discount,
		Tax:          req.Tax,
		PaidAmount:   req.PaidAmount,
		Note:         req.Note,
		Items:        cartLines(req.Items),
	})
	if err != nil {
		s.postingFailed(err, "purchase", p, req.BranchID)
		return nil, err
	}

	s.metrics.PurchasePosted()
	s.log.WithFields(logrus.Fields{
		"invoice_no":  pur.InvoiceNo,
		"branch_id":   pur.BranchID,
		"supplier_id": pur.SupplierID,
		"total":       pur.Total.StringFixed(2),
	}).Info("purchase posted")
	return pur, nil
}

func (s *appService) GetPurchase(ctx context.Context, p core.Principal, id int) (*core.Purchase, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	pur, err := s.svc.Purchases.GetPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireBranchAccess(p, pur.BranchID); err != nil {
		return nil, err
	}
	return pur, nil
}

func (s *appService) ListPurchases(ctx context.Context, p core.Principal, f core.PurchaseFilter) ([]core.Purchase, error) {
	if err := requireRole(p, managers...); err != nil {
		return nil, err
	}
	branchID, err := scopeBranch(p, f.BranchID)
	if err != nil {
		return nil, err
	}
	f.BranchID = branchID
	return s.svc.Purchases.ListPurchases(ctx, f)
}

func (s *appService) UpdatePurchase(ctx context.Context, p core.Principal, id int, req UpdatePurchaseRequest) (*core.Purchase, error) {
	if _, err := s.GetPurchase(ctx, p, id); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.svc.Purchases.UpdatePurchase(ctx, id, core.PurchaseUpdate{Note: req.Note, PaidAmount: req.PaidAmount})
}

func (s *appService) DeletePurchase(ctx context.Context, p core.Principal, id int) error {
	pur, err := s.GetPurchase(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.svc.Purchases.DeletePurchase(ctx, id); err != nil {
		var rev *core.StockReversalError
		if errors.As(err, &rev) {
			s.metrics.StockRejected("purchase_reversal")
			s.log.WithFields(logrus.Fields{
				"invoice_no": pur.InvoiceNo,
				"product_id": rev.ProductID,
				"shortage":   rev.Shortage.String(),
			}).Warn("purchase reversal rejected")
		}
		return err
	}
	s.metrics.Reversed("purchase")
	s.log.WithFields(logrus.Fields{
		"invoice_no": pur.InvoiceNo,
		"branch_id":  pur.BranchID,
		"user_id":    p.UserID,
	}).Info("purchase deleted, stock reversed")
	return nil
}

// postingFailed records stock rejections; other failures are left to the caller to report.
func (s *appService) postingFailed(err error, op string, p core.Principal, branchID int) {
	var short *core.InsufficientStockError
	if !errors.As(err, &short) {
		return
	}
	s.metrics.StockRejected(op)
	s.log.WithFields(logrus.Fields{
		"branch_id":  branchID,
		"user_id":    p.UserID,
		"product_id": short.ProductID,
		"available":  short.Available.String(),
		"requested":  short.Requested.String(),
	}).Warn("posting rejected: insufficient stock")
}
