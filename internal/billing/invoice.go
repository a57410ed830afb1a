package billing

import (
	"context"
	"strconv"
	"strings"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Orders is the slice of the order store billing needs
type Orders interface {
	ListByGroup(ctx context.Context, groupID string) ([]*types.Order, error)
}

// Catalog resolves test codes, names and rates for invoice lines
type Catalog interface {
	GetTest(ctx context.Context, id int64) (*types.LabTest, error)
}

// Receipt is one parsed payment record
type Receipt struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// Service computes invoices for order groups
type Service struct {
	orders  Orders
	catalog Catalog
	logger  *logger.Logger
}

// NewService creates a new billing service
func NewService(orders Orders, catalog Catalog, log *logger.Logger) *Service {
	return &Service{orders: orders, catalog: catalog, logger: log}
}

// InvoiceForGroup computes the bill for the orders sharing one group id.
// The bill sums the catalog rate of every test in the group; the discount
// percentage comes from the first order of the group, matching how orders
// are placed (one discount per visit, stamped on each row).
func (s *Service) InvoiceForGroup(ctx context.Context, groupID string) (*types.Invoice, error) {
	orders, err := s.orders.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "no orders in group "+groupID)
	}

	invoice := &types.Invoice{
		PatientID:   orders[0].PatientID,
		GroupID:     groupID,
		DiscountPct: orders[0].Discount,
	}

	for _, o := range orders {
		test, err := s.catalog.GetTest(ctx, o.TestID)
		if err != nil {
			return nil, err
		}
		invoice.Lines = append(invoice.Lines, types.InvoiceLine{
			TestCode: test.Code,
			TestName: test.Name,
			Amount:   test.RateINR,
		})
		invoice.BillAmount += test.RateINR
	}

	invoice.DiscountAmount = invoice.BillAmount * invoice.DiscountPct / 100
	invoice.FinalAmount = invoice.BillAmount - invoice.DiscountAmount
	invoice.Receipts = formatReceipts(ParseReceipts(orders[0].PaymentMethod))
	return invoice, nil
}

// ParseReceipts splits a stored payment string into typed records. The
// stored form is comma-separated "Method:amount" pairs ("Cash:500,
// UPI:300"). Entries without an amount keep the method with a zero amount;
// blank entries are dropped.
func ParseReceipts(payment string) []Receipt {
	var receipts []Receipt
	for _, part := range strings.Split(payment, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		receipt := Receipt{Method: part}
		if idx := strings.LastIndex(part, ":"); idx >= 0 {
			receipt.Method = strings.TrimSpace(part[:idx])
			if amount, err := strconv.ParseFloat(strings.TrimSpace(part[idx+1:]), 64); err == nil {
				receipt.Amount = amount
			}
		}
		if receipt.Method == "" {
			continue
		}
		receipts = append(receipts, receipt)
	}
	return receipts
}

func formatReceipts(receipts []Receipt) []string {
	out := make([]string, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, r.Method+": "+strconv.FormatFloat(r.Amount, 'f', 2, 64))
	}
	return out
}
