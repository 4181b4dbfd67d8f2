package application

import (
	"context"

	"github.com/orderflow/orderflow/internal/order/domain"
)

// StockVerifier confirms every requested line has sufficient inventory and
// prices the lines by snapshotting name and price at verification time.
type StockVerifier struct {
	products ProductGateway
}

func NewStockVerifier(products ProductGateway) *StockVerifier {
	return &StockVerifier{products: products}
}

// Verify checks items in input order and short-circuits on the first
// shortage. Duplicate lines for the same product are each checked against
// the same snapshotted inventory value; the aggregate race is handled later
// by the conditional decrement, not here.
func (v *StockVerifier) Verify(ctx context.Context, items []domain.ItemRequest) ([]domain.OrderLineItem, error) {
	lines := make([]domain.OrderLineItem, 0, len(items))
	for _, req := range items {
		p, err := v.products.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if p.Inventory < req.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   req.Quantity,
				Available:   p.Inventory,
			}
		}
		lines = append(lines, domain.OrderLineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  req.Quantity,
			Price:     p.Price,
		})
	}
	return lines, nil
}
