package domain

import "github.com/shopspring/decimal"

type OrderPlaced struct {
	OrderID     string          `json:"orderId"`
	CustomerID  string          `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []OrderLineItem `json:"items"`
}

type OrderStatusChanged struct {
	OrderID string      `json:"orderId"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}
