package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale records a quantity of an item sold at a unit price.
type Sale struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	FarmName    string          `json:"farm_name"`
	Quantity    float64         `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Date        time.Time       `json:"date"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Total recomputes quantity × unit price. Stored totals are never trusted.
func (s Sale) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromFloat(s.Quantity))
}

// Entry builds the embedded history entry for this sale.
func (s Sale) Entry() SaleEntry {
	return SaleEntry{
		SaleID:     s.ID,
		Date:       s.Date,
		Quantity:   s.Quantity,
		UnitPrice:  s.UnitPrice,
		TotalValue: s.Total(),
	}
}

// SaleInput is the payload for creating a sale.
type SaleInput struct {
	ProductID string    `json:"product_id"`
	Quantity  float64   `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Date      time.Time `json:"date"`
}

// SaleUpdate is the payload for editing a sale. The product is fixed.
type SaleUpdate struct {
	Quantity  float64   `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Date      time.Time `json:"date"`
}
