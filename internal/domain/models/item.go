package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is an inventory product tracked by quantity and minimum stock.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	FarmID      string          `json:"farm_id"`
	FarmName    string          `json:"farm_name"`
	Category    string          `json:"category"`
	Quantity    float64         `json:"quantity"`
	MinStock    float64         `json:"min_stock"`
	Unit        string          `json:"unit"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Sales       SaleHistory     `json:"sales"`
	Productions ProductionLog   `json:"productions"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExpectedQuantity is the stock implied by the embedded histories.
func (i Item) ExpectedQuantity() float64 {
	return i.Productions.Total() - i.Sales.Total()
}

// SaleEntry is the denormalized copy of a sale kept on its item.
type SaleEntry struct {
	SaleID     string          `json:"sale_id"`
	Date       time.Time       `json:"date"`
	Quantity   float64         `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// SaleHistory is the list of sale entries owned by an item.
type SaleHistory []SaleEntry

// Add returns the history with entry appended.
func (h SaleHistory) Add(entry SaleEntry) SaleHistory {
	out := make(SaleHistory, 0, len(h)+1)
	out = append(out, h...)
	return append(out, entry)
}

// Remove returns the history without the entry for saleID.
func (h SaleHistory) Remove(saleID string) SaleHistory {
	out := make(SaleHistory, 0, len(h))
	for _, e := range h {
		if e.SaleID != saleID {
			out = append(out, e)
		}
	}
	return out
}

// Replace swaps the entry with the same sale id, appending it when absent.
func (h SaleHistory) Replace(entry SaleEntry) SaleHistory {
	return h.Remove(entry.SaleID).Add(entry)
}

// Find returns the entry for saleID.
func (h SaleHistory) Find(saleID string) (SaleEntry, bool) {
	for _, e := range h {
		if e.SaleID == saleID {
			return e, true
		}
	}
	return SaleEntry{}, false
}

// Total sums the quantities of every entry.
func (h SaleHistory) Total() float64 {
	var total float64
	for _, e := range h {
		total += e.Quantity
	}
	return total
}

// ProductionEntry records stock added to an item.
type ProductionEntry struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
	Note     string    `json:"note,omitempty"`
}

// ProductionLog is the list of production entries owned by an item.
type ProductionLog []ProductionEntry

// Add returns the log with entry appended.
func (l ProductionLog) Add(entry ProductionEntry) ProductionLog {
	out := make(ProductionLog, 0, len(l)+1)
	out = append(out, l...)
	return append(out, entry)
}

// Total sums the quantities of every entry.
func (l ProductionLog) Total() float64 {
	var total float64
	for _, e := range l {
		total += e.Quantity
	}
	return total
}

// ItemInput carries the fields accepted when registering an item.
type ItemInput struct {
	Name            string          `json:"name" binding:"required"`
	FarmID          string          `json:"farm_id"`
	FarmName        string          `json:"farm_name"`
	Category        string          `json:"category"`
	OpeningQuantity float64         `json:"opening_quantity"`
	MinStock        float64         `json:"min_stock"`
	Unit            string          `json:"unit" binding:"required"`
	CostPrice       decimal.Decimal `json:"cost_price"`
}

// ProductionInput carries a production entry to add to an item.
type ProductionInput struct {
	Quantity float64   `json:"quantity"`
	Date     time.Time `json:"date"`
	Note     string    `json:"note"`
}

// ItemView is an item together with its derived statuses.
type ItemView struct {
	Item
	StockStatus        string `json:"stock_status"`
	ProductionStage    string `json:"production_stage"`
	ProductionProgress int    `json:"production_progress"`
}
