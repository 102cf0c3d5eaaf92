package mongodb

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

type saleEntryDocument struct {
	SaleID     string               `bson:"sale_id"`
	Date       time.Time            `bson:"date"`
	Quantity   float64              `bson:"quantity"`
	UnitPrice  primitive.Decimal128 `bson:"unit_price"`
	TotalValue primitive.Decimal128 `bson:"total_value"`
}

type productionEntryDocument struct {
	ID       string    `bson:"id"`
	Date     time.Time `bson:"date"`
	Quantity float64   `bson:"quantity"`
	Note     string    `bson:"note,omitempty"`
}

type itemDocument struct {
	ID          string                    `bson:"_id"`
	Name        string                    `bson:"name"`
	FarmID      string                    `bson:"farm_id"`
	FarmName    string                    `bson:"farm_name"`
	Category    string                    `bson:"category"`
	Quantity    float64                   `bson:"quantity"`
	MinStock    float64                   `bson:"min_stock"`
	Unit        string                    `bson:"unit"`
	CostPrice   primitive.Decimal128      `bson:"cost_price"`
	Sales       []saleEntryDocument       `bson:"sales"`
	Productions []productionEntryDocument `bson:"productions"`
	CreatedBy   string                    `bson:"created_by"`
	CreatedAt   time.Time                 `bson:"created_at"`
	UpdatedAt   time.Time                 `bson:"updated_at"`
}

type saleDocument struct {
	ID          string               `bson:"_id"`
	ProductID   string               `bson:"product_id"`
	ProductName string               `bson:"product_name"`
	FarmName    string               `bson:"farm_name"`
	Quantity    float64              `bson:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
	TotalValue  primitive.Decimal128 `bson:"total_value"`
	Date        time.Time            `bson:"date"`
	CreatedBy   string               `bson:"created_by"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type goalDocument struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Type        string     `bson:"type"`
	ProductID   string     `bson:"product_id"`
	ProductName string     `bson:"product_name"`
	Target      float64    `bson:"target"`
	Current     float64    `bson:"current"`
	Unit        string     `bson:"unit"`
	StartDate   *time.Time `bson:"start_date,omitempty"`
	Deadline    time.Time  `bson:"deadline"`
	Status      string     `bson:"status"`
	Description string     `bson:"description,omitempty"`
	CreatedBy   string     `bson:"created_by"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

type notificationDocument struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	Category  string    `bson:"category"`
	Title     string    `bson:"title"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"created_at"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// Decimal128 holds 34 significant digits.
		v, _ = primitive.ParseDecimal128(d.Round(8).String())
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func saleEntriesToDocuments(h models.SaleHistory) []saleEntryDocument {
	out := make([]saleEntryDocument, 0, len(h))
	for _, e := range h {
		out = append(out, saleEntryDocument{
			SaleID:     e.SaleID,
			Date:       e.Date,
			Quantity:   e.Quantity,
			UnitPrice:  toDecimal128(e.UnitPrice),
			TotalValue: toDecimal128(e.TotalValue),
		})
	}
	return out
}

func productionsToDocuments(l models.ProductionLog) []productionEntryDocument {
	out := make([]productionEntryDocument, 0, len(l))
	for _, e := range l {
		out = append(out, productionEntryDocument(e))
	}
	return out
}

func itemToDocument(i models.Item) itemDocument {
	return itemDocument{
		ID:          i.ID,
		Name:        i.Name,
		FarmID:      i.FarmID,
		FarmName:    i.FarmName,
		Category:    i.Category,
		Quantity:    i.Quantity,
		MinStock:    i.MinStock,
		Unit:        i.Unit,
		CostPrice:   toDecimal128(i.CostPrice),
		Sales:       saleEntriesToDocuments(i.Sales),
		Productions: productionsToDocuments(i.Productions),
		CreatedBy:   i.CreatedBy,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

func (d itemDocument) toModel() models.Item {
	item := models.Item{
		ID:        d.ID,
		Name:      d.Name,
		FarmID:    d.FarmID,
		FarmName:  d.FarmName,
		Category:  d.Category,
		Quantity:  d.Quantity,
		MinStock:  d.MinStock,
		Unit:      d.Unit,
		CostPrice: fromDecimal128(d.CostPrice),
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, e := range d.Sales {
		item.Sales = append(item.Sales, models.SaleEntry{
			SaleID:     e.SaleID,
			Date:       e.Date,
			Quantity:   e.Quantity,
			UnitPrice:  fromDecimal128(e.UnitPrice),
			TotalValue: fromDecimal128(e.TotalValue),
		})
	}
	for _, e := range d.Productions {
		item.Productions = append(item.Productions, models.ProductionEntry(e))
	}
	return item
}

func saleToDocument(s models.Sale) saleDocument {
	return saleDocument{
		ID:          s.ID,
		ProductID:   s.ProductID,
		ProductName: s.ProductName,
		FarmName:    s.FarmName,
		Quantity:    s.Quantity,
		UnitPrice:   toDecimal128(s.UnitPrice),
		TotalValue:  toDecimal128(s.TotalValue),
		Date:        s.Date,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (d saleDocument) toModel() models.Sale {
	return models.Sale{
		ID:          d.ID,
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		FarmName:    d.FarmName,
		Quantity:    d.Quantity,
		UnitPrice:   fromDecimal128(d.UnitPrice),
		TotalValue:  fromDecimal128(d.TotalValue),
		Date:        d.Date,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func goalToDocument(g models.Goal) goalDocument {
	return goalDocument{
		ID:          g.ID,
		Title:       g.Title,
		Type:        string(g.Type),
		ProductID:   g.ProductID,
		ProductName: g.ProductName,
		Target:      g.Target,
		Current:     g.Current,
		Unit:        g.Unit,
		StartDate:   g.StartDate,
		Deadline:    g.Deadline,
		Status:      string(g.Status),
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func (d goalDocument) toModel() models.Goal {
	return models.Goal{
		ID:          d.ID,
		Title:       d.Title,
		Type:        models.GoalType(d.Type),
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		Target:      d.Target,
		Current:     d.Current,
		Unit:        d.Unit,
		StartDate:   d.StartDate,
		Deadline:    d.Deadline,
		Status:      models.GoalStatus(d.Status),
		Description: d.Description,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func notificationToDocument(n models.Notification) notificationDocument {
	return notificationDocument{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Category:  n.Category,
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

func (d notificationDocument) toModel() models.Notification {
	return models.Notification{
		ID:        d.ID,
		Kind:      models.NotificationKind(d.Kind),
		Category:  d.Category,
		Title:     d.Title,
		Message:   d.Message,
		CreatedAt: d.CreatedAt,
	}
}
