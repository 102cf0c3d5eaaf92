package reporting

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/domain/status"
)

const (
	dateLayout   = "2006-01-02"
	digestPeriod = 7 * 24 * time.Hour
)

// Store lists the data the digest summarises.
type Store interface {
	ListGoals(ctx context.Context) ([]models.Goal, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
}

// GoalLine is one goal in the digest.
type GoalLine struct {
	Title    string
	Status   models.GoalStatus
	Current  float64
	Target   float64
	Unit     string
	Percent  int
	Deadline time.Time
}

// StockLine is one item needing attention.
type StockLine struct {
	Name     string
	Status   status.Stock
	Quantity float64
	MinStock float64
	Unit     string
}

// Digest is the weekly summary sent to the farm operators.
type Digest struct {
	From, To   time.Time
	SalesCount int
	UnitsSold  float64
	Revenue    decimal.Decimal
	Goals      []GoalLine
	Stock      []StockLine
}

// Service builds digests from the store.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// BuildDigest summarises the seven days ending at now: sales totals, every
// goal with its display status and the items whose stock is low or warning.
func (s *Service) BuildDigest(ctx context.Context, now time.Time) (Digest, error) {
	d := Digest{From: now.Add(-digestPeriod), To: now, Revenue: decimal.Zero}

	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return Digest{}, fmt.Errorf("load sales: %w", err)
	}
	for _, sale := range sales {
		if sale.Date.Before(d.From) || sale.Date.After(d.To) {
			continue
		}
		d.SalesCount++
		d.UnitsSold += sale.Quantity
		d.Revenue = d.Revenue.Add(sale.Total())
	}

	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return Digest{}, fmt.Errorf("load goals: %w", err)
	}
	for _, g := range goals {
		d.Goals = append(d.Goals, GoalLine{
			Title:    g.Title,
			Status:   status.DisplayGoal(g.Status, g.Deadline, now),
			Current:  g.Current,
			Target:   g.Target,
			Unit:     g.Unit,
			Percent:  percent(g.Current, g.Target),
			Deadline: g.Deadline,
		})
	}

	items, err := s.store.ListItems(ctx)
	if err != nil {
		return Digest{}, fmt.Errorf("load items: %w", err)
	}
	for _, item := range items {
		st := status.ForStock(item.Quantity, item.MinStock)
		if st == status.StockNormal {
			continue
		}
		d.Stock = append(d.Stock, StockLine{
			Name:     item.Name,
			Status:   st,
			Quantity: item.Quantity,
			MinStock: item.MinStock,
			Unit:     item.Unit,
		})
	}

	s.logger.Debug("digest built",
		zap.Int("sales", d.SalesCount),
		zap.Int("goals", len(d.Goals)),
		zap.Int("stock_alerts", len(d.Stock)))
	return d, nil
}

// Text renders the digest as a WhatsApp message.
func (d Digest) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly summary (%s to %s)\n", d.From.Format(dateLayout), d.To.Format(dateLayout))

	if d.SalesCount == 0 {
		b.WriteString("Sales: none recorded.\n")
	} else {
		fmt.Fprintf(&b, "Sales: %d sales, %s units, revenue %s.\n",
			d.SalesCount, formatQty(d.UnitsSold), d.Revenue.StringFixed(2))
	}

	if len(d.Goals) > 0 {
		b.WriteString("\nGoals:\n")
		for _, g := range d.Goals {
			fmt.Fprintf(&b, "- %s: %s/%s %s (%d%%) %s, due %s\n",
				g.Title, formatQty(g.Current), formatQty(g.Target), g.Unit, g.Percent, g.Status, g.Deadline.Format(dateLayout))
		}
	}

	if len(d.Stock) == 0 {
		b.WriteString("\nStock: all items above their minimum.")
	} else {
		b.WriteString("\nStock to watch:\n")
		for _, st := range d.Stock {
			fmt.Fprintf(&b, "- %s: %s %s (min %s) %s\n",
				st.Name, formatQty(st.Quantity), st.Unit, formatQty(st.MinStock), st.Status)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func percent(current, target float64) int {
	if target <= 0 {
		return 0
	}
	p := int(math.Round(current / target * 100))
	if p > 100 {
		return 100
	}
	return p
}

func formatQty(v float64) string {
	return decimal.NewFromFloat(v).String()
}
