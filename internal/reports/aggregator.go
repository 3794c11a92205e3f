package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"salesdesk-system/internal/commissions"
	"salesdesk-system/internal/database/models"
)

// Summary is the dashboard aggregate over a date window. Online orders
// count only when completed; offline sales always count. Orders without a
// salesperson are included in the totals but contribute nothing to the
// commission figure.
type Summary struct {
	TotalSales      int64  `json:"total_sales"`
	TotalCost       int64  `json:"total_cost"`
	TotalMargin     int64  `json:"total_margin"`
	TotalCommission string `json:"total_commission"`
	CompanyMargin   string `json:"company_margin"`
	SalesCount      int    `json:"sales_count"`
	OrderCount      int    `json:"order_count"`
}

// Summarize folds offline sales (snapshotted price/cost) and completed
// online orders (fixed total, current product cost) into one aggregate.
// The cost asymmetry between the two paths is intentional and preserved.
func Summarize(sales []models.Sale, completedOrders []models.Order) Summary {
	var s Summary
	entries := make([]commissions.Entry, 0, len(sales)+len(completedOrders))

	for _, sale := range sales {
		amount := sale.SalePrice * int64(sale.Quantity)
		cost := sale.SaleCost * int64(sale.Quantity)
		s.TotalSales += amount
		s.TotalCost += cost
		s.SalesCount++
		empID := sale.EmployeeID
		entries = append(entries, commissions.Entry{EmployeeID: &empID, Amount: amount, Cost: cost})
	}
	for _, order := range completedOrders {
		var cost int64
		if order.Product != nil {
			cost = order.Product.Cost * int64(order.Quantity)
		}
		s.TotalSales += order.TotalAmount
		s.TotalCost += cost
		s.OrderCount++
		entries = append(entries, commissions.Entry{EmployeeID: order.EmployeeID, Amount: order.TotalAmount, Cost: cost})
	}

	s.TotalMargin = s.TotalSales - s.TotalCost

	totalCommission := decimal.Zero
	for _, f := range commissions.Calculate(entries) {
		totalCommission = totalCommission.Add(f.TotalCommission)
	}
	s.TotalCommission = totalCommission.String()
	s.CompanyMargin = decimal.NewFromInt(s.TotalMargin).Sub(totalCommission).String()
	return s
}

// FeedItem is one row of the merged per-salesperson activity list, tagged
// with its origin.
type FeedItem struct {
	Origin      string    `json:"origin"` // online | offline
	Date        time.Time `json:"date"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int32     `json:"quantity"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status,omitempty"`
	OrderID     *int64    `json:"order_id,omitempty"`
	SaleID      *int64    `json:"sale_id,omitempty"`
}

// MergeFeed interleaves an employee's offline sales and online orders into
// one list sorted by date descending. Sales go by sale_date, orders by
// their creation timestamp; the two must not be conflated.
func MergeFeed(sales []models.Sale, orders []models.Order) []FeedItem {
	feed := make([]FeedItem, 0, len(sales)+len(orders))
	for _, s := range sales {
		id := s.ID
		item := FeedItem{
			Origin:    "offline",
			Date:      s.SaleDate,
			ProductID: s.ProductID,
			Quantity:  s.Quantity,
			Amount:    s.SalePrice * int64(s.Quantity),
			SaleID:    &id,
		}
		if s.Product != nil {
			item.ProductName = s.Product.Name
		}
		feed = append(feed, item)
	}
	for _, o := range orders {
		id := o.ID
		item := FeedItem{
			Origin:    "online",
			Date:      o.CreatedAt,
			ProductID: o.ProductID,
			Quantity:  o.Quantity,
			Amount:    o.TotalAmount,
			Status:    o.Status,
			OrderID:   &id,
		}
		if o.Product != nil {
			item.ProductName = o.Product.Name
		}
		feed = append(feed, item)
	}
	sort.Slice(feed, func(i, j int) bool {
		return feed[i].Date.After(feed[j].Date)
	})
	return feed
}
