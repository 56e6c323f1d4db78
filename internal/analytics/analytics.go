// Package analytics derives restaurant reports from orders, reviews and items
// at query time. Nothing here is stored or maintained incrementally.
package analytics

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-food-api/internal/model"
)

const (
	DefaultTopN     = 5
	LowRatingCutoff = 2
)

type Report struct {
	RestaurantID  uuid.UUID       `json:"restaurant_id"`
	Summary       Summary         `json:"summary"`
	TopItems      []ItemStat      `json:"top_items"`
	Cancellations CancelledImpact `json:"cancellations"`
	LowRatedItems []LowRatedItem  `json:"low_rated_items"`
	Monthly       []PeriodStat    `json:"monthly"`
	Daily         []PeriodStat    `json:"daily"`
	Categories    []CategoryStat  `json:"categories"`
}

type Summary struct {
	TotalOrders     int             `json:"total_orders"`
	DeliveredOrders int             `json:"delivered_orders"`
	CancelledOrders int             `json:"cancelled_orders"`
	Revenue         decimal.Decimal `json:"revenue"`
	ReviewCount     int             `json:"review_count"`
	AverageRating   decimal.Decimal `json:"average_rating"`
}

type ItemStat struct {
	ItemID        uuid.UUID       `json:"item_id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity"`
	Orders        int             `json:"orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	Reviews       int             `json:"reviews"`
	AverageRating decimal.Decimal `json:"average_rating"`
}

type CancelledImpact struct {
	Orders      int             `json:"orders"`
	LostRevenue decimal.Decimal `json:"lost_revenue"`
	Items       []ItemLoss      `json:"items"`
}

type ItemLoss struct {
	ItemID      uuid.UUID       `json:"item_id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	LostRevenue decimal.Decimal `json:"lost_revenue"`
}

type LowRatedItem struct {
	ItemID        uuid.UUID       `json:"item_id"`
	Name          string          `json:"name"`
	LowReviews    int             `json:"low_reviews"`
	AverageRating decimal.Decimal `json:"average_rating"`
}

type PeriodStat struct {
	Period  string          `json:"period"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type CategoryStat struct {
	Category string          `json:"category"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type ratingAcc struct {
	sum, n int
}

func (a ratingAcc) avg() decimal.Decimal {
	if a.n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(a.sum)).Div(decimal.NewFromInt(int64(a.n))).Round(2)
}

// Build computes the report for restaurantID. Only order lines owned by the
// restaurant count; cancelled orders feed the cancellation view instead of revenue.
func Build(restaurantID uuid.UUID, orders []model.Order, reviews []model.Review, items map[uuid.UUID]*model.Item, topN int) *Report {
	if topN <= 0 {
		topN = DefaultTopN
	}
	r := &Report{RestaurantID: restaurantID}
	r.Summary.Revenue = decimal.Zero
	r.Cancellations.LostRevenue = decimal.Zero

	stats := map[uuid.UUID]*ItemStat{}
	losses := map[uuid.UUID]*ItemLoss{}
	monthly := map[string]*PeriodStat{}
	daily := map[string]*PeriodStat{}
	categories := map[string]*CategoryStat{}
	byOrder := make(map[uuid.UUID]*model.Order, len(orders))

	for i := range orders {
		o := &orders[i]
		lines := ownLines(o, restaurantID)
		if len(lines) == 0 {
			continue
		}
		byOrder[o.ID] = o
		r.Summary.TotalOrders++

		if o.Status == model.OrderStatusCancelled {
			r.Summary.CancelledOrders++
			r.Cancellations.Orders++
			for _, l := range lines {
				loss := losses[l.ItemID]
				if loss == nil {
					loss = &ItemLoss{ItemID: l.ItemID, Name: itemName(items, l.ItemID), LostRevenue: decimal.Zero}
					losses[l.ItemID] = loss
				}
				loss.Quantity += l.Quantity
				loss.LostRevenue = loss.LostRevenue.Add(l.Subtotal())
				r.Cancellations.LostRevenue = r.Cancellations.LostRevenue.Add(l.Subtotal())
			}
			continue
		}
		if o.Status == model.OrderStatusDelivered {
			r.Summary.DeliveredOrders++
		}

		orderRevenue := model.LinesTotal(lines)
		r.Summary.Revenue = r.Summary.Revenue.Add(orderRevenue)
		addPeriod(monthly, o.CreatedAt.UTC().Format("2006-01"), orderRevenue)
		addPeriod(daily, o.CreatedAt.UTC().Format("2006-01-02"), orderRevenue)

		counted := map[uuid.UUID]bool{}
		for _, l := range lines {
			st := stats[l.ItemID]
			if st == nil {
				st = &ItemStat{
					ItemID: l.ItemID, Name: itemName(items, l.ItemID),
					Category: itemCategory(items, l.ItemID), Revenue: decimal.Zero,
				}
				stats[l.ItemID] = st
			}
			st.Quantity += l.Quantity
			st.Revenue = st.Revenue.Add(l.Subtotal())
			if !counted[l.ItemID] {
				counted[l.ItemID] = true
				st.Orders++
			}

			cat := itemCategory(items, l.ItemID)
			cs := categories[cat]
			if cs == nil {
				cs = &CategoryStat{Category: cat, Revenue: decimal.Zero}
				categories[cat] = cs
			}
			cs.Quantity += l.Quantity
			cs.Revenue = cs.Revenue.Add(l.Subtotal())
		}
	}

	itemRatings := map[uuid.UUID]*ratingAcc{}
	lowCounts := map[uuid.UUID]int{}
	var overall ratingAcc
	for _, rv := range reviews {
		if rv.RestaurantID != restaurantID {
			continue
		}
		overall.sum += rv.Rating
		overall.n++

		o, ok := byOrder[rv.OrderID]
		if !ok {
			continue
		}
		for _, id := range distinctItems(ownLines(o, restaurantID)) {
			acc := itemRatings[id]
			if acc == nil {
				acc = &ratingAcc{}
				itemRatings[id] = acc
			}
			acc.sum += rv.Rating
			acc.n++
			if rv.Rating <= LowRatingCutoff {
				lowCounts[id]++
			}
		}
	}
	r.Summary.ReviewCount = overall.n
	r.Summary.AverageRating = overall.avg()

	r.TopItems = make([]ItemStat, 0, len(stats))
	for id, st := range stats {
		if acc := itemRatings[id]; acc != nil {
			st.Reviews = acc.n
			st.AverageRating = acc.avg()
		} else {
			st.AverageRating = decimal.Zero
		}
		r.TopItems = append(r.TopItems, *st)
	}
	sort.Slice(r.TopItems, func(i, j int) bool {
		a, b := r.TopItems[i], r.TopItems[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.ItemID.String() < b.ItemID.String()
	})
	if len(r.TopItems) > topN {
		r.TopItems = r.TopItems[:topN]
	}

	r.Cancellations.Items = make([]ItemLoss, 0, len(losses))
	for _, l := range losses {
		r.Cancellations.Items = append(r.Cancellations.Items, *l)
	}
	sort.Slice(r.Cancellations.Items, func(i, j int) bool {
		a, b := r.Cancellations.Items[i], r.Cancellations.Items[j]
		if !a.LostRevenue.Equal(b.LostRevenue) {
			return a.LostRevenue.GreaterThan(b.LostRevenue)
		}
		return a.ItemID.String() < b.ItemID.String()
	})

	r.LowRatedItems = make([]LowRatedItem, 0, len(lowCounts))
	for id, n := range lowCounts {
		r.LowRatedItems = append(r.LowRatedItems, LowRatedItem{
			ItemID: id, Name: itemName(items, id), LowReviews: n, AverageRating: itemRatings[id].avg(),
		})
	}
	sort.Slice(r.LowRatedItems, func(i, j int) bool {
		a, b := r.LowRatedItems[i], r.LowRatedItems[j]
		if a.LowReviews != b.LowReviews {
			return a.LowReviews > b.LowReviews
		}
		return a.ItemID.String() < b.ItemID.String()
	})

	r.Monthly = sortedPeriods(monthly)
	r.Daily = sortedPeriods(daily)

	r.Categories = make([]CategoryStat, 0, len(categories))
	for _, c := range categories {
		r.Categories = append(r.Categories, *c)
	}
	sort.Slice(r.Categories, func(i, j int) bool {
		a, b := r.Categories[i], r.Categories[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.Category < b.Category
	})
	return r
}

// ItemIDs lists every item referenced by the restaurant's lines in orders.
func ItemIDs(restaurantID uuid.UUID, orders []model.Order) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for i := range orders {
		for _, l := range ownLines(&orders[i], restaurantID) {
			if !seen[l.ItemID] {
				seen[l.ItemID] = true
				ids = append(ids, l.ItemID)
			}
		}
	}
	return ids
}

func ownLines(o *model.Order, restaurantID uuid.UUID) []model.OrderLine {
	var out []model.OrderLine
	for _, l := range o.Items {
		if l.RestaurantID == restaurantID {
			out = append(out, l)
		}
	}
	return out
}

func distinctItems(lines []model.OrderLine) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, l := range lines {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			ids = append(ids, l.ItemID)
		}
	}
	return ids
}

func addPeriod(m map[string]*PeriodStat, key string, revenue decimal.Decimal) {
	p := m[key]
	if p == nil {
		p = &PeriodStat{Period: key, Revenue: decimal.Zero}
		m[key] = p
	}
	p.Orders++
	p.Revenue = p.Revenue.Add(revenue)
}

func sortedPeriods(m map[string]*PeriodStat) []PeriodStat {
	out := make([]PeriodStat, 0, len(m))
	for _, p := range m {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func itemName(items map[uuid.UUID]*model.Item, id uuid.UUID) string {
	if it, ok := items[id]; ok {
		return it.Name
	}
	return ""
}

func itemCategory(items map[uuid.UUID]*model.Item, id uuid.UUID) string {
	if it, ok := items[id]; ok && it.Category != "" {
		return it.Category
	}
	return "uncategorized"
}
