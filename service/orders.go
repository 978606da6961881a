package service

import (
	"context"

	"pizza-api/auth"
	"pizza-api/logger"
	"pizza-api/metrics"
	"pizza-api/models"
	"pizza-api/policy"
	"pizza-api/repository"

	"github.com/shopspring/decimal"
)

// OrdersPageSize is the number of orders per listing page
const OrdersPageSize = 10

type OrderStore interface {
	AddMenuItem(ctx context.Context, item *models.MenuItem) error
	Menu(ctx context.Context) ([]models.MenuItem, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	ListOrders(ctx context.Context, dinerID uint, page repository.Page) ([]models.Order, bool, error)
}

// Orders serves the menu catalog and diner orders
type Orders struct {
	store   OrderStore
	metrics metrics.Recorder
}

func NewOrders(store OrderStore, rec metrics.Recorder) *Orders {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Orders{store: store, metrics: rec}
}

type MenuItemInput struct {
	Title       string
	Image       string
	Price       float64
	Description string
}

type OrderItemInput struct {
	MenuID      uint
	Description string
	Price       float64
}

type OrderInput struct {
	FranchiseID uint
	StoreID     uint
	Items       []OrderItemInput
}

// OrderPage is one page of a diner's orders
type OrderPage struct {
	DinerID uint           `json:"dinerId"`
	Orders  []models.Order `json:"orders"`
	Page    int            `json:"page"`
	More    bool           `json:"more"`
}

func (s *Orders) Menu(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.store.Menu(ctx)
	if err != nil {
		return nil, StorageError(err)
	}
	s.metrics.Inc(metrics.MenuHits)
	return items, nil
}

// AddMenuItem appends to the catalog and returns the whole menu
func (s *Orders) AddMenuItem(ctx context.Context, actor auth.Identity, in MenuItemInput) ([]models.MenuItem, error) {
	if d := policy.Authorize(ActorOf(actor), policy.AddMenuItem, policy.Target{}); !d.Allowed {
		logger.FromContext(ctx).Warn("Menu change denied", "actor", actor.UserID)
		return nil, Forbidden(d.Reason)
	}
	if in.Title == "" {
		return nil, ValidationError("menu item title is required")
	}
	if in.Price < 0 {
		return nil, ValidationError("menu item price must not be negative")
	}
	item := &models.MenuItem{Title: in.Title, Image: in.Image, Price: in.Price, Description: in.Description}
	if err := s.store.AddMenuItem(ctx, item); err != nil {
		return nil, StorageError(err)
	}
	logger.FromContext(ctx).Info("Menu item added", "menu_id", item.ID, "title", item.Title)
	return s.Menu(ctx)
}

// CreateOrder records an order for the calling diner. Item prices are taken
// as submitted.
func (s *Orders) CreateOrder(ctx context.Context, actor auth.Identity, in OrderInput) (*models.Order, error) {
	if d := policy.Authorize(ActorOf(actor), policy.CreateOrder, policy.Target{}); !d.Allowed {
		return nil, Forbidden(d.Reason)
	}
	if len(in.Items) == 0 {
		s.metrics.Inc(metrics.OrdersFailed)
		return nil, ValidationError("order must contain at least one item")
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Price < 0 {
			s.metrics.Inc(metrics.OrdersFailed)
			return nil, ValidationError("order item price must not be negative")
		}
		price := decimal.NewFromFloat(it.Price)
		total = total.Add(price)
		items = append(items, models.OrderItem{
			MenuID:      it.MenuID,
			Description: it.Description,
			Price:       it.Price,
		})
	}

	order := &models.Order{
		DinerID:     actor.UserID,
		FranchiseID: in.FranchiseID,
		StoreID:     in.StoreID,
		Total:       total.InexactFloat64(),
		Items:       items,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		s.metrics.Inc(metrics.OrdersFailed)
		return nil, StorageError(err)
	}
	s.metrics.Inc(metrics.OrdersCreated)
	s.metrics.Add(metrics.RevenueMicros, total.Shift(6).IntPart())
	logger.FromContext(ctx).Info("Order created", "order_id", order.ID, "diner_id", order.DinerID, "total", total.String())
	return order, nil
}

// ListOrders returns page of the caller's own orders, oldest first
func (s *Orders) ListOrders(ctx context.Context, actor auth.Identity, page int) (*OrderPage, error) {
	if d := policy.Authorize(ActorOf(actor), policy.ListOrders, policy.Target{OwnerID: actor.UserID}); !d.Allowed {
		return nil, Forbidden(d.Reason)
	}
	if page < 1 {
		page = 1
	}
	orders, more, err := s.store.ListOrders(ctx, actor.UserID, repository.Page{Number: page, Limit: OrdersPageSize})
	if err != nil {
		return nil, StorageError(err)
	}
	return &OrderPage{DinerID: actor.UserID, Orders: orders, Page: page, More: more}, nil
}
