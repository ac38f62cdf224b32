package cart

import (
	"encoding/json"
	"fmt"
	"time"

	"florashop-be/internal/apperr"
	"florashop-be/internal/product"

	"github.com/google/uuid"
)

// CartItem is one line. Price is captured when the line is first added.
type CartItem struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	Price       int64     `json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Cart is a user's basket. The total is always derived from the lines and is
// never stored.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}}
}

func (c *Cart) Total() int64 {
	if c == nil {
		return 0
	}
	var total int64
	for _, it := range c.Items {
		total += it.Subtotal()
	}
	return total
}

func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) QuantityFor(productID string) int {
	if i := c.indexOfProduct(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// FindItem returns a copy of the line with the given id.
func (c *Cart) FindItem(itemID string) (CartItem, bool) {
	if i := c.indexOfItem(itemID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

func (c *Cart) indexOfItem(itemID string) int {
	if c == nil {
		return -1
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexOfProduct(productID string) int {
	if c == nil {
		return -1
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddProduct adds qty units of p, merging into an existing line for the same
// product. The cart is left untouched on error.
func (c *Cart) AddProduct(p *product.Product, qty int, now time.Time) (CartItem, error) {
	if qty <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}
	if !p.Available() {
		return CartItem{}, ErrProductUnavailable
	}

	idx := c.indexOfProduct(p.ID)
	requested := qty
	if idx >= 0 {
		requested += c.Items[idx].Quantity
	}
	if requested > p.Stock {
		return CartItem{}, shortage(p, requested)
	}

	if idx >= 0 {
		c.Items[idx].Quantity = requested
		c.Items[idx].UpdatedAt = now
		c.UpdatedAt = now
		return c.Items[idx], nil
	}

	item := CartItem{
		ID:          uuid.NewString(),
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		Price:       p.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.Items = append(c.Items, item)
	c.UpdatedAt = now
	return item, nil
}

// SetQuantity sets a line to exactly qty units, bounded by stock. The caller
// handles qty <= 0 as a removal.
func (c *Cart) SetQuantity(itemID string, qty int, p *product.Product, now time.Time) (CartItem, error) {
	idx := c.indexOfItem(itemID)
	if idx < 0 {
		return CartItem{}, ErrCartItemNotFound
	}
	if qty <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}
	if !p.Available() {
		return CartItem{}, ErrProductUnavailable
	}
	if qty > p.Stock {
		return CartItem{}, shortage(p, qty)
	}

	c.Items[idx].Quantity = qty
	c.Items[idx].UpdatedAt = now
	c.UpdatedAt = now
	return c.Items[idx], nil
}

// rekey points the line for productID at the id it is stored under.
func (c *Cart) rekey(productID, id string) {
	if i := c.indexOfProduct(productID); i >= 0 {
		c.Items[i].ID = id
	}
}

// Remove drops the line and reports whether it was present.
func (c *Cart) Remove(itemID string) bool {
	idx := c.indexOfItem(itemID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func shortage(p *product.Product, requested int) error {
	return apperr.NewStockError(apperr.StockShortage{
		ProductID:   p.ID,
		ProductName: p.Name,
		Requested:   requested,
		Available:   p.Stock,
		Message:     fmt.Sprintf("only %d of %s available", p.Stock, p.Name),
	})
}

type cartJSON struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	Total     int64      `json:"total"`
	ItemCount int        `json:"itemCount"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// MarshalJSON adds the derived total and item count. Unmarshalling ignores
// them, so a decoded cart always recomputes.
func (c Cart) MarshalJSON() ([]byte, error) {
	items := c.Items
	if items == nil {
		items = []CartItem{}
	}
	return json.Marshal(cartJSON{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     items,
		Total:     c.Total(),
		ItemCount: c.ItemCount(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	})
}
