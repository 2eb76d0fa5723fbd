// Package cart implements a client-side shopping cart that can be persisted
// between sessions and turned into an order submission.
package cart

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/Figuelia98/wdd430-group-project/models"
)

// DefaultMaxQuantity caps a line item when the product row carries no
// quantity information of its own.
const DefaultMaxQuantity = 999

var ErrEmptyCart = errors.New("cart is empty")

// Item is one cart line. MaxQuantity is a snapshot of available stock taken
// when the item was added and can go stale against the catalog.
type Item struct {
	ProductID   int     `json:"product"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	SellerID    int     `json:"seller"`
	Quantity    int     `json:"quantity"`
	MaxQuantity int     `json:"maxQuantity"`
}

// Store persists cart contents between sessions.
type Store interface {
	Load() ([]Item, error)
	Save(items []Item) error
}

// FileStore keeps the cart as a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([]Item, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		// A corrupt cart file is treated as an empty cart rather than an
		// unrecoverable state.
		return nil, nil
	}
	return items, nil
}

func (s *FileStore) Save(items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// MemoryStore is a Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu    sync.Mutex
	items []Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, len(s.items))
	copy(items, s.items)
	return items, nil
}

func (s *MemoryStore) Save(items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]Item, len(items))
	copy(s.items, items)
	return nil
}

// Cart holds the in-memory line items and writes through to its Store on
// every mutation.
type Cart struct {
	mu    sync.Mutex
	store Store
	items []Item
}

// New builds a cart backed by store, restoring any persisted contents.
func New(store Store) (*Cart, error) {
	cart := &Cart{store: store}
	if store != nil {
		items, err := store.Load()
		if err != nil {
			return nil, err
		}
		cart.items = items
	}
	return cart, nil
}

// AddItem inserts a line or merges quantities when the product is already in
// the cart. The merged quantity is clamped to the item's max quantity.
func (c *Cart) AddItem(item Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.MaxQuantity < 1 {
		item.MaxQuantity = DefaultMaxQuantity
	}

	merged := false
	for i := range c.items {
		if c.items[i].ProductID == item.ProductID {
			c.items[i].Quantity += item.Quantity
			if c.items[i].Quantity > c.items[i].MaxQuantity {
				c.items[i].Quantity = c.items[i].MaxQuantity
			}
			merged = true
			break
		}
	}
	if !merged {
		if item.Quantity > item.MaxQuantity {
			item.Quantity = item.MaxQuantity
		}
		c.items = append(c.items, item)
	}
	return c.persist()
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line. Unknown products are a no-op.
func (c *Cart) UpdateQuantity(productID, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		return c.removeLocked(productID)
	}
	for i := range c.items {
		if c.items[i].ProductID == productID {
			if quantity > c.items[i].MaxQuantity {
				quantity = c.items[i].MaxQuantity
			}
			c.items[i].Quantity = quantity
			return c.persist()
		}
	}
	return nil
}

func (c *Cart) RemoveItem(productID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(productID)
}

func (c *Cart) removeLocked(productID int) error {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return c.persist()
		}
	}
	return nil
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.persist()
}

func (c *Cart) Contains(productID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// Quantity returns the quantity for a product, zero when absent.
func (c *Cart) Quantity(productID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]Item, len(c.items))
	copy(items, c.items)
	return items
}

// TotalItems is the summed quantity across all lines.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the summed price*quantity across all lines.
func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, item := range c.items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// CheckoutRequest assembles an order submission from the cart contents.
// Shipping and tax are supplied by the caller; the subtotal is derived from
// the lines and the total is their sum.
func (c *Cart) CheckoutRequest(address models.ShippingAddress, method string, shipping, tax float64) (models.CreateOrderRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return models.CreateOrderRequest{}, ErrEmptyCart
	}

	req := models.CreateOrderRequest{
		Items:           make([]models.OrderItemRequest, 0, len(c.items)),
		Shipping:        shipping,
		Tax:             tax,
		ShippingAddress: address,
	}
	req.PaymentInfo.Method = method

	var subtotal float64
	for _, item := range c.items {
		req.Items = append(req.Items, models.OrderItemRequest{
			Product:  item.ProductID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
			Seller:   item.SellerID,
		})
		subtotal += item.Price * float64(item.Quantity)
	}
	req.Subtotal = subtotal
	req.Total = subtotal + shipping + tax
	return req, nil
}

func (c *Cart) persist() error {
	if c.store == nil {
		return nil
	}
	return c.store.Save(c.items)
}
