package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidOrderStatus reports membership in the status enumeration. Sequencing
// between statuses is a process convention and is not checked anywhere.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPaypal     PaymentMethod = "paypal"
	PaymentMethodStripe     PaymentMethod = "stripe"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type ShippingAddress struct {
	FullName     string `json:"fullName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

type PaymentInfo struct {
	Method        PaymentMethod `json:"method"`
	TransactionID string        `json:"transactionId,omitempty"`
	Status        PaymentStatus `json:"status"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
}

// OrderItem captures a product snapshot at purchase time. Name, price and
// image are frozen copies, not references to the live product record.
type OrderItem struct {
	ID          int     `json:"id"`
	OrderID     int     `json:"-"`
	ProductID   int     `json:"product"`
	ProductSlug string  `json:"productSlug,omitempty"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Image       string  `json:"image"`
	SellerID    int     `json:"seller"`
	SellerName  string  `json:"sellerName,omitempty"`
}

type Order struct {
	ID                int             `json:"id"`
	OrderNumber       string          `json:"orderNumber"`
	BuyerID           int             `json:"buyer"`
	BuyerName         string          `json:"buyerName,omitempty"`
	BuyerEmail        string          `json:"buyerEmail,omitempty"`
	Items             []OrderItem     `json:"items"`
	Subtotal          float64         `json:"subtotal"`
	Shipping          float64         `json:"shipping"`
	Tax               float64         `json:"tax"`
	Total             float64         `json:"total"`
	Status            OrderStatus     `json:"status"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
	PaymentInfo       PaymentInfo     `json:"paymentInfo"`
	Notes             string          `json:"notes,omitempty"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ItemsSubtotal recomputes the sum of price*quantity over the line items.
// The stored subtotal/total are caller-supplied and are not re-derived from
// this value at creation time.
func (o *Order) ItemsSubtotal() float64 {
	var sum float64
	for _, item := range o.Items {
		sum += item.Price * float64(item.Quantity)
	}
	return sum
}

// SellerOrder is the seller-scoped projection of an order: items filtered to
// one seller with that seller's subtotal, full order total kept for reference.
type SellerOrder struct {
	Order
	SellerSubtotal float64 `json:"sellerSubtotal"`
	OriginalTotal  float64 `json:"originalTotal"`
}

type OrderItemRequest struct {
	Product  int     `json:"product"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
	Seller   int     `json:"seller"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	Subtotal        float64            `json:"subtotal"`
	Shipping        float64            `json:"shipping"`
	Tax             float64            `json:"tax"`
	Total           float64            `json:"total"`
	ShippingAddress ShippingAddress    `json:"shippingAddress"`
	PaymentInfo     struct {
		Method   string `json:"method"`
		Currency string `json:"currency"`
	} `json:"paymentInfo"`
}

type UpdateOrderRequest struct {
	Status            string `json:"status"`
	TrackingNumber    string `json:"trackingNumber"`
	EstimatedDelivery string `json:"estimatedDelivery"`
	Notes             string `json:"notes"`
}

type OrderEvent struct {
	OrderID     int         `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	BuyerID     int         `json:"buyer_id"`
	Status      OrderStatus `json:"status"`
	Total       float64     `json:"total"`
	EventType   string      `json:"event_type"` // order_placed, order_status_updated
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, limit, total int) Pagination {
	totalPages := (total + limit - 1) / limit
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
