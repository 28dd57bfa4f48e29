package model

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// ShippingAddress is where a physical order is delivered.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderItem is a line of a placed order.
type OrderItem struct {
	ID        int64   `json:"id,omitempty"`
	BookID    int64   `json:"book_id"`
	Title     string  `json:"title,omitempty"`
	Format    string  `json:"format,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total,omitempty"`
}

// Order is a placed order. The client never deletes orders.
type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          int64           `json:"user_id,omitempty"`
	Status          OrderStatus     `json:"status"`
	Items           []OrderItem     `json:"items,omitempty"`
	ItemCount       int             `json:"item_count,omitempty"`
	Subtotal        float64         `json:"subtotal,omitempty"`
	Tax             float64         `json:"tax,omitempty"`
	Shipping        float64         `json:"shipping_cost,omitempty"`
	TotalAmount     float64         `json:"total_amount"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CreatedAt       Timestamp       `json:"created_at"`
}

// CreateOrderRequest is the fully formed checkout payload.
type CreateOrderRequest struct {
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentPhone    string          `json:"payment_phone,omitempty"`
	Subtotal        float64         `json:"subtotal"`
	Tax             float64         `json:"tax"`
	Shipping        float64         `json:"shipping_cost"`
	TotalAmount     float64         `json:"total_amount"`
}
