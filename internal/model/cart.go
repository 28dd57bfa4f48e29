package model

// CartItem associates the signed-in user with a book and a quantity.
// ID is the association id; BookID references the catalog item.
type CartItem struct {
	ID            int64    `json:"id"`
	BookID        int64    `json:"book_id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Format        string   `json:"format,omitempty"`
	CoverImageURL string   `json:"cover_image_url,omitempty"`
	ListPrice     float64  `json:"list_price"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	Price         float64  `json:"price,omitempty"`
	Quantity      int      `json:"quantity"`
	StockQuantity int      `json:"stock_quantity"`
	IsAvailable   bool     `json:"is_available"`
}

// CurrentPrice is the unit price the cart is charged at.
func (i CartItem) CurrentPrice() float64 {
	if i.SalePrice != nil && *i.SalePrice > 0 {
		return *i.SalePrice
	}
	if i.ListPrice > 0 {
		return i.ListPrice
	}
	return i.Price
}

// Units is the quantity with the API's "missing means one" rule applied.
func (i CartItem) Units() int {
	if i.Quantity < 1 {
		return 1
	}
	return i.Quantity
}

// IsDigital reports whether the item is an electronic edition.
func (i CartItem) IsDigital() bool {
	return IsDigitalFormat(i.Format)
}

// WishlistItem associates the signed-in user with a saved book.
type WishlistItem struct {
	ID           int64         `json:"id"`
	BookID       int64         `json:"book_id"`
	Notes        string        `json:"notes,omitempty"`
	Priority     int           `json:"priority,omitempty"`
	AddedPrice   *float64      `json:"added_price,omitempty"`
	CurrentPrice *float64      `json:"current_price,omitempty"`
	Book         *WishlistBook `json:"book,omitempty"`
	CreatedAt    Timestamp     `json:"created_at"`
}

// WishlistBook is the book summary embedded in a wishlist entry.
type WishlistBook struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	CoverImageURL string  `json:"cover_image_url,omitempty"`
	CurrentPrice  float64 `json:"current_price"`
	IsAvailable   bool    `json:"is_available"`
	AverageRating float64 `json:"average_rating"`
}

// ReferencedBookID resolves the book id from either the flat or embedded field.
func (w WishlistItem) ReferencedBookID() int64 {
	if w.BookID != 0 {
		return w.BookID
	}
	if w.Book != nil {
		return w.Book.ID
	}
	return 0
}
