package model

import "strings"

// Category is a catalog category.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	BookCount   int    `json:"book_count,omitempty"`
}

// Book is a read-only projection of a catalog item.
type Book struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Author           string     `json:"author"`
	Slug             string     `json:"slug,omitempty"`
	ISBN13           string     `json:"isbn_13,omitempty"`
	Description      string     `json:"description,omitempty"`
	ShortDescription string     `json:"short_description,omitempty"`
	Publisher        string     `json:"publisher,omitempty"`
	PublicationDate  Timestamp  `json:"publication_date"`
	Format           string     `json:"format,omitempty"`
	Language         string     `json:"language,omitempty"`
	PageCount        int        `json:"page_count,omitempty"`
	ListPrice        float64    `json:"list_price"`
	SalePrice        *float64   `json:"sale_price,omitempty"`
	StockQuantity    int        `json:"stock_quantity"`
	IsAvailable      bool       `json:"is_available"`
	IsFeatured       bool       `json:"is_featured,omitempty"`
	IsBestseller     bool       `json:"is_bestseller,omitempty"`
	Categories       []Category `json:"categories,omitempty"`
	AverageRating    float64    `json:"average_rating"`
	ReviewCount      int        `json:"review_count"`
	CoverImageURL    string     `json:"cover_image_url,omitempty"`
	CreatedAt        Timestamp  `json:"created_at"`
}

// CurrentPrice is the sale price when one is set, else the list price.
func (b Book) CurrentPrice() float64 {
	if b.SalePrice != nil && *b.SalePrice > 0 {
		return *b.SalePrice
	}
	return b.ListPrice
}

// InCategory reports whether the book is tagged with the category id.
func (b Book) InCategory(id int64) bool {
	for _, c := range b.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// IsDigital reports whether the book is delivered electronically.
func (b Book) IsDigital() bool {
	return IsDigitalFormat(b.Format)
}

// IsDigitalFormat reports whether format names an electronic edition.
func IsDigitalFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "ebook", "e-book", "digital":
		return true
	}
	return false
}

// BookInput is the admin payload for creating or updating a book.
type BookInput struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	ISBN13        string   `json:"isbn_13,omitempty"`
	Description   string   `json:"description,omitempty"`
	Format        string   `json:"format,omitempty"`
	ListPrice     float64  `json:"list_price"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	StockQuantity int      `json:"stock_quantity"`
	CategoryIDs   []int64  `json:"category_ids,omitempty"`
	IsFeatured    bool     `json:"is_featured,omitempty"`
}
