package store

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/bookstore/storefront/internal/api"
	"github.com/bookstore/storefront/internal/model"
)

// fakeAPI is an in-memory bookstore that counts calls per method.
type fakeAPI struct {
	mu sync.Mutex

	calls map[string]int
	errs  map[string]error

	user     *model.User
	books    []model.Book
	cart     []model.CartItem
	wishlist []model.WishlistItem
	orders   []model.Order
	reviews  []model.Review
	nextID   int64

	listBooks       func(ctx context.Context, params url.Values) (api.BookPage, error)
	orderStatusErrs map[int64]error
	deleteErrs      map[int64]error
	lastAdminQuery  model.AdminQuery
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:           make(map[string]int),
		errs:            make(map[string]error),
		orderStatusErrs: make(map[int64]error),
		deleteErrs:      make(map[int64]error),
		nextID:          100,
	}
}

func unauthorized() error {
	return &api.Error{StatusCode: http.StatusUnauthorized, Message: "Missing cookie"}
}

func serverError() error {
	return &api.Error{StatusCode: http.StatusInternalServerError, Message: "boom"}
}

// hit records a call and returns the configured error for method.
func (f *fakeAPI) hit(method string) error {
	f.calls[method]++
	return f.errs[method]
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) setErr(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakeAPI) book(id int64) model.Book {
	for _, b := range f.books {
		if b.ID == id {
			return b
		}
	}
	return model.Book{ID: id, Title: "Book", ListPrice: 10}
}

func (f *fakeAPI) ListBooks(ctx context.Context, params url.Values) (api.BookPage, error) {
	f.mu.Lock()
	hook := f.listBooks
	err := f.hit("ListBooks")
	books := append([]model.Book{}, f.books...)
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, params)
	}
	if err != nil {
		return api.BookPage{}, err
	}
	return api.BookPage{Books: books, Pagination: model.Pagination{Page: 1, PerPage: 20, Total: len(books), Pages: 1}}, nil
}

func (f *fakeAPI) GetBook(_ context.Context, id int64) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("GetBook"); err != nil {
		return model.Book{}, err
	}
	return f.book(id), nil
}

func (f *fakeAPI) FeaturedBooks(context.Context) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("FeaturedBooks"); err != nil {
		return nil, err
	}
	return append([]model.Book{}, f.books...), nil
}

func (f *fakeAPI) Bestsellers(context.Context) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []model.Book{}, f.hit("Bestsellers")
}

func (f *fakeAPI) SearchBooks(context.Context, string, int) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []model.Book{}, f.hit("SearchBooks")
}

func (f *fakeAPI) Categories(context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("Categories"); err != nil {
		return nil, err
	}
	return []model.Category{{ID: 1, Name: "Fiction"}}, nil
}

func (f *fakeAPI) CreateBook(_ context.Context, in model.BookInput) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("CreateBook"); err != nil {
		return model.Book{}, err
	}
	f.nextID++
	b := model.Book{ID: f.nextID, Title: in.Title}
	f.books = append(f.books, b)
	return b, nil
}

func (f *fakeAPI) UpdateBook(_ context.Context, id int64, in model.BookInput) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.Book{ID: id, Title: in.Title}, f.hit("UpdateBook")
}

func (f *fakeAPI) DeleteBook(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hit("DeleteBook")
}

func (f *fakeAPI) Cart(context.Context) ([]model.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("Cart"); err != nil {
		return nil, err
	}
	return append([]model.CartItem{}, f.cart...), nil
}

func (f *fakeAPI) addCart(bookID int64, qty int) {
	for i := range f.cart {
		if f.cart[i].BookID == bookID {
			f.cart[i].Quantity += qty
			return
		}
	}
	b := f.book(bookID)
	f.nextID++
	f.cart = append(f.cart, model.CartItem{
		ID: f.nextID, BookID: bookID, Title: b.Title, Format: b.Format,
		ListPrice: b.ListPrice, SalePrice: b.SalePrice, Quantity: qty,
	})
}

func (f *fakeAPI) AddToCart(_ context.Context, bookID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("AddToCart"); err != nil {
		return err
	}
	f.addCart(bookID, quantity)
	return nil
}

func (f *fakeAPI) UpdateCartItem(_ context.Context, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("UpdateCartItem"); err != nil {
		return err
	}
	for i := range f.cart {
		if f.cart[i].ID == itemID {
			f.cart[i].Quantity = quantity
		}
	}
	return nil
}

func (f *fakeAPI) RemoveFromCart(_ context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("RemoveFromCart"); err != nil {
		return err
	}
	kept := f.cart[:0]
	for _, item := range f.cart {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	f.cart = kept
	return nil
}

func (f *fakeAPI) ClearCart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("ClearCart"); err != nil {
		return err
	}
	f.cart = nil
	return nil
}

func (f *fakeAPI) Wishlist(context.Context) ([]model.WishlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("Wishlist"); err != nil {
		return nil, err
	}
	return append([]model.WishlistItem{}, f.wishlist...), nil
}

func (f *fakeAPI) AddToWishlist(_ context.Context, bookID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("AddToWishlist"); err != nil {
		return err
	}
	f.nextID++
	f.wishlist = append(f.wishlist, model.WishlistItem{ID: f.nextID, BookID: bookID})
	return nil
}

func (f *fakeAPI) RemoveFromWishlist(_ context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("RemoveFromWishlist"); err != nil {
		return err
	}
	f.dropWishlist(itemID)
	return nil
}

func (f *fakeAPI) dropWishlist(itemID int64) (model.WishlistItem, bool) {
	for i, item := range f.wishlist {
		if item.ID == itemID {
			f.wishlist = append(f.wishlist[:i:i], f.wishlist[i+1:]...)
			return item, true
		}
	}
	return model.WishlistItem{}, false
}

func (f *fakeAPI) MoveWishlistItemToCart(_ context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("MoveWishlistItemToCart"); err != nil {
		return err
	}
	if item, ok := f.dropWishlist(itemID); ok {
		f.addCart(item.ReferencedBookID(), 1)
	}
	return nil
}

func (f *fakeAPI) Orders(context.Context, url.Values) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("Orders"); err != nil {
		return nil, err
	}
	return append([]model.Order{}, f.orders...), nil
}

func (f *fakeAPI) GetOrder(_ context.Context, id int64) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("GetOrder"); err != nil {
		return model.Order{}, err
	}
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return model.Order{ID: id, Status: model.OrderPending}, nil
}

func (f *fakeAPI) CreateOrder(_ context.Context, in model.CreateOrderRequest) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("CreateOrder"); err != nil {
		return model.Order{}, err
	}
	f.nextID++
	order := model.Order{
		ID: f.nextID, OrderNumber: "ORD-NEW", Status: model.OrderPending,
		Items: in.Items, TotalAmount: in.TotalAmount, PaymentMethod: in.PaymentMethod,
	}
	f.orders = append([]model.Order{order}, f.orders...)
	f.cart = nil
	return order, nil
}

func (f *fakeAPI) CancelOrder(_ context.Context, id int64) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.Order{ID: id, Status: model.OrderCancelled}, f.hit("CancelOrder")
}

func (f *fakeAPI) BookReviews(context.Context, int64) ([]model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("BookReviews"); err != nil {
		return nil, err
	}
	return append([]model.Review{}, f.reviews...), nil
}

func (f *fakeAPI) CreateReview(_ context.Context, bookID int64, in model.ReviewInput) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("CreateReview"); err != nil {
		return model.Review{}, err
	}
	f.nextID++
	r := model.Review{ID: f.nextID, BookID: bookID, Rating: in.Rating, Content: in.Content, Status: model.ReviewPending}
	f.reviews = append(f.reviews, r)
	return r, nil
}

func (f *fakeAPI) VoteReview(context.Context, int64, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hit("VoteReview")
}

func (f *fakeAPI) Login(_ context.Context, creds model.Credentials) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("Login"); err != nil {
		return nil, err
	}
	if f.user == nil {
		f.user = &model.User{ID: 7, Email: creds.Email, Role: model.RoleCustomer}
	}
	u := *f.user
	return &u, nil
}

func (f *fakeAPI) Register(_ context.Context, reg model.Registration) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("Register"); err != nil {
		return nil, err
	}
	f.user = &model.User{ID: 8, Email: reg.Email, FirstName: reg.FirstName, Role: model.RoleCustomer}
	u := *f.user
	return &u, nil
}

func (f *fakeAPI) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hit("Logout")
}

func (f *fakeAPI) CurrentUser(context.Context) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("CurrentUser"); err != nil {
		return nil, err
	}
	if f.user == nil {
		return nil, unauthorized()
	}
	u := *f.user
	return &u, nil
}

func (f *fakeAPI) DashboardStats(context.Context) (model.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.DashboardStats{}, f.hit("DashboardStats")
}

func (f *fakeAPI) AdminUsers(context.Context, model.AdminQuery) (api.UserPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return api.UserPage{Users: []model.AdminUser{}}, f.hit("AdminUsers")
}

func (f *fakeAPI) UpdateAdminUser(context.Context, int64, model.AdminUserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hit("UpdateAdminUser")
}

func (f *fakeAPI) AdminOrders(_ context.Context, q model.AdminQuery) (api.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAdminQuery = q
	if err := f.hit("AdminOrders"); err != nil {
		return api.OrderPage{}, err
	}
	orders := append([]model.Order{}, f.orders...)
	return api.OrderPage{Orders: orders, Pagination: model.Pagination{Page: q.Page, PerPage: q.PerPage, Total: len(orders)}}, nil
}

func (f *fakeAPI) UpdateOrderStatus(_ context.Context, orderID int64, status model.OrderStatus) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("UpdateOrderStatus"); err != nil {
		return nil, err
	}
	if err := f.orderStatusErrs[orderID]; err != nil {
		return nil, err
	}
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders[i].Status = status
		}
	}
	return nil, nil
}

func (f *fakeAPI) AdminReviews(context.Context, model.AdminQuery) (api.ReviewPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("AdminReviews"); err != nil {
		return api.ReviewPage{}, err
	}
	reviews := append([]model.Review{}, f.reviews...)
	return api.ReviewPage{Reviews: reviews, Pagination: model.Pagination{Total: len(reviews)}}, nil
}

func (f *fakeAPI) UpdateReview(_ context.Context, reviewID int64, upd model.ReviewUpdate) (api.ReviewModeration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return api.ReviewModeration{ReviewID: reviewID, Status: upd.Status}, f.hit("UpdateReview")
}

func (f *fakeAPI) DeleteReview(_ context.Context, reviewID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("DeleteReview"); err != nil {
		return err
	}
	return f.deleteErrs[reviewID]
}

func (f *fakeAPI) RespondToReview(_ context.Context, _ int64, content string) (model.ReviewResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.ReviewResponse{AdminName: "Admin", Content: content}, f.hit("RespondToReview")
}
