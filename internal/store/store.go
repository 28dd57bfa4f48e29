// Package store is the single authoritative copy of the shopper's and
// administrator's view state, kept consistent with the bookstore API.
//
// Every collection is refetched after a mutation rather than patched from the
// mutation's response, except where noted. Reads of a collection are sequenced
// so that the last request issued wins. The store is safe for concurrent use.
package store

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/bookstore/storefront/internal/api"
	"github.com/bookstore/storefront/internal/catalog"
	"github.com/bookstore/storefront/internal/db"
	"github.com/bookstore/storefront/internal/events"
	"github.com/bookstore/storefront/internal/model"
	"github.com/bookstore/storefront/internal/repo"
	"go.uber.org/zap"
)

// API is the remote bookstore. *api.Client implements it.
type API interface {
	ListBooks(ctx context.Context, params url.Values) (api.BookPage, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	FeaturedBooks(ctx context.Context) ([]model.Book, error)
	Bestsellers(ctx context.Context) ([]model.Book, error)
	SearchBooks(ctx context.Context, query string, limit int) ([]model.Book, error)
	Categories(ctx context.Context) ([]model.Category, error)
	CreateBook(ctx context.Context, in model.BookInput) (model.Book, error)
	UpdateBook(ctx context.Context, id int64, in model.BookInput) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	Cart(ctx context.Context) ([]model.CartItem, error)
	AddToCart(ctx context.Context, bookID int64, quantity int) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) error
	RemoveFromCart(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
	Wishlist(ctx context.Context) ([]model.WishlistItem, error)
	AddToWishlist(ctx context.Context, bookID int64) error
	RemoveFromWishlist(ctx context.Context, itemID int64) error
	MoveWishlistItemToCart(ctx context.Context, itemID int64) error

	Orders(ctx context.Context, params url.Values) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	CreateOrder(ctx context.Context, in model.CreateOrderRequest) (model.Order, error)
	CancelOrder(ctx context.Context, id int64) (model.Order, error)

	BookReviews(ctx context.Context, bookID int64) ([]model.Review, error)
	CreateReview(ctx context.Context, bookID int64, in model.ReviewInput) (model.Review, error)
	VoteReview(ctx context.Context, reviewID int64, helpful bool) error

	Login(ctx context.Context, creds model.Credentials) (*model.User, error)
	Register(ctx context.Context, reg model.Registration) (*model.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*model.User, error)

	DashboardStats(ctx context.Context) (model.DashboardStats, error)
	AdminUsers(ctx context.Context, q model.AdminQuery) (api.UserPage, error)
	UpdateAdminUser(ctx context.Context, userID int64, upd model.AdminUserUpdate) error
	AdminOrders(ctx context.Context, q model.AdminQuery) (api.OrderPage, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error)
	AdminReviews(ctx context.Context, q model.AdminQuery) (api.ReviewPage, error)
	UpdateReview(ctx context.Context, reviewID int64, upd model.ReviewUpdate) (api.ReviewModeration, error)
	DeleteReview(ctx context.Context, reviewID int64) error
	RespondToReview(ctx context.Context, reviewID int64, content string) (model.ReviewResponse, error)
}

// IntentLog is the durable queue of guest mutations. *repo.IntentRepository implements it.
type IntentLog interface {
	Enqueue(ctx context.Context, intent *db.PendingIntent) (*db.PendingIntent, bool, error)
	ListPending(ctx context.Context) ([]db.PendingIntent, error)
	MarkApplied(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, reason string) error
	SetValue(ctx context.Context, key, value string) error
	GetValue(ctx context.Context, key string) (string, bool, error)
	DeleteValue(ctx context.Context, key string) error
	Stats(ctx context.Context) (repo.IntentStats, error)
}

// Resource names carried by Change.
const (
	ResourceUser         = "user"
	ResourceBooks        = "books"
	ResourceBook         = "book"
	ResourceCategories   = "categories"
	ResourceFeatured     = "featured"
	ResourceBestsellers  = "bestsellers"
	ResourceSearch       = "search"
	ResourceFilters      = "filters"
	ResourceCart         = "cart"
	ResourceWishlist     = "wishlist"
	ResourceOrders       = "orders"
	ResourceOrder        = "order"
	ResourceReviews      = "reviews"
	ResourceDashboard    = "dashboard"
	ResourceAdminUsers   = "admin_users"
	ResourceAdminOrders  = "admin_orders"
	ResourceAdminReviews = "admin_reviews"
)

// Change tells subscribers that a resource's state moved.
type Change struct {
	Resource string
}

// Snapshot is a copy of the whole store state.
type Snapshot struct {
	User           *model.User                     `json:"user"`
	Books          Resource[[]model.Book]          `json:"books"`
	BookPagination model.Pagination                `json:"book_pagination"`
	Book           Resource[*model.Book]           `json:"book"`
	Categories     Resource[[]model.Category]      `json:"categories"`
	Featured       Resource[[]model.Book]          `json:"featured"`
	Bestsellers    Resource[[]model.Book]          `json:"bestsellers"`
	Search         Resource[[]model.Book]          `json:"search"`
	Filters        catalog.Filter                  `json:"filters"`
	Cart           Resource[[]model.CartItem]      `json:"cart"`
	Wishlist       Resource[[]model.WishlistItem]  `json:"wishlist"`
	Orders         Resource[[]model.Order]         `json:"orders"`
	Order          Resource[*model.Order]          `json:"order"`
	Reviews        Resource[[]model.Review]        `json:"reviews"`
	ReviewsBookID  int64                           `json:"reviews_book_id,omitempty"`
	Dashboard      Resource[*model.DashboardStats] `json:"dashboard"`
	AdminUsers     AdminList[model.AdminUser]      `json:"admin_users"`
	AdminOrders    AdminList[model.Order]          `json:"admin_orders"`
	AdminReviews   AdminList[model.Review]         `json:"admin_reviews"`
	ReviewFilter   catalog.ReviewFilter            `json:"review_filter"`
	Error          string                          `json:"error,omitempty"`
}

// Loading reports whether any resource has a request in flight.
func (s Snapshot) Loading() bool {
	return s.Books.Loading || s.Book.Loading || s.Categories.Loading || s.Featured.Loading ||
		s.Bestsellers.Loading || s.Search.Loading || s.Cart.Loading || s.Wishlist.Loading ||
		s.Orders.Loading || s.Order.Loading || s.Reviews.Loading || s.Dashboard.Loading ||
		s.AdminUsers.Items.Loading || s.AdminOrders.Items.Loading || s.AdminReviews.Items.Loading
}

func (s Snapshot) clone() Snapshot {
	c := s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	c.Books.Data = cloneSlice(s.Books.Data)
	c.Categories.Data = cloneSlice(s.Categories.Data)
	c.Featured.Data = cloneSlice(s.Featured.Data)
	c.Bestsellers.Data = cloneSlice(s.Bestsellers.Data)
	c.Search.Data = cloneSlice(s.Search.Data)
	c.Cart.Data = cloneSlice(s.Cart.Data)
	c.Wishlist.Data = cloneSlice(s.Wishlist.Data)
	c.Orders.Data = cloneSlice(s.Orders.Data)
	c.Reviews.Data = cloneSlice(s.Reviews.Data)
	c.AdminUsers.Items.Data = cloneSlice(s.AdminUsers.Items.Data)
	c.AdminOrders.Items.Data = cloneSlice(s.AdminOrders.Items.Data)
	c.AdminReviews.Items.Data = cloneSlice(s.AdminReviews.Items.Data)
	c.Book.Data = cloneBook(s.Book.Data)
	c.Order.Data = cloneOrder(s.Order.Data)
	c.Dashboard.Data = cloneDashboard(s.Dashboard.Data)
	return c
}

func cloneBook(b *model.Book) *model.Book {
	if b == nil {
		return nil
	}
	c := *b
	c.Categories = cloneSlice(b.Categories)
	return &c
}

func cloneOrder(o *model.Order) *model.Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = cloneSlice(o.Items)
	return &c
}

func cloneDashboard(d *model.DashboardStats) *model.DashboardStats {
	if d == nil {
		return nil
	}
	c := *d
	c.RecentOrders = cloneSlice(d.RecentOrders)
	c.TopBooks = cloneSlice(d.TopBooks)
	c.RevenueChart = cloneSlice(d.RevenueChart)
	return &c
}

// Options configures a Store.
type Options struct {
	API      API
	Intents  IntentLog
	Notifier events.Notifier
	Logger   *zap.Logger
	Metrics  *Metrics
	// BulkConcurrency bounds concurrent calls in bulk deletes. Defaults to 4.
	BulkConcurrency int
}

// Store holds the view state. Create it with New.
type Store struct {
	api      API
	intents  IntentLog
	notifier events.Notifier
	log      *zap.Logger
	metrics  *Metrics
	bulk     int

	mu         sync.RWMutex
	st         Snapshot
	bookParams url.Values

	subMu   sync.Mutex
	subs    map[uint64]chan Change
	nextSub uint64
}

// New builds a store in the guest state with default filters.
func New(opts Options) *Store {
	s := &Store{
		api:      opts.API,
		intents:  opts.Intents,
		notifier: opts.Notifier,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		bulk:     opts.BulkConcurrency,
		subs:     make(map[uint64]chan Change),
	}
	if s.notifier == nil {
		s.notifier = events.NopNotifier{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.bulk < 1 {
		s.bulk = 4
	}
	s.st = initialState()
	return s
}

func initialState() Snapshot {
	return Snapshot{
		Books:        Resource[[]model.Book]{Data: []model.Book{}},
		Categories:   Resource[[]model.Category]{Data: []model.Category{}},
		Featured:     Resource[[]model.Book]{Data: []model.Book{}},
		Bestsellers:  Resource[[]model.Book]{Data: []model.Book{}},
		Search:       Resource[[]model.Book]{Data: []model.Book{}},
		Filters:      catalog.DefaultFilter(),
		Cart:         Resource[[]model.CartItem]{Data: []model.CartItem{}},
		Wishlist:     Resource[[]model.WishlistItem]{Data: []model.WishlistItem{}},
		Orders:       Resource[[]model.Order]{Data: []model.Order{}},
		Reviews:      Resource[[]model.Review]{Data: []model.Review{}},
		AdminUsers:   AdminList[model.AdminUser]{Items: Resource[[]model.AdminUser]{Data: []model.AdminUser{}}, Query: model.DefaultAdminQuery()},
		AdminOrders:  AdminList[model.Order]{Items: Resource[[]model.Order]{Data: []model.Order{}}, Query: model.DefaultAdminQuery()},
		AdminReviews: AdminList[model.Review]{Items: Resource[[]model.Review]{Data: []model.Review{}}, Query: model.DefaultAdminQuery()},
		ReviewFilter: catalog.ReviewFilter{Status: catalog.ReviewFilterAll},
	}
}

// Snapshot returns a copy of the current state. The user, every collection and
// the book, order and dashboard details are copied; values nested inside list
// elements (an order's items, a book's categories) are shared and read-only.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.clone()
}

// Loading reports whether any resource has a request in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Loading()
}

// User returns a copy of the signed-in user, or nil for a guest.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.st.User == nil {
		return nil
	}
	u := *s.st.User
	return &u
}

// Subscribe returns a channel of state changes and a func to stop receiving them.
// Changes are dropped for a subscriber whose buffer is full.
func (s *Store) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 64
	}
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) changed(resources ...string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, r := range resources {
		for _, ch := range s.subs {
			select {
			case ch <- Change{Resource: r}:
			default:
			}
		}
	}
}

// update runs fn under the write lock and then notifies subscribers of resources.
func (s *Store) update(fn func(st *Snapshot), resources ...string) {
	s.mu.Lock()
	fn(&s.st)
	s.mu.Unlock()
	s.changed(resources...)
}

func (s *Store) notify(ctx context.Context, level events.Level, action, message string) {
	s.notifier.Notify(ctx, events.NewNotification(level, action, message))
}

func (s *Store) signedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.User != nil
}

func (s *Store) isAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.User.IsAdmin()
}

// requireAdmin fails fast for admin-gated actions.
func (s *Store) requireAdmin(ctx context.Context, action string) error {
	if s.isAdmin() {
		return nil
	}
	s.metrics.observe(action, resultForbidden, 0)
	s.notify(ctx, events.LevelError, action, "Admin access required")
	s.log.Warn("Admin action refused", zap.String("action", action))
	return &ActionError{Action: action, Message: "Admin access required", Err: ErrForbidden}
}

func since(start time.Time) float64 {
	return time.Since(start).Seconds()
}
