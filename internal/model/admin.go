package model

import (
	"net/url"
	"strconv"
)

// Pagination mirrors the API's paging metadata.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// AdminUser is a user row in the back office.
type AdminUser struct {
	User
	OrderCount int       `json:"order_count,omitempty"`
	TotalSpent float64   `json:"total_spent,omitempty"`
	LastLogin  Timestamp `json:"last_login"`
}

// AdminUserUpdate carries the fields an administrator may change.
type AdminUserUpdate struct {
	Role     string `json:"role,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// DashboardStats is the admin dashboard payload.
type DashboardStats struct {
	Stats struct {
		TotalUsers     int     `json:"total_users"`
		TotalBooks     int     `json:"total_books"`
		TotalOrders    int     `json:"total_orders"`
		TotalReviews   int     `json:"total_reviews"`
		TodayOrders    int     `json:"today_orders"`
		TodayRevenue   float64 `json:"today_revenue"`
		MonthlyRevenue float64 `json:"monthly_revenue"`
	} `json:"stats"`
	RecentOrders []Order        `json:"recent_orders"`
	TopBooks     []TopBook      `json:"top_books"`
	RevenueChart []RevenuePoint `json:"revenue_chart"`
}

// TopBook is a best-selling title on the dashboard.
type TopBook struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	TotalSold    int     `json:"total_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

// RevenuePoint is one day of the dashboard revenue chart.
type RevenuePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// AdminQuery is the paginated filter sent verbatim to an admin list endpoint.
// Zero fields are omitted from the query string.
type AdminQuery struct {
	Search    string `json:"search,omitempty" yaml:"search,omitempty"`
	Status    string `json:"status,omitempty" yaml:"status,omitempty"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
	BookID    int64  `json:"book_id,omitempty" yaml:"book_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	StartDate string `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Sort      string `json:"sort,omitempty" yaml:"sort,omitempty"`
	Order     string `json:"order,omitempty" yaml:"order,omitempty"`
	Page      int    `json:"page,omitempty" yaml:"page,omitempty"`
	PerPage   int    `json:"per_page,omitempty" yaml:"per_page,omitempty"`
}

// AdminQueryPatch changes stored admin criteria. Nil fields keep the stored
// value; a pointer to the zero value clears it.
type AdminQueryPatch struct {
	Search    *string
	Status    *string
	Role      *string
	BookID    *int64
	UserID    *int64
	StartDate *string
	EndDate   *string
	Sort      *string
	Order     *string
	Page      *int
	PerPage   *int
}

// Apply returns q with every non-nil field of patch laid over it.
func (q AdminQuery) Apply(patch AdminQueryPatch) AdminQuery {
	setString(&q.Search, patch.Search)
	setString(&q.Status, patch.Status)
	setString(&q.Role, patch.Role)
	setString(&q.StartDate, patch.StartDate)
	setString(&q.EndDate, patch.EndDate)
	setString(&q.Sort, patch.Sort)
	setString(&q.Order, patch.Order)
	if patch.BookID != nil {
		q.BookID = *patch.BookID
	}
	if patch.UserID != nil {
		q.UserID = *patch.UserID
	}
	if patch.Page != nil {
		q.Page = *patch.Page
	}
	if patch.PerPage != nil {
		q.PerPage = *patch.PerPage
	}
	return q
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Values encodes q as query parameters.
func (q AdminQuery) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	setInt := func(key string, val int64) {
		if val != 0 {
			v.Set(key, strconv.FormatInt(val, 10))
		}
	}
	setInt("page", int64(q.Page))
	setInt("per_page", int64(q.PerPage))
	set("search", q.Search)
	set("role", q.Role)
	set("status", q.Status)
	setInt("book_id", q.BookID)
	setInt("user_id", q.UserID)
	set("start_date", q.StartDate)
	set("end_date", q.EndDate)
	set("sort", q.Sort)
	set("order", q.Order)
	return v
}

// DefaultAdminQuery is the criteria an admin list starts from.
func DefaultAdminQuery() AdminQuery {
	return AdminQuery{Sort: "created_at", Order: "desc", Page: 1, PerPage: 20}
}
