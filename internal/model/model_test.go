package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", `"2024-03-01T10:30:00Z"`, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"python isoformat", `"2024-03-01T10:30:00"`, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"python microseconds", `"2024-03-01T10:30:00.123456"`, time.Date(2024, 3, 1, 10, 30, 0, 123456000, time.UTC)},
		{"date only", `"2024-03-01"`, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"null", `null`, time.Time{}},
		{"empty", `""`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestTimestampMarshalZeroIsNull(t *testing.T) {
	out, err := json.Marshal(struct {
		At Timestamp `json:"at"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":null}`, string(out))
}

func TestCents(t *testing.T) {
	assert.Equal(t, Cents(1999), ToCents(19.99))
	assert.Equal(t, Cents(30), ToCents(0.1+0.2))
	assert.Equal(t, "49.19", Cents(4919).String())
	assert.Equal(t, "-0.05", Cents(-5).String())
	assert.InDelta(t, 5.99, Cents(599).Float(), 1e-9)
}

func TestBookPrices(t *testing.T) {
	sale := 7.5
	b := Book{ListPrice: 10, SalePrice: &sale, Format: "E-Book"}
	assert.Equal(t, 7.5, b.CurrentPrice())
	assert.True(t, b.IsDigital())

	zero := 0.0
	b.SalePrice = &zero
	assert.Equal(t, 10.0, b.CurrentPrice())
	assert.False(t, Book{Format: "paperback"}.IsDigital())
}

func TestUserRoles(t *testing.T) {
	var guest *User
	assert.False(t, guest.IsAdmin())
	assert.Equal(t, "", guest.FullName())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.Equal(t, "ada", (&User{Username: "ada"}).FullName())
}

func TestAdminQueryApply(t *testing.T) {
	status, page := "pending", 3
	base := DefaultAdminQuery()
	merged := base.Apply(AdminQueryPatch{Status: &status, Page: &page})

	assert.Equal(t, AdminQuery{Status: "pending", Sort: "created_at", Order: "desc", Page: 3, PerPage: 20}, merged)
	assert.Equal(t, "", base.Status, "apply must not modify the receiver")

	v := merged.Values()
	assert.Equal(t, "pending", v.Get("status"))
	assert.Equal(t, "3", v.Get("page"))
	assert.Equal(t, "20", v.Get("per_page"))
	assert.False(t, v.Has("search"))
	assert.False(t, v.Has("book_id"))
}

func TestAdminQueryApplyClearsWithZeroValues(t *testing.T) {
	empty, noBook := "", int64(0)
	q := AdminQuery{Search: "ada", Status: "pending", BookID: 7, Page: 2, PerPage: 20}

	cleared := q.Apply(AdminQueryPatch{Search: &empty, Status: &empty, BookID: &noBook})
	assert.Equal(t, AdminQuery{Page: 2, PerPage: 20}, cleared)

	v := cleared.Values()
	assert.False(t, v.Has("search"))
	assert.False(t, v.Has("status"))
	assert.False(t, v.Has("book_id"))
	assert.Equal(t, q, q.Apply(AdminQueryPatch{}))
}

func TestWishlistReferencedBookID(t *testing.T) {
	assert.Equal(t, int64(4), WishlistItem{BookID: 4}.ReferencedBookID())
	assert.Equal(t, int64(9), WishlistItem{Book: &WishlistBook{ID: 9}}.ReferencedBookID())
	assert.Equal(t, int64(0), WishlistItem{}.ReferencedBookID())
}
