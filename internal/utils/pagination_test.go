package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewPaginationParamsClampsInput(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		order       string
		want        PaginationParams
	}{
		{"defaults", 0, 0, "", PaginationParams{Page: 1, Limit: 20, Order: "desc"}},
		{"too large", 3, 500, "asc", PaginationParams{Page: 3, Limit: 20, Order: "asc"}},
		{"injection in order", 1, 10, "desc; drop table orders", PaginationParams{Page: 1, Limit: 10, Order: "desc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPaginationParams(tt.page, tt.limit, tt.order))
		})
	}
}

func TestGetPaginationParamsFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/v1/orders?page=2&limit=5&order=asc", nil)

	params := GetPaginationParams(c)

	assert.Equal(t, PaginationParams{Page: 2, Limit: 5, Order: "asc"}, params)
	assert.Equal(t, 5, params.Offset())
}

func TestCreatePaginationResultCountsPages(t *testing.T) {
	result := CreatePaginationResult([]int{1, 2}, 11, PaginationParams{Page: 1, Limit: 5})
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, int64(11), result.Total)
}
