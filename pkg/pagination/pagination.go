package pagination

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit inside an int32 offset.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Params holds page-based pagination. Page is 1-indexed.
type Params struct {
	Limit int
	Page  int
}

// FromContext reads ?limit= and ?page=. Missing, non-numeric or
// non-positive values fall back to the defaults; limit is capped at MaxLimit
// and page at MaxPage.
func FromContext(c echo.Context) Params {
	return Parse(c.QueryParam("limit"), c.QueryParam("page"))
}

func Parse(limitStr, pageStr string) Params {
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	return Params{Limit: limit, Page: page}
}

// Offset is the number of rows to skip: (page-1) * limit.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Response is the listing envelope. Total counts every row matching the
// filter, independent of the page.
type Response struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}

func NewResponse(data interface{}, total int) *Response {
	return &Response{Data: data, Total: total}
}
