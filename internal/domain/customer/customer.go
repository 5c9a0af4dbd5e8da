package customer

import (
	"errors"
	"time"
)

// created_at is nullable in the schema, hence the pointer.
type Customer struct {
	ID        int
	Name      string
	Email     string
	CreatedAt *time.Time
}

var ErrNotFound = errors.New("customer not found")

// createdAtLayout renders timestamps as DD/MM/YYYY HH:MM:SS.
const createdAtLayout = "02/01/2006 15:04:05"

// missingTimestamp is substituted when created_at is absent.
const missingTimestamp = "-"

// Response is the customer DTO: same fields, timestamp pre-formatted for
// display.
type Response struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (c Customer) ToResponse() Response {
	createdAt := missingTimestamp

	if c.CreatedAt != nil {
		createdAt = c.CreatedAt.Format(createdAtLayout)
	}

	return Response{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: createdAt,
	}
}

type CreateRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=120"`
	Email string `json:"email" binding:"required,email"`
}

type UpdateRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=120"`
	Email string `json:"email" binding:"required,email"`
}

// ListFilter carries normalized pagination. Page is 1-based and already
// clamped, so Offset can never go negative.
type ListFilter struct {
	Page  int
	Limit int
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

func NewListFilter(page, limit int) ListFilter {
	if page < 1 {
		page = DefaultPage
	}

	if limit < 1 {
		limit = DefaultLimit
	}

	return ListFilter{Page: page, Limit: limit}
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
