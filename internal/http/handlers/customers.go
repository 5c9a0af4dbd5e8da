package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricckyzdev/customerhub/internal/cache"
	"github.com/ricckyzdev/customerhub/internal/config"
	"github.com/ricckyzdev/customerhub/internal/domain/customer"
)

type CustomersStore interface {
	List(ctx context.Context, filter customer.ListFilter) ([]customer.Customer, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id int) (customer.Customer, error)
	Create(ctx context.Context, name, email string) (int, error)
	Update(ctx context.Context, id int, name, email string) error
}

const countCacheKey = "customers:count:v1"

type CustomersHandler struct {
	store  CustomersStore
	counts *cache.Cache
}

func NewCustomersHandler(store CustomersStore, counts *cache.Cache) *CustomersHandler {
	return &CustomersHandler{store: store, counts: counts}
}

type customerListResponse struct {
	TotalCount int                 `json:"total_count"`
	Customers  []customer.Response `json:"customers"`
}

func (h *CustomersHandler) ListCustomers(ctx *gin.Context) {
	page := queryInt(ctx, "page", customer.DefaultPage)
	limit := queryInt(ctx, "limit", customer.DefaultLimit)

	filter := customer.NewListFilter(page, limit)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	rows, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list customers")
		return
	}

	total, err := h.totalCount(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list customers")
		return
	}

	customers := make([]customer.Response, 0, len(rows))

	for _, c := range rows {
		customers = append(customers, c.ToResponse())
	}

	ctx.JSON(http.StatusOK, customerListResponse{
		TotalCount: total,
		Customers:  customers,
	})
}

func (h *CustomersHandler) GetCustomerByID(ctx *gin.Context) {
	id, ok := pathID(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	c, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			RespondNotFound(ctx, "Customer not found")
			return
		}
		RespondInternal(ctx, "Could not fetch customer")
		return
	}

	ctx.JSON(http.StatusOK, c.ToResponse())
}

func (h *CustomersHandler) CreateCustomer(ctx *gin.Context) {
	var req customer.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	_, err := h.store.Create(cctx, req.Name, req.Email)

	if err != nil {
		RespondInternal(ctx, "Could not create customer")
		return
	}

	h.invalidateCount()

	RespondSuccess(ctx, http.StatusCreated, "Customer created successfully")
}

// UpdateCustomer does not verify the row existed; a matched-nothing update
// still reports success.
func (h *CustomersHandler) UpdateCustomer(ctx *gin.Context) {
	id, ok := pathID(ctx)

	if !ok {
		return
	}

	var req customer.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err := h.store.Update(cctx, id, req.Name, req.Email)

	if err != nil {
		RespondInternal(ctx, "Could not update customer")
		return
	}

	h.invalidateCount()

	RespondSuccess(ctx, http.StatusOK, "Customer updated successfully")
}

// totalCount serves the table count through the short-TTL cache so listing
// pages does not re-count every request.
func (h *CustomersHandler) totalCount(ctx context.Context) (int, error) {
	if h.counts != nil {
		if v, ok := h.counts.Get(countCacheKey); ok {
			if total, ok := v.(int); ok {
				return total, nil
			}
		}
	}

	total, err := h.store.Count(ctx)

	if err != nil {
		return 0, err
	}

	if h.counts != nil {
		h.counts.Set(countCacheKey, total)
	}

	return total, nil
}

func (h *CustomersHandler) invalidateCount() {
	if h.counts != nil {
		h.counts.Delete(countCacheKey)
	}
}

func queryInt(ctx *gin.Context, key string, fallback int) int {
	raw := ctx.Query(key)

	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)

	if err != nil {
		return fallback
	}

	return n
}
