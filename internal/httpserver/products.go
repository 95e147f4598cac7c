package httpserver

import (
	"net/http"

	"cis-portal/internal/domain"
	"cis-portal/internal/listing"
	"github.com/gin-gonic/gin"
)

type productView struct {
	domain.Product
	Active       bool   `json:"active"`
	PriceDisplay string `json:"price_display"`
}

func (h *handlers) view(p domain.Product) productView {
	return productView{Product: p, Active: p.Active(), PriceDisplay: p.FormatPrice(h.deps.Currency)}
}

func (h *handlers) listProducts(c *gin.Context) {
	p, ok := bindListing(c)
	if !ok {
		return
	}
	page, err := h.deps.Products.Search(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]productView, 0, len(page.Items))
	for _, pr := range page.Items {
		items = append(items, h.view(pr))
	}
	c.JSON(http.StatusOK, listing.Page[productView]{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		From:       page.From,
		To:         page.To,
	})
}

func (h *handlers) getProduct(c *gin.Context) {
	res := h.deps.Products.Get(c.Request.Context(), c.Param("id"))
	if res.IsError() {
		writeError(c, res.Err)
		return
	}
	if res.Data == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": h.view(*res.Data)})
}

func (h *handlers) createProduct(c *gin.Context) {
	var in domain.CreateProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	p, err := h.deps.Products.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": h.view(*p)})
}

func (h *handlers) toggleProduct(c *gin.Context) {
	if err := h.deps.Products.ToggleStatus(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
