package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/shopspring/decimal"
)

type productView struct {
	*models.Product
	PrimaryImage string `json:"primary_image"`
}

func viewProduct(p *models.Product) productView {
	return productView{Product: p, PrimaryImage: p.PrimaryImage()}
}

func viewProducts(products []models.Product) []productView {
	views := make([]productView, len(products))
	for i := range products {
		views[i] = viewProduct(&products[i])
	}
	return views
}

type productRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url" binding:"omitempty,max=512"`
	ImageURLs   []string         `json:"image_urls" binding:"omitempty,dive,url,max=512"`
	CategoryID  *uint            `json:"category_id"`
	Stock       *int             `json:"stock"`
	IsAvailable *bool            `json:"is_available"`
}

func (r productRequest) input() shop.ProductInput {
	return shop.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		ImageURLs:   r.ImageURLs,
		CategoryID:  r.CategoryID,
		Stock:       r.Stock,
		IsAvailable: r.IsAvailable,
	}
}

type categoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Slug string `json:"slug" binding:"omitempty,max=100,slug"`
}

func productFilter(c *gin.Context) (shop.ProductFilter, error) {
	f := shop.ProductFilter{
		Search:       c.Query("search"),
		CategorySlug: c.Query("category"),
		Ordering:     c.Query("ordering"),
	}
	for param, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, &shop.Error{Kind: shop.ErrInvalidInput, Message: param + " must be a number."}
		}
		*dst = &d
	}
	return f, nil
}

func (s *Server) listProducts(c *gin.Context) {
	f, err := productFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	products, err := s.catalog.ListProducts(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewProducts(products))
}

func (s *Server) getProduct(c *gin.Context) {
	s.showProduct(c, false)
}

func (s *Server) adminGetProduct(c *gin.Context) {
	s.showProduct(c, true)
}

func (s *Server) showProduct(c *gin.Context, includeUnavailable bool) {
	id, err := parseID(c, "Product")
	if err != nil {
		s.respondError(c, err)
		return
	}
	p, err := s.catalog.GetProduct(c.Request.Context(), id, includeUnavailable)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewProduct(p))
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.catalog.ListCategories(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (s *Server) adminListProducts(c *gin.Context) {
	f, err := productFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	f.IncludeUnavailable = true
	products, err := s.catalog.ListProducts(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewProducts(products))
}

func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	p, err := s.catalog.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewProduct(p))
}

// replaceProduct is a full update: name and price must be present.
func (s *Server) replaceProduct(c *gin.Context) {
	s.writeProduct(c, true)
}

func (s *Server) patchProduct(c *gin.Context) {
	s.writeProduct(c, false)
}

func (s *Server) writeProduct(c *gin.Context, full bool) {
	id, err := parseID(c, "Product")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	if full && (req.Name == nil || req.Price == nil) {
		s.respondError(c, &shop.Error{Kind: shop.ErrInvalidInput, Message: "name and price are required."})
		return
	}
	p, err := s.catalog.UpdateProduct(c.Request.Context(), id, req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewProduct(p))
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, err := parseID(c, "Product")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	cat, err := s.catalog.CreateCategory(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (s *Server) deleteCategory(c *gin.Context) {
	id, err := parseID(c, "Category")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
