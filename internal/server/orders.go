package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/luxe/internal/export"
	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
)

type addToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  *int `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type checkoutRequest struct {
	ItemIDs []uint `json:"item_ids"`
}

type orderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,oneof=pending confirmed shipped delivered cancelled"`
}

func (s *Server) viewCart(c *gin.Context) {
	view, err := s.carts.View(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	view, err := s.carts.AddItem(c.Request.Context(), mustUser(c).ID, req.ProductID, qty)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) updateCartItem(c *gin.Context) {
	id, err := parseID(c, "Cart item")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req updateCartItemRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	view, err := s.carts.UpdateItem(c.Request.Context(), mustUser(c).ID, id, *req.Quantity)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) removeCartItem(c *gin.Context) {
	id, err := parseID(c, "Cart item")
	if err != nil {
		s.respondError(c, err)
		return
	}
	view, err := s.carts.RemoveItem(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) clearCart(c *gin.Context) {
	view, err := s.carts.Clear(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// checkoutCart accepts an optional body; without item_ids the whole cart is ordered.
func (s *Server) checkoutCart(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(c, invalidRequest(err))
		return
	}
	order, err := s.checkout.Checkout(c.Request.Context(), mustUser(c).ID, req.ItemIDs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shop.ViewOrder(order))
}

func (s *Server) listMyOrders(c *gin.Context) {
	orders, err := s.orders.ListForUser(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop.ViewOrders(orders))
}

// orderFilter reads status, user, search, from and to. Dates are either
// RFC 3339 timestamps or YYYY-MM-DD days; a day given as "to" is inclusive.
func orderFilter(c *gin.Context) (shop.OrderFilter, error) {
	f := shop.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		User:   c.Query("user"),
		Search: c.Query("search"),
	}
	var err error
	if f.From, err = parseDateParam(c, "from", false); err != nil {
		return f, err
	}
	if f.To, err = parseDateParam(c, "to", true); err != nil {
		return f, err
	}
	return f, nil
}

func parseDateParam(c *gin.Context, name string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, &shop.Error{Kind: shop.ErrInvalidInput, Message: fmt.Sprintf("%s must be a date (YYYY-MM-DD).", name)}
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1)
	}
	return &day, nil
}

func (s *Server) adminListOrders(c *gin.Context) {
	f, err := orderFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	orders, err := s.orders.List(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop.ViewOrders(orders))
}

func (s *Server) adminGetOrder(c *gin.Context) {
	id, err := parseID(c, "Order")
	if err != nil {
		s.respondError(c, err)
		return
	}
	order, err := s.orders.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop.ViewOrder(order))
}

func (s *Server) adminUpdateOrder(c *gin.Context) {
	id, err := parseID(c, "Order")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req orderStatusRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	order, err := s.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("order status updated", "order_id", order.ID, "status", order.Status, "by", mustUser(c).ID)
	c.JSON(http.StatusOK, shop.ViewOrder(order))
}

func (s *Server) exportOrders(c *gin.Context) {
	f, err := orderFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	orders, err := s.orders.List(c.Request.Context(), f)
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", export.ContentType)
	c.Status(http.StatusOK)
	if err := export.WriteOrders(c.Writer, orders); err != nil {
		s.logger.Error("order export failed", "error", err)
	}
}

func (s *Server) liveOrders(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusServiceUnavailable, messageBody("Live order feed is disabled."))
		return
	}
	s.hub.ServeWS(c.Writer, c.Request)
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.orders.Stats(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
