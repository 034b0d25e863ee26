package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/luxe/internal/auth"
	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
)

type signupRequest struct {
	Username        string `json:"username" binding:"required,max=150"`
	Email           string `json:"email" binding:"omitempty,email"`
	FullName        string `json:"full_name" binding:"max=150"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type profileRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	FullName *string `json:"full_name" binding:"omitempty,max=150"`
}

type createAdminRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"max=150"`
	Password string `json:"password" binding:"required"`
}

type userPatchRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FullName  *string `json:"full_name" binding:"omitempty,max=150"`
	IsStaff   *bool   `json:"is_staff"`
	IsActive  *bool   `json:"is_active"`
	BanReason *string `json:"ban_reason"`
}

type banRequest struct {
	Reason string `json:"reason"`
}

type authResponse struct {
	*auth.TokenPair
	User *models.User `json:"user"`
}

func (s *Server) issue(c *gin.Context, status int, u *models.User) {
	pair, err := s.tokens.Issue(u.ID, u.IsStaff)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(status, authResponse{TokenPair: pair, User: u})
}

func (s *Server) signup(c *gin.Context) {
	var req signupRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	u, err := s.accounts.Signup(c.Request.Context(), shop.SignupInput{
		Username:        req.Username,
		Email:           req.Email,
		FullName:        req.FullName,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("user signed up", "user_id", u.ID)
	s.issue(c, http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	u, err := s.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.issue(c, http.StatusOK, u)
}

func (s *Server) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	u, err := s.accounts.AuthenticateStaff(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.issue(c, http.StatusOK, u)
}

// refreshToken trades a refresh token for a new access token. The user is
// re-checked so a ban takes effect at the next refresh.
func (s *Server) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	claims, err := s.tokens.Parse(req.Refresh, auth.RefreshToken)
	if err != nil {
		s.respondError(c, &shop.Error{Kind: shop.ErrUnauthorized, Message: "Token is invalid or expired."})
		return
	}
	id, err := claims.UserID()
	if err != nil {
		s.respondError(c, &shop.Error{Kind: shop.ErrUnauthorized, Message: "Token is invalid or expired."})
		return
	}
	u, err := s.accounts.Active(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	access, err := s.tokens.Access(u.ID, u.IsStaff)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (s *Server) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, mustUser(c))
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	u, err := s.accounts.UpdateProfile(c.Request.Context(), mustUser(c).ID, shop.ProfileInput{
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) adminListUsers(c *gin.Context) {
	users, err := s.accounts.ListUsers(c.Request.Context(), c.Query("search"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) adminGetUser(c *gin.Context) {
	id, err := parseID(c, "User")
	if err != nil {
		s.respondError(c, err)
		return
	}
	u, err := s.accounts.GetUser(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) adminUpdateUser(c *gin.Context) {
	id, err := parseID(c, "User")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req userPatchRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	u, err := s.accounts.UpdateUser(c.Request.Context(), id, shop.UserPatch{
		Email:     req.Email,
		FullName:  req.FullName,
		IsStaff:   req.IsStaff,
		IsActive:  req.IsActive,
		BanReason: req.BanReason,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) adminDeleteUser(c *gin.Context) {
	id, err := parseID(c, "User")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if id == mustUser(c).ID {
		s.respondError(c, &shop.Error{Kind: shop.ErrInvalidInput, Message: "You cannot delete your own account."})
		return
	}
	if err := s.accounts.DeleteUser(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	u, err := s.accounts.CreateAdmin(c.Request.Context(), req.Username, req.Email, req.FullName, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("admin created", "user_id", u.ID, "by", mustUser(c).ID)
	c.JSON(http.StatusCreated, u)
}

func (s *Server) toggleStaff(c *gin.Context) {
	id, err := parseID(c, "User")
	if err != nil {
		s.respondError(c, err)
		return
	}
	u, err := s.accounts.ToggleStaff(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) toggleBan(c *gin.Context) {
	id, err := parseID(c, "User")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req banRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			s.respondError(c, err)
			return
		}
	}
	u, err := s.accounts.ToggleBan(c.Request.Context(), mustUser(c).ID, id, req.Reason)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("user ban toggled", "user_id", u.ID, "active", u.IsActive, "by", mustUser(c).ID)
	c.JSON(http.StatusOK, u)
}
