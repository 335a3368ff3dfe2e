package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/auth"
	"github.com/primefragrance/cmms/internal/kpi"
	"github.com/primefragrance/cmms/internal/models"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (s *server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		s.invalid(c, err)
		return
	}
	session, err := s.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	p := session.Principal
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login berhasil",
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"role":       p.Role,
		"username":   p.Username,
		"name":       p.DisplayName(),
	})
}

func (s *server) logout(c *gin.Context) {
	if err := s.Auth.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout berhasil"})
}

func (s *server) userInfo(c *gin.Context) {
	c.JSON(http.StatusOK, principal(c))
}

func (s *server) registerUser(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, err)
		return
	}
	user, err := s.Auth.Register(c.Request.Context(), req, principal(c).Username)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("User %s berhasil didaftarkan sebagai %s", user.DisplayName(), user.Role),
		"user_id": fmt.Sprint(user.ID),
	})
}

type userView struct {
	models.User
	CreatedAtFormatted string `json:"created_at_formatted"`
}

func (s *server) listUsers(c *gin.Context) {
	users, err := s.Auth.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		created := u.CreatedAt
		out = append(out, userView{User: u, CreatedAtFormatted: kpi.FormatTimestamp(&created, s.loc())})
	}
	c.JSON(http.StatusOK, out)
}

type technicianView struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (s *server) technicians(c *gin.Context) {
	users, err := s.Auth.Technicians(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]technicianView, 0, len(users))
	for _, u := range users {
		out = append(out, technicianView{Username: u.Username, Name: u.DisplayName()})
	}
	c.JSON(http.StatusOK, out)
}
