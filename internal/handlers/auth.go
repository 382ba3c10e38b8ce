package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rahulvalluru1-source/fieldtrack/internal/auth"
	"github.com/rahulvalluru1-source/fieldtrack/internal/repos"
)

type AuthHandler struct {
	users  *repos.UserRepo
	issuer *auth.Issuer
	lg     *log.Logger
}

func NewAuthHandler(users *repos.UserRepo, issuer *auth.Issuer, lg *log.Logger) *AuthHandler {
	return &AuthHandler{users: users, issuer: issuer, lg: lg}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := h.users.FindByEmail(c.Request.Context(), email)
	if errors.Is(err, repos.ErrNotFound) {
		fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		failErr(c, h.lg, "looking up user", err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.issuer.Generate(u.ID, u.Name, string(u.Role))
	if err != nil {
		failErr(c, h.lg, "signing token", err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"token": token,
		"user":  u,
	})
}
