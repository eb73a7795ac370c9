package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/services"
)

const (
  RegisterSuccessMessage = "অ্যারিস্টো-তে স্বাগতম! আপনার অ্যাকাউন্ট তৈরি হয়েছে। এখন ইমেইল এবং পাসওয়ার্ড দিয়ে লগইন করুন।"
  AuthFallbackMessage    = "Neural link failed. Verify credentials."
)

type AuthHandler struct {
  authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
  return &AuthHandler{authService: authService}
}

// Register creates the account but does not sign in.
func (ah *AuthHandler) Register(c *gin.Context) {
  var req services.RegisterInput
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  user, err := ah.authService.Register(c.Request.Context(), req)
  if err != nil {
    respondAuthError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"message": RegisterSuccessMessage, "user": user})
}

// Login signs in and, when the request names a client, binds that client to the user.
func (ah *AuthHandler) Login(c *gin.Context) {
  var req struct {
    Email    string `json:"email"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  user, tokens, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
  if err != nil {
    respondAuthError(c, err)
    return
  }
  resp := gin.H{"user": user, "tokens": tokens}
  if store := middleware.Store(c); store != nil {
    store.SetUser(user)
    resp["state"] = store.Snapshot()
  }
  c.JSON(http.StatusOK, resp)
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
  var req struct {
    RefreshToken string `json:"refreshToken"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  user, tokens, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
  if err != nil {
    respondError(c, err, http.StatusUnauthorized)
    return
  }
  c.JSON(http.StatusOK, gin.H{"user": user, "tokens": tokens})
}

// Logout clears the client whether or not the session could be revoked.
func (ah *AuthHandler) Logout(c *gin.Context) {
  ctx := c.Request.Context()
  if store := middleware.Store(c); store != nil {
    store.Logout(ctx)
    c.JSON(http.StatusOK, store.Snapshot())
    return
  }
  if err := ah.authService.Logout(ctx); err != nil {
    respondError(c, err, http.StatusUnauthorized)
    return
  }
  c.Status(http.StatusNoContent)
}

func (ah *AuthHandler) ForgotPassword(c *gin.Context) {
  var req struct {
    Email string `json:"email"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := ah.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
    respondError(c, err, http.StatusInternalServerError)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "Reset protocol initiated for " + req.Email + ". Check your inbox."})
}

func (ah *AuthHandler) ResetPassword(c *gin.Context) {
  var req struct {
    Code     string `json:"code"`
    Password string `json:"password"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := ah.authService.ResetPassword(c.Request.Context(), req.Code, req.Password); err != nil {
    respondError(c, err, http.StatusInternalServerError)
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": true})
}

// respondAuthError sends the recorded user-facing message, or the generic one.
func respondAuthError(c *gin.Context, err error) {
  status, msg := http.StatusBadRequest, AuthFallbackMessage
  if s, m := resolveRecorded(c); m != "" {
    status, msg = s, m
  }
  c.JSON(status, gin.H{"error": msg})
}
