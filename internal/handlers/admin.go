package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/services"
)

type AdminHandler struct {
  adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
  return &AdminHandler{adminService: adminService}
}

func (ah *AdminHandler) Overview(c *gin.Context) {
  recent, _ := strconv.Atoi(c.DefaultQuery("recent", "10"))
  ov, err := ah.adminService.Overview(c.Request.Context(), recent)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusOK, ov)
}
