package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/slotter-org/aristo-backend/internal/handlers"
  "github.com/slotter-org/aristo-backend/internal/middleware"
  "github.com/slotter-org/aristo-backend/internal/socket"
)

type RouterConfig struct {
  AllowOrigins     []string
  Hub              *socket.Hub
  AuthMiddleware   *middleware.AuthMiddleware
  ClientMiddleware *middleware.ClientMiddleware
  ClientHandler    *handlers.ClientHandler
  AuthHandler      *handlers.AuthHandler
  ChatHandler      *handlers.ChatHandler
  NoteHandler      *handlers.NoteHandler
  ResourceHandler  *handlers.ResourceHandler
  MeHandler        *handlers.MeHandler
  AdminHandler     *handlers.AdminHandler
  VoiceHandler     *handlers.VoiceHandler
  WsHandler        gin.HandlerFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  //-----------------------------------------
  // Cors Setup
  //-----------------------------------------
  origins := cfg.AllowOrigins
  if len(origins) == 0 {
    origins = []string{"http://localhost:3000", "http://localhost:5173"}
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.ClientHeader},
    AllowCredentials: true,
  }))
  router.Use(middleware.AttachRequestContext(cfg.Hub))

  //-----------------------------------------
  // Health Routes
  //-----------------------------------------
  router.GET("/healthz", handlers.Healthz)

  auth := cfg.AuthMiddleware
  clients := cfg.ClientMiddleware

  //-----------------------------------------
  // Public Routes
  //-----------------------------------------
  api := router.Group("/api")
  {
    api.POST("/clients", auth.OptionalAuth(), cfg.ClientHandler.Create)
    api.POST("/register", cfg.AuthHandler.Register)
    api.POST("/login", clients.OptionalClient(), cfg.AuthHandler.Login)
    api.POST("/refresh", cfg.AuthHandler.Refresh)
    api.POST("/password/forgot", cfg.AuthHandler.ForgotPassword)
    api.POST("/password/reset", cfg.AuthHandler.ResetPassword)
    api.POST("/logout", auth.OptionalAuth(), clients.OptionalClient(), cfg.AuthHandler.Logout)
  }

  //------------------------------------------
  // Client Routes
  //------------------------------------------
  client := api.Group("/")
  client.Use(clients.RequireClient())
  client.GET("/state", cfg.ClientHandler.State)
  client.DELETE("/clients", cfg.ClientHandler.Delete)
  client.POST("/view", cfg.ClientHandler.SetView)
  client.POST("/flags", cfg.ClientHandler.SetFlags)

  //Chat
  client.POST("/chat/sessions", cfg.ChatHandler.NewSession)
  client.PUT("/chat/sessions/:id/current", cfg.ChatHandler.SetCurrentSession)
  client.DELETE("/chat/sessions/:id", cfg.ChatHandler.DeleteSession)
  client.DELETE("/chat/messages/:id", cfg.ChatHandler.DeleteMessage)

  //Notes navigation
  client.POST("/notes/edit", cfg.NoteHandler.Edit)
  client.POST("/notes/:id/read", cfg.NoteHandler.Read)

  //------------------------------------------
  // Signed-in Client Routes
  //------------------------------------------
  bound := api.Group("/")
  bound.Use(auth.RequireAuth(), clients.RequireClient(), clients.RequireBoundUser())
  bound.POST("/chat/messages", cfg.ChatHandler.SendMessage)
  bound.GET("/voice", cfg.VoiceHandler.Serve)

  bound.PUT("/notes", cfg.NoteHandler.Save)
  bound.DELETE("/notes/:id", cfg.NoteHandler.Delete)

  bound.POST("/resources/upload", cfg.ResourceHandler.Upload)
  bound.POST("/resources/link", cfg.ResourceHandler.Link)
  bound.POST("/resources/feed", cfg.ResourceHandler.Feed)
  bound.DELETE("/resources/:id", cfg.ResourceHandler.Delete)

  bound.PATCH("/me", cfg.MeHandler.UpdateProfile)
  bound.POST("/me/avatar", cfg.MeHandler.UploadAvatar)

  //------------------------------------------
  // Protected Routes
  //------------------------------------------
  protected := api.Group("/")
  protected.Use(auth.RequireAuth())
  protected.GET("/me", cfg.MeHandler.GetMe)
  protected.GET("/events", cfg.WsHandler)

  //Admin
  admin := protected.Group("/admin")
  admin.Use(auth.RequireAdmin())
  admin.GET("/overview", cfg.AdminHandler.Overview)

  return router
}
