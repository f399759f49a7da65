package handlers

import (
	"stovelink/internal/coordinator"
	"stovelink/internal/logger"
	"stovelink/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to the coordinator, services and logging.
type Handler struct {
	services *service.Service
	coord    *coordinator.Coordinator
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, coord *coordinator.Coordinator, log *logger.Logger) *Handler {
	return &Handler{services: services, coord: coord, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// WebSocket state stream (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerStoveRoutes(api)
		h.registerLogRoutes(api)
		api.POST("/refresh", h.requestRefresh)
	}
}

func (h *Handler) registerStoveRoutes(api *gin.RouterGroup) {
	stoves := api.Group("/stoves")
	{
		stoves.GET("", h.listStoves)
		stoves.GET("/:id/state", h.getStoveState)
		stoves.POST("/:id/hvac-mode", h.setHVACMode)
		stoves.POST("/:id/preset", h.setPreset)
		stoves.POST("/:id/controls", h.patchControls)
		stoves.POST("/:id/pellets/reset", h.resetPelletStock)
		stoves.PUT("/:id/pellets/capacity", h.setPelletCapacity)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}
