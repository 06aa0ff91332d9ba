package httpapi

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts every httpapi route on engine.
func RegisterRoutes(engine *gin.Engine, h *Handler) {
	engine.GET("/search", h.Search)
	engine.GET("/chat/:id", h.GetChat)
	engine.POST("/chat/:id/message", h.PostMessage)
	engine.GET("/chat/:id/stream", h.Stream)
	engine.GET("/history", h.History)
	engine.GET("/opensearch.xml", h.OpenSearch)
	engine.GET("/healthz", h.Healthz)
}
