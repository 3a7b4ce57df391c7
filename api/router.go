package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine. An empty origins list or one containing "*"
// allows every origin.
func NewRouter(h *Handler, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID(h.log))
	r.Use(AccessLog(h.log))
	r.Use(Prometheus(h.metrics))

	config := cors.DefaultConfig()
	if allowAll(origins) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
	config.ExposeHeaders = []string{RequestIDHeader}
	config.MaxAge = 12 * time.Hour
	r.Use(cors.New(config))

	r.POST("/update-segments", h.UpdateSegments)
	r.POST("/find-path", h.FindPath)
	r.POST("/best-path", h.BestPath)
	r.GET("/routes/recent", h.RecentRoutes)
	r.GET("/health", h.Health)

	return r
}

func allowAll(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
