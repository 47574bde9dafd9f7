package api

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler, apiKey string) {
	r.Use(CORSMiddleware())

	r.GET("/health", h.Health)

	authed := r.Group("/", AuthMiddleware(apiKey))
	{
		authed.POST("/start-check", h.StartCheck)
		authed.GET("/progress/:job_id", h.Progress)
		authed.GET("/download/:job_id", h.Download)

		authed.GET("/view-report/:id", h.ViewReport)
		authed.GET("/download-report/:id", h.DownloadReport)
		authed.POST("/refresh-report/:id", h.RefreshReport)
	}
}
