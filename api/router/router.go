package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Ethan225300/mbspro/api/handler"
)

func RegisterRoutes(r *gin.Engine, ragH *handler.RagHandler) {
	rag := r.Group("/rag")
	{
		rag.POST("/agentic", ragH.Agentic)
		rag.POST("/smart", ragH.Smart)
		rag.POST("/query", ragH.Query)
		rag.POST("/ingest", ragH.Ingest)
		rag.POST("/clear", ragH.Clear)
		rag.POST("/refresh", ragH.Refresh)
		rag.GET("/status", ragH.Status)
		rag.GET("/health", ragH.Health)
	}
}
