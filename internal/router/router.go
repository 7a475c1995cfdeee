package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/questbank/internal/handler"
	"github.com/ashwinyue/questbank/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		v1.GET("/system/info", h.System.GetSystemInfo)

		// Tag 分类标签
		tags := v1.Group("/tags")
		{
			tags.POST("/content", h.Tag.CreateContentTag)
			tags.POST("/exam-sources", h.Tag.CreateExamSourceTag)
			tags.POST("/grade-levels", h.Tag.CreateGradeLevelTag)

			tags.GET("", h.Tag.ListTags)
			tags.GET("/tree", h.Tag.GetTree)
			tags.GET("/tree/content", h.Tag.GetContentTree)
			tags.GET("/inactive", h.Tag.ListInactive)
			tags.GET("/exam-sources", h.Tag.ListExamSources)
			tags.GET("/grade-levels", h.Tag.ListGradeLevels)
			tags.GET("/export", h.Tag.Export)
			tags.GET("/events", h.Event.ListEvents)
			tags.GET("/code/:code", h.Tag.GetTagByCode)

			tags.GET("/:id", h.Tag.GetTag)
			tags.GET("/:id/children", h.Tag.ListChildren)
			tags.GET("/:id/path", h.Tag.GetPath)
			tags.GET("/:id/can-have-children", h.Tag.CanHaveChildren)
			tags.PUT("/:id", h.Tag.RenameTag)
			tags.POST("/:id/inactivate", h.Tag.InactivateTag)
			tags.POST("/:id/reactivate", h.Tag.ReactivateTag)
			tags.DELETE("/:id", h.Tag.DeleteTag)
		}

		// Question 题目标签
		questions := v1.Group("/questions")
		{
			questions.GET("/:id/tags", h.Tag.GetQuestionTags)
			questions.PUT("/:id/tags", h.Tag.SetQuestionTags)
		}

		// Discipline 学科
		disciplines := v1.Group("/disciplines")
		{
			disciplines.GET("", h.Discipline.ListDisciplines)
			disciplines.POST("", h.Discipline.CreateDiscipline)
			disciplines.GET("/:id", h.Discipline.GetDiscipline)
		}
	}

	return r
}
