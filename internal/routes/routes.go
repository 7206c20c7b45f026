package routes

import (
	"inspection-backend/internal/handlers"
	"inspection-backend/internal/middleware"
	"inspection-backend/internal/services"
	"inspection-backend/internal/services/cache"
	"inspection-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps — внешние сервисы, используемые обработчиками
type Deps struct {
	Media services.MediaStore
	Email services.EmailSender
	PDF   services.PDFRenderer
	Cache *cache.CacheService
}

func SetupRoutes(api *gin.RouterGroup, db *gorm.DB, deps Deps) {
	// Публичные маршруты для аутентификации
	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.AuthRegister(db))
		auth.POST("/login", handlers.AuthLogin(db))
	}

	// Защищенные маршруты (требуют аутентификации)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth())
	{
		// Получение информации о текущем пользователе
		protected.GET("/user", handlers.GetCurrentUser(db))

		// Роуты для профиля
		protected.GET("/profile", handlers.UserGetProfile(db))
		protected.PUT("/profile", handlers.UserUpdateProfile(db))

		// Роуты для машин
		protected.POST("/vehicles", handlers.VehicleCreate(db))
		protected.GET("/vehicles", handlers.VehicleList(db))
		protected.GET("/vehicles/:id", handlers.VehicleGetByID(db))
		protected.PUT("/vehicles/:id", handlers.VehicleUpdate(db))

		// Роуты для осмотров
		protected.POST("/inspections", handlers.InspectionCreate(db, deps.Email))
		protected.GET("/inspections", handlers.InspectionList(db))
		protected.GET("/inspections/:id", handlers.InspectionGetByID(db))
		protected.DELETE("/inspections/:id", handlers.InspectionDelete(db, deps.Media))
		protected.PUT("/inspections/:id/submit", handlers.InspectionSubmit(db, deps.Email))
		protected.PUT("/inspections/:id/approve", handlers.InspectionApprove(db, deps.Email))
		protected.PUT("/inspections/:id/reject", handlers.InspectionReject(db, deps.Email))
		protected.PUT("/inspections/:id/resubmit", handlers.InspectionResubmit(db, deps.Email))

		// Фотографии осмотра
		protected.POST("/inspections/:id/photos", handlers.PhotoAdd(db, deps.Media))
		protected.DELETE("/inspections/:id/photos/:photoId", handlers.PhotoDelete(db, deps.Media))

		// PDF-отчет по осмотру
		protected.GET("/inspections/:id/pdf", handlers.InspectionExportPDF(db, deps.PDF))

		// Счетчики дашборда
		protected.GET("/stats", handlers.StatsGet(db, deps.Cache))

		// WebSocket подключение для получения обновлений в реальном времени
		protected.GET("/ws", websocket.Handler())
	}
}
