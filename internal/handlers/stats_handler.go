package handlers

import (
	"log"
	"net/http"

	"inspection-backend/internal/models"
	"inspection-backend/internal/services/cache"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DashboardStats — счетчики для главной страницы дашборда
type DashboardStats struct {
	VehiclesTotal       int64                             `json:"vehicles_total"`
	InspectionsByStatus map[models.InspectionStatus]int64 `json:"inspections_by_status"`
	VehiclesByStatus    map[models.VehicleStatus]int64    `json:"vehicles_by_status"`
}

// StatsGet возвращает счетчики дашборда. Результат кэшируется в Redis
// с коротким TTL: счетчики не обязаны быть строго актуальными.
func StatsGet(db *gorm.DB, cacheService *cache.CacheService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var stats DashboardStats
		if found, err := cacheService.Get(ctx, cacheService.StatsKey(), &stats); err == nil && found {
			c.JSON(http.StatusOK, stats)
			return
		} else if err != nil {
			log.Printf("Ошибка чтения кэша статистики: %v", err)
		}

		stats = DashboardStats{
			InspectionsByStatus: make(map[models.InspectionStatus]int64),
			VehiclesByStatus:    make(map[models.VehicleStatus]int64),
		}

		if err := db.Model(&models.Vehicle{}).Count(&stats.VehiclesTotal).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при подсчете машин"})
			return
		}

		type statusCount struct {
			Status string
			Count  int64
		}

		var inspectionCounts []statusCount
		if err := db.Model(&models.Inspection{}).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&inspectionCounts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при подсчете осмотров"})
			return
		}
		for _, row := range inspectionCounts {
			stats.InspectionsByStatus[models.InspectionStatus(row.Status)] = row.Count
		}

		var vehicleCounts []statusCount
		if err := db.Model(&models.Vehicle{}).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&vehicleCounts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при подсчете машин по статусам"})
			return
		}
		for _, row := range vehicleCounts {
			stats.VehiclesByStatus[models.VehicleStatus(row.Status)] = row.Count
		}

		if err := cacheService.Set(ctx, cacheService.StatsKey(), stats); err != nil {
			log.Printf("Ошибка записи кэша статистики: %v", err)
		}

		c.JSON(http.StatusOK, stats)
	}
}
