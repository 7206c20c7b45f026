package handlers

import (
	"log"
	"net/http"

	"inspection-backend/internal/models"
	"inspection-backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VehicleRequest struct {
	Brand       string `json:"brand" binding:"required"`
	Model       string `json:"model" binding:"required"`
	Plate       string `json:"plate" binding:"required"`
	PhotoUrl    string `json:"photoUrl"`
	InspectorID *uint  `json:"inspectorId"`
}

func vehicleToResponse(db *gorm.DB, vehicle *models.Vehicle) models.VehicleResponse {
	resp := models.VehicleResponse{
		ID:          vehicle.ID,
		Brand:       vehicle.Brand,
		Model:       vehicle.Model,
		Plate:       vehicle.Plate,
		PhotoUrl:    vehicle.PhotoUrl,
		Status:      vehicle.Status,
		InspectorID: vehicle.InspectorID,
		CreatedAt:   vehicle.CreatedAt,
		UpdatedAt:   vehicle.UpdatedAt,
	}

	if vehicle.InspectorID != nil {
		var inspector models.User
		if err := db.First(&inspector, *vehicle.InspectorID).Error; err == nil {
			resp.InspectorName = inspector.FullName()
		}
	}

	return resp
}

// VehicleCreate добавляет машину в парк (только администратор)
func VehicleCreate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := currentActor(c)
		if !workflow.Allowed(role, workflow.OpVehicleManage) {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Недостаточно прав для управления машинами")
			return
		}

		var req VehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWorkflowError(c, workflow.ErrValidation, "Неверный формат данных")
			return
		}

		// Назначаемый инспектор должен существовать
		if req.InspectorID != nil {
			var inspector models.User
			if err := db.First(&inspector, *req.InspectorID).Error; err != nil {
				abortWorkflowError(c, workflow.ErrValidation, "Указанный инспектор не найден")
				return
			}
		}

		vehicle := models.Vehicle{
			Brand:       req.Brand,
			Model:       req.Model,
			Plate:       req.Plate,
			PhotoUrl:    req.PhotoUrl,
			Status:      models.VehicleStatusInService,
			InspectorID: req.InspectorID,
		}

		if err := db.Create(&vehicle).Error; err != nil {
			log.Printf("Ошибка при создании машины: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании машины"})
			return
		}

		c.JSON(http.StatusCreated, vehicleToResponse(db, &vehicle))
	}
}

// VehicleList возвращает список машин
func VehicleList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var vehicles []models.Vehicle
		if err := db.Order("created_at DESC").Find(&vehicles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении списка машин"})
			return
		}

		response := make([]models.VehicleResponse, 0, len(vehicles))
		for i := range vehicles {
			response = append(response, vehicleToResponse(db, &vehicles[i]))
		}

		c.JSON(http.StatusOK, response)
	}
}

// VehicleGetByID возвращает машину по идентификатору
func VehicleGetByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var vehicle models.Vehicle
		if err := db.First(&vehicle, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Машина не найдена")
			return
		}

		c.JSON(http.StatusOK, vehicleToResponse(db, &vehicle))
	}
}

// VehicleUpdate обновляет данные машины (только администратор).
// Эксплуатационный статус машиной управляется жизненным циклом осмотров
// и через этот метод не меняется.
func VehicleUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := currentActor(c)
		if !workflow.Allowed(role, workflow.OpVehicleManage) {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Недостаточно прав для управления машинами")
			return
		}

		var vehicle models.Vehicle
		if err := db.First(&vehicle, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Машина не найдена")
			return
		}

		var req VehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWorkflowError(c, workflow.ErrValidation, "Неверный формат данных")
			return
		}

		if req.InspectorID != nil {
			var inspector models.User
			if err := db.First(&inspector, *req.InspectorID).Error; err != nil {
				abortWorkflowError(c, workflow.ErrValidation, "Указанный инспектор не найден")
				return
			}
		}

		vehicle.Brand = req.Brand
		vehicle.Model = req.Model
		vehicle.Plate = req.Plate
		vehicle.PhotoUrl = req.PhotoUrl
		vehicle.InspectorID = req.InspectorID

		if err := db.Save(&vehicle).Error; err != nil {
			log.Printf("Ошибка при обновлении машины: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении машины"})
			return
		}

		c.JSON(http.StatusOK, vehicleToResponse(db, &vehicle))
	}
}
