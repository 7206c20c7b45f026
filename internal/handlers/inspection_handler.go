package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"inspection-backend/internal/models"
	"inspection-backend/internal/services"
	ws "inspection-backend/internal/websocket"
	"inspection-backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type InspectionCreateRequest struct {
	VehicleID uint                       `json:"vehicleId" binding:"required"`
	Condition models.InspectionCondition `json:"condition" binding:"required"`
	Odometer  int                        `json:"odometer" binding:"required"`
	Comment   string                     `json:"comment"`
	Draft     bool                       `json:"draft"`
}

type DecisionRequest struct {
	Comment string `json:"comment"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func validCondition(cond models.InspectionCondition) bool {
	switch cond {
	case models.ConditionOK, models.ConditionAttention, models.ConditionCritical:
		return true
	}
	return false
}

// buildInspectionResponse собирает полную проекцию осмотра: машина, автор,
// фотографии и актуальное (не замещенное) решение. Используется детальным
// просмотром и PDF-экспортом.
func buildInspectionResponse(db *gorm.DB, insp *models.Inspection) (models.InspectionResponse, error) {
	var vehicle models.Vehicle
	if err := db.First(&vehicle, insp.VehicleID).Error; err != nil {
		return models.InspectionResponse{}, err
	}

	var author models.User
	if err := db.First(&author, insp.AuthorID).Error; err != nil {
		return models.InspectionResponse{}, err
	}

	var photos []models.InspectionPhoto
	if err := db.Where("inspection_id = ?", insp.ID).Order("created_at ASC").Find(&photos).Error; err != nil {
		return models.InspectionResponse{}, err
	}

	photoResponses := make([]models.InspectionPhotoResponse, 0, len(photos))
	for _, p := range photos {
		photoResponses = append(photoResponses, models.InspectionPhotoResponse{
			ID:        p.ID,
			Type:      p.Type,
			Url:       p.Url,
			CreatedAt: p.CreatedAt,
		})
	}

	response := models.InspectionResponse{
		ID:         insp.ID,
		Vehicle:    vehicleToResponse(db, &vehicle),
		AuthorID:   insp.AuthorID,
		AuthorName: author.FullName(),
		Status:     insp.Status,
		Condition:  insp.Condition,
		Odometer:   insp.Odometer,
		Comment:    insp.Comment,
		Photos:     photoResponses,
		CreatedAt:  insp.CreatedAt,
		UpdatedAt:  insp.UpdatedAt,
	}

	// Актуальным считается ровно одно решение с superseded = false
	var approval models.Approval
	err := db.Where("inspection_id = ? AND superseded = ?", insp.ID, false).First(&approval).Error
	if err == nil {
		var reviewer models.User
		db.First(&reviewer, approval.ReviewerID)
		response.Approval = &models.ApprovalResponse{
			ID:           approval.ID,
			ReviewerID:   approval.ReviewerID,
			ReviewerName: reviewer.FullName(),
			Decision:     approval.Decision,
			Comment:      approval.Comment,
			DecidedAt:    approval.DecidedAt,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.InspectionResponse{}, err
	}

	return response, nil
}

// notifyReviewers уведомляет администраторов об осмотре, ожидающем проверки.
// Отправка best-effort: ошибка логируется и не влияет на результат операции.
func notifyReviewers(db *gorm.DB, email services.EmailSender, insp *models.Inspection) {
	var reviewers []models.User
	if err := db.Where("role = ?", models.RoleAdmin).Find(&reviewers).Error; err != nil {
		log.Printf("Ошибка при получении списка проверяющих: %v", err)
		return
	}

	var vehicle models.Vehicle
	var author models.User
	if err := db.First(&vehicle, insp.VehicleID).Error; err != nil {
		return
	}
	if err := db.First(&author, insp.AuthorID).Error; err != nil {
		return
	}

	if err := email.SendInspectionSubmitted(reviewers, insp, &vehicle, &author); err != nil {
		log.Printf("Ошибка при отправке уведомления проверяющим: %v", err)
	}

	for _, r := range reviewers {
		ws.SendInspectionStatusUpdate(r.ID, insp.ID, insp.VehicleID, string(insp.Status))
	}
}

// InspectionCreate создает осмотр: черновик или сразу отправленный на проверку
func InspectionCreate(db *gorm.DB, email services.EmailSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)
		if !workflow.Allowed(role, workflow.OpInspectionCreate) {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Недостаточно прав для создания осмотра")
			return
		}

		var req InspectionCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWorkflowError(c, workflow.ErrValidation, "Неверный формат данных")
			return
		}

		if !validCondition(req.Condition) {
			abortWorkflowError(c, workflow.ErrValidation, "Неизвестное состояние машины")
			return
		}

		var vehicle models.Vehicle
		if err := db.First(&vehicle, req.VehicleID).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Машина не найдена")
			return
		}

		status := models.InspectionStatusSubmitted
		if req.Draft {
			status = models.InspectionStatusDraft
		}

		inspection := models.Inspection{
			VehicleID: req.VehicleID,
			AuthorID:  actorID,
			Status:    status,
			Condition: req.Condition,
			Odometer:  req.Odometer,
			Comment:   req.Comment,
		}

		if err := db.Create(&inspection).Error; err != nil {
			log.Printf("Ошибка при создании осмотра: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании осмотра"})
			return
		}

		// После записи — уведомления, от результата операции не зависят
		if status == models.InspectionStatusSubmitted {
			notifyReviewers(db, email, &inspection)
		}

		response, err := buildInspectionResponse(db, &inspection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при формировании ответа"})
			return
		}

		c.JSON(http.StatusCreated, response)
	}
}

// InspectionList возвращает краткий список осмотров. Инспектор видит только
// свои осмотры, администратор и наблюдатель — все.
func InspectionList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		query := db.Model(&models.Inspection{}).
			Select("inspections.id, inspections.vehicle_id, vehicles.plate AS vehicle_plate, " +
				"inspections.author_id, users.first_name || ' ' || users.last_name AS author_name, " +
				"inspections.status, inspections.condition, inspections.created_at, inspections.updated_at").
			Joins("JOIN vehicles ON vehicles.id = inspections.vehicle_id").
			Joins("JOIN users ON users.id = inspections.author_id").
			Order("inspections.created_at DESC")

		if role == models.RoleInspector {
			query = query.Where("inspections.author_id = ?", actorID)
		}

		if status := c.Query("status"); status != "" {
			query = query.Where("inspections.status = ?", status)
		}

		var summaries []models.InspectionSummary
		if err := query.Scan(&summaries).Error; err != nil {
			log.Printf("Ошибка при получении списка осмотров: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении списка осмотров"})
			return
		}

		if summaries == nil {
			summaries = []models.InspectionSummary{}
		}

		c.JSON(http.StatusOK, summaries)
	}
}

// InspectionGetByID возвращает полную карточку осмотра
func InspectionGetByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		// Черновики видны только автору
		if inspection.Status == models.InspectionStatusDraft &&
			inspection.AuthorID != actorID && role != models.RoleAdmin {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		response, err := buildInspectionResponse(db, &inspection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при формировании ответа"})
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

// InspectionSubmit отправляет черновик на проверку (только автор)
func InspectionSubmit(db *gorm.DB, email services.EmailSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		if !workflow.Allowed(role, workflow.OpInspectionSubmit) || inspection.AuthorID != actorID {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Отправить осмотр на проверку может только его автор")
			return
		}

		now := time.Now()
		if err := workflow.ApplyTransition(&inspection, models.InspectionStatusSubmitted, now); err != nil {
			abortWorkflowError(c, err, "Осмотр нельзя отправить на проверку из текущего статуса")
			return
		}

		result := db.Model(&models.Inspection{}).
			Where("id = ? AND status = ?", inspection.ID, models.InspectionStatusDraft).
			Updates(map[string]interface{}{
				"status":     models.InspectionStatusSubmitted,
				"updated_at": now,
			})
		if result.Error != nil {
			log.Printf("Ошибка при отправке осмотра на проверку: %v", result.Error)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении осмотра"})
			return
		}
		if result.RowsAffected == 0 {
			abortWorkflowError(c, workflow.ErrInvalidTransition, "Статус осмотра уже изменился")
			return
		}

		notifyReviewers(db, email, &inspection)

		response, err := buildInspectionResponse(db, &inspection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при формировании ответа"})
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

// decide выполняет принятие или отклонение осмотра единой транзакцией:
// условное обновление статуса (оптимистическая проверка — из двух
// конкурирующих решений записывается ровно одно), запись решения и,
// при принятии, обновление эксплуатационного статуса машины.
func decide(db *gorm.DB, inspection *models.Inspection, reviewerID uint, decision models.ApprovalDecision, comment string) (*models.Approval, error) {
	now := time.Now()

	toStatus := models.InspectionStatusApproved
	if decision == models.DecisionRejected {
		toStatus = models.InspectionStatusRejected
	}

	approval := &models.Approval{
		InspectionID: inspection.ID,
		ReviewerID:   reviewerID,
		Decision:     decision,
		Comment:      comment,
		DecidedAt:    now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Inspection{}).
			Where("id = ? AND status = ?", inspection.ID, models.InspectionStatusSubmitted).
			Updates(map[string]interface{}{
				"status":     toStatus,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Конкурирующий запрос успел изменить статус первым
			return workflow.ErrInvalidTransition
		}

		if err := tx.Create(approval).Error; err != nil {
			return err
		}

		if decision == models.DecisionApproved {
			newStatus := workflow.VehicleStatusFor(inspection.Condition)
			if err := tx.Model(&models.Vehicle{}).
				Where("id = ?", inspection.VehicleID).
				Updates(map[string]interface{}{
					"status":     newStatus,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	inspection.Status = toStatus
	inspection.UpdatedAt = now
	return approval, nil
}

// notifyAuthorDecision уведомляет автора о решении по его осмотру (best-effort)
func notifyAuthorDecision(db *gorm.DB, email services.EmailSender, inspection *models.Inspection, approval *models.Approval) {
	var author, reviewer models.User
	if err := db.First(&author, inspection.AuthorID).Error; err != nil {
		return
	}
	if err := db.First(&reviewer, approval.ReviewerID).Error; err != nil {
		return
	}

	if err := email.SendDecision(&author, inspection, approval, &reviewer); err != nil {
		log.Printf("Ошибка при отправке уведомления автору осмотра %d: %v", inspection.ID, err)
	}

	ws.SendInspectionStatusUpdate(author.ID, inspection.ID, inspection.VehicleID, string(inspection.Status))
}

// InspectionApprove принимает осмотр. Самоутверждение запрещено.
func InspectionApprove(db *gorm.DB, email services.EmailSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var req DecisionRequest
		_ = c.ShouldBindJSON(&req) // Комментарий необязателен

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		// Авторизация проверяется до любых записей
		if !workflow.CanDecide(role, actorID, inspection.AuthorID) {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Недостаточно прав для принятия решения по этому осмотру")
			return
		}

		if !workflow.CanTransition(inspection.Status, models.InspectionStatusApproved) {
			abortWorkflowError(c, workflow.ErrInvalidTransition, "Осмотр нельзя принять из текущего статуса")
			return
		}

		approval, err := decide(db, &inspection, actorID, models.DecisionApproved, req.Comment)
		if err != nil {
			if errors.Is(err, workflow.ErrInvalidTransition) {
				abortWorkflowError(c, err, "Статус осмотра уже изменился")
				return
			}
			log.Printf("Ошибка при принятии осмотра %d: %v", inspection.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении решения"})
			return
		}

		notifyAuthorDecision(db, email, &inspection, approval)
		ws.SendVehicleStatusUpdate(inspection.VehicleID, string(workflow.VehicleStatusFor(inspection.Condition)))

		response, err := buildInspectionResponse(db, &inspection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при формировании ответа"})
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

// InspectionReject отклоняет осмотр с обязательной причиной
func InspectionReject(db *gorm.DB, email services.EmailSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var req RejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWorkflowError(c, workflow.ErrValidation, "Необходимо указать причину отклонения")
			return
		}

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		if !workflow.CanDecide(role, actorID, inspection.AuthorID) {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Недостаточно прав для принятия решения по этому осмотру")
			return
		}

		if !workflow.CanTransition(inspection.Status, models.InspectionStatusRejected) {
			abortWorkflowError(c, workflow.ErrInvalidTransition, "Осмотр нельзя отклонить из текущего статуса")
			return
		}

		approval, err := decide(db, &inspection, actorID, models.DecisionRejected, req.Reason)
		if err != nil {
			if errors.Is(err, workflow.ErrInvalidTransition) {
				abortWorkflowError(c, err, "Статус осмотра уже изменился")
				return
			}
			log.Printf("Ошибка при отклонении осмотра %d: %v", inspection.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении решения"})
			return
		}

		notifyAuthorDecision(db, email, &inspection, approval)

		response, err := buildInspectionResponse(db, &inspection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при формировании ответа"})
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

// InspectionResubmit повторно отправляет отклоненный осмотр на проверку.
// Прежнее решение не удаляется, а помечается замещенным в той же транзакции.
func InspectionResubmit(db *gorm.DB, email services.EmailSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		if !workflow.Allowed(role, workflow.OpInspectionResubmit) ||
			(inspection.AuthorID != actorID && role != models.RoleAdmin) {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Повторно отправить осмотр может только его автор")
			return
		}

		now := time.Now()
		if err := workflow.ApplyTransition(&inspection, models.InspectionStatusSubmitted, now); err != nil {
			abortWorkflowError(c, err, "Повторно отправить можно только отклоненный осмотр")
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.Inspection{}).
				Where("id = ? AND status = ?", inspection.ID, models.InspectionStatusRejected).
				Updates(map[string]interface{}{
					"status":     models.InspectionStatusSubmitted,
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return workflow.ErrInvalidTransition
			}

			// Архивируем прежнее решение: актуального решения у осмотра
			// в статусе submitted быть не должно
			return tx.Model(&models.Approval{}).
				Where("inspection_id = ? AND superseded = ?", inspection.ID, false).
				Update("superseded", true).Error
		})
		if err != nil {
			if errors.Is(err, workflow.ErrInvalidTransition) {
				abortWorkflowError(c, err, "Статус осмотра уже изменился")
				return
			}
			log.Printf("Ошибка при повторной отправке осмотра %d: %v", inspection.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении осмотра"})
			return
		}

		notifyReviewers(db, email, &inspection)

		response, err := buildInspectionResponse(db, &inspection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при формировании ответа"})
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

// InspectionDelete удаляет осмотр вместе с фотографиями и решениями.
// Строки удаляются транзакционно, затем удаляются объекты из хранилища;
// неудачные удаления медиа возвращаются в ответе, а не скрываются.
func InspectionDelete(db *gorm.DB, media services.MediaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		if !workflow.Allowed(role, workflow.OpInspectionDelete) && inspection.AuthorID != actorID {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Недостаточно прав для удаления осмотра")
			return
		}

		var photos []models.InspectionPhoto
		if err := db.Where("inspection_id = ?", inspection.ID).Find(&photos).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении фотографий осмотра"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("inspection_id = ?", inspection.ID).Delete(&models.InspectionPhoto{}).Error; err != nil {
				return err
			}
			if err := tx.Where("inspection_id = ?", inspection.ID).Delete(&models.Approval{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Inspection{}, inspection.ID).Error
		})
		if err != nil {
			log.Printf("Ошибка при удалении осмотра %d: %v", inspection.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при удалении осмотра"})
			return
		}

		// Записи удалены; пробуем удалить каждый объект из хранилища
		var failedKeys []string
		for _, photo := range photos {
			if err := media.Delete(c.Request.Context(), photo.RemoteKey); err != nil {
				log.Printf("Не удалось удалить объект %s из хранилища: %v", photo.RemoteKey, err)
				failedKeys = append(failedKeys, photo.RemoteKey)
			}
		}

		if len(failedKeys) > 0 {
			c.JSON(http.StatusOK, gin.H{
				"message":      "Осмотр удален",
				"warning":      "Часть файлов не удалена из хранилища и требует ручной очистки",
				"failed_media": failedKeys,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Осмотр удален"})
	}
}

// контекст для фоновой компенсации, не привязанный к запросу
func detachedContext() context.Context {
	return context.Background()
}
