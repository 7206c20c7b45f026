package handlers

import (
	"log"
	"net/http"
	"path/filepath"

	"inspection-backend/internal/models"
	"inspection-backend/internal/services"
	"inspection-backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PhotoAdd загружает фотографию осмотра: сначала файл уходит в хранилище,
// затем пишется строка в БД. Если запись не удалась, загруженный объект
// удаляется компенсирующим действием — осиротевших файлов быть не должно.
func PhotoAdd(db *gorm.DB, media services.MediaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		if inspection.AuthorID != actorID && role != models.RoleAdmin {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Добавлять фотографии может только автор осмотра")
			return
		}

		// Принятый осмотр — зафиксированный документ, фотографии не меняются
		if inspection.Status == models.InspectionStatusApproved {
			abortWorkflowError(c, workflow.ErrInvalidTransition, "К принятому осмотру нельзя добавлять фотографии")
			return
		}

		photoType := models.PhotoType(c.PostForm("type"))
		if !models.ValidPhotoType(photoType) {
			abortWorkflowError(c, workflow.ErrValidation, "Неизвестный тип фотографии")
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			abortWorkflowError(c, workflow.ErrValidation, "Файл не найден")
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при чтении файла"})
			return
		}
		defer src.Close()

		contentType := file.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		key, url, err := media.Upload(c.Request.Context(), src, contentType, filepath.Ext(file.Filename))
		if err != nil {
			log.Printf("Ошибка загрузки фотографии в хранилище: %v", err)
			abortWorkflowError(c, err, "Ошибка при загрузке файла в хранилище")
			return
		}

		photo := models.InspectionPhoto{
			InspectionID: inspection.ID,
			Type:         photoType,
			RemoteKey:    key,
			Url:          url,
		}

		if err := db.Create(&photo).Error; err != nil {
			log.Printf("Ошибка при сохранении фотографии осмотра %d: %v", inspection.ID, err)
			// Компенсация: объект уже в хранилище, но строки в БД не будет.
			// Используем отвязанный контекст — запрос мог быть прерван.
			if delErr := media.Delete(detachedContext(), key); delErr != nil {
				log.Printf("Не удалось удалить осиротевший объект %s: %v", key, delErr)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении фотографии"})
			return
		}

		c.JSON(http.StatusCreated, models.InspectionPhotoResponse{
			ID:        photo.ID,
			Type:      photo.Type,
			Url:       photo.Url,
			CreatedAt: photo.CreatedAt,
		})
	}
}

// PhotoDelete удаляет фотографию осмотра. Сбой удаления из хранилища
// возвращается в ответе как предупреждение, а не скрывается.
func PhotoDelete(db *gorm.DB, media services.MediaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		if inspection.AuthorID != actorID && role != models.RoleAdmin {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Удалять фотографии может только автор осмотра")
			return
		}

		if inspection.Status == models.InspectionStatusApproved {
			abortWorkflowError(c, workflow.ErrInvalidTransition, "У принятого осмотра нельзя удалять фотографии")
			return
		}

		var photo models.InspectionPhoto
		if err := db.Where("id = ? AND inspection_id = ?", c.Param("photoId"), inspection.ID).
			First(&photo).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Фотография не найдена")
			return
		}

		if err := db.Delete(&photo).Error; err != nil {
			log.Printf("Ошибка при удалении фотографии %d: %v", photo.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при удалении фотографии"})
			return
		}

		if err := media.Delete(c.Request.Context(), photo.RemoteKey); err != nil {
			log.Printf("Не удалось удалить объект %s из хранилища: %v", photo.RemoteKey, err)
			c.JSON(http.StatusOK, gin.H{
				"message":      "Фотография удалена",
				"warning":      "Файл не удален из хранилища и требует ручной очистки",
				"failed_media": []string{photo.RemoteKey},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Фотография удалена"})
	}
}
