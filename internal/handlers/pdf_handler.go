package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"inspection-backend/internal/models"
	"inspection-backend/internal/services"
	"inspection-backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InspectionExportPDF формирует PDF-отчет по осмотру. Доступ — у автора
// осмотра и у ролей с правом экспорта; состояние осмотра не изменяется.
func InspectionExportPDF(db *gorm.DB, renderer services.PDFRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role := currentActor(c)

		var inspection models.Inspection
		if err := db.First(&inspection, c.Param("id")).Error; err != nil {
			abortWorkflowError(c, workflow.ErrNotFound, "Осмотр не найден")
			return
		}

		if !workflow.Allowed(role, workflow.OpInspectionExport) && inspection.AuthorID != actorID {
			abortWorkflowError(c, workflow.ErrUnauthorized, "Недостаточно прав для экспорта осмотра")
			return
		}

		response, err := buildInspectionResponse(db, &inspection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сборке данных отчета"})
			return
		}

		data, err := renderer.RenderInspection(&services.InspectionReport{
			Inspection: response,
			Generated:  time.Now(),
		})
		if err != nil {
			log.Printf("Ошибка при формировании PDF по осмотру %d: %v", inspection.ID, err)
			abortWorkflowError(c, err, "Ошибка при формировании PDF")
			return
		}

		filename := fmt.Sprintf("inspection-%d.pdf", inspection.ID)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Data(http.StatusOK, "application/pdf", data)
	}
}
