package services

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"inspection-backend/internal/models"
	"inspection-backend/internal/workflow"

	"github.com/jung-kurt/gofpdf"
)

// Шрифт с кодировкой cp1251 и карта перекодировки вшиты в бинарник:
// генерация отчета не должна зависеть от файлов рядом с процессом.
//
//go:embed fonts/cp1251.map
var cp1251Map string

//go:embed fonts/helvetica_1251.json
var reportFontJSON []byte

//go:embed fonts/helvetica_1251.z
var reportFontZ []byte

const reportFont = "Helvetica-1251"

// InspectionReport — данные для формирования PDF-отчета по осмотру
type InspectionReport struct {
	Inspection models.InspectionResponse
	Generated  time.Time
}

// PDFRenderer — контракт генератора отчетов
type PDFRenderer interface {
	RenderInspection(report *InspectionReport) ([]byte, error)
}

type InspectionPDFRenderer struct{}

func NewInspectionPDFRenderer() *InspectionPDFRenderer {
	return &InspectionPDFRenderer{}
}

// RenderInspection собирает PDF-отчет по осмотру. Состояние осмотра
// не изменяется; любая ошибка здесь — ошибка форматирования, не данных.
func (r *InspectionPDFRenderer) RenderInspection(report *InspectionReport) ([]byte, error) {
	insp := report.Inspection

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Inspection report #%d", insp.ID), false)
	// Полужирного начертания у вшитого шрифта нет, регистрируем тот же файл
	pdf.AddFontFromBytes(reportFont, "", reportFontJSON, reportFontZ)
	pdf.AddFontFromBytes(reportFont, "B", reportFontJSON, reportFontZ)
	pdf.AddPage()

	tr, err := gofpdf.UnicodeTranslator(strings.NewReader(cp1251Map))
	if err != nil {
		return nil, fmt.Errorf("%w: карта кодировки cp1251: %v", workflow.ErrUpstream, err)
	}

	pdf.SetFont(reportFont, "B", 18)
	pdf.Cell(0, 12, tr(fmt.Sprintf("Отчет об осмотре №%d", insp.ID)))
	pdf.Ln(14)

	pdf.SetFont(reportFont, "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Сформирован: %s", report.Generated.Format("02.01.2006 15:04"))))
	pdf.Ln(10)
	pdf.SetTextColor(0, 0, 0)

	writeRow := func(label, value string) {
		pdf.SetFont(reportFont, "B", 11)
		pdf.CellFormat(55, 8, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont(reportFont, "", 11)
		pdf.MultiCell(0, 8, tr(value), "", "L", false)
	}

	pdf.SetFont(reportFont, "B", 14)
	pdf.Cell(0, 10, tr("Машина"))
	pdf.Ln(10)
	writeRow("Марка и модель:", fmt.Sprintf("%s %s", insp.Vehicle.Brand, insp.Vehicle.Model))
	writeRow("Гос. номер:", insp.Vehicle.Plate)
	writeRow("Статус:", string(insp.Vehicle.Status))
	pdf.Ln(4)

	pdf.SetFont(reportFont, "B", 14)
	pdf.Cell(0, 10, tr("Осмотр"))
	pdf.Ln(10)
	writeRow("Автор:", insp.AuthorName)
	writeRow("Статус осмотра:", string(insp.Status))
	writeRow("Состояние:", string(insp.Condition))
	writeRow("Пробег:", fmt.Sprintf("%d км", insp.Odometer))
	if insp.Comment != "" {
		writeRow("Комментарий:", insp.Comment)
	}
	writeRow("Дата осмотра:", insp.CreatedAt.Format("02.01.2006 15:04"))
	pdf.Ln(4)

	if insp.Approval != nil {
		pdf.SetFont(reportFont, "B", 14)
		pdf.Cell(0, 10, tr("Решение"))
		pdf.Ln(10)
		writeRow("Проверяющий:", insp.Approval.ReviewerName)
		writeRow("Решение:", string(insp.Approval.Decision))
		if insp.Approval.Comment != "" {
			writeRow("Комментарий:", insp.Approval.Comment)
		}
		writeRow("Дата решения:", insp.Approval.DecidedAt.Format("02.01.2006 15:04"))
		pdf.Ln(4)
	}

	if len(insp.Photos) > 0 {
		pdf.SetFont(reportFont, "B", 14)
		pdf.Cell(0, 10, tr("Фотографии"))
		pdf.Ln(10)
		pdf.SetFont(reportFont, "", 10)
		for _, photo := range insp.Photos {
			pdf.CellFormat(30, 6, tr(string(photo.Type)), "", 0, "L", false, 0, "")
			pdf.WriteLinkString(6, photo.Url, photo.Url)
			pdf.Ln(7)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: формирование PDF: %v", workflow.ErrUpstream, err)
	}

	return buf.Bytes(), nil
}
