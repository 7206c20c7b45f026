package workflow

import (
	"fmt"
	"time"

	"inspection-backend/internal/models"
)

// AllowTransition задает допустимые переходы статуса осмотра.
// approved — терминальный статус: повторный осмотр оформляется новой записью,
// а не повторным открытием уже принятой.
var AllowTransition = map[models.InspectionStatus][]models.InspectionStatus{
	models.InspectionStatusDraft:     {models.InspectionStatusSubmitted},
	models.InspectionStatusSubmitted: {models.InspectionStatusApproved, models.InspectionStatusRejected},
	models.InspectionStatusRejected:  {models.InspectionStatusSubmitted},
	models.InspectionStatusApproved:  {},
}

// CanTransition проверяет, допустим ли переход from -> to.
func CanTransition(from, to models.InspectionStatus) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition проверяет допустимость перехода и применяет его к осмотру
// в памяти. Сохранение выполняется отдельным условным обновлением в БД.
func ApplyTransition(insp *models.Inspection, to models.InspectionStatus, now time.Time) error {
	if insp == nil {
		return fmt.Errorf("%w: осмотр не задан", ErrValidation)
	}
	from := insp.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	insp.Status = to
	insp.UpdatedAt = now
	return nil
}

// VehicleStatusFor возвращает эксплуатационный статус машины по итогу
// принятого осмотра. Отклонение осмотра статус машины не меняет.
func VehicleStatusFor(cond models.InspectionCondition) models.VehicleStatus {
	switch cond {
	case models.ConditionCritical:
		return models.VehicleStatusDecommissioned
	case models.ConditionAttention:
		return models.VehicleStatusNeedsRepair
	default:
		return models.VehicleStatusInService
	}
}
