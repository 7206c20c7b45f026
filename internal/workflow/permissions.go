package workflow

import (
	"inspection-backend/internal/models"
)

// Operation — тег операции жизненного цикла для таблицы прав.
type Operation string

const (
	OpInspectionCreate   Operation = "inspection:create"
	OpInspectionSubmit   Operation = "inspection:submit"
	OpInspectionApprove  Operation = "inspection:approve"
	OpInspectionReject   Operation = "inspection:reject"
	OpInspectionResubmit Operation = "inspection:resubmit"
	OpInspectionDelete   Operation = "inspection:delete"
	OpInspectionExport   Operation = "inspection:export"
	OpVehicleManage      Operation = "vehicle:manage"
)

// rolePermissions — единая таблица прав по ролям. Все проверки доступа
// в обработчиках идут через Allowed, а не через разрозненные условия.
var rolePermissions = map[models.UserRole]map[Operation]bool{
	models.RoleAdmin: {
		OpInspectionCreate:   true,
		OpInspectionSubmit:   true,
		OpInspectionApprove:  true,
		OpInspectionReject:   true,
		OpInspectionResubmit: true,
		OpInspectionDelete:   true,
		OpInspectionExport:   true,
		OpVehicleManage:      true,
	},
	// Право экспорта у инспектора не ролевое: отчет по собственному осмотру
	// доступен через проверку авторства в обработчике
	models.RoleInspector: {
		OpInspectionCreate:   true,
		OpInspectionSubmit:   true,
		OpInspectionResubmit: true,
	},
	models.RoleViewer: {},
}

// Allowed — чистая функция (роль, операция) -> разрешено/запрещено.
func Allowed(role models.UserRole, op Operation) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[op]
}

// CanDecide проверяет право вынести решение по осмотру с запретом
// самоутверждения: автор не может принять или отклонить собственный осмотр.
func CanDecide(role models.UserRole, actorID, authorID uint) bool {
	if !Allowed(role, OpInspectionApprove) {
		return false
	}
	return actorID != authorID
}
