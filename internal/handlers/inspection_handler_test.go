package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"inspection-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectionCreate(t *testing.T) {
	env := newTestEnv(t)
	inspector := env.createUser(t, "inspector@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	w := env.do(t, inspector, http.MethodPost, "/inspections", InspectionCreateRequest{
		VehicleID: vehicle.ID,
		Condition: models.ConditionOK,
		Odometer:  125000,
		Comment:   "Плановый осмотр",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.InspectionResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, models.InspectionStatusSubmitted, resp.Status)
	assert.Equal(t, inspector.ID, resp.AuthorID)
	assert.Equal(t, vehicle.ID, resp.Vehicle.ID)
	assert.Nil(t, resp.Approval)

	// Отправленный осмотр порождает уведомление проверяющим
	assert.Len(t, env.email.submitted, 1)

	// Черновик уведомлений не порождает
	w = env.do(t, inspector, http.MethodPost, "/inspections", InspectionCreateRequest{
		VehicleID: vehicle.ID,
		Condition: models.ConditionOK,
		Odometer:  125100,
		Draft:     true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	decodeResponse(t, w, &resp)
	assert.Equal(t, models.InspectionStatusDraft, resp.Status)
	assert.Len(t, env.email.submitted, 1)
}

func TestInspectionCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	inspector := env.createUser(t, "inspector@test.kz", models.RoleInspector)
	viewer := env.createUser(t, "viewer@test.kz", models.RoleViewer)
	vehicle := env.createVehicle(t, "123ABC01")

	// Наблюдатель не создает осмотры
	w := env.do(t, viewer, http.MethodPost, "/inspections", InspectionCreateRequest{
		VehicleID: vehicle.ID,
		Condition: models.ConditionOK,
		Odometer:  1000,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Неизвестное состояние машины
	w = env.do(t, inspector, http.MethodPost, "/inspections", InspectionCreateRequest{
		VehicleID: vehicle.ID,
		Condition: models.InspectionCondition("perfect"),
		Odometer:  1000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Несуществующая машина
	w = env.do(t, inspector, http.MethodPost, "/inspections", InspectionCreateRequest{
		VehicleID: 9999,
		Condition: models.ConditionOK,
		Odometer:  1000,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInspectionListScope(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	first := env.createUser(t, "first@test.kz", models.RoleInspector)
	second := env.createUser(t, "second@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	env.createInspection(t, vehicle.ID, first.ID, models.InspectionStatusSubmitted, models.ConditionOK)
	env.createInspection(t, vehicle.ID, first.ID, models.InspectionStatusRejected, models.ConditionAttention)
	env.createInspection(t, vehicle.ID, second.ID, models.InspectionStatusSubmitted, models.ConditionOK)

	// Инспектор видит только свои осмотры
	w := env.do(t, first, http.MethodGet, "/inspections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []models.InspectionSummary
	decodeResponse(t, w, &summaries)
	assert.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, first.ID, s.AuthorID)
	}

	// Администратор видит все
	w = env.do(t, admin, http.MethodGet, "/inspections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &summaries)
	assert.Len(t, summaries, 3)

	// Фильтр по статусу
	w = env.do(t, admin, http.MethodGet, "/inspections?status=rejected", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, models.InspectionStatusRejected, summaries[0].Status)
}

func TestInspectionDraftHiddenFromOthers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	other := env.createUser(t, "other@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	draft := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusDraft, models.ConditionOK)
	path := fmt.Sprintf("/inspections/%d", draft.ID)

	assert.Equal(t, http.StatusOK, env.do(t, author, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, admin, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, other, http.MethodGet, path, nil).Code)
}

func TestInspectionSubmit(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	other := env.createUser(t, "other@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	draft := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusDraft, models.ConditionOK)
	path := fmt.Sprintf("/inspections/%d/submit", draft.ID)

	// Отправить может только автор
	w := env.do(t, other, http.MethodPut, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, author, http.MethodPut, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.InspectionResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, models.InspectionStatusSubmitted, resp.Status)
	assert.Len(t, env.email.submitted, 1)

	// Повторная отправка уже отправленного — конфликт
	w = env.do(t, author, http.MethodPut, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInspectionApprove(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	inspection := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusSubmitted, models.ConditionAttention)

	w := env.do(t, admin, http.MethodPut, fmt.Sprintf("/inspections/%d/approve", inspection.ID), DecisionRequest{
		Comment: "Принято, запланировать ремонт",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.InspectionResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, models.InspectionStatusApproved, resp.Status)
	require.NotNil(t, resp.Approval)
	assert.Equal(t, models.DecisionApproved, resp.Approval.Decision)
	assert.Equal(t, admin.ID, resp.Approval.ReviewerID)
	assert.Equal(t, "Принято, запланировать ремонт", resp.Approval.Comment)

	// Статус машины выводится из состояния по принятому осмотру
	var updatedVehicle models.Vehicle
	require.NoError(t, env.db.First(&updatedVehicle, vehicle.ID).Error)
	assert.Equal(t, models.VehicleStatusNeedsRepair, updatedVehicle.Status)

	// Автор уведомлен о решении
	assert.Equal(t, []uint{inspection.ID}, env.email.decisions)
}

func TestInspectionApproveSelfForbidden(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	vehicle := env.createVehicle(t, "123ABC01")

	// Администратор сам провел осмотр — принять его он не может
	inspection := env.createInspection(t, vehicle.ID, admin.ID, models.InspectionStatusSubmitted, models.ConditionOK)

	w := env.do(t, admin, http.MethodPut, fmt.Sprintf("/inspections/%d/approve", inspection.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Запрет сработал до любых записей
	var count int64
	env.db.Model(&models.Approval{}).Count(&count)
	assert.Zero(t, count)

	var unchanged models.Inspection
	require.NoError(t, env.db.First(&unchanged, inspection.ID).Error)
	assert.Equal(t, models.InspectionStatusSubmitted, unchanged.Status)
}

func TestInspectionApproveByInspectorForbidden(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	other := env.createUser(t, "other@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	inspection := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusSubmitted, models.ConditionOK)

	w := env.do(t, other, http.MethodPut, fmt.Sprintf("/inspections/%d/approve", inspection.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInspectionApproveConflicts(t *testing.T) {
	env := newTestEnv(t)
	first := env.createUser(t, "first-admin@test.kz", models.RoleAdmin)
	second := env.createUser(t, "second-admin@test.kz", models.RoleAdmin)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	// Черновик принять нельзя
	draft := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusDraft, models.ConditionOK)
	w := env.do(t, first, http.MethodPut, fmt.Sprintf("/inspections/%d/approve", draft.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Из двух решений по одному осмотру записывается ровно одно
	inspection := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusSubmitted, models.ConditionOK)
	path := fmt.Sprintf("/inspections/%d/approve", inspection.ID)

	w = env.do(t, first, http.MethodPut, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, second, http.MethodPut, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	env.db.Model(&models.Approval{}).Where("inspection_id = ?", inspection.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestInspectionReject(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	inspection := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusSubmitted, models.ConditionCritical)
	path := fmt.Sprintf("/inspections/%d/reject", inspection.ID)

	// Причина отклонения обязательна
	w := env.do(t, admin, http.MethodPut, path, RejectRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, admin, http.MethodPut, path, RejectRequest{Reason: "Нет фотографий повреждений"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.InspectionResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, models.InspectionStatusRejected, resp.Status)
	require.NotNil(t, resp.Approval)
	assert.Equal(t, models.DecisionRejected, resp.Approval.Decision)
	assert.Equal(t, "Нет фотографий повреждений", resp.Approval.Comment)

	// Отклонение статус машины не меняет
	var updatedVehicle models.Vehicle
	require.NoError(t, env.db.First(&updatedVehicle, vehicle.ID).Error)
	assert.Equal(t, models.VehicleStatusInService, updatedVehicle.Status)
}

func TestInspectionResubmitSupersedesApproval(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	inspection := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusSubmitted, models.ConditionOK)

	w := env.do(t, admin, http.MethodPut, fmt.Sprintf("/inspections/%d/reject", inspection.ID),
		RejectRequest{Reason: "Не указан пробег"})
	require.Equal(t, http.StatusOK, w.Code)

	// Повторно отправить чужой осмотр нельзя
	other := env.createUser(t, "other@test.kz", models.RoleInspector)
	w = env.do(t, other, http.MethodPut, fmt.Sprintf("/inspections/%d/resubmit", inspection.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, author, http.MethodPut, fmt.Sprintf("/inspections/%d/resubmit", inspection.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.InspectionResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, models.InspectionStatusSubmitted, resp.Status)
	// Прежнее решение замещено и в карточке не показывается
	assert.Nil(t, resp.Approval)

	var archived models.Approval
	require.NoError(t, env.db.Where("inspection_id = ?", inspection.ID).First(&archived).Error)
	assert.True(t, archived.Superseded)

	// Новое решение по повторно отправленному осмотру
	w = env.do(t, admin, http.MethodPut, fmt.Sprintf("/inspections/%d/approve", inspection.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &resp)
	assert.Equal(t, models.InspectionStatusApproved, resp.Status)
	require.NotNil(t, resp.Approval)
	assert.Equal(t, models.DecisionApproved, resp.Approval.Decision)

	// История решений сохраняется, актуальное — ровно одно
	var total, current int64
	env.db.Model(&models.Approval{}).Where("inspection_id = ?", inspection.ID).Count(&total)
	env.db.Model(&models.Approval{}).Where("inspection_id = ? AND superseded = ?", inspection.ID, false).Count(&current)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), current)

	// Принятый осмотр повторно отправить нельзя
	w = env.do(t, author, http.MethodPut, fmt.Sprintf("/inspections/%d/resubmit", inspection.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInspectionDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	inspection := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusRejected, models.ConditionOK)
	require.NoError(t, env.db.Create(&models.InspectionPhoto{
		InspectionID: inspection.ID, Type: models.PhotoTypeFront,
		RemoteKey: "inspections/test/front.jpg", Url: "https://media.test/front.jpg",
	}).Error)
	require.NoError(t, env.db.Create(&models.InspectionPhoto{
		InspectionID: inspection.ID, Type: models.PhotoTypeDamage,
		RemoteKey: "inspections/test/damage.jpg", Url: "https://media.test/damage.jpg",
	}).Error)
	require.NoError(t, env.db.Create(&models.Approval{
		InspectionID: inspection.ID, ReviewerID: admin.ID, Decision: models.DecisionRejected,
	}).Error)

	// Удалять чужие осмотры инспектор не может
	other := env.createUser(t, "other@test.kz", models.RoleInspector)
	w := env.do(t, other, http.MethodDelete, fmt.Sprintf("/inspections/%d", inspection.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, admin, http.MethodDelete, fmt.Sprintf("/inspections/%d", inspection.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Строки удалены вместе с осмотром
	var photos, approvals int64
	env.db.Model(&models.InspectionPhoto{}).Where("inspection_id = ?", inspection.ID).Count(&photos)
	env.db.Model(&models.Approval{}).Where("inspection_id = ?", inspection.ID).Count(&approvals)
	assert.Zero(t, photos)
	assert.Zero(t, approvals)

	var gone models.Inspection
	assert.Error(t, env.db.First(&gone, inspection.ID).Error)

	// Объекты удалены из хранилища
	assert.ElementsMatch(t, []string{"inspections/test/front.jpg", "inspections/test/damage.jpg"}, env.media.deleted)
}

func TestInspectionDeleteReportsFailedMedia(t *testing.T) {
	env := newTestEnv(t)
	env.media.failDelete = true
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	vehicle := env.createVehicle(t, "123ABC01")

	inspection := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusDraft, models.ConditionOK)
	require.NoError(t, env.db.Create(&models.InspectionPhoto{
		InspectionID: inspection.ID, Type: models.PhotoTypeFront,
		RemoteKey: "inspections/test/front.jpg", Url: "https://media.test/front.jpg",
	}).Error)

	w := env.do(t, admin, http.MethodDelete, fmt.Sprintf("/inspections/%d", inspection.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Неудачные удаления из хранилища не скрываются
	var resp struct {
		Message     string   `json:"message"`
		Warning     string   `json:"warning"`
		FailedMedia []string `json:"failed_media"`
	}
	decodeResponse(t, w, &resp)
	assert.NotEmpty(t, resp.Warning)
	assert.Equal(t, []string{"inspections/test/front.jpg"}, resp.FailedMedia)

	// Строки при этом удалены
	var gone models.Inspection
	assert.Error(t, env.db.First(&gone, inspection.ID).Error)
}

func TestInspectionExportPDF(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@test.kz", models.RoleAdmin)
	author := env.createUser(t, "author@test.kz", models.RoleInspector)
	viewer := env.createUser(t, "viewer@test.kz", models.RoleViewer)
	vehicle := env.createVehicle(t, "123ABC01")

	inspection := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusSubmitted, models.ConditionOK)
	w := env.do(t, admin, http.MethodPut, fmt.Sprintf("/inspections/%d/approve", inspection.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	path := fmt.Sprintf("/inspections/%d/pdf", inspection.ID)

	w = env.do(t, author, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytesHasPDFHeader(w.Body.Bytes()), "ответ должен быть PDF-документом")

	// Наблюдателю выгрузка недоступна
	w = env.do(t, viewer, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Чужой инспектор не может выгрузить ни чужой осмотр, ни чужой черновик
	other := env.createUser(t, "other@test.kz", models.RoleInspector)
	w = env.do(t, other, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	draft := env.createInspection(t, vehicle.ID, author.ID, models.InspectionStatusDraft, models.ConditionOK)
	w = env.do(t, other, http.MethodGet, fmt.Sprintf("/inspections/%d/pdf", draft.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Администратор выгружает любой осмотр
	w = env.do(t, admin, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func bytesHasPDFHeader(b []byte) bool {
	return len(b) > 4 && string(b[:5]) == "%PDF-"
}
