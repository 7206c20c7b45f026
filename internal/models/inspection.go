package models

import (
	"time"
)

type InspectionStatus string

const (
	InspectionStatusDraft     InspectionStatus = "draft"     // Черновик, виден только автору
	InspectionStatusSubmitted InspectionStatus = "submitted" // Отправлен на проверку
	InspectionStatusApproved  InspectionStatus = "approved"  // Принят, статус окончательный
	InspectionStatusRejected  InspectionStatus = "rejected"  // Отклонен, можно отправить повторно
)

type InspectionCondition string

const (
	ConditionOK        InspectionCondition = "ok"        // Исправен
	ConditionAttention InspectionCondition = "attention" // Требует внимания
	ConditionCritical  InspectionCondition = "critical"  // Критическое состояние
)

type Inspection struct {
	ID        uint                `json:"id" gorm:"primaryKey"`
	VehicleID uint                `json:"vehicle_id" gorm:"not null;index"`
	AuthorID  uint                `json:"author_id" gorm:"not null;index"`
	Status    InspectionStatus    `json:"status" gorm:"type:varchar(20);default:'submitted'"`
	Condition InspectionCondition `json:"condition" gorm:"type:varchar(20);not null"`
	Odometer  int                 `json:"odometer" gorm:"not null"`
	Comment   string              `json:"comment" gorm:"default:''"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Vehicle   Vehicle             `json:"-" gorm:"foreignKey:VehicleID"`
	Author    User                `json:"-" gorm:"foreignKey:AuthorID"`
	Photos    []InspectionPhoto   `json:"-" gorm:"foreignKey:InspectionID"`
	Approvals []Approval          `json:"-" gorm:"foreignKey:InspectionID"`
}

// InspectionSummary — краткая форма для списков на дашборде
type InspectionSummary struct {
	ID           uint                `json:"id"`
	VehicleID    uint                `json:"vehicle_id"`
	VehiclePlate string              `json:"vehicle_plate"`
	AuthorID     uint                `json:"author_id"`
	AuthorName   string              `json:"author_name"`
	Status       InspectionStatus    `json:"status"`
	Condition    InspectionCondition `json:"condition"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// InspectionResponse — полная форма с фотографиями и текущим решением
type InspectionResponse struct {
	ID         uint                      `json:"id"`
	Vehicle    VehicleResponse           `json:"vehicle"`
	AuthorID   uint                      `json:"author_id"`
	AuthorName string                    `json:"author_name"`
	Status     InspectionStatus          `json:"status"`
	Condition  InspectionCondition       `json:"condition"`
	Odometer   int                       `json:"odometer"`
	Comment    string                    `json:"comment,omitempty"`
	Photos     []InspectionPhotoResponse `json:"photos"`
	Approval   *ApprovalResponse         `json:"approval,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}
