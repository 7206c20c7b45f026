package models

import (
	"time"
)

type VehicleStatus string

const (
	VehicleStatusInService      VehicleStatus = "in_service"     // В эксплуатации
	VehicleStatusNeedsRepair    VehicleStatus = "needs_repair"   // Требует ремонта
	VehicleStatusDecommissioned VehicleStatus = "decommissioned" // Выведен из эксплуатации
)

type Vehicle struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Brand       string        `json:"brand" gorm:"not null"`
	Model       string        `json:"model" gorm:"not null"`
	Plate       string        `json:"plate" gorm:"unique;not null;type:varchar(20)"`
	PhotoUrl    string        `json:"photo_url" gorm:"type:text"`
	Status      VehicleStatus `json:"status" gorm:"type:varchar(20);default:'in_service'"`
	InspectorID *uint         `json:"inspector_id,omitempty" gorm:"default:null"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Inspector   *User         `json:"-" gorm:"foreignKey:InspectorID"`
	Inspections []Inspection  `json:"-" gorm:"foreignKey:VehicleID"`
}

type VehicleResponse struct {
	ID            uint          `json:"id"`
	Brand         string        `json:"brand"`
	Model         string        `json:"model"`
	Plate         string        `json:"plate"`
	PhotoUrl      string        `json:"photo_url,omitempty"`
	Status        VehicleStatus `json:"status"`
	InspectorID   *uint         `json:"inspector_id,omitempty"`
	InspectorName string        `json:"inspector_name,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// VehicleCreate используется только для создания новой машины
type VehicleCreate struct {
	Brand       string `gorm:"not null"`
	Model       string `gorm:"not null"`
	Plate       string `gorm:"unique;not null"`
	PhotoUrl    string
	InspectorID *uint
}

func (vc *VehicleCreate) TableName() string {
	return "vehicles"
}
