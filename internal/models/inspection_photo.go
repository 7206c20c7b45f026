package models

import (
	"time"
)

type PhotoType string

const (
	PhotoTypeFront    PhotoType = "front"    // Вид спереди
	PhotoTypeBack     PhotoType = "back"     // Вид сзади
	PhotoTypeInterior PhotoType = "interior" // Салон
	PhotoTypeDamage   PhotoType = "damage"   // Повреждение
)

// ValidPhotoType проверяет тип фотографии по фиксированному перечню
func ValidPhotoType(t PhotoType) bool {
	switch t {
	case PhotoTypeFront, PhotoTypeBack, PhotoTypeInterior, PhotoTypeDamage:
		return true
	}
	return false
}

type InspectionPhoto struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	InspectionID uint       `json:"inspection_id" gorm:"not null;index"`
	Type         PhotoType  `json:"type" gorm:"type:varchar(20);not null"`
	RemoteKey    string     `json:"-" gorm:"column:remote_key;not null;type:varchar(255)"`
	Url          string     `json:"url" gorm:"not null;type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	Inspection   Inspection `json:"-" gorm:"foreignKey:InspectionID"`
}

type InspectionPhotoResponse struct {
	ID        uint      `json:"id"`
	Type      PhotoType `json:"type"`
	Url       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
