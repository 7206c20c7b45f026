package models

import (
	"time"
)

type ApprovalDecision string

const (
	DecisionApproved ApprovalDecision = "approved" // Осмотр принят
	DecisionRejected ApprovalDecision = "rejected" // Осмотр отклонен
)

// Approval хранит решение проверяющего по осмотру. При повторной отправке
// осмотра старое решение не удаляется, а помечается как superseded —
// актуальным считается ровно одно решение с superseded = false.
type Approval struct {
	ID           uint             `json:"id" gorm:"primaryKey"`
	InspectionID uint             `json:"inspection_id" gorm:"not null;index"`
	ReviewerID   uint             `json:"reviewer_id" gorm:"not null"`
	Decision     ApprovalDecision `json:"decision" gorm:"type:varchar(20);not null"`
	Comment      string           `json:"comment" gorm:"default:''"`
	Superseded   bool             `json:"superseded" gorm:"default:false"`
	DecidedAt    time.Time        `json:"decided_at" gorm:"not null"`
	Inspection   Inspection       `json:"-" gorm:"foreignKey:InspectionID"`
	Reviewer     User             `json:"-" gorm:"foreignKey:ReviewerID"`
}

type ApprovalResponse struct {
	ID           uint             `json:"id"`
	ReviewerID   uint             `json:"reviewer_id"`
	ReviewerName string           `json:"reviewer_name"`
	Decision     ApprovalDecision `json:"decision"`
	Comment      string           `json:"comment,omitempty"`
	DecidedAt    time.Time        `json:"decided_at"`
}
