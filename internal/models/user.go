package models

import (
	"time"
)

type UserRole string

const (
	RoleAdmin     UserRole = "admin"     // Администратор — принимает решения по осмотрам
	RoleInspector UserRole = "inspector" // Инспектор — проводит осмотры
	RoleViewer    UserRole = "viewer"    // Наблюдатель — только чтение
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	FirstName    string    `json:"firstName" gorm:"column:first_name;not null;type:varchar(255)"`
	LastName     string    `json:"lastName" gorm:"column:last_name;not null;type:varchar(255)"`
	Email        string    `json:"email" gorm:"column:email;unique;not null;type:varchar(255)"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null;type:varchar(255)"`
	Phone        string    `json:"phone" gorm:"column:phone;type:varchar(20)"`
	PhotoUrl     string    `json:"photoUrl" gorm:"column:photo_url;type:text"`
	Role         UserRole  `json:"role" gorm:"column:role;default:'inspector';type:varchar(20)"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	PhotoUrl  string    `json:"photoUrl,omitempty"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName возвращает имя пользователя для писем и отчетов
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// ToResponse формирует ответ API без чувствительных полей
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		PhotoUrl:  u.PhotoUrl,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
