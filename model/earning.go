package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TeacherEarning is the teacher share of one successful payment
type TeacherEarning struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	TeacherID uint            `gorm:"not null;index" json:"teacher_id"`
	CourseID  uint            `gorm:"not null;index:idx_teacher_earnings_course_paid" json:"course_id"`
	PaymentID uint            `gorm:"not null;uniqueIndex" json:"payment_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	IsPaid    bool            `gorm:"not null;default:false;index:idx_teacher_earnings_course_paid" json:"is_paid"`

	Teacher *TeacherProfile `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"-"`
	Course  *Course         `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Payment *Payment        `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE" json:"-"`
}

// AdminEarning is the platform commission of one successful payment
type AdminEarning struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	CourseID         uint            `gorm:"not null;index" json:"course_id"`
	PaymentID        uint            `gorm:"not null;uniqueIndex" json:"payment_id"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"commission_amount"`

	Course  *Course  `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Payment *Payment `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE" json:"-"`
}
