package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentStatus is either successful or failed; a payment only becomes successful through verification
type PaymentStatus string

const (
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// FreeCourseTransactionID marks the synthesized payment behind a free enrollment
const FreeCourseTransactionID = "free_course_payment"

// Payment records one checkout attempt for a (student, course) pair
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"payment_date"`
	UpdatedAt     time.Time       `json:"updated_at"`
	StudentID     uint            `gorm:"not null;index" json:"student_id"`
	CourseID      uint            `gorm:"not null;index" json:"course_id"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount_paid"`
	Currency      string          `gorm:"type:varchar(10);not null;default:'INR'" json:"currency"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;default:'failed';index" json:"status"`
	OrderID       *string         `gorm:"type:varchar(255);uniqueIndex" json:"order_id"`
	TransactionID *string         `gorm:"type:varchar(255)" json:"transaction_id"`
	Receipt       string          `gorm:"type:varchar(64)" json:"receipt"`
	Billing       datatypes.JSON  `gorm:"type:jsonb" json:"billing,omitempty"`

	Student *StudentProfile `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student,omitempty"`
	Course  *Course         `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// Enrollment is the durable entitlement of a student to a course. One per (student, course).
type Enrollment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_enrollments_student_course" json:"student_id"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_enrollments_student_course" json:"course_id"`
	PaymentID  uint      `gorm:"not null;index" json:"payment_id"`
	EnrolledOn time.Time `gorm:"autoCreateTime" json:"enrolled_on"`

	Student *StudentProfile `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student,omitempty"`
	Course  *Course         `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Payment *Payment        `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE" json:"-"`
}
