package model

import "time"

// ApplicationStatus moves from pending to one of the terminal states
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// TeacherApplication is submitted by an unauthenticated applicant and reviewed by an admin
type TeacherApplication struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	AppliedOn     time.Time         `gorm:"autoCreateTime" json:"applied_on"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Username      string            `gorm:"type:varchar(100);not null;index" json:"username"`
	FirstName     string            `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName      string            `gorm:"type:varchar(100);not null" json:"last_name"`
	Email         string            `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	ContactNo     string            `gorm:"type:varchar(20)" json:"contact_no"`
	Qualification string            `gorm:"type:text;not null" json:"qualification"`
	Experience    int               `gorm:"not null;check:chk_teacher_applications_experience,experience >= 0" json:"experience"`
	Resume        string            `gorm:"type:varchar(512)" json:"resume"`
	Status        ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
}
