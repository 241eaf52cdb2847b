package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents a registered account. Each user owns exactly one profile matching its role.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	FirstName    string    `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string    `gorm:"type:varchar(150)" json:"last_name"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never expose password in JSON
	Role         string    `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	TokenVersion int       `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Relationships
	StudentProfile *StudentProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"student_profile,omitempty"`
	TeacherProfile *TeacherProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"teacher_profile,omitempty"`
	AdminProfile   *AdminProfile   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"admin_profile,omitempty"`
}

// FullName joins first and last name, falling back to the username
func (u User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

type StudentProfile struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	ContactNo   string     `gorm:"type:varchar(20)" json:"contact_no"`
	Address     string     `gorm:"type:text" json:"address"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth"`
	Gender      string     `gorm:"type:varchar(10)" json:"gender"` // Male, Female, Other
	Education   string     `gorm:"type:varchar(200)" json:"education"`
	Status      string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // active, inactive

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type TeacherProfile struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	UserID        uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Email         string          `gorm:"type:varchar(254)" json:"email"`
	ContactNo     string          `gorm:"type:varchar(10)" json:"contact_no"`
	Qualification string          `gorm:"type:text" json:"qualification"`
	Experience    int             `gorm:"not null;default:0" json:"experience"` // in years
	Rating        decimal.Decimal `gorm:"type:numeric(3,2);not null;default:0" json:"rating"`
	Bio           string          `gorm:"type:text" json:"bio"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type AdminProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	ContactNo string    `gorm:"type:varchar(20)" json:"contact_no"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
