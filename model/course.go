package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is owned by a teacher. Price and discount bounds are also enforced by CHECK constraints.
type Course struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	TeacherID   uint            `gorm:"not null;index" json:"teacher_id"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	LevelID     *uint           `gorm:"index" json:"level_id"`
	LanguageID  *uint           `gorm:"index" json:"language_id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Slug        string          `gorm:"type:varchar(500);uniqueIndex;not null" json:"slug"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Image       string          `gorm:"type:varchar(512)" json:"image"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null;check:chk_courses_price,price >= 0" json:"price"`
	Discount    int             `gorm:"not null;default:0;check:chk_courses_discount,discount >= 0 AND discount <= 99" json:"discount"`

	// Relationships
	Teacher  *TeacherProfile `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"teacher,omitempty"`
	Category *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"category,omitempty"`
	Level    *Level          `gorm:"foreignKey:LevelID;constraint:OnDelete:SET NULL" json:"level,omitempty"`
	Language *Language       `gorm:"foreignKey:LanguageID;constraint:OnDelete:SET NULL" json:"language,omitempty"`
	Lessons  []Lesson        `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// IsFree reports whether enrollment needs no payment
func (c Course) IsFree() bool {
	return c.Price.IsZero()
}

// Lesson belongs to a course and is listed by creation id
type Lesson struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	TeacherID uint      `gorm:"not null;index" json:"teacher_id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`

	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Videos []Video `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"videos,omitempty"`
}

// Video serial numbers are unique within a lesson
type Video struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	CourseID     uint      `gorm:"not null;index" json:"course_id"`
	LessonID     uint      `gorm:"not null;uniqueIndex:idx_videos_lesson_serial" json:"lesson_id"`
	SerialNumber int       `gorm:"not null;uniqueIndex:idx_videos_lesson_serial" json:"serial_number"`
	Title        string    `gorm:"type:varchar(200);not null" json:"title"`
	Thumbnail    string    `gorm:"type:varchar(512)" json:"thumbnail"`
	VideoFile    string    `gorm:"type:varchar(512)" json:"video_file"`
	TimeDuration int       `gorm:"not null;default:0" json:"time_duration"` // minutes

	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Lesson *Lesson `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
}
