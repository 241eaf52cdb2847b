package model

// Category groups courses in the catalog
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(200);uniqueIndex;not null" json:"name"`
	Icon string `gorm:"type:varchar(200)" json:"icon"`
}

type Level struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(200);uniqueIndex;not null" json:"name"`
}

type Language struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(200);uniqueIndex;not null" json:"name"`
}
