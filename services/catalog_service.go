package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/utils/cache"
	"gorm.io/gorm"
)

const (
	taxonomyCacheKey = "catalog:taxonomy"
	taxonomyCacheTTL = 10 * time.Minute
)

// CatalogService serves the public course catalog
type CatalogService struct {
	db    *gorm.DB
	cache cache.JSONCache
}

// NewCatalogService creates a catalog service; cache may be nil
func NewCatalogService(db *gorm.DB, c cache.JSONCache) *CatalogService {
	return &CatalogService{db: db, cache: c}
}

// Taxonomy is every category, level and language
type Taxonomy struct {
	Categories []model.Category `json:"categories"`
	Levels     []model.Level    `json:"levels"`
	Languages  []model.Language `json:"languages"`
}

// ListTaxonomy returns the taxonomy, served from redis when it is warm
func (s *CatalogService) ListTaxonomy(ctx context.Context) (*Taxonomy, error) {
	var t Taxonomy
	if s.cache != nil {
		if err := s.cache.GetJSON(ctx, taxonomyCacheKey, &t); err == nil {
			return &t, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			log.Warnf("taxonomy cache read failed: %v", err)
		}
	}

	db := s.db.WithContext(ctx)
	if err := db.Order("id").Find(&t.Categories).Error; err != nil {
		return nil, err
	}
	if err := db.Order("id").Find(&t.Levels).Error; err != nil {
		return nil, err
	}
	if err := db.Order("id").Find(&t.Languages).Error; err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, taxonomyCacheKey, t, taxonomyCacheTTL); err != nil {
			log.Warnf("taxonomy cache write failed: %v", err)
		}
	}
	return &t, nil
}

// InvalidateTaxonomy drops the cached taxonomy after the seeder or an admin changes it
func (s *CatalogService) InvalidateTaxonomy(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, taxonomyCacheKey); err != nil {
		log.Warnf("taxonomy cache invalidation failed: %v", err)
	}
}

// CourseFilter narrows ListCourses
type CourseFilter struct {
	CategoryID uint
	LevelID    uint
	LanguageID uint
	Search     string
	Page       int
	Limit      int
}

func (f *CourseFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

// ListCourses returns one page of courses, newest first, and the total count
func (s *CatalogService) ListCourses(ctx context.Context, filter CourseFilter) ([]model.Course, int64, error) {
	filter.normalize()

	q := s.db.WithContext(ctx).Model(&model.Course{})
	if filter.CategoryID > 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.LevelID > 0 {
		q = q.Where("level_id = ?", filter.LevelID)
	}
	if filter.LanguageID > 0 {
		q = q.Where("language_id = ?", filter.LanguageID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q = q.Where("title ILIKE ?", "%"+escapeLike(search)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	err := q.Preload("Teacher.User").Preload("Category").Preload("Level").Preload("Language").
		Order("id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&courses).Error
	if err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CourseDetail is a course with its curriculum
type CourseDetail struct {
	Course        model.Course `json:"course"`
	TotalDuration int          `json:"total_duration_minutes"`
	VideoCount    int          `json:"video_count"`
}

// GetCourseBySlug loads a course with teacher, lessons by id and videos by serial number
func (s *CatalogService) GetCourseBySlug(ctx context.Context, slug string) (*CourseDetail, error) {
	var course model.Course
	err := s.db.WithContext(ctx).
		Preload("Teacher.User").
		Preload("Category").
		Preload("Level").
		Preload("Language").
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Lessons.Videos", func(db *gorm.DB) *gorm.DB { return db.Order("serial_number") }).
		Where("slug = ?", slug).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	detail := &CourseDetail{Course: course}
	for _, lesson := range course.Lessons {
		for _, v := range lesson.Videos {
			detail.TotalDuration += v.TimeDuration
			detail.VideoCount++
		}
	}
	return detail, nil
}
