package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/services/objectstore"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/uploads"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const slugInsertAttempts = 3

// CourseService is the teacher side of the catalog: courses, lessons and videos
type CourseService struct {
	db        *gorm.DB
	store     objectstore.Store
	validator *validation.Validator
}

// NewCourseService creates a course service; store may be nil when uploads are disabled
func NewCourseService(db *gorm.DB, store objectstore.Store, v *validation.Validator) *CourseService {
	return &CourseService{db: db, store: store, validator: v}
}

// CourseRequest is the create and update form for a course
type CourseRequest struct {
	Title       string `json:"title" form:"title" validate:"required,max=255,title"`
	Description string `json:"description" form:"description" validate:"required,min=20"`
	CategoryID  uint   `json:"category_id" form:"category_id" validate:"required"`
	LevelID     uint   `json:"level_id" form:"level_id" validate:"required"`
	LanguageID  uint   `json:"language_id" form:"language_id" validate:"required"`
	Price       string `json:"price" form:"price" validate:"required,money"`
	Discount    int    `json:"discount" form:"discount" validate:"gte=0,lte=99"`
}

// teacherFor resolves the caller's teacher profile
func teacherFor(ctx context.Context, db *gorm.DB, p auth.Principal) (*model.TeacherProfile, error) {
	if !p.IsTeacher() {
		return nil, ErrForbidden
	}

	var teacher model.TeacherProfile
	if err := db.WithContext(ctx).Preload("User").Where("user_id = ?", p.UserID).First(&teacher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return &teacher, nil
}

func (s *CourseService) validateCourse(ctx context.Context, req CourseRequest) (decimal.Decimal, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.ValidateStruct(req); err != nil {
		return decimal.Zero, err
	}

	var errs validation.Errors
	db := s.db.WithContext(ctx)
	for _, ref := range []struct {
		field string
		model interface{}
		id    uint
	}{
		{"category_id", &model.Category{}, req.CategoryID},
		{"level_id", &model.Level{}, req.LevelID},
		{"language_id", &model.Language{}, req.LanguageID},
	} {
		var count int64
		if err := db.Model(ref.model).Where("id = ?", ref.id).Count(&count).Error; err != nil {
			return decimal.Zero, err
		}
		if count == 0 {
			errs = errs.Add("%s does not exist", ref.field)
		}
	}
	if err := errs.OrNil(); err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromString(req.Price)
}

// CreateCourse creates a course owned by the caller with a unique slug derived from the title
func (s *CourseService) CreateCourse(ctx context.Context, p auth.Principal, req CourseRequest, image *multipart.FileHeader) (*model.Course, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	price, err := s.validateCourse(ctx, req)
	if err != nil {
		return nil, err
	}

	var imageExt string
	if image != nil {
		if s.store == nil {
			return nil, ErrStorageDisabled
		}
		if imageExt, err = uploads.CourseImage.CheckHeader(image); err != nil {
			return nil, validation.Errors{err.Error()}
		}
	}

	levelID, languageID := req.LevelID, req.LanguageID
	course := &model.Course{
		TeacherID:   teacher.ID,
		CategoryID:  req.CategoryID,
		LevelID:     &levelID,
		LanguageID:  &languageID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Price:       price,
		Discount:    req.Discount,
	}

	if err := s.insertWithUniqueSlug(ctx, course); err != nil {
		return nil, err
	}

	if image != nil {
		key := uploads.CourseImageKey(Slugify(teacher.User.Username), course.Slug, imageExt)
		url, err := s.upload(ctx, key, image, imageExt)
		if err != nil {
			// Without the image the course row would be half created
			if delErr := s.db.WithContext(ctx).Delete(&model.Course{}, course.ID).Error; delErr != nil {
				log.Errorf("failed to remove course %d after image upload failure: %v", course.ID, delErr)
			}
			return nil, err
		}
		course.Image = url
		if err := s.db.WithContext(ctx).Model(course).Update("image", url).Error; err != nil {
			return nil, err
		}
	}

	log.Infof("teacher %d created course %d (%s)", teacher.ID, course.ID, course.Slug)
	return course, nil
}

// insertWithUniqueSlug derives the slug and inserts. The unique index is the
// final word: a concurrent insert that took the slug first makes us derive again.
func (s *CourseService) insertWithUniqueSlug(ctx context.Context, course *model.Course) error {
	db := s.db.WithContext(ctx)
	lookup := func(ctx context.Context, slug string) (uint, bool, error) {
		var existing model.Course
		err := db.Select("id").Where("slug = ?", slug).Order("id DESC").Limit(1).Find(&existing).Error
		if err != nil {
			return 0, false, err
		}
		return existing.ID, existing.ID != 0, nil
	}

	for attempt := 0; attempt < slugInsertAttempts; attempt++ {
		slug, err := UniqueSlug(ctx, course.Title, lookup)
		if err != nil {
			return err
		}
		course.Slug = slug

		err = db.Create(course).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		course.ID = 0
	}
	return fmt.Errorf("slug for %q kept colliding: %w", course.Title, ErrConflict)
}

func (s *CourseService) upload(ctx context.Context, key string, fh *multipart.FileHeader, ext string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	return s.store.Upload(ctx, key, f, uploads.ContentType(ext))
}

func (s *CourseService) ownedCourse(ctx context.Context, teacherID, courseID uint) (*model.Course, error) {
	var course model.Course
	err := s.db.WithContext(ctx).Where("id = ? AND teacher_id = ?", courseID, teacherID).First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

// UpdateCourse edits a course owned by the caller. The slug is kept.
func (s *CourseService) UpdateCourse(ctx context.Context, p auth.Principal, courseID uint, req CourseRequest) (*model.Course, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}
	course, err := s.ownedCourse(ctx, teacher.ID, courseID)
	if err != nil {
		return nil, err
	}

	price, err := s.validateCourse(ctx, req)
	if err != nil {
		return nil, err
	}

	levelID, languageID := req.LevelID, req.LanguageID
	course.Title = strings.TrimSpace(req.Title)
	course.Description = req.Description
	course.CategoryID = req.CategoryID
	course.LevelID = &levelID
	course.LanguageID = &languageID
	course.Price = price
	course.Discount = req.Discount

	if err := s.db.WithContext(ctx).Save(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// SetCourseImage replaces the course image
func (s *CourseService) SetCourseImage(ctx context.Context, p auth.Principal, courseID uint, image *multipart.FileHeader) (*model.Course, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}
	course, err := s.ownedCourse(ctx, teacher.ID, courseID)
	if err != nil {
		return nil, err
	}

	ext, err := uploads.CourseImage.CheckHeader(image)
	if err != nil {
		return nil, validation.Errors{err.Error()}
	}

	url, err := s.upload(ctx, uploads.CourseImageKey(Slugify(teacher.User.Username), course.Slug, ext), image, ext)
	if err != nil {
		return nil, err
	}

	course.Image = url
	if err := s.db.WithContext(ctx).Model(course).Update("image", url).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// ListTeacherCourses lists the caller's courses, newest first
func (s *CourseService) ListTeacherCourses(ctx context.Context, p auth.Principal) ([]model.Course, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	var courses []model.Course
	err = s.db.WithContext(ctx).
		Preload("Category").Preload("Level").Preload("Language").
		Where("teacher_id = ?", teacher.ID).
		Order("id DESC").
		Find(&courses).Error
	return courses, err
}

// LessonRequest creates a lesson inside a course
type LessonRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Name     string `json:"name" validate:"required,max=200,alphaspace"`
}

// CreateLesson adds a lesson to a course owned by the caller
func (s *CourseService) CreateLesson(ctx context.Context, p auth.Principal, req LessonRequest) (*model.Lesson, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, teacher.ID, req.CourseID); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{CourseID: req.CourseID, TeacherID: teacher.ID, Name: req.Name}
	if err := s.db.WithContext(ctx).Create(lesson).Error; err != nil {
		return nil, err
	}
	return lesson, nil
}

// ListLessons returns the lessons of one of the caller's courses, by creation order
func (s *CourseService) ListLessons(ctx context.Context, p auth.Principal, courseID uint) ([]model.Lesson, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, teacher.ID, courseID); err != nil {
		return nil, err
	}

	var lessons []model.Lesson
	err = s.db.WithContext(ctx).Where("course_id = ?", courseID).Order("id").Find(&lessons).Error
	return lessons, err
}

func (s *CourseService) ownedLesson(ctx context.Context, teacherID, lessonID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := s.db.WithContext(ctx).
		Preload("Course").
		Joins("JOIN courses ON courses.id = lessons.course_id").
		Where("lessons.id = ? AND courses.teacher_id = ?", lessonID, teacherID).
		First(&lesson).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	return &lesson, nil
}

// NextSerialNumber is max(serial_number)+1 for the lesson, or 1 when it has no videos
func (s *CourseService) NextSerialNumber(ctx context.Context, p auth.Principal, lessonID uint) (int, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return 0, err
	}
	if _, err := s.ownedLesson(ctx, teacher.ID, lessonID); err != nil {
		return 0, err
	}
	return nextSerial(s.db.WithContext(ctx), lessonID)
}

func nextSerial(db *gorm.DB, lessonID uint) (int, error) {
	var max int
	err := db.Model(&model.Video{}).
		Where("lesson_id = ?", lessonID).
		Select("COALESCE(MAX(serial_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// VideoRequest is the metadata part of the video upload form
type VideoRequest struct {
	LessonID     uint   `form:"lesson_id" validate:"required"`
	Title        string `form:"title" validate:"required,max=200,title"`
	SerialNumber int    `form:"serial_number" validate:"required,gte=1"`
	TimeDuration int    `form:"time_duration" validate:"required,gte=1"`
}

// AddVideo uploads a lecture and its thumbnail into a lesson owned by the caller
func (s *CourseService) AddVideo(ctx context.Context, p auth.Principal, req VideoRequest, thumbnail, file *multipart.FileHeader) (*model.Video, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	lesson, err := s.ownedLesson(ctx, teacher.ID, req.LessonID)
	if err != nil {
		return nil, err
	}

	var errs validation.Errors
	var videoExt, thumbExt string
	if file == nil {
		errs = errs.Add("video_file is required")
	} else if videoExt, err = uploads.Video.CheckHeader(file); err != nil {
		errs = append(errs, err.Error())
	}
	if thumbnail != nil {
		if thumbExt, err = uploads.Thumbnail.CheckHeader(thumbnail); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	var taken int64
	if err := s.db.WithContext(ctx).Model(&model.Video{}).
		Where("lesson_id = ? AND serial_number = ?", lesson.ID, req.SerialNumber).
		Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrSerialTaken
	}

	teacherSlug := Slugify(teacher.User.Username)
	courseSlug := lesson.Course.Slug
	lessonSlug := Slugify(lesson.Name)
	titleSlug := Slugify(req.Title)

	video := &model.Video{
		CourseID:     lesson.CourseID,
		LessonID:     lesson.ID,
		SerialNumber: req.SerialNumber,
		Title:        req.Title,
		TimeDuration: req.TimeDuration,
	}

	var uploaded []string
	cleanup := func() {
		for _, key := range uploaded {
			if err := s.store.Delete(context.Background(), key); err != nil {
				log.Warnf("failed to remove orphaned upload %s: %v", key, err)
			}
		}
	}

	videoKey := uploads.VideoKey(teacherSlug, courseSlug, lessonSlug, req.SerialNumber, titleSlug, videoExt)
	if video.VideoFile, err = s.upload(ctx, videoKey, file, videoExt); err != nil {
		return nil, err
	}
	uploaded = append(uploaded, videoKey)

	if thumbnail != nil {
		thumbKey := uploads.ThumbnailKey(courseSlug, lessonSlug, req.SerialNumber, titleSlug, thumbExt)
		if video.Thumbnail, err = s.upload(ctx, thumbKey, thumbnail, thumbExt); err != nil {
			cleanup()
			return nil, err
		}
		uploaded = append(uploaded, thumbKey)
	}

	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		// On a serial collision the keys may belong to the row that won the race
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSerialTaken
		}
		cleanup()
		return nil, err
	}

	return video, nil
}
