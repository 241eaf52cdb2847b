package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/services/events"
	"github.com/sahilchouksey/elms-api/services/objectstore"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/pdfvalidation"
	"github.com/sahilchouksey/elms-api/utils/uploads"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// generated teacher credentials are this long
const credentialLength = 12

// ApplicationService runs the teacher application workflow
type ApplicationService struct {
	db        *gorm.DB
	store     objectstore.Store
	notifier  Notifier
	publisher events.Publisher
	validator *validation.Validator
	appName   string
	appURL    string
	now       func() time.Time
}

// ApplicationServiceConfig bundles the collaborators of ApplicationService
type ApplicationServiceConfig struct {
	DB        *gorm.DB
	Store     objectstore.Store
	Notifier  Notifier
	Publisher events.Publisher
	Validator *validation.Validator
	AppName   string
	AppURL    string
}

// NewApplicationService creates an application service. A nil notifier logs instead of mailing.
func NewApplicationService(cfg ApplicationServiceConfig) *ApplicationService {
	s := &ApplicationService{
		db:        cfg.DB,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		publisher: cfg.Publisher,
		validator: cfg.Validator,
		appName:   cfg.AppName,
		appURL:    strings.TrimRight(cfg.AppURL, "/"),
		now:       time.Now,
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	return s
}

// ApplicationRequest is the public application form
type ApplicationRequest struct {
	Username      string `json:"username" form:"username" validate:"required,max=100,alnumspace"`
	FirstName     string `json:"first_name" form:"first_name" validate:"required,max=100,alphaspace"`
	LastName      string `json:"last_name" form:"last_name" validate:"required,max=100,alphaspace"`
	Email         string `json:"email" form:"email" validate:"required,email,max=254"`
	ContactNo     string `json:"contact_no" form:"contact_no" validate:"required,phone"`
	Qualification string `json:"qualification" form:"qualification" validate:"required,max=500"`
	Experience    int    `json:"experience" form:"experience" validate:"gte=0,lte=99"`
}

func (r *ApplicationRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.ContactNo = strings.TrimSpace(r.ContactNo)
	r.Qualification = validation.SanitizeString(r.Qualification)
}

// Submit validates the form and resume, stores the application and uploads the resume
func (s *ApplicationService) Submit(ctx context.Context, req ApplicationRequest, resume *multipart.FileHeader) (*model.TeacherApplication, error) {
	req.normalize()
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if resume == nil {
		return nil, validation.Errors{"resume is required"}
	}

	check, err := pdfvalidation.ValidatePDFFile(resume, pdfvalidation.ResumeLimits)
	if err != nil {
		return nil, err
	}
	if !check.Valid {
		return nil, validation.Errors{check.Error}
	}
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	if err := s.checkApplicant(ctx, req); err != nil {
		return nil, err
	}

	app := &model.TeacherApplication{
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		ContactNo:     req.ContactNo,
		Qualification: req.Qualification,
		Experience:    req.Experience,
		Status:        model.ApplicationStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: an application already exists for this email", ErrConflict)
		}
		return nil, err
	}

	// The key embeds the row id, so the upload happens after the insert
	key := uploads.ResumeKey(int64(app.ID), Slugify(req.FirstName+"_"+req.LastName), resume.Filename)
	url, err := s.store.Upload(ctx, key, bytes.NewReader(check.Content), uploads.ContentType("pdf"))
	if err != nil {
		if delErr := s.db.WithContext(ctx).Delete(&model.TeacherApplication{}, app.ID).Error; delErr != nil {
			log.Errorf("failed to remove application %d after resume upload failure: %v", app.ID, delErr)
		}
		return nil, fmt.Errorf("failed to store resume: %w", err)
	}

	app.Resume = url
	if err := s.db.WithContext(ctx).Model(app).Update("resume", url).Error; err != nil {
		return nil, err
	}

	log.Infof("teacher application %d submitted by %s", app.ID, app.Username)
	return app, nil
}

func (s *ApplicationService) checkApplicant(ctx context.Context, req ApplicationRequest) error {
	db := s.db.WithContext(ctx)
	var count int64

	err := db.Model(&model.User{}).Where("email = ? AND role = ?", req.Email, model.RoleTeacher).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: a teacher with this email already exists", ErrConflict)
	}

	if err := db.Model(&model.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}

	err = db.Model(&model.TeacherApplication{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: an application already exists for this username or email", ErrConflict)
	}
	return nil
}

// applicationTransition reports whether moving from -> to changes anything.
// Repeating a terminal decision is a no-op; leaving a terminal state is invalid.
func applicationTransition(from, to model.ApplicationStatus) (bool, error) {
	switch {
	case to == model.ApplicationStatusPending:
		return false, ErrInvalidTransition
	case from == to:
		return false, nil
	case from == model.ApplicationStatusPending:
		return true, nil
	default:
		return false, fmt.Errorf("%w: application is already %s", ErrInvalidTransition, from)
	}
}

// ReviewResult is the outcome of an accept or reject
type ReviewResult struct {
	Application model.TeacherApplication `json:"application"`
	User        *model.User              `json:"user,omitempty"`
	// Changed is false when the same decision had already been recorded
	Changed     bool `json:"changed"`
	UserCreated bool `json:"user_created"`
}

func (s *ApplicationService) lockApplication(tx *gorm.DB, id uint) (*model.TeacherApplication, error) {
	var app model.TeacherApplication
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

// Accept turns a pending application into a teacher account. When a new user is
// created the credential mail is sent before commit; a send failure rolls back.
func (s *ApplicationService) Accept(ctx context.Context, id uint) (*ReviewResult, error) {
	result := &ReviewResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.lockApplication(tx, id)
		if err != nil {
			return err
		}

		changed, err := applicationTransition(app.Status, model.ApplicationStatusAccepted)
		if err != nil {
			return err
		}
		if !changed {
			result.Application = *app
			return nil
		}

		user, credential, err := s.ensureTeacher(tx, app)
		if err != nil {
			return err
		}

		reviewed := s.now()
		if err := tx.Model(app).Updates(map[string]interface{}{
			"status":      model.ApplicationStatusAccepted,
			"reviewed_at": reviewed,
		}).Error; err != nil {
			return err
		}
		app.Status = model.ApplicationStatusAccepted
		app.ReviewedAt = &reviewed

		if credential != "" {
			msg := acceptanceMessage(s.appName, s.appURL, user.Email, user.FullName(), user.Username, credential)
			if err := s.notifier.Send(ctx, msg); err != nil {
				return fmt.Errorf("failed to send acceptance email: %w", err)
			}
		}

		result.Application = *app
		result.User = user
		result.Changed = true
		result.UserCreated = credential != ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		log.Infof("teacher application %d accepted (user created: %t)", id, result.UserCreated)
		s.publishReview(ctx, events.TypeApplicationAccepted, result)
	}
	return result, nil
}

// ensureTeacher returns the teacher account for the application, creating the
// user and/or the teacher profile as needed. credential is non-empty only when
// the user was created here.
func (s *ApplicationService) ensureTeacher(tx *gorm.DB, app *model.TeacherApplication) (*model.User, string, error) {
	attrs := ProfileAttrs{
		ContactNo:     app.ContactNo,
		Email:         app.Email,
		Qualification: app.Qualification,
		Experience:    app.Experience,
	}

	var user model.User
	err := tx.Preload("TeacherProfile").Where("username = ?", app.Username).First(&user).Error
	switch {
	case err == nil:
		if user.Role != model.RoleTeacher {
			return nil, "", fmt.Errorf("%w: username belongs to a %s account", ErrUsernameTaken, user.Role)
		}
		if user.TeacherProfile == nil {
			if err := CreateProfileForRole(tx, &user, attrs); err != nil {
				return nil, "", err
			}
		}
		return &user, "", nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, "", err
	}

	credential, err := auth.GenerateCredential(credentialLength)
	if err != nil {
		return nil, "", err
	}
	hash, err := auth.HashPassword(credential)
	if err != nil {
		return nil, "", err
	}

	user = model.User{
		Username:     app.Username,
		Email:        app.Email,
		FirstName:    app.FirstName,
		LastName:     app.LastName,
		PasswordHash: hash,
		Role:         model.RoleTeacher,
		IsActive:     true,
	}
	if err := tx.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	if err := CreateProfileForRole(tx, &user, attrs); err != nil {
		return nil, "", err
	}
	return &user, credential, nil
}

// Reject declines a pending application. The notice is best effort.
func (s *ApplicationService) Reject(ctx context.Context, id uint) (*ReviewResult, error) {
	result := &ReviewResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.lockApplication(tx, id)
		if err != nil {
			return err
		}

		changed, err := applicationTransition(app.Status, model.ApplicationStatusRejected)
		if err != nil {
			return err
		}
		if changed {
			reviewed := s.now()
			if err := tx.Model(app).Updates(map[string]interface{}{
				"status":      model.ApplicationStatusRejected,
				"reviewed_at": reviewed,
			}).Error; err != nil {
				return err
			}
			app.Status = model.ApplicationStatusRejected
			app.ReviewedAt = &reviewed
		}

		result.Application = *app
		result.Changed = changed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		app := result.Application
		msg := rejectionMessage(s.appName, app.Email, app.FirstName+" "+app.LastName)
		if err := s.notifier.Send(ctx, msg); err != nil {
			log.Warnf("failed to send rejection email for application %d: %v", id, err)
		}
		log.Infof("teacher application %d rejected", id)
		s.publishReview(ctx, events.TypeApplicationRejected, result)
	}
	return result, nil
}

func (s *ApplicationService) publishReview(ctx context.Context, eventType string, r *ReviewResult) {
	payload := map[string]interface{}{
		"application_id": r.Application.ID,
		"username":       r.Application.Username,
		"status":         r.Application.Status,
	}
	if r.User != nil {
		payload["user_id"] = r.User.ID
	}

	err := s.publisher.Publish(ctx, events.Event{
		Type:    eventType,
		Key:     "application:" + strconv.FormatUint(uint64(r.Application.ID), 10),
		Payload: payload,
	})
	if err != nil {
		log.Warnf("failed to publish %s for application %d: %v", eventType, r.Application.ID, err)
	}
}

// ApplicationList groups applications by status, newest first within each group
type ApplicationList struct {
	Pending  []model.TeacherApplication `json:"pending"`
	Accepted []model.TeacherApplication `json:"accepted"`
	Rejected []model.TeacherApplication `json:"rejected"`
}

// List returns the applications for the admin view; status narrows it to one group
func (s *ApplicationService) List(ctx context.Context, status string) (*ApplicationList, error) {
	switch model.ApplicationStatus(status) {
	case "", model.ApplicationStatusPending, model.ApplicationStatusAccepted, model.ApplicationStatusRejected:
	default:
		return nil, validation.Errors{"status must be one of: pending accepted rejected"}
	}

	q := s.db.WithContext(ctx).Model(&model.TeacherApplication{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var apps []model.TeacherApplication
	if err := q.Order("applied_on DESC").Order("id DESC").Find(&apps).Error; err != nil {
		return nil, err
	}

	list := &ApplicationList{
		Pending:  []model.TeacherApplication{},
		Accepted: []model.TeacherApplication{},
		Rejected: []model.TeacherApplication{},
	}
	for _, a := range apps {
		switch a.Status {
		case model.ApplicationStatusPending:
			list.Pending = append(list.Pending, a)
		case model.ApplicationStatusAccepted:
			list.Accepted = append(list.Accepted, a)
		case model.ApplicationStatusRejected:
			list.Rejected = append(list.Rejected, a)
		}
	}
	return list, nil
}
