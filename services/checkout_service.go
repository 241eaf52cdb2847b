package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/services/razorpay"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/errorreport"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const checkoutCurrency = "INR"

// PaymentGateway is the part of the Razorpay client checkout and verification use
type PaymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
}

var _ PaymentGateway = (*razorpay.Client)(nil)

// CheckoutService starts enrollments: free ones complete immediately, paid ones
// open a gateway order that VerifyPayment settles later
type CheckoutService struct {
	db        *gorm.DB
	gateway   PaymentGateway
	validator *validation.Validator
	now       func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(db *gorm.DB, gateway PaymentGateway, v *validation.Validator) *CheckoutService {
	return &CheckoutService{db: db, gateway: gateway, validator: v, now: time.Now}
}

// BillingDetails is collected before a paid checkout
type BillingDetails struct {
	FirstName  string `json:"first_name" validate:"required,max=100,alphaspace"`
	LastName   string `json:"last_name" validate:"required,max=100,alphaspace"`
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city" validate:"required,max=100,alphaspace"`
	State      string `json:"state" validate:"required,max=100,alphaspace"`
	PostalCode string `json:"postal_code" validate:"required,postalcode"`
	Phone      string `json:"phone" validate:"required,phone"`
	Email      string `json:"email" validate:"omitempty,email"`
}

// CheckoutResult is either a finished free enrollment or an order for the client widget
type CheckoutResult struct {
	Free       bool               `json:"free"`
	Course     *model.Course      `json:"course"`
	Payment    *model.Payment     `json:"payment"`
	Enrollment *model.Enrollment  `json:"enrollment,omitempty"`
	Order      *CheckoutOrderInfo `json:"order,omitempty"`
}

// CheckoutOrderInfo is what the client-side checkout needs to complete payment
type CheckoutOrderInfo struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
	Name     string `json:"name"`
}

func studentFor(ctx context.Context, db *gorm.DB, p auth.Principal) (*model.StudentProfile, error) {
	if !p.IsStudent() {
		return nil, ErrForbidden
	}

	var student model.StudentProfile
	if err := db.WithContext(ctx).Where("user_id = ?", p.UserID).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return &student, nil
}

func isEnrolled(db *gorm.DB, studentID, courseID uint) (bool, error) {
	var count int64
	err := db.Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

// Checkout enrolls the caller in a free course or opens a gateway order for a paid one
func (s *CheckoutService) Checkout(ctx context.Context, p auth.Principal, slug string, billing *BillingDetails) (*CheckoutResult, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	student, err := studentFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	enrolled, err := isEnrolled(s.db.WithContext(ctx), student.ID, course.ID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	amount := OrderAmount(course.Price, course.Discount)
	if course.IsFree() || amount.IsZero() {
		return s.enrollFree(ctx, student, &course)
	}
	return s.openOrder(ctx, student, &course, amount, billing)
}

// enrollFree is get-or-create on both rows. The partial unique index on free
// payments and the enrollment index make concurrent calls converge on one pair.
func (s *CheckoutService) enrollFree(ctx context.Context, student *model.StudentProfile, course *model.Course) (*CheckoutResult, error) {
	var payment model.Payment
	var enrollment model.Enrollment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := model.FreeCourseTransactionID
		candidate := model.Payment{
			StudentID:     student.ID,
			CourseID:      course.ID,
			AmountPaid:    decimal.Zero,
			Currency:      checkoutCurrency,
			Status:        model.PaymentStatusSuccessful,
			TransactionID: &marker,
		}
		// The predicate is inlined so postgres can match the partial index at plan time
		freeOnly := clause.Expr{SQL: "transaction_id = '" + model.FreeCourseTransactionID + "'"}
		err := tx.Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{freeOnly}},
			DoNothing:   true,
		}).Create(&candidate).Error
		if err != nil {
			return err
		}

		err = tx.Where("student_id = ? AND course_id = ? AND transaction_id = ?", student.ID, course.ID, marker).
			First(&payment).Error
		if err != nil {
			return err
		}

		return getOrCreateEnrollment(tx, student.ID, course.ID, payment.ID, &enrollment)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("student %d enrolled in free course %d", student.ID, course.ID)
	return &CheckoutResult{Free: true, Course: course, Payment: &payment, Enrollment: &enrollment}, nil
}

// getOrCreateEnrollment inserts the (student, course) enrollment unless one exists and loads it
func getOrCreateEnrollment(tx *gorm.DB, studentID, courseID, paymentID uint, out *model.Enrollment) error {
	candidate := model.Enrollment{StudentID: studentID, CourseID: courseID, PaymentID: paymentID}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&candidate).Error
	if err != nil {
		return err
	}
	return tx.Where("student_id = ? AND course_id = ?", studentID, courseID).First(out).Error
}

func (s *CheckoutService) openOrder(ctx context.Context, student *model.StudentProfile, course *model.Course, amount decimal.Decimal, billing *BillingDetails) (*CheckoutResult, error) {
	if billing == nil {
		return nil, validation.Errors{"billing details are required"}
	}
	billing.FirstName = strings.TrimSpace(billing.FirstName)
	billing.LastName = strings.TrimSpace(billing.LastName)
	if err := s.validator.ValidateStruct(billing); err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("payment gateway is not configured: %w", ErrGateway)
	}

	name := billing.FirstName + " " + billing.LastName
	order, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:         ToMinorUnits(amount),
		Currency:       checkoutCurrency,
		Receipt:        fmt.Sprintf("ELMS-%d", s.now().Unix()),
		Notes:          map[string]string{"name": name},
		PaymentCapture: 1,
	})
	if err != nil {
		errorreport.Error(err, map[string]interface{}{"course_id": course.ID, "student_id": student.ID})
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	snapshot, err := json.Marshal(billing)
	if err != nil {
		return nil, err
	}

	orderID := order.ID
	payment := &model.Payment{
		StudentID:  student.ID,
		CourseID:   course.ID,
		AmountPaid: amount,
		Currency:   checkoutCurrency,
		Status:     model.PaymentStatusFailed,
		OrderID:    &orderID,
		Receipt:    order.Receipt,
		Billing:    datatypes.JSON(snapshot),
	}
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}

	log.Infof("order %s opened for student %d course %d amount %s", orderID, student.ID, course.ID, amount)
	return &CheckoutResult{
		Course:  course,
		Payment: payment,
		Order: &CheckoutOrderInfo{
			OrderID:  orderID,
			Amount:   ToMinorUnits(amount),
			Currency: checkoutCurrency,
			KeyID:    s.gateway.KeyID(),
			Name:     name,
		},
	}, nil
}

// MyCourses lists the courses the caller is enrolled in, most recent first
func (s *CheckoutService) MyCourses(ctx context.Context, p auth.Principal) ([]model.Enrollment, error) {
	student, err := studentFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	var enrollments []model.Enrollment
	err = s.db.WithContext(ctx).
		Preload("Course.Teacher.User").
		Where("student_id = ?", student.ID).
		Order("enrolled_on DESC").
		Find(&enrollments).Error
	return enrollments, err
}

// WatchResult is the course curriculum plus the video being played
type WatchResult struct {
	Course  *model.Course `json:"course"`
	Current *model.Video  `json:"current"`
}

// WatchCourse requires an enrollment. lectureID 0 selects the lowest serial number.
func (s *CheckoutService) WatchCourse(ctx context.Context, p auth.Principal, slug string, lectureID uint) (*WatchResult, error) {
	student, err := studentFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	var course model.Course
	err = s.db.WithContext(ctx).
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

	enrolled, err := isEnrolled(s.db.WithContext(ctx), student.ID, course.ID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	current, err := pickVideo(&course, lectureID)
	if err != nil {
		return nil, err
	}
	return &WatchResult{Course: &course, Current: current}, nil
}

// pickVideo finds lectureID inside the course, or the lowest serial number when it is 0
func pickVideo(course *model.Course, lectureID uint) (*model.Video, error) {
	var first *model.Video
	for i := range course.Lessons {
		for j := range course.Lessons[i].Videos {
			v := &course.Lessons[i].Videos[j]
			if lectureID != 0 && v.ID == lectureID {
				return v, nil
			}
			if first == nil || v.SerialNumber < first.SerialNumber {
				first = v
			}
		}
	}

	if lectureID != 0 {
		return nil, ErrVideoNotFound
	}
	return first, nil
}
