package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/services/events"
	"github.com/sahilchouksey/elms-api/utils/errorreport"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService settles gateway callbacks into enrollments and earnings
type PaymentService struct {
	db        *gorm.DB
	gateway   PaymentGateway
	publisher events.Publisher
}

// NewPaymentService creates a payment service; publisher may be nil
func NewPaymentService(db *gorm.DB, gateway PaymentGateway, publisher events.Publisher) *PaymentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PaymentService{db: db, gateway: gateway, publisher: publisher}
}

// VerifyRequest carries the three signed fields posted back by the checkout widget
type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" form:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature" form:"razorpay_signature"`
}

// Settlement is the outcome of a verified payment
type Settlement struct {
	Payment        model.Payment         `json:"payment"`
	Enrollment     model.Enrollment      `json:"enrollment"`
	TeacherEarning *model.TeacherEarning `json:"-"`
	AdminEarning   *model.AdminEarning   `json:"-"`
	// Replayed is true when the order had already been settled by an earlier callback
	Replayed bool `json:"replayed"`
}

// VerifyPayment checks the signature and then, in one transaction, marks the
// payment successful, creates the enrollment and both earnings. A replayed
// callback for a settled order returns the existing rows and writes nothing.
func (s *PaymentService) VerifyPayment(ctx context.Context, req VerifyRequest) (*Settlement, error) {
	if s.gateway == nil {
		return nil, ErrInvalidSignature
	}
	if err := s.gateway.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		log.Warnf("payment signature rejected for order %q", req.OrderID)
		return nil, ErrInvalidSignature
	}

	var result Settlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment model.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", req.OrderID).
			First(&payment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		if payment.Status == model.PaymentStatusSuccessful {
			result.Replayed = true
			result.Payment = payment
			return tx.Where("student_id = ? AND course_id = ?", payment.StudentID, payment.CourseID).
				First(&result.Enrollment).Error
		}

		txnID := req.PaymentID
		payment.TransactionID = &txnID
		payment.Status = model.PaymentStatusSuccessful
		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"transaction_id": txnID,
			"status":         model.PaymentStatusSuccessful,
		}).Error; err != nil {
			return err
		}

		if err := getOrCreateEnrollment(tx, payment.StudentID, payment.CourseID, payment.ID, &result.Enrollment); err != nil {
			return err
		}

		var course model.Course
		if err := tx.Select("id", "teacher_id").First(&course, payment.CourseID).Error; err != nil {
			return err
		}

		teacherAmount, adminAmount := SplitEarnings(payment.AmountPaid)
		teacherEarning := &model.TeacherEarning{
			TeacherID: course.TeacherID,
			CourseID:  payment.CourseID,
			PaymentID: payment.ID,
			Amount:    teacherAmount,
		}
		if err := tx.Create(teacherEarning).Error; err != nil {
			return fmt.Errorf("failed to record teacher earning: %w", err)
		}

		adminEarning := &model.AdminEarning{
			CourseID:         payment.CourseID,
			PaymentID:        payment.ID,
			CommissionAmount: adminAmount,
		}
		if err := tx.Create(adminEarning).Error; err != nil {
			return fmt.Errorf("failed to record admin earning: %w", err)
		}

		result.Payment = payment
		result.TeacherEarning = teacherEarning
		result.AdminEarning = adminEarning
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPaymentNotFound) {
			errorreport.Error(err, map[string]interface{}{"order_id": req.OrderID})
		}
		return nil, err
	}

	if !result.Replayed {
		log.Infof("payment %d settled: order %s, teacher %s, admin %s",
			result.Payment.ID, req.OrderID, result.TeacherEarning.Amount, result.AdminEarning.CommissionAmount)
		s.publishSettlement(ctx, &result)
	}
	return &result, nil
}

// publishSettlement is best effort; the transaction already committed
func (s *PaymentService) publishSettlement(ctx context.Context, r *Settlement) {
	key := "course:" + strconv.FormatUint(uint64(r.Payment.CourseID), 10)
	err := s.publisher.Publish(ctx,
		events.Event{
			Type: events.TypePaymentVerified,
			Key:  key,
			Payload: map[string]interface{}{
				"payment_id":        r.Payment.ID,
				"order_id":          r.Payment.OrderID,
				"course_id":         r.Payment.CourseID,
				"student_id":        r.Payment.StudentID,
				"amount_paid":       r.Payment.AmountPaid,
				"teacher_amount":    r.TeacherEarning.Amount,
				"commission_amount": r.AdminEarning.CommissionAmount,
			},
		},
		events.Event{
			Type: events.TypeEnrollmentCreated,
			Key:  key,
			Payload: map[string]interface{}{
				"enrollment_id": r.Enrollment.ID,
				"course_id":     r.Enrollment.CourseID,
				"student_id":    r.Enrollment.StudentID,
			},
		},
	)
	if err != nil {
		log.Warnf("failed to publish settlement events for payment %d: %v", r.Payment.ID, err)
	}
}

// PaymentFilter narrows the admin payment list
type PaymentFilter struct {
	Status string
	Page   int
	Limit  int
}

// ListPayments returns checkout attempts newest first for the admin view
func (s *PaymentService) ListPayments(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	q := s.db.WithContext(ctx).Model(&model.Payment{})
	switch model.PaymentStatus(filter.Status) {
	case model.PaymentStatusSuccessful, model.PaymentStatusFailed:
		q = q.Where("status = ?", filter.Status)
	case "":
	default:
		return nil, 0, validation.Errors{"status must be one of: successful failed"}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []model.Payment
	err := q.Preload("Course").Preload("Student.User").
		Order("id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&payments).Error
	return payments, total, err
}
