package services

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/database"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/services/events"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EarningsService covers payouts, earnings listings and the dashboards
type EarningsService struct {
	db        *gorm.DB
	reports   *database.ReportStore
	publisher events.Publisher
	now       func() time.Time
}

// NewEarningsService creates an earnings service; publisher may be nil
func NewEarningsService(db *gorm.DB, reports *database.ReportStore, publisher events.Publisher) *EarningsService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &EarningsService{db: db, reports: reports, publisher: publisher, now: time.Now}
}

// Payout is the result of settling a course's unpaid teacher earnings
type Payout struct {
	CourseID uint            `json:"course_id"`
	Rows     int64           `json:"earnings_paid"`
	Amount   decimal.Decimal `json:"amount"`
}

// PayCourseEarnings marks every unpaid teacher earning of the course as paid.
// It returns ErrNothingToPay and writes nothing when none are unpaid.
func (s *EarningsService) PayCourseEarnings(ctx context.Context, courseID uint) (*Payout, error) {
	payout := &Payout{CourseID: courseID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sum struct{ Total decimal.Decimal }
		err := tx.Model(&model.TeacherEarning{}).
			Select("COALESCE(SUM(amount), 0) AS total").
			Where("course_id = ? AND is_paid = ?", courseID, false).
			Scan(&sum).Error
		if err != nil {
			return err
		}

		res := tx.Model(&model.TeacherEarning{}).
			Where("course_id = ? AND is_paid = ?", courseID, false).
			Update("is_paid", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNothingToPay
		}

		payout.Rows = res.RowsAffected
		payout.Amount = sum.Total
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("paid %d teacher earnings for course %d (%s)", payout.Rows, courseID, payout.Amount)

	err = s.publisher.Publish(ctx, events.Event{
		Type: events.TypeEarningsPaid,
		Key:  "course:" + strconv.FormatUint(uint64(courseID), 10),
		Payload: map[string]interface{}{
			"course_id": courseID,
			"earnings":  payout.Rows,
			"amount":    payout.Amount,
		},
	})
	if err != nil {
		log.Warnf("failed to publish payout event for course %d: %v", courseID, err)
	}
	return payout, nil
}

// Earnings filters for the teacher and admin listings
const (
	EarningsFilterAll      = "all"
	EarningsFilterReceived = "received"
	EarningsFilterPending  = "pending"
	EarningsFilterPaid     = "paid"
	EarningsFilterUnpaid   = "unpaid"
)

// TeacherEarningsView is the teacher's own earnings list with running totals
type TeacherEarningsView struct {
	Filter   string                 `json:"filter"`
	Earnings []model.TeacherEarning `json:"earnings"`
	Received decimal.Decimal        `json:"received"`
	Pending  decimal.Decimal        `json:"pending"`
	Total    decimal.Decimal        `json:"total"`
}

// TeacherEarnings lists the caller's earnings. The sums always cover every
// earning of the teacher regardless of filter.
func (s *EarningsService) TeacherEarnings(ctx context.Context, p auth.Principal, filter string) (*TeacherEarningsView, error) {
	if filter == "" {
		filter = EarningsFilterAll
	}

	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Preload("Course").Where("teacher_id = ?", teacher.ID)
	switch filter {
	case EarningsFilterAll:
	case EarningsFilterReceived:
		q = q.Where("is_paid = ?", true)
	case EarningsFilterPending:
		q = q.Where("is_paid = ?", false)
	default:
		return nil, validation.Errors{"filter must be one of: all received pending"}
	}

	view := &TeacherEarningsView{Filter: filter, Earnings: []model.TeacherEarning{}}
	if err := q.Order("created_at DESC").Find(&view.Earnings).Error; err != nil {
		return nil, err
	}

	var sums struct {
		Received decimal.Decimal
		Pending  decimal.Decimal
	}
	err = s.db.WithContext(ctx).Model(&model.TeacherEarning{}).
		Select(`COALESCE(SUM(amount) FILTER (WHERE is_paid), 0) AS received,
			COALESCE(SUM(amount) FILTER (WHERE NOT is_paid), 0) AS pending`).
		Where("teacher_id = ?", teacher.ID).
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}

	view.Received = sums.Received
	view.Pending = sums.Pending
	view.Total = sums.Received.Add(sums.Pending)
	return view, nil
}

// TeacherEarningsSummary groups all teacher earnings by course and teacher for the admin
func (s *EarningsService) TeacherEarningsSummary(ctx context.Context, filter string) ([]database.TeacherEarningSummary, error) {
	var paid *bool
	switch filter {
	case "", EarningsFilterAll:
	case EarningsFilterPaid:
		v := true
		paid = &v
	case EarningsFilterUnpaid:
		v := false
		paid = &v
	default:
		return nil, validation.Errors{"filter must be one of: all paid unpaid"}
	}
	return s.reports.TeacherEarningsSummary(ctx, paid)
}

// EarningsReport is the admin commission report for a date range
type EarningsReport struct {
	Start           *string                    `json:"start_date,omitempty"`
	End             *string                    `json:"end_date,omitempty"`
	TotalCommission decimal.Decimal            `json:"total_commission"`
	Payments        int64                      `json:"payments"`
	Days            []database.DailyCommission `json:"days"`
}

// AdminEarningsReport sums commission per day. start and end are YYYY-MM-DD,
// either may be empty, and end is inclusive.
func (s *EarningsService) AdminEarningsReport(ctx context.Context, start, end string) (*EarningsReport, error) {
	report := &EarningsReport{}
	var errs validation.Errors

	from, err := parseDay(start)
	if err != nil {
		errs = errs.Add("start_date must be a date in YYYY-MM-DD format")
	} else if from != nil {
		report.Start = &start
	}

	to, err := parseDay(end)
	if err != nil {
		errs = errs.Add("end_date must be a date in YYYY-MM-DD format")
	} else if to != nil {
		report.End = &end
		next := to.AddDate(0, 0, 1)
		to = &next
	}

	if len(errs) == 0 && from != nil && to != nil && !from.Before(*to) {
		errs = errs.Add("start_date must not be after end_date")
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	days, err := s.reports.CommissionByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report.Days = days
	report.TotalCommission = decimal.Zero
	for _, d := range days {
		report.TotalCommission = report.TotalCommission.Add(d.Total)
		report.Payments += d.Payments
	}
	return report, nil
}

func parseDay(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(validation.DateLayout, v, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TeacherDashboard returns the counters for the caller's dashboard
func (s *EarningsService) TeacherDashboard(ctx context.Context, p auth.Principal) (*database.TeacherStats, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}
	return s.reports.TeacherStats(ctx, teacher.ID)
}

// AdminDashboard returns the platform-wide counters
func (s *EarningsService) AdminDashboard(ctx context.Context) (*database.AdminStats, error) {
	return s.reports.AdminStats(ctx)
}

// EnrolledStudent is one row of the teacher's student list
type EnrolledStudent struct {
	StudentID   uint      `json:"student_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	CourseID    uint      `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	Age         *int      `json:"age"`
	EnrolledOn  time.Time `json:"enrolled_on"`
}

// EnrolledStudents lists students enrolled in the caller's courses. courseID 0
// means every course; another teacher's course yields ErrCourseNotFound.
func (s *EarningsService) EnrolledStudents(ctx context.Context, p auth.Principal, courseID uint) ([]EnrolledStudent, error) {
	teacher, err := teacherFor(ctx, s.db, p)
	if err != nil {
		return nil, err
	}

	var ids []int64
	if courseID != 0 {
		var count int64
		err := s.db.WithContext(ctx).Model(&model.Course{}).
			Where("id = ? AND teacher_id = ?", courseID, teacher.ID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrCourseNotFound
		}
		ids = []int64{int64(courseID)}
	}

	rows, err := s.reports.EnrolledStudents(ctx, teacher.ID, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]EnrolledStudent, 0, len(rows))
	for _, r := range rows {
		st := EnrolledStudent{
			StudentID:   r.StudentID,
			Username:    r.Username,
			Email:       r.Email,
			CourseID:    r.CourseID,
			CourseTitle: r.CourseTitle,
			EnrolledOn:  r.EnrolledOn,
		}
		if r.DateOfBirth.Valid {
			age := AgeOn(r.DateOfBirth.Time, now)
			st.Age = &age
		}
		out = append(out, st)
	}
	return out, nil
}

// AgeOn returns completed years between dob and now
func AgeOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
