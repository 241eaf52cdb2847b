package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ReportStore runs the read-only aggregate queries behind the dashboards.
// It shares the connection pool opened by gorm.
type ReportStore struct {
	db *sqlx.DB
}

// NewReportStore wraps an existing *sql.DB
func NewReportStore(sqlDB *sql.DB) *ReportStore {
	return &ReportStore{db: sqlx.NewDb(sqlDB, "postgres")}
}

type DailyCommission struct {
	Day      time.Time       `db:"day" json:"day"`
	Total    decimal.Decimal `db:"total" json:"total"`
	Payments int64           `db:"payments" json:"payments"`
}

type TeacherEarningSummary struct {
	CourseID        uint            `db:"course_id" json:"course_id"`
	CourseTitle     string          `db:"course_title" json:"course_title"`
	TeacherID       uint            `db:"teacher_id" json:"teacher_id"`
	TeacherUsername string          `db:"teacher_username" json:"teacher_username"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAmount      decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	UnpaidAmount    decimal.Decimal `db:"unpaid_amount" json:"unpaid_amount"`
	Earnings        int64           `db:"earnings" json:"earnings"`
}

type EnrolledStudentRow struct {
	StudentID   uint         `db:"student_id"`
	Username    string       `db:"username"`
	Email       string       `db:"email"`
	CourseID    uint         `db:"course_id"`
	CourseTitle string       `db:"course_title"`
	DateOfBirth sql.NullTime `db:"date_of_birth"`
	EnrolledOn  time.Time    `db:"enrolled_on"`
}

type TeacherStats struct {
	Courses  int64           `db:"courses" json:"courses"`
	Students int64           `db:"students" json:"students"`
	Pending  decimal.Decimal `db:"pending" json:"pending_earnings"`
	Received decimal.Decimal `db:"received" json:"received_earnings"`
}

type AdminStats struct {
	Students            int64           `db:"students" json:"students"`
	Teachers            int64           `db:"teachers" json:"teachers"`
	Courses             int64           `db:"courses" json:"courses"`
	PendingApplications int64           `db:"pending_applications" json:"pending_applications"`
	TotalCommission     decimal.Decimal `db:"total_commission" json:"total_commission"`
	UnpaidTeacherShare  decimal.Decimal `db:"unpaid_teacher_share" json:"unpaid_teacher_share"`
}

// CommissionByDay groups admin commission per calendar day (UTC), newest first.
// A nil bound leaves that side open.
func (r *ReportStore) CommissionByDay(ctx context.Context, from, to *time.Time) ([]DailyCommission, error) {
	query := `
		SELECT date_trunc('day', ae.created_at) AS day,
		       COALESCE(SUM(ae.commission_amount), 0) AS total,
		       COUNT(*) AS payments
		FROM admin_earnings ae
		WHERE ($1::timestamptz IS NULL OR ae.created_at >= $1::timestamptz)
		  AND ($2::timestamptz IS NULL OR ae.created_at < $2::timestamptz)
		GROUP BY 1
		ORDER BY 1 DESC`

	rows := []DailyCommission{}
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to query commission by day: %w", err)
	}
	return rows, nil
}

// TeacherEarningsSummary groups teacher earnings by course and teacher.
// paid filters on is_paid when non-nil.
func (r *ReportStore) TeacherEarningsSummary(ctx context.Context, paid *bool) ([]TeacherEarningSummary, error) {
	query := `
		SELECT c.id AS course_id,
		       c.title AS course_title,
		       tp.id AS teacher_id,
		       u.username AS teacher_username,
		       COALESCE(SUM(te.amount), 0) AS total_amount,
		       COALESCE(SUM(te.amount) FILTER (WHERE te.is_paid), 0) AS paid_amount,
		       COALESCE(SUM(te.amount) FILTER (WHERE NOT te.is_paid), 0) AS unpaid_amount,
		       COUNT(te.id) AS earnings
		FROM teacher_earnings te
		JOIN courses c ON c.id = te.course_id
		JOIN teacher_profiles tp ON tp.id = te.teacher_id
		JOIN users u ON u.id = tp.user_id
		WHERE ($1::boolean IS NULL OR te.is_paid = $1::boolean)
		GROUP BY c.id, c.title, tp.id, u.username
		ORDER BY c.title, u.username`

	rows := []TeacherEarningSummary{}
	if err := r.db.SelectContext(ctx, &rows, query, paid); err != nil {
		return nil, fmt.Errorf("failed to query teacher earnings summary: %w", err)
	}
	return rows, nil
}

// EnrolledStudents lists enrollments in courses owned by the teacher profile.
// An empty courseIDs slice means every course of that teacher.
func (r *ReportStore) EnrolledStudents(ctx context.Context, teacherID uint, courseIDs []int64) ([]EnrolledStudentRow, error) {
	query := `
		SELECT sp.id AS student_id,
		       u.username,
		       u.email,
		       c.id AS course_id,
		       c.title AS course_title,
		       sp.date_of_birth,
		       e.enrolled_on
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		JOIN student_profiles sp ON sp.id = e.student_id
		JOIN users u ON u.id = sp.user_id
		WHERE c.teacher_id = $1
		  AND ($2::text IS NULL OR e.course_id = ANY($2::text::bigint[]))
		ORDER BY e.enrolled_on DESC`

	var ids interface{}
	if len(courseIDs) > 0 {
		ids = pq.Array(courseIDs)
	}

	rows := []EnrolledStudentRow{}
	if err := r.db.SelectContext(ctx, &rows, query, teacherID, ids); err != nil {
		return nil, fmt.Errorf("failed to query enrolled students: %w", err)
	}
	return rows, nil
}

// TeacherStats returns the counters shown on the teacher dashboard
func (r *ReportStore) TeacherStats(ctx context.Context, teacherID uint) (*TeacherStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM courses WHERE teacher_id = $1) AS courses,
			(SELECT COUNT(DISTINCT e.student_id)
			   FROM enrollments e JOIN courses c ON c.id = e.course_id
			  WHERE c.teacher_id = $1) AS students,
			(SELECT COALESCE(SUM(amount), 0) FROM teacher_earnings
			  WHERE teacher_id = $1 AND NOT is_paid) AS pending,
			(SELECT COALESCE(SUM(amount), 0) FROM teacher_earnings
			  WHERE teacher_id = $1 AND is_paid) AS received`

	var stats TeacherStats
	if err := r.db.GetContext(ctx, &stats, query, teacherID); err != nil {
		return nil, fmt.Errorf("failed to query teacher stats: %w", err)
	}
	return &stats, nil
}

// AdminStats returns the counters shown on the admin dashboard
func (r *ReportStore) AdminStats(ctx context.Context) (*AdminStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'student') AS students,
			(SELECT COUNT(*) FROM users WHERE role = 'teacher') AS teachers,
			(SELECT COUNT(*) FROM courses) AS courses,
			(SELECT COUNT(*) FROM teacher_applications WHERE status = 'pending') AS pending_applications,
			(SELECT COALESCE(SUM(commission_amount), 0) FROM admin_earnings) AS total_commission,
			(SELECT COALESCE(SUM(amount), 0) FROM teacher_earnings WHERE NOT is_paid) AS unpaid_teacher_share`

	var stats AdminStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to query admin stats: %w", err)
	}
	return &stats, nil
}
