package database

import (
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// applyConstraints installs the constraints that must hold at the storage layer
// even when rows are written outside the API. Every statement is idempotent.
func applyConstraints(db *gorm.DB) error {
	statements := []string{
		// Concurrent free checkouts for the same pair converge on one synthesized payment
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_free_student_course
			ON payments (student_id, course_id)
			WHERE transaction_id = 'free_course_payment';`,

		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_payments_status') THEN
				ALTER TABLE payments ADD CONSTRAINT chk_payments_status
					CHECK (status IN ('successful', 'failed'));
			END IF;
		END $$;`,

		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_payments_amount') THEN
				ALTER TABLE payments ADD CONSTRAINT chk_payments_amount
					CHECK (amount_paid >= 0);
			END IF;
		END $$;`,

		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_teacher_applications_status') THEN
				ALTER TABLE teacher_applications ADD CONSTRAINT chk_teacher_applications_status
					CHECK (status IN ('pending', 'accepted', 'rejected'));
			END IF;
		END $$;`,

		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_users_role') THEN
				ALTER TABLE users ADD CONSTRAINT chk_users_role
					CHECK (role IN ('student', 'teacher', 'admin'));
			END IF;
		END $$;`,
	}

	log.Info("Applying storage constraints")
	for _, stmt := range statements {
		if err := db.Exec(strings.TrimSpace(stmt)).Error; err != nil {
			return err
		}
	}
	return nil
}
