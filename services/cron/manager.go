package cron

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	jobCleanupExpiredTokens    = "cleanup_expired_tokens"
	jobReportAbandonedCheckout = "report_abandoned_checkouts"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	blacklist *auth.BlacklistService
	now       func() time.Time
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:      c,
		db:        db,
		blacklist: auth.NewBlacklistService(db),
		now:       time.Now,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Info("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Info("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	log.Info("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Info("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Daily at 3 AM: drop revoked tokens that have expired anyway
	_, err := m.cron.AddFunc("0 0 3 * * *", func() {
		m.run(jobCleanupExpiredTokens, m.CleanupExpiredTokens)
	})
	if err != nil {
		return err
	}

	// Every hour: count checkout attempts that were never verified
	_, err = m.cron.AddFunc("0 0 * * * *", func() {
		m.run(jobReportAbandonedCheckout, m.ReportAbandonedCheckouts)
	})
	if err != nil {
		return err
	}

	log.Infof("Registered %d cron jobs", len(m.cron.Entries()))
	return nil
}

// jobResult is what a job reports back for its cron_job_logs row
type jobResult struct {
	Message  string
	Metadata map[string]interface{}
}

type jobFunc func() (*jobResult, error)

// run records one execution of a job from start to finish
func (m *CronManager) run(jobName string, job jobFunc) {
	started := m.now()
	log.Infof("[CRON] Starting job: %s at %s", jobName, started.Format(time.RFC3339))

	entry := model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronStatusRunning,
		StartedAt: started,
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.Create(&entry).Error; err != nil {
		log.Errorf("[CRON] Failed to record start of %s: %v", jobName, err)
	}

	result, err := job()
	finished := m.now()

	updates := map[string]interface{}{
		"completed_at": finished,
		"duration":     finished.Sub(started).Milliseconds(),
	}
	if err != nil {
		log.Errorf("[CRON] Error in job: %s - %v", jobName, err)
		updates["status"] = model.CronStatusFailed
		updates["error_msg"] = err.Error()
	} else {
		log.Infof("[CRON] Completed job: %s - %s", jobName, result.Message)
		updates["status"] = model.CronStatusCompleted
		updates["message"] = result.Message
		if result.Metadata != nil {
			if raw, mErr := json.Marshal(result.Metadata); mErr == nil {
				updates["metadata"] = datatypes.JSON(raw)
			}
		}
	}

	if entry.ID == 0 {
		return
	}
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		log.Errorf("[CRON] Failed to record end of %s: %v", jobName, err)
	}
}
