package cron

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sahilchouksey/elms-api/database"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestRegisterJobs(t *testing.T) {
	m := NewCronManager(nil)
	require.NoError(t, m.registerJobs())
	assert.Len(t, m.cron.Entries(), 2)
}

func TestRunRecordsJobOutcome(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" || os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("set RUN_INTEGRATION_TESTS=true and TEST_DATABASE_URL to run database tests")
	}

	store, err := database.OpenGORM(os.Getenv("TEST_DATABASE_URL"), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })
	db := store.DB()
	require.NoError(t, db.Exec("TRUNCATE cron_job_logs RESTART IDENTITY").Error)

	m := NewCronManager(db)
	fixed := time.Date(2024, time.March, 1, 3, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.run(jobReportAbandonedCheckout, m.ReportAbandonedCheckouts)
	m.run("always_fails", func() (*jobResult, error) { return nil, errors.New("broken") })

	var logs []model.CronJobLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)

	assert.Equal(t, model.CronStatusCompleted, logs[0].Status)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(logs[0].Metadata, &meta))
	assert.Equal(t, "2024-02-29T03:00:00Z", meta["cutoff"])

	assert.Equal(t, model.CronStatusFailed, logs[1].Status)
	assert.Equal(t, "broken", logs[1].ErrorMsg)
}
