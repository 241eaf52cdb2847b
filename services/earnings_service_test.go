package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/elms-api/utils/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeOn(t *testing.T) {
	dob := time.Date(2000, time.June, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 23, AgeOn(dob, time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, AgeOn(dob, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, AgeOn(dob, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, AgeOn(dob, time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestAdminEarningsReportRejectsBadDates(t *testing.T) {
	s := NewEarningsService(nil, nil, nil)

	_, err := s.AdminEarningsReport(context.Background(), "2024-13-01", "yesterday")
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)

	_, err = s.AdminEarningsReport(context.Background(), "2024-05-10", "2024-05-01")
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, validation.Errors{"start_date must not be after end_date"}, verrs)
}

func TestTeacherEarningsSummaryRejectsUnknownFilter(t *testing.T) {
	s := NewEarningsService(nil, nil, nil)

	_, err := s.TeacherEarningsSummary(context.Background(), "received")
	var verrs validation.Errors
	assert.ErrorAs(t, err, &verrs)
}

func TestParseDay(t *testing.T) {
	d, err := parseDay("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), *d)

	_, err = parseDay("2023-02-29")
	assert.Error(t, err)
}
