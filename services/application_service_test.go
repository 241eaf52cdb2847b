package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    model.ApplicationStatus
		to      model.ApplicationStatus
		changed bool
		invalid bool
	}{
		{"pending to accepted", model.ApplicationStatusPending, model.ApplicationStatusAccepted, true, false},
		{"pending to rejected", model.ApplicationStatusPending, model.ApplicationStatusRejected, true, false},
		{"accept twice", model.ApplicationStatusAccepted, model.ApplicationStatusAccepted, false, false},
		{"reject twice", model.ApplicationStatusRejected, model.ApplicationStatusRejected, false, false},
		{"accepted to rejected", model.ApplicationStatusAccepted, model.ApplicationStatusRejected, false, true},
		{"rejected to accepted", model.ApplicationStatusRejected, model.ApplicationStatusAccepted, false, true},
		{"back to pending", model.ApplicationStatusAccepted, model.ApplicationStatusPending, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := applicationTransition(tt.from, tt.to)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func newTestApplicationService() *ApplicationService {
	return NewApplicationService(ApplicationServiceConfig{
		Validator: validation.NewValidator(),
		AppName:   "E-LMS",
		AppURL:    "http://localhost:3000/",
	})
}

func TestSubmitValidatesBeforeTouchingStorage(t *testing.T) {
	s := newTestApplicationService()
	assert.Equal(t, "http://localhost:3000", s.appURL)

	_, err := s.Submit(context.Background(), ApplicationRequest{
		Username:      "jane doe",
		FirstName:     "Jane1",
		LastName:      "Doe",
		Email:         "not-an-email",
		ContactNo:     "12345",
		Qualification: "MSc",
		Experience:    3,
	}, nil)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Messages(), "first_name may contain only letters and spaces")
	assert.Contains(t, verrs.Messages(), "contact_no must be exactly 10 digits")
}

func TestSubmitRequiresResume(t *testing.T) {
	s := newTestApplicationService()

	_, err := s.Submit(context.Background(), ApplicationRequest{
		Username:      "janedoe",
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "Jane@Example.com ",
		ContactNo:     "9876543210",
		Qualification: "MSc Mathematics",
		Experience:    3,
	}, nil)

	assert.Equal(t, validation.Errors{"resume is required"}, err)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	s := newTestApplicationService()

	_, err := s.List(context.Background(), "archived")
	var verrs validation.Errors
	assert.ErrorAs(t, err, &verrs)
}
