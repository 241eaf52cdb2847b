package services

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrCourseNotFound      = errors.New("course not found")
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrVideoNotFound       = errors.New("video not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyEnrolled     = errors.New("already enrolled in this course")
	ErrNotEnrolled         = errors.New("not enrolled in this course")
	ErrNothingToPay        = errors.New("nothing to pay for this course")
	ErrInvalidSignature    = errors.New("payment signature verification failed")
	ErrGateway             = errors.New("payment gateway error")
	ErrInvalidTransition   = errors.New("invalid application status transition")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDisabled     = errors.New("account is disabled")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrSerialTaken         = errors.New("serial number already used in this lesson")
	ErrStorageDisabled     = errors.New("file storage is not configured")
)
