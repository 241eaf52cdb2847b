package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"sync"
	"testing"

	"github.com/sahilchouksey/elms-api/database"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/services/razorpay"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// These tests need a disposable postgres database:
//
//	RUN_INTEGRATION_TESTS=true TEST_DATABASE_URL=postgres://... go test ./services/...
//
// Every table is truncated before each test.

const testGatewaySecret = "test_key_secret"

type integrationEnv struct {
	db        *gorm.DB
	store     *database.GORMStore
	validator *validation.Validator

	teacherUser *model.User
	studentUser *model.User
	teacher     auth.Principal
	student     auth.Principal
	category    model.Category
	level       model.Level
	language    model.Language
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("set RUN_INTEGRATION_TESTS=true to run database tests")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	store, err := database.OpenGORM(dsn, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })

	db := store.DB()
	require.NoError(t, db.Exec(`TRUNCATE users, student_profiles, teacher_profiles, admin_profiles,
		categories, levels, languages, courses, lessons, videos,
		payments, enrollments, teacher_earnings, admin_earnings,
		teacher_applications, cron_job_logs, admin_audit_logs
		RESTART IDENTITY CASCADE`).Error)

	env := &integrationEnv{db: db, store: store, validator: validation.NewValidator()}
	env.teacherUser = env.createUser(t, "asharao", model.RoleTeacher)
	env.studentUser = env.createUser(t, "ravikumar", model.RoleStudent)
	env.teacher = auth.Principal{UserID: env.teacherUser.ID, Username: env.teacherUser.Username, Role: model.RoleTeacher}
	env.student = auth.Principal{UserID: env.studentUser.ID, Username: env.studentUser.Username, Role: model.RoleStudent}

	env.category = model.Category{Name: "Mathematics"}
	env.level = model.Level{Name: "Beginner"}
	env.language = model.Language{Name: "English"}
	require.NoError(t, db.Create(&env.category).Error)
	require.NoError(t, db.Create(&env.level).Error)
	require.NoError(t, db.Create(&env.language).Error)
	return env
}

func (e *integrationEnv) createUser(t *testing.T, username, role string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(user).Error)
	require.NoError(t, CreateProfileForRole(e.db, user, ProfileAttrs{}))
	return user
}

func (e *integrationEnv) createCourse(t *testing.T, title, price string, discount int) *model.Course {
	t.Helper()
	svc := NewCourseService(e.db, nil, e.validator)
	course, err := svc.CreateCourse(context.Background(), e.teacher, CourseRequest{
		Title:       title,
		Description: "A thorough introduction to the subject for new learners.",
		CategoryID:  e.category.ID,
		LevelID:     e.level.ID,
		LanguageID:  e.language.ID,
		Price:       price,
		Discount:    discount,
	}, nil)
	require.NoError(t, err)
	return course
}

type fakeGateway struct {
	mu     sync.Mutex
	orders int
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	return &razorpay.Order{
		ID:       fmt.Sprintf("order_test_%d", g.orders),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return razorpay.VerifySignature(testGatewaySecret, orderID, paymentID, signature)
}

type recordingNotifier struct {
	mu       sync.Mutex
	attempts int
	sent     []Message
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts++
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

func TestIntegrationSlugCollision(t *testing.T) {
	env := setupIntegration(t)

	first := env.createCourse(t, "Linear Algebra", "0", 0)
	second := env.createCourse(t, "Linear Algebra", "0", 0)

	assert.Equal(t, "linear-algebra", first.Slug)
	assert.Equal(t, fmt.Sprintf("linear-algebra-%d", first.ID), second.Slug)
}

func TestIntegrationFreeCheckoutConverges(t *testing.T) {
	env := setupIntegration(t)
	course := env.createCourse(t, "Free Calculus", "0", 0)

	checkout := NewCheckoutService(env.db, nil, env.validator)
	student, err := studentFor(context.Background(), env.db, env.student)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = checkout.enrollFree(context.Background(), student, course)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var payments, enrollments int64
	require.NoError(t, env.db.Model(&model.Payment{}).Where("course_id = ?", course.ID).Count(&payments).Error)
	require.NoError(t, env.db.Model(&model.Enrollment{}).Where("course_id = ?", course.ID).Count(&enrollments).Error)
	assert.EqualValues(t, 1, payments)
	assert.EqualValues(t, 1, enrollments)

	_, err = checkout.Checkout(context.Background(), env.student, course.Slug, nil)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestIntegrationPaidCheckoutVerifyAndPayout(t *testing.T) {
	env := setupIntegration(t)
	course := env.createCourse(t, "Number Theory", "1000.00", 10)

	gateway := &fakeGateway{}
	checkout := NewCheckoutService(env.db, gateway, env.validator)
	payments := NewPaymentService(env.db, gateway, nil)
	earnings := NewEarningsService(env.db, env.store.Reports(), nil)
	ctx := context.Background()

	billing := &BillingDetails{
		FirstName:  "Ravi",
		LastName:   "Kumar",
		Address:    "12 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Phone:      "9876543210",
	}
	res, err := checkout.Checkout(ctx, env.student, course.Slug, billing)
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Equal(t, int64(90000), res.Order.Amount)
	assert.Equal(t, model.PaymentStatusFailed, res.Payment.Status)

	_, err = payments.VerifyPayment(ctx, VerifyRequest{
		OrderID:   res.Order.OrderID,
		PaymentID: "pay_test_1",
		Signature: "forged",
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	req := VerifyRequest{
		OrderID:   res.Order.OrderID,
		PaymentID: "pay_test_1",
		Signature: razorpay.Sign(testGatewaySecret, res.Order.OrderID, "pay_test_1"),
	}
	settled, err := payments.VerifyPayment(ctx, req)
	require.NoError(t, err)
	assert.False(t, settled.Replayed)
	assert.True(t, decimal.RequireFromString("720.00").Equal(settled.TeacherEarning.Amount))
	assert.True(t, decimal.RequireFromString("180.00").Equal(settled.AdminEarning.CommissionAmount))

	replay, err := payments.VerifyPayment(ctx, req)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, settled.Enrollment.ID, replay.Enrollment.ID)

	var teacherRows, adminRows int64
	require.NoError(t, env.db.Model(&model.TeacherEarning{}).Count(&teacherRows).Error)
	require.NoError(t, env.db.Model(&model.AdminEarning{}).Count(&adminRows).Error)
	assert.EqualValues(t, 1, teacherRows)
	assert.EqualValues(t, 1, adminRows)

	payout, err := earnings.PayCourseEarnings(ctx, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, payout.Rows)
	assert.True(t, decimal.RequireFromString("720.00").Equal(payout.Amount))

	_, err = earnings.PayCourseEarnings(ctx, course.ID)
	assert.ErrorIs(t, err, ErrNothingToPay)

	view, err := earnings.TeacherEarnings(ctx, env.teacher, EarningsFilterPending)
	require.NoError(t, err)
	assert.Empty(t, view.Earnings)
	assert.True(t, decimal.RequireFromString("720.00").Equal(view.Received))
}

func TestIntegrationAcceptApplication(t *testing.T) {
	env := setupIntegration(t)
	notifier := &recordingNotifier{}
	svc := NewApplicationService(ApplicationServiceConfig{
		DB:        env.db,
		Notifier:  notifier,
		Validator: env.validator,
		AppName:   "E-LMS",
		AppURL:    "http://localhost:3000",
	})

	app := &model.TeacherApplication{
		Username:      "meeraiyer",
		FirstName:     "Meera",
		LastName:      "Iyer",
		Email:         "meera@example.com",
		ContactNo:     "9123456780",
		Qualification: "PhD Physics",
		Experience:    6,
		Status:        model.ApplicationStatusPending,
	}
	require.NoError(t, env.db.Create(app).Error)

	res, err := svc.Accept(context.Background(), app.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.UserCreated)
	require.Len(t, notifier.sent, 1)

	var user model.User
	require.NoError(t, env.db.Preload("TeacherProfile").Where("username = ?", "meeraiyer").First(&user).Error)
	assert.Equal(t, model.RoleTeacher, user.Role)
	require.NotNil(t, user.TeacherProfile)
	assert.Equal(t, 6, user.TeacherProfile.Experience)
	assert.NotContains(t, user.PasswordHash, "Password:")
	assert.NotContains(t, notifier.sent[0].TextBody, user.PasswordHash)

	again, err := svc.Accept(context.Background(), app.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Len(t, notifier.sent, 1)

	var users int64
	require.NoError(t, env.db.Model(&model.User{}).Where("username = ?", "meeraiyer").Count(&users).Error)
	assert.EqualValues(t, 1, users)

	_, err = svc.Reject(context.Background(), app.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestIntegrationAcceptRollsBackWhenMailFails(t *testing.T) {
	env := setupIntegration(t)
	notifier := &recordingNotifier{err: errors.New("smtp unavailable")}
	svc := NewApplicationService(ApplicationServiceConfig{DB: env.db, Notifier: notifier, Validator: env.validator})

	app := &model.TeacherApplication{
		Username:      "kiranrao",
		FirstName:     "Kiran",
		LastName:      "Rao",
		Email:         "kiran@example.com",
		Qualification: "MSc",
		Status:        model.ApplicationStatusPending,
	}
	require.NoError(t, env.db.Create(app).Error)

	_, err := svc.Accept(context.Background(), app.ID)
	require.Error(t, err)

	var users int64
	require.NoError(t, env.db.Model(&model.User{}).Where("username = ?", "kiranrao").Count(&users).Error)
	assert.Zero(t, users)

	var reloaded model.TeacherApplication
	require.NoError(t, env.db.First(&reloaded, app.ID).Error)
	assert.Equal(t, model.ApplicationStatusPending, reloaded.Status)
}

func TestIntegrationVideoSerialIsUniquePerLesson(t *testing.T) {
	env := setupIntegration(t)
	course := env.createCourse(t, "Geometry Basics", "0", 0)
	store := newMemoryStore()
	svc := NewCourseService(env.db, store, env.validator)
	ctx := context.Background()

	lesson, err := svc.CreateLesson(ctx, env.teacher, LessonRequest{CourseID: course.ID, Name: "Triangles"})
	require.NoError(t, err)

	next, err := svc.NextSerialNumber(ctx, env.teacher, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	req := VideoRequest{LessonID: lesson.ID, Title: "Angles", SerialNumber: 1, TimeDuration: 12}
	video, err := svc.AddVideo(ctx, env.teacher, req, nil, fileHeader(t, "video_file", "angles.mp4", []byte("fake video")))
	require.NoError(t, err)
	assert.Contains(t, video.VideoFile, "videos/asharao/geometry-basics/triangles/01_angles.mp4")

	_, err = svc.AddVideo(ctx, env.teacher, req, nil, fileHeader(t, "video_file", "again.mp4", []byte("fake video")))
	assert.ErrorIs(t, err, ErrSerialTaken)

	next, err = svc.NextSerialNumber(ctx, env.teacher, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	other := auth.Principal{UserID: env.studentUser.ID, Role: model.RoleStudent}
	_, err = svc.NextSerialNumber(ctx, other, lesson.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func (e *integrationEnv) openSignedOrder(t *testing.T, checkout *CheckoutService, course *model.Course) VerifyRequest {
	t.Helper()
	res, err := checkout.Checkout(context.Background(), e.student, course.Slug, &BillingDetails{
		FirstName:  "Ravi",
		LastName:   "Kumar",
		Address:    "12 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Phone:      "9876543210",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	return VerifyRequest{
		OrderID:   res.Order.OrderID,
		PaymentID: "pay_" + res.Order.OrderID,
		Signature: razorpay.Sign(testGatewaySecret, res.Order.OrderID, "pay_"+res.Order.OrderID),
	}
}

func TestIntegrationConcurrentVerifySettlesOnce(t *testing.T) {
	env := setupIntegration(t)
	course := env.createCourse(t, "Probability", "500.00", 0)

	gateway := &fakeGateway{}
	checkout := NewCheckoutService(env.db, gateway, env.validator)
	payments := NewPaymentService(env.db, gateway, nil)
	req := env.openSignedOrder(t, checkout, course)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Settlement, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = payments.VerifyPayment(context.Background(), req)
		}(i)
	}
	wg.Wait()

	settledFresh := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if !results[i].Replayed {
			settledFresh++
		}
		assert.Equal(t, results[0].Enrollment.ID, results[i].Enrollment.ID)
	}
	assert.Equal(t, 1, settledFresh)

	var enrollments, teacherRows, adminRows int64
	require.NoError(t, env.db.Model(&model.Enrollment{}).Where("course_id = ?", course.ID).Count(&enrollments).Error)
	require.NoError(t, env.db.Model(&model.TeacherEarning{}).Where("course_id = ?", course.ID).Count(&teacherRows).Error)
	require.NoError(t, env.db.Model(&model.AdminEarning{}).Where("course_id = ?", course.ID).Count(&adminRows).Error)
	assert.EqualValues(t, 1, enrollments)
	assert.EqualValues(t, 1, teacherRows)
	assert.EqualValues(t, 1, adminRows)
}

func (e *integrationEnv) seedEarning(t *testing.T, course *model.Course, amount string) model.TeacherEarning {
	t.Helper()
	student, err := studentFor(context.Background(), e.db, e.student)
	require.NoError(t, err)

	txn := fmt.Sprintf("pay_seed_%d_%s", course.ID, amount)
	payment := model.Payment{
		StudentID:     student.ID,
		CourseID:      course.ID,
		AmountPaid:    decimal.RequireFromString(amount),
		Currency:      checkoutCurrency,
		Status:        model.PaymentStatusSuccessful,
		TransactionID: &txn,
	}
	require.NoError(t, e.db.Create(&payment).Error)

	earning := model.TeacherEarning{
		TeacherID: course.TeacherID,
		CourseID:  course.ID,
		PaymentID: payment.ID,
		Amount:    decimal.RequireFromString(amount),
	}
	require.NoError(t, e.db.Create(&earning).Error)
	return earning
}

func TestIntegrationPayoutTouchesOnlyTargetCourse(t *testing.T) {
	env := setupIntegration(t)
	target := env.createCourse(t, "Statistics", "100.00", 0)
	other := env.createCourse(t, "Topology", "100.00", 0)

	env.seedEarning(t, target, "80.00")
	env.seedEarning(t, target, "40.00")
	env.seedEarning(t, target, "8.00")
	untouched := env.seedEarning(t, other, "80.00")

	earnings := NewEarningsService(env.db, env.store.Reports(), nil)
	payout, err := earnings.PayCourseEarnings(context.Background(), target.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, payout.Rows)
	assert.True(t, decimal.RequireFromString("128.00").Equal(payout.Amount))

	var unpaid int64
	require.NoError(t, env.db.Model(&model.TeacherEarning{}).
		Where("course_id = ? AND is_paid = ?", target.ID, false).Count(&unpaid).Error)
	assert.Zero(t, unpaid)

	var reloaded model.TeacherEarning
	require.NoError(t, env.db.First(&reloaded, untouched.ID).Error)
	assert.False(t, reloaded.IsPaid)
}

func TestIntegrationRejectApplication(t *testing.T) {
	env := setupIntegration(t)
	notifier := &recordingNotifier{err: errors.New("smtp unavailable")}
	svc := NewApplicationService(ApplicationServiceConfig{DB: env.db, Notifier: notifier, Validator: env.validator})

	app := &model.TeacherApplication{
		Username:      "devnair",
		FirstName:     "Dev",
		LastName:      "Nair",
		Email:         "dev@example.com",
		Qualification: "BSc",
		Status:        model.ApplicationStatusPending,
	}
	require.NoError(t, env.db.Create(app).Error)

	res, err := svc.Reject(context.Background(), app.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, model.ApplicationStatusRejected, res.Application.Status)
	require.NotNil(t, res.Application.ReviewedAt)

	again, err := svc.Reject(context.Background(), app.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)

	assert.Equal(t, 1, notifier.attempts)

	var users int64
	require.NoError(t, env.db.Model(&model.User{}).Where("username = ? OR email = ?", app.Username, app.Email).Count(&users).Error)
	assert.Zero(t, users)

	var reloaded model.TeacherApplication
	require.NoError(t, env.db.First(&reloaded, app.ID).Error)
	assert.Equal(t, model.ApplicationStatusRejected, reloaded.Status)

	_, err = svc.Accept(context.Background(), app.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
