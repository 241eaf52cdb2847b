package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"github.com/sahilchouksey/elms-api/utils/validation"
	"gorm.io/gorm"
)

// AccountService owns registration, login and profile maintenance
type AccountService struct {
	db        *gorm.DB
	jwt       *auth.JWTManager
	blacklist *auth.BlacklistService
	validator *validation.Validator
}

// NewAccountService creates a new account service
func NewAccountService(db *gorm.DB, jwt *auth.JWTManager, v *validation.Validator) *AccountService {
	return &AccountService{
		db:        db,
		jwt:       jwt,
		blacklist: auth.NewBlacklistService(db),
		validator: v,
	}
}

// RegisterRequest is the public student sign-up form
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150,alphanum"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=150,alphaspace"`
	LastName  string `json:"last_name" validate:"required,max=150,alphaspace"`
}

// TokenPair is what a successful login or refresh returns
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// ProfileAttrs carries the optional role specific fields set when a profile is created
type ProfileAttrs struct {
	ContactNo     string
	Email         string
	Qualification string
	Experience    int
}

// Register creates a student and its profile in one transaction
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         model.RoleStudent,
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkIdentityFree(tx, user.Username, user.Email); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return CreateProfileForRole(tx, user, ProfileAttrs{})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}

	return user, nil
}

func checkIdentityFree(tx *gorm.DB, username, email string) error {
	var count int64
	if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	if err := tx.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	return nil
}

// CreateProfileForRole creates the single profile row that matches user.Role.
// It must run inside the transaction that created the user.
func CreateProfileForRole(tx *gorm.DB, user *model.User, attrs ProfileAttrs) error {
	switch user.Role {
	case model.RoleStudent:
		profile := &model.StudentProfile{UserID: user.ID, ContactNo: attrs.ContactNo, Status: "active"}
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create student profile: %w", err)
		}
		user.StudentProfile = profile
	case model.RoleTeacher:
		email := attrs.Email
		if email == "" {
			email = user.Email
		}
		profile := &model.TeacherProfile{
			UserID:        user.ID,
			Email:         email,
			ContactNo:     attrs.ContactNo,
			Qualification: attrs.Qualification,
			Experience:    attrs.Experience,
		}
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create teacher profile: %w", err)
		}
		user.TeacherProfile = profile
	case model.RoleAdmin:
		profile := &model.AdminProfile{UserID: user.ID, ContactNo: attrs.ContactNo}
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create admin profile: %w", err)
		}
		user.AdminProfile = profile
	default:
		return fmt.Errorf("unknown role %q", user.Role)
	}
	return nil
}

// Login checks credentials and issues a token pair
func (s *AccountService) Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issue(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Refresh rotates a refresh token. The old one is blacklisted.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, auth.ErrInvalidToken
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		return nil, auth.ErrInvalidToken
	}
	if user.TokenVersion != claims.TokenVersion || !user.IsActive {
		return nil, auth.ErrInvalidToken
	}

	pair, err := s.issue(&user)
	if err != nil {
		return nil, err
	}

	if err := s.blacklist.RevokeToken(ctx, claims.ID, user.ID, claims.ExpiresAt.Time, "token_refresh"); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout blacklists the access token that made the request
func (s *AccountService) Logout(ctx context.Context, claims *auth.Claims) error {
	expiresAt := time.Now().Add(s.jwt.AccessExpiry())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.blacklist.RevokeToken(ctx, claims.ID, claims.UserID, expiresAt, "logout")
}

func (s *AccountService) issue(user *model.User) (*TokenPair, error) {
	id := auth.Identity{
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}

	access, err := s.jwt.GenerateAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    int(s.jwt.AccessExpiry().Seconds()),
	}, nil
}

// GetProfile loads the caller with the profile matching its role
func (s *AccountService) GetProfile(ctx context.Context, p auth.Principal) (*model.User, error) {
	q := s.db.WithContext(ctx)
	switch p.Role {
	case model.RoleStudent:
		q = q.Preload("StudentProfile")
	case model.RoleTeacher:
		q = q.Preload("TeacherProfile")
	case model.RoleAdmin:
		q = q.Preload("AdminProfile")
	}

	var user model.User
	if err := q.First(&user, p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateStudentProfileRequest holds the editable student fields
type UpdateStudentProfileRequest struct {
	FirstName   string `json:"first_name" validate:"omitempty,max=150,alphaspace"`
	LastName    string `json:"last_name" validate:"omitempty,max=150,alphaspace"`
	ContactNo   string `json:"contact_no" validate:"omitempty,phone"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,pastdate"`
	Gender      string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Education   string `json:"education" validate:"omitempty,max=200"`
}

// UpdateStudentProfile applies the non-empty fields to the caller's student profile
func (s *AccountService) UpdateStudentProfile(ctx context.Context, p auth.Principal, req UpdateStudentProfileRequest) (*model.User, error) {
	if !p.IsStudent() {
		return nil, ErrForbidden
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile model.StudentProfile
		if err := tx.Where("user_id = ?", p.UserID).First(&profile).Error; err != nil {
			return err
		}

		if req.ContactNo != "" {
			profile.ContactNo = req.ContactNo
		}
		if req.Address != "" {
			profile.Address = req.Address
		}
		if req.DateOfBirth != "" {
			dob, _ := time.Parse(validation.DateLayout, req.DateOfBirth)
			profile.DateOfBirth = &dob
		}
		if req.Gender != "" {
			profile.Gender = req.Gender
		}
		if req.Education != "" {
			profile.Education = req.Education
		}
		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		return updateNames(tx, p.UserID, req.FirstName, req.LastName)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.GetProfile(ctx, p)
}

// UpdateTeacherProfileRequest holds the editable teacher fields
type UpdateTeacherProfileRequest struct {
	FirstName     string `json:"first_name" validate:"omitempty,max=150,alphaspace"`
	LastName      string `json:"last_name" validate:"omitempty,max=150,alphaspace"`
	ContactNo     string `json:"contact_no" validate:"omitempty,phone"`
	Qualification string `json:"qualification" validate:"omitempty,max=500"`
	Experience    *int   `json:"experience" validate:"omitempty,gte=0,lte=99"`
	Bio           string `json:"bio" validate:"omitempty,max=2000"`
}

// UpdateTeacherProfile applies the provided fields to the caller's teacher profile
func (s *AccountService) UpdateTeacherProfile(ctx context.Context, p auth.Principal, req UpdateTeacherProfileRequest) (*model.User, error) {
	if !p.IsTeacher() {
		return nil, ErrForbidden
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile model.TeacherProfile
		if err := tx.Where("user_id = ?", p.UserID).First(&profile).Error; err != nil {
			return err
		}

		if req.ContactNo != "" {
			profile.ContactNo = req.ContactNo
		}
		if req.Qualification != "" {
			profile.Qualification = req.Qualification
		}
		if req.Experience != nil {
			profile.Experience = *req.Experience
		}
		if req.Bio != "" {
			profile.Bio = req.Bio
		}
		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		return updateNames(tx, p.UserID, req.FirstName, req.LastName)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.GetProfile(ctx, p)
}

func updateNames(tx *gorm.DB, userID uint, first, last string) error {
	updates := map[string]interface{}{}
	if first != "" {
		updates["first_name"] = first
	}
	if last != "" {
		updates["last_name"] = last
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error
}
