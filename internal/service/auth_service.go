package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type authSuperAdminRepository interface {
	Exists(ctx context.Context) (bool, error)
	Find(ctx context.Context) (*models.SuperAdmin, error)
	FindByEmail(ctx context.Context, email string) (*models.SuperAdmin, error)
	Create(ctx context.Context, admin *models.SuperAdmin) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type authDistrictRepository interface {
	FindByAdminEmail(ctx context.Context, email string) (*models.District, error)
	UpdateAdminPassword(ctx context.Context, districtID, passwordHash string) error
}

type authApplicationRepository interface {
	Create(ctx context.Context, app *models.DistrictApplication) error
	FindByAdminEmail(ctx context.Context, email string) (*models.DistrictApplication, error)
}

type geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (*models.ResolvedLocation, error)
}

type otpIssuer interface {
	Generate(ctx context.Context, subject string) (string, error)
	Verify(ctx context.Context, subject, code string) error
}

type mailer interface {
	Send(to, subject, body string) error
}

type notificationSink interface {
	Notify(n models.Notification)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService covers registration and the three login paths: citizens and
// promoted admins in the users table, embedded district admins, and the
// singleton super admin.
type AuthService struct {
	users        authUserRepository
	superAdmins  authSuperAdminRepository
	districts    authDistrictRepository
	applications authApplicationRepository
	geocoder      geocoder
	otp           otpIssuer
	mailer        mailer
	notifications notificationSink
	validator     *validator.Validate
	logger        *zap.Logger
	config        AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users authUserRepository,
	superAdmins authSuperAdminRepository,
	districts authDistrictRepository,
	applications authApplicationRepository,
	geo geocoder,
	otp otpIssuer,
	mail mailer,
	notifications notificationSink,
	validate *validator.Validate,
	logger *zap.Logger,
	config AuthConfig,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:         users,
		superAdmins:   superAdmins,
		districts:     districts,
		applications:  applications,
		geocoder:      geo,
		otp:           otp,
		mailer:        mail,
		notifications: notifications,
		validator:     validate,
		logger:        logger,
		config:        config,
	}
}

// Signup registers an account. The requested role picks the branch: citizens
// are created immediately, an admin request becomes a pending district
// application, and the super admin role is allowed exactly once.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}
	req.Email = normalizeEmail(req.Email)

	switch req.Role {
	case models.RoleUser:
		return s.signupCitizen(ctx, req)
	case models.RoleAdmin:
		return s.signupAdmin(ctx, req)
	case models.RoleSuperAdmin:
		return s.signupSuperAdmin(ctx, req)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
}

func (s *AuthService) signupCitizen(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.ensureEmailUnused(ctx, req.Email); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	user := &models.User{
		Name:           req.Name,
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   string(hash),
		Role:           models.RoleUser,
		ApprovalStatus: models.ApprovalApproved,
		PhoneNumber:    &req.PhoneNumber,
		AadharNumber:   &req.AadharNumber,
		Language:       language,
		IsActive:       true,
	}

	// Enrichment only; a failed lookup never blocks registration.
	if loc := s.reverseLookup(ctx, req.Latitude, req.Longitude); loc != nil {
		if loc.DistrictName != "" {
			user.DistrictName = &loc.DistrictName
		}
		if loc.State != "" {
			user.State = &loc.State
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	subject := subjectFromUser(user)
	token, err := s.issueToken(subject)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	return &models.SignupResponse{Token: token, User: &subject, Message: "registration successful"}, nil
}

func (s *AuthService) signupAdmin(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.ensureEmailUnused(ctx, req.Email); err != nil {
		return nil, err
	}
	if app, err := s.applications.FindByAdminEmail(ctx, req.Email); err == nil && app.Status == models.ApprovalPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an application for this email is already pending")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check applications")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	app := &models.DistrictApplication{
		Name:          req.DistrictName,
		State:         req.State,
		Country:       req.Country,
		Pincode:       req.Pincode,
		Address:       req.Address,
		Lat:           req.Latitude,
		Lng:           req.Longitude,
		AdminName:     req.Name,
		AdminUsername: req.Username,
		AdminEmail:    req.Email,
		AdminPhone:    req.PhoneNumber,
		AdminAadhar:   req.AadharNumber,
		AdminPassword: string(hash),
		Status:        models.ApprovalPending,
	}

	if emptyStr(app.Name) || emptyStr(app.State) {
		if loc := s.reverseLookup(ctx, req.Latitude, req.Longitude); loc != nil {
			if emptyStr(app.Name) && loc.DistrictName != "" {
				app.Name = &loc.DistrictName
			}
			if emptyStr(app.State) && loc.State != "" {
				app.State = &loc.State
			}
			if app.Country == nil && loc.Country != "" {
				app.Country = &loc.Country
			}
			if app.Pincode == nil && loc.Pincode != "" {
				app.Pincode = &loc.Pincode
			}
			if app.Address == nil && loc.Address != "" {
				app.Address = &loc.Address
			}
		}
	}

	if err := s.applications.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	s.notifySuperAdmin(ctx, app)

	return &models.SignupResponse{
		Application: app,
		Message:     "application submitted, awaiting super admin approval",
	}, nil
}

// notifySuperAdmin drops a new-application notification into the super admin
/// inbox. Best effort: with no super admin yet, or a failed lookup, the
// submission proceeds untouched.
func (s *AuthService) notifySuperAdmin(ctx context.Context, app *models.DistrictApplication) {
	if s.notifications == nil {
		return
	}
	admin, err := s.superAdmins.Find(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to look up super admin for notification", zap.Error(err))
		}
		return
	}

	district := "a new district"
	if !emptyStr(app.Name) {
		district = *app.Name
	}
	s.notifications.Notify(models.Notification{
		RecipientKind: models.RecipientSuperAdmin,
		RecipientID:   admin.ID,
		Type:          models.NotificationAdmin,
		Title:         "New district application",
		Message:       fmt.Sprintf("%s applied to administer %s.", app.AdminName, district),
		RelatedID:     &app.ID,
	})
}

func (s *AuthService) signupSuperAdmin(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	exists, err := s.superAdmins.Exists(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check super admin")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "super admin already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	admin := &models.SuperAdmin{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		PhoneNumber:  req.PhoneNumber,
		AadharNumber: req.AadharNumber,
		Lat:          req.Latitude,
		Lng:          req.Longitude,
		IsActive:     true,
	}

	if err := s.superAdmins.Create(ctx, admin); err != nil {
		// The singleton index makes the race loser land here.
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "super admin already exists")
	}

	subject := models.AuthSubject{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: models.RoleSuperAdmin}
	token, err := s.issueToken(subject)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	return &models.SignupResponse{Token: token, User: &subject, Message: "super admin created"}, nil
}

// Login authenticates citizens and promoted admins against the users table.
// Applicants whose district application is still undecided get a pending or
// rejected status instead of an invalid-credentials error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	req.Email = normalizeEmail(req.Email)
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.applicationLoginStatus(ctx, req.Email)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if user.Role == models.RoleAdmin {
		switch user.ApprovalStatus {
		case models.ApprovalPending:
			return nil, appErrors.Clone(appErrors.ErrAccountPending, "")
		case models.ApprovalRejected:
			return nil, appErrors.Clone(appErrors.ErrAccountRejected, "")
		}
	}

	if !user.IsActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	subject := subjectFromUser(user)
	token, err := s.issueToken(subject)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.TokenExpiry.Seconds()),
		User:      subject,
		IssuedAt:  time.Now().UTC(),
	}, nil
}

// DistrictAdminLogin authenticates an admin whose credentials live embedded
// on the district record created by an approved application.
func (s *AuthService) DistrictAdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	req.Email = normalizeEmail(req.Email)
	district, err := s.districts.FindByAdminEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.applicationLoginStatus(ctx, req.Email)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch district")
	}

	profile := district.EmbeddedAdmin()
	if profile == nil || profile.PasswordHash == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	subject := models.AuthSubject{
		ID:         district.ID,
		Name:       profile.Name,
		Username:   profile.Username,
		Email:      profile.Email,
		Role:       models.RoleAdmin,
		DistrictID: &district.ID,
	}
	token, err := s.issueToken(subject)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.TokenExpiry.Seconds()),
		User:      subject,
		IssuedAt:  time.Now().UTC(),
	}, nil
}

// SuperAdminLogin authenticates the singleton super admin account.
func (s *AuthService) SuperAdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	admin, err := s.superAdmins.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch super admin")
	}

	if !admin.IsActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := s.superAdmins.UpdateLastLogin(ctx, admin.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update super admin last login", zap.Error(err))
	}

	subject := models.AuthSubject{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: models.RoleSuperAdmin}
	token, err := s.issueToken(subject)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.TokenExpiry.Seconds()),
		User:      subject,
		IssuedAt:  time.Now().UTC(),
	}, nil
}

// ForgotPassword issues a reset OTP and emails it to the account holder.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forgot password payload")
	}

	req.Email = normalizeEmail(req.Email)
	name, found, err := s.lookupAccountName(ctx, req.Email)
	if err != nil {
		return err
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "no account registered with this email")
	}

	code, err := s.otp.Generate(ctx, req.Email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate otp")
	}

	body := fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in a few minutes.\n\nIf you did not request this, ignore this email.", name, code)
	if err := s.mailer.Send(req.Email, "Password reset code", body); err != nil {
		s.logger.Warn("failed to send otp email", zap.Error(err))
	}

	return nil
}

// ResetPassword verifies the OTP and replaces the account password.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset password payload")
	}

	req.Email = normalizeEmail(req.Email)
	if err := s.otp.Verify(ctx, req.Email, req.OTP); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := time.Now().UTC()

	if user, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		if err := s.users.UpdatePassword(ctx, user.ID, string(hash), now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if admin, err := s.superAdmins.FindByEmail(ctx, req.Email); err == nil {
		if err := s.superAdmins.UpdatePassword(ctx, admin.ID, string(hash), now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch super admin")
	}

	if district, err := s.districts.FindByAdminEmail(ctx, req.Email); err == nil {
		if err := s.districts.UpdateAdminPassword(ctx, district.ID, string(hash)); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch district")
	}

	return appErrors.Clone(appErrors.ErrNotFound, "no account registered with this email")
}

// ChangePassword rotates the password of an authenticated account after
// checking the current one. The claims decide which store holds the account:
// super admins and citizens live in their own tables, district admins in the
// district's embedded profile.
func (s *AuthService) ChangePassword(ctx context.Context, claims *models.JWTClaims, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := time.Now().UTC()
	email := normalizeEmail(claims.Email)

	if claims.Role == models.RoleSuperAdmin {
		admin, err := s.superAdmins.FindByEmail(ctx, email)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch super admin")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.OldPassword)); err != nil {
			return appErrors.Clone(appErrors.ErrUnauthorized, "current password is incorrect")
		}
		return s.superAdmins.UpdatePassword(ctx, admin.ID, string(hash), now)
	}

	if user, err := s.users.FindByEmail(ctx, email); err == nil {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
			return appErrors.Clone(appErrors.ErrUnauthorized, "current password is incorrect")
		}
		return s.users.UpdatePassword(ctx, user.ID, string(hash), now)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	district, err := s.districts.FindByAdminEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no account registered with this email")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch district")
	}
	profile := district.EmbeddedAdmin()
	if profile == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no account registered with this email")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "current password is incorrect")
	}
	return s.districts.UpdateAdminPassword(ctx, district.ID, string(hash))
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// applicationLoginStatus maps an applicant's state onto the login error. No
// application at all means plain invalid credentials.
func (s *AuthService) applicationLoginStatus(ctx context.Context, email string) error {
	app, err := s.applications.FindByAdminEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check applications")
	}

	switch app.Status {
	case models.ApprovalPending:
		return appErrors.Clone(appErrors.ErrAccountPending, "")
	case models.ApprovalRejected:
		reason := "account was rejected by super admin"
		if app.DecisionReason != nil && *app.DecisionReason != "" {
			reason = *app.DecisionReason
		}
		return appErrors.Clone(appErrors.ErrAccountRejected, reason)
	default:
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
}

func (s *AuthService) ensureEmailUnused(ctx context.Context, email string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	if _, err := s.superAdmins.FindByEmail(ctx, email); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	return nil
}

func (s *AuthService) lookupAccountName(ctx context.Context, email string) (string, bool, error) {
	if user, err := s.users.FindByEmail(ctx, email); err == nil {
		return user.Name, true, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if admin, err := s.superAdmins.FindByEmail(ctx, email); err == nil {
		return admin.Name, true, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch super admin")
	}

	if district, err := s.districts.FindByAdminEmail(ctx, email); err == nil {
		if profile := district.EmbeddedAdmin(); profile != nil {
			return profile.Name, true, nil
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch district")
	}

	return "", false, nil
}

// reverseLookup runs a best-effort reverse geocode. A missing geocoder or
// provider failure yields nil.
func (s *AuthService) reverseLookup(ctx context.Context, lat, lng *float64) *models.ResolvedLocation {
	if s.geocoder == nil || lat == nil || lng == nil {
		return nil
	}
	loc, err := s.geocoder.Reverse(ctx, *lat, *lng)
	if err != nil {
		s.logger.Warn("reverse geocode failed", zap.Error(err))
		return nil
	}
	return loc
}

func (s *AuthService) issueToken(subject models.AuthSubject) (string, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		UserID:     subject.ID,
		Role:       subject.Role,
		Email:      subject.Email,
		DistrictID: subject.DistrictID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}

// normalizeEmail canonicalizes addresses so lookups and uniqueness checks
// never depend on the caller's casing.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emptyStr(s *string) bool {
	return s == nil || *s == ""
}

func subjectFromUser(user *models.User) models.AuthSubject {
	return models.AuthSubject{
		ID:         user.ID,
		Name:       user.Name,
		Username:   user.Username,
		Email:      user.Email,
		Role:       user.Role,
		DistrictID: user.DistrictID,
		Points:     user.Points,
	}
}
