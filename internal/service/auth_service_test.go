package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicnet/civicconnect-api/internal/models"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type fakeUserRepo struct {
	byEmail    map[string]*models.User
	byUsername map[string]*models.User
	created    []*models.User
	lastLogin  map[string]time.Time
	passwords  map[string]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail:    map[string]*models.User{},
		byUsername: map[string]*models.User{},
		lastLogin:  map[string]time.Time{},
		passwords:  map[string]string{},
	}
}

func (f *fakeUserRepo) add(user *models.User) {
	f.byEmail[user.Email] = user
	f.byUsername[user.Username] = user
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if user, ok := f.byUsername[username]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, user := range f.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = "user-" + user.Username
	f.created = append(f.created, user)
	f.add(user)
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	f.lastLogin[id] = ts
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	f.passwords[id] = hash
	return nil
}

type fakeSuperAdminRepo struct {
	admin *models.SuperAdmin
}

func (f *fakeSuperAdminRepo) Exists(context.Context) (bool, error) {
	return f.admin != nil, nil
}

func (f *fakeSuperAdminRepo) Find(context.Context) (*models.SuperAdmin, error) {
	if f.admin != nil {
		return f.admin, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSuperAdminRepo) FindByEmail(_ context.Context, email string) (*models.SuperAdmin, error) {
	if f.admin != nil && f.admin.Email == email {
		return f.admin, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSuperAdminRepo) Create(_ context.Context, admin *models.SuperAdmin) error {
	if f.admin != nil {
		return errors.New("duplicate key value violates unique constraint")
	}
	admin.ID = "sa-1"
	f.admin = admin
	return nil
}

func (f *fakeSuperAdminRepo) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (f *fakeSuperAdminRepo) UpdatePassword(_ context.Context, _, hash string, _ time.Time) error {
	if f.admin != nil {
		f.admin.PasswordHash = hash
	}
	return nil
}

type fakeDistrictAuthRepo struct {
	byAdminEmail map[string]*models.District
	passwords    map[string]string
}

func (f *fakeDistrictAuthRepo) FindByAdminEmail(_ context.Context, email string) (*models.District, error) {
	if f.byAdminEmail == nil {
		return nil, sql.ErrNoRows
	}
	if d, ok := f.byAdminEmail[email]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDistrictAuthRepo) UpdateAdminPassword(_ context.Context, districtID, hash string) error {
	if f.passwords == nil {
		f.passwords = map[string]string{}
	}
	f.passwords[districtID] = hash
	return nil
}

type fakeApplicationAuthRepo struct {
	byEmail map[string]*models.DistrictApplication
	created []*models.DistrictApplication
}

func (f *fakeApplicationAuthRepo) Create(_ context.Context, app *models.DistrictApplication) error {
	app.ID = "app-1"
	f.created = append(f.created, app)
	if f.byEmail == nil {
		f.byEmail = map[string]*models.DistrictApplication{}
	}
	f.byEmail[app.AdminEmail] = app
	return nil
}

func (f *fakeApplicationAuthRepo) FindByAdminEmail(_ context.Context, email string) (*models.DistrictApplication, error) {
	if f.byEmail == nil {
		return nil, sql.ErrNoRows
	}
	if app, ok := f.byEmail[email]; ok {
		return app, nil
	}
	return nil, sql.ErrNoRows
}

type fakeGeocoder struct {
	loc *models.ResolvedLocation
	err error
}

func (f *fakeGeocoder) Reverse(context.Context, float64, float64) (*models.ResolvedLocation, error) {
	return f.loc, f.err
}

type fakeOTP struct {
	code     string
	verified map[string]string
	failWith error
}

func (f *fakeOTP) Generate(_ context.Context, subject string) (string, error) {
	f.code = "123456"
	return f.code, nil
}

func (f *fakeOTP) Verify(_ context.Context, subject, code string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if code != f.code {
		return appErrors.Clone(appErrors.ErrUnauthorized, "invalid otp")
	}
	if f.verified == nil {
		f.verified = map[string]string{}
	}
	f.verified[subject] = code
	return nil
}

type fakeNotificationSink struct {
	sent []models.Notification
}

func (f *fakeNotificationSink) Notify(n models.Notification) {
	f.sent = append(f.sent, n)
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthService(users *fakeUserRepo, supers *fakeSuperAdminRepo, districts *fakeDistrictAuthRepo, apps *fakeApplicationAuthRepo, geo *fakeGeocoder) (*AuthService, *fakeMailer) {
	mail := &fakeMailer{}
	svc := NewAuthService(users, supers, districts, apps, geo, &fakeOTP{}, mail, nil, nil, nil, AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "civicconnect-test",
	})
	return svc, mail
}

func citizenSignupRequest() models.SignupRequest {
	return models.SignupRequest{
		Name:         "Asha",
		Username:     "asha",
		Email:        "asha@example.com",
		Password:     "secret123",
		Role:         models.RoleUser,
		PhoneNumber:  "9999999999",
		AadharNumber: "111122223333",
	}
}

func TestSignupCitizenIssuesToken(t *testing.T) {
	users := newFakeUserRepo()
	svc, _ := newAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	resp, err := svc.Signup(context.Background(), citizenSignupRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	require.Len(t, users.created, 1)
	assert.Equal(t, models.ApprovalApproved, users.created[0].ApprovalStatus)
}

func TestSignupCitizenGeocodeEnrichment(t *testing.T) {
	users := newFakeUserRepo()
	geo := &fakeGeocoder{loc: &models.ResolvedLocation{DistrictName: "Pune", State: "Maharashtra"}}
	svc, _ := newAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, geo)

	lat, lng := 18.52, 73.85
	req := citizenSignupRequest()
	req.Latitude = &lat
	req.Longitude = &lng

	_, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, users.created, 1)
	require.NotNil(t, users.created[0].DistrictName)
	assert.Equal(t, "Pune", *users.created[0].DistrictName)
}

func TestSignupCitizenGeocodeFailureIsSwallowed(t *testing.T) {
	users := newFakeUserRepo()
	geo := &fakeGeocoder{err: errors.New("provider down")}
	svc, _ := newAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, geo)

	lat, lng := 18.52, 73.85
	req := citizenSignupRequest()
	req.Latitude = &lat
	req.Longitude = &lng

	resp, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Nil(t, users.created[0].DistrictName)
}

func TestSignupAdminCreatesPendingApplication(t *testing.T) {
	apps := &fakeApplicationAuthRepo{}
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, apps, nil)

	name, state := "Pune", "Maharashtra"
	req := citizenSignupRequest()
	req.Role = models.RoleAdmin
	req.DistrictName = &name
	req.State = &state

	resp, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Token)
	assert.Nil(t, resp.User)
	require.NotNil(t, resp.Application)
	assert.Equal(t, models.ApprovalPending, resp.Application.Status)
	require.Len(t, apps.created, 1)
	assert.NotEqual(t, "secret123", apps.created[0].AdminPassword)
}

func TestSignupAdminNotifiesSuperAdmin(t *testing.T) {
	supers := &fakeSuperAdminRepo{admin: &models.SuperAdmin{ID: "sa-1", Name: "Root", Email: "root@example.com", IsActive: true}}
	sink := &fakeNotificationSink{}
	svc := NewAuthService(newFakeUserRepo(), supers, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil, &fakeOTP{}, &fakeMailer{}, sink, nil, nil, AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
	})

	name, state := "Pune", "Maharashtra"
	req := citizenSignupRequest()
	req.Role = models.RoleAdmin
	req.DistrictName = &name
	req.State = &state

	_, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, sink.sent, 1)
	assert.Equal(t, models.RecipientSuperAdmin, sink.sent[0].RecipientKind)
	assert.Equal(t, "sa-1", sink.sent[0].RecipientID)
	assert.Contains(t, sink.sent[0].Message, "Pune")
}

func TestSignupAdminSucceedsWithoutSuperAdmin(t *testing.T) {
	sink := &fakeNotificationSink{}
	apps := &fakeApplicationAuthRepo{}
	svc := NewAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, apps, nil, &fakeOTP{}, &fakeMailer{}, sink, nil, nil, AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
	})

	req := citizenSignupRequest()
	req.Role = models.RoleAdmin

	resp, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Application)
	assert.Empty(t, sink.sent)
}

func TestSignupAdminEnrichesMissingState(t *testing.T) {
	apps := &fakeApplicationAuthRepo{}
	geo := &fakeGeocoder{loc: &models.ResolvedLocation{DistrictName: "Pune", State: "Maharashtra"}}
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, apps, geo)

	lat, lng := 18.52, 73.85
	name := "Pune"
	req := citizenSignupRequest()
	req.Role = models.RoleAdmin
	req.DistrictName = &name
	req.Latitude = &lat
	req.Longitude = &lng

	resp, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Application.State)
	assert.Equal(t, "Maharashtra", *resp.Application.State)
	require.NotNil(t, resp.Application.Name)
	assert.Equal(t, "Pune", *resp.Application.Name)
}

func TestSignupAdminDuplicatePendingRejected(t *testing.T) {
	apps := &fakeApplicationAuthRepo{byEmail: map[string]*models.DistrictApplication{
		"asha@example.com": {Status: models.ApprovalPending, AdminEmail: "asha@example.com"},
	}}
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, apps, nil)

	req := citizenSignupRequest()
	req.Role = models.RoleAdmin

	_, err := svc.Signup(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSignupSuperAdminSingleton(t *testing.T) {
	supers := &fakeSuperAdminRepo{}
	svc, _ := newAuthService(newFakeUserRepo(), supers, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	req := citizenSignupRequest()
	req.Role = models.RoleSuperAdmin

	resp, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	second := citizenSignupRequest()
	second.Role = models.RoleSuperAdmin
	second.Email = "other@example.com"
	second.Username = "other"

	_, err = svc.Signup(context.Background(), second)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLoginSuccess(t *testing.T) {
	users := newFakeUserRepo()
	users.add(&models.User{
		ID:             "u1",
		Name:           "Asha",
		Username:       "asha",
		Email:          "asha@example.com",
		PasswordHash:   hashPassword(t, "secret123"),
		Role:           models.RoleUser,
		ApprovalStatus: models.ApprovalApproved,
		IsActive:       true,
	})
	svc, _ := newAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Contains(t, users.lastLogin, "u1")
}

func TestSignupAndLoginNormalizeEmailCase(t *testing.T) {
	users := newFakeUserRepo()
	svc, _ := newAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	req := citizenSignupRequest()
	req.Email = "Asha@Example.COM"
	resp, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", resp.User.Email)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ASHA@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
}

func TestLoginWrongPassword(t *testing.T) {
	users := newFakeUserRepo()
	users.add(&models.User{
		ID:           "u1",
		Email:        "asha@example.com",
		Username:     "asha",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleUser,
		IsActive:     true,
	})
	svc, _ := newAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginPendingApplicationPrecedence(t *testing.T) {
	apps := &fakeApplicationAuthRepo{byEmail: map[string]*models.DistrictApplication{
		"ravi@example.com": {Status: models.ApprovalPending, AdminEmail: "ravi@example.com"},
	}}
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, apps, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ravi@example.com", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountPending.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectedApplicationSurfacesReason(t *testing.T) {
	reason := "incomplete documents"
	apps := &fakeApplicationAuthRepo{byEmail: map[string]*models.DistrictApplication{
		"ravi@example.com": {Status: models.ApprovalRejected, AdminEmail: "ravi@example.com", DecisionReason: &reason},
	}}
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, apps, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ravi@example.com", Password: "whatever"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAccountRejected.Code, appErr.Code)
	assert.Equal(t, reason, appErr.Message)
}

func TestDistrictAdminLogin(t *testing.T) {
	district := &models.District{ID: "d1", Name: "Pune", State: "Maharashtra", Verified: true, IsActive: true}
	district.SetEmbeddedAdmin(models.AdminProfile{
		Name:         "Ravi",
		Username:     "ravi",
		Email:        "ravi@example.com",
		PasswordHash: hashPassword(t, "secret123"),
	})
	districts := &fakeDistrictAuthRepo{byAdminEmail: map[string]*models.District{"ravi@example.com": district}}
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, districts, &fakeApplicationAuthRepo{}, nil)

	resp, err := svc.DistrictAdminLogin(context.Background(), models.LoginRequest{Email: "ravi@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	require.NotNil(t, resp.User.DistrictID)
	assert.Equal(t, "d1", *resp.User.DistrictID)
}

func TestSuperAdminLogin(t *testing.T) {
	supers := &fakeSuperAdminRepo{admin: &models.SuperAdmin{
		ID:           "sa-1",
		Name:         "Root",
		Email:        "root@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		IsActive:     true,
	}}
	svc, _ := newAuthService(newFakeUserRepo(), supers, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	resp, err := svc.SuperAdminLogin(context.Background(), models.LoginRequest{Email: "root@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, resp.User.Role)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	users := newFakeUserRepo()
	svc, _ := newAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	resp, err := svc.Signup(context.Background(), citizenSignupRequest())
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "ghost@example.com"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	users := newFakeUserRepo()
	users.add(&models.User{
		ID:           "u1",
		Name:         "Asha",
		Username:     "asha",
		Email:        "asha@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleUser,
		IsActive:     true,
	})
	otp := &fakeOTP{}
	mail := &fakeMailer{}
	svc := NewAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil, otp, mail, nil, nil, nil, AuthConfig{TokenSecret: "s", TokenExpiry: time.Hour})

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "asha@example.com"}))
	assert.Equal(t, []string{"asha@example.com"}, mail.sent)

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Email: "asha@example.com", OTP: otp.code, NewPassword: "newsecret"})
	require.NoError(t, err)
	assert.Contains(t, users.passwords, "u1")
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	users := newFakeUserRepo()
	users.add(&models.User{
		ID:           "u1",
		Email:        "asha@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleUser,
		IsActive:     true,
	})
	svc, _ := newAuthService(users, &fakeSuperAdminRepo{}, &fakeDistrictAuthRepo{}, &fakeApplicationAuthRepo{}, nil)
	claims := &models.JWTClaims{UserID: "u1", Email: "asha@example.com", Role: models.RoleUser}

	err := svc.ChangePassword(context.Background(), claims, models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newsecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	assert.NotContains(t, users.passwords, "u1")

	err = svc.ChangePassword(context.Background(), claims, models.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret"})
	require.NoError(t, err)
	assert.Contains(t, users.passwords, "u1")
}

func TestChangePasswordDistrictAdminUpdatesEmbeddedProfile(t *testing.T) {
	district := &models.District{ID: "d1", Name: "Pune", State: "Maharashtra"}
	district.SetEmbeddedAdmin(models.AdminProfile{
		Name:         "Ravi",
		Email:        "ravi@example.com",
		PasswordHash: hashPassword(t, "secret123"),
	})
	districts := &fakeDistrictAuthRepo{byAdminEmail: map[string]*models.District{"ravi@example.com": district}}
	svc, _ := newAuthService(newFakeUserRepo(), &fakeSuperAdminRepo{}, districts, &fakeApplicationAuthRepo{}, nil)
	claims := &models.JWTClaims{Email: "ravi@example.com", Role: models.RoleAdmin}

	err := svc.ChangePassword(context.Background(), claims, models.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret"})
	require.NoError(t, err)
	assert.Contains(t, districts.passwords, "d1")
}
