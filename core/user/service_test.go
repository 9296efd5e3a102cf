package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DailyDoseOfWezs/Schedulink/core"
)

// mailSvcMock captures messages synchronously for assertions.
type mailSvcMock struct {
	msgs []*core.EmailMessage
}

func (m *mailSvcMock) SendMessages(messages ...*core.EmailMessage) {
	m.msgs = append(m.msgs, messages...)
}

// fakeRepo is a map-backed Repository; the storage-level implementations have
// their own tests.
type fakeRepo struct {
	users map[string]User
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]User)}
}

func (r *fakeRepo) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...User) error {
	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}
	for _, usr := range r.users {
		if _, skip := excluded[usr.ID]; skip {
			continue
		}
		if strings.EqualFold(usr.Email, email) {
			return ErrUserExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateUser(_ context.Context, usr User) (User, error) {
	usr.ID = uuid.New().String()
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeRepo) GetUser(_ context.Context, filter GetFilter) (User, error) {
	for _, usr := range r.users {
		if (filter.ID != "" && usr.ID == filter.ID) ||
			(filter.Email != "" && strings.EqualFold(usr.Email, filter.Email)) {
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *fakeRepo) QueryUsers(_ context.Context, _ *QueryFilter, _ []core.DBOrdering) ([]User, error) {
	users := make([]User, 0, len(r.users))
	for _, usr := range r.users {
		users = append(users, usr)
	}
	return users, nil
}

func (r *fakeRepo) UpdateUser(_ context.Context, usr User, isActive *bool) (User, error) {
	orig, ok := r.users[usr.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.AvatarURL != "" {
		orig.AvatarURL = usr.AvatarURL
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if !usr.UpdatedAt.IsZero() {
		orig.UpdatedAt = usr.UpdatedAt
	}
	if !usr.LastLogin.IsZero() {
		orig.LastLogin = usr.LastLogin
	}
	if isActive != nil {
		orig.IsActive = isActive
	}
	r.users[usr.ID] = orig
	return orig, nil
}

func (r *fakeRepo) UpdateOrCreateUser(ctx context.Context, usr User) (User, error) {
	if usr.ID == "" {
		return r.CreateUser(ctx, usr)
	}
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeRepo) DeleteUsersByID(_ context.Context, ids ...string) error {
	for _, id := range ids {
		delete(r.users, id)
	}
	return nil
}

func newTestService(repo Repository) (ServiceInterface, *mailSvcMock) {
	conf := &core.Config{
		AppName:                   "Schedulink",
		SecretKey:                 []byte("secret"),
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	mailSvc := &mailSvcMock{}
	return NewService(repo, mailSvc, conf), mailSvc
}

func TestService_Create(t *testing.T) {
	svc, mailSvc := newTestService(newFakeRepo())
	ctx := context.Background()

	usr, err := svc.Create(ctx, NewUser{
		Name:     "Awe",
		Email:    "awe@test.cd",
		Role:     RoleStudent,
		Password: "LordOfTheRings",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	require.NotNil(t, usr.IsActive)
	assert.True(t, *usr.IsActive)
	assert.NoError(t, usr.CheckPassword("LordOfTheRings"))

	// a welcome email goes out on sign up
	require.Len(t, mailSvc.msgs, 1)
	msg := mailSvc.msgs[0]
	assert.Equal(t, "Welcome to Schedulink", msg.Subject)
	assert.Equal(t, "welcome", msg.TemplateName)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "awe@test.cd", msg.To[0].Address)
}

func TestService_CheckUniqueness(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())
	ctx := context.Background()

	usr, err := svc.Create(ctx, NewUser{Name: "Awe", Email: "awe@test.cd", Role: RoleStudent, Password: "LordOfTheRings"})
	require.NoError(t, err)

	err = svc.CheckUniqueness("awe@test.cd")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "email", vErr.Fields[0].Field)

	// excluding the owner itself passes
	assert.NoError(t, svc.CheckUniqueness("awe@test.cd", usr))
	assert.NoError(t, svc.CheckUniqueness("new@test.cd"))
}

func TestService_PasswordResetFlow(t *testing.T) {
	svc, mailSvc := newTestService(newFakeRepo())
	ctx := context.Background()

	usr, err := svc.Create(ctx, NewUser{Name: "Awe", Email: "awe@test.cd", Role: RoleStudent, Password: "LordOfTheRings"})
	require.NoError(t, err)
	mailSvc.msgs = nil // drop the welcome email

	require.NoError(t, svc.RequestPasswordReset(ctx, "awe@test.cd"))
	require.Len(t, mailSvc.msgs, 1)
	msg := mailSvc.msgs[0]
	assert.Equal(t, "password-reset", msg.TemplateName)

	data, ok := msg.TemplateData.(struct {
		Name  string
		UID   string
		Token string
	})
	require.True(t, ok)
	assert.Equal(t, EncodeUID(usr), data.UID)

	require.NoError(t, svc.ResetPassword(ctx, ResetUserPassword{
		UID:      data.UID,
		Token:    data.Token,
		Password: "TheHobbit",
	}))

	usr, err = svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("TheHobbit"))
	assert.Error(t, usr.CheckPassword("LordOfTheRings"))

	// a used token is burned: the hash changed, so the signature no longer matches
	err = svc.ResetPassword(ctx, ResetUserPassword{UID: data.UID, Token: data.Token, Password: "TwoTowers"})
	assert.Equal(t, errInvalidToken, err)
}

func TestService_RequestPasswordReset_errors(t *testing.T) {
	svc, mailSvc := newTestService(newFakeRepo())
	ctx := context.Background()

	assert.Equal(t, ErrNotFound, svc.RequestPasswordReset(ctx, "ghost@test.cd"))

	usr, err := svc.Create(ctx, NewUser{Name: "Awe", Email: "awe@test.cd", Role: RoleStudent, Password: "LordOfTheRings"})
	require.NoError(t, err)
	deactivated := false
	_, err = svc.Update(ctx, usr.ID, UpdateUser{IsActive: &deactivated})
	require.NoError(t, err)

	mailSvc.msgs = nil
	assert.Equal(t, ErrDeactivated, svc.RequestPasswordReset(ctx, "awe@test.cd"))
	assert.Empty(t, mailSvc.msgs)
}

func TestService_ResetPassword_invalidUID(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	err := svc.ResetPassword(context.Background(), ResetUserPassword{UID: "???", Token: "x", Password: "TheHobbit"})
	assert.Equal(t, errInvalidToken, err)
}

func TestService_SetLastLogin(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())
	ctx := context.Background()

	usr, err := svc.Create(ctx, NewUser{Name: "Awe", Email: "awe@test.cd", Role: RoleStudent, Password: "LordOfTheRings"})
	require.NoError(t, err)
	require.True(t, usr.LastLogin.IsZero())

	usr, err = svc.SetLastLogin(ctx, usr)
	require.NoError(t, err)
	assert.False(t, usr.LastLogin.IsZero())
}
