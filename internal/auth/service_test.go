package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shoiron/shoiron/internal/rbac"
)

type fakeRepo struct {
	cred    *Credential
	setArgs []setPasswordCall
	setErr  error
}

type setPasswordCall struct {
	userID     int64
	hash       string
	mustChange bool
	expiresAt  *time.Time
}

func (f *fakeRepo) CredentialByEmail(_ context.Context, email string) (*Credential, error) {
	if f.cred == nil || f.cred.Profile.Email != email {
		return nil, rbac.ErrNotFound
	}
	return f.cred, nil
}

func (f *fakeRepo) SetPassword(_ context.Context, userID int64, hash string, mustChange bool, expiresAt *time.Time) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setArgs = append(f.setArgs, setPasswordCall{userID: userID, hash: hash, mustChange: mustChange, expiresAt: expiresAt})
	return nil
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func activeProfile(t *testing.T) (*rbac.Profile, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &rbac.Profile{
		ID:       7,
		Email:    "editor@example.com",
		FullName: "Editor",
		IsActive: true,
		Role:     &rbac.Role{ID: 1, Name: "Editors", IsActive: true, Matrix: rbac.FullMatrix()},
	}, string(hash)
}

func newService(repo Repository, sender *fakeMailer) *Service {
	return NewService(repo, sender, time.Hour, nil)
}

func TestLoginSuccess(t *testing.T) {
	profile, hash := activeProfile(t)
	repo := &fakeRepo{cred: &Credential{Profile: profile, PasswordHash: hash}}
	svc := newService(repo, &fakeMailer{})

	got, err := svc.Login(context.Background(), "editor@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
}

func TestLoginUnknownEmailAndWrongPasswordFailAlike(t *testing.T) {
	profile, hash := activeProfile(t)
	repo := &fakeRepo{cred: &Credential{Profile: profile, PasswordHash: hash}}
	svc := newService(repo, &fakeMailer{})

	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "correct horse")
	_, errWrong := svc.Login(context.Background(), "editor@example.com", "wrong")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	profile, hash := activeProfile(t)
	profile.IsActive = false
	repo := &fakeRepo{cred: &Credential{Profile: profile, PasswordHash: hash}}
	svc := newService(repo, &fakeMailer{})

	_, err := svc.Login(context.Background(), "editor@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestLoginRoleStates(t *testing.T) {
	deleted := time.Now()
	cases := map[string]func(p *rbac.Profile){
		"missing role":  func(p *rbac.Profile) { p.Role = nil },
		"inactive role": func(p *rbac.Profile) { p.Role.IsActive = false },
		"deleted role":  func(p *rbac.Profile) { p.Role.DeletedAt = &deleted },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			profile, hash := activeProfile(t)
			mutate(profile)
			repo := &fakeRepo{cred: &Credential{Profile: profile, PasswordHash: hash}}
			svc := newService(repo, &fakeMailer{})

			_, err := svc.Login(context.Background(), "editor@example.com", "correct horse")
			assert.ErrorIs(t, err, ErrRoleInactive)
		})
	}
}

func TestLoginExpiredTempPassword(t *testing.T) {
	profile, hash := activeProfile(t)
	expired := time.Now().Add(-time.Minute)
	profile.MustChangePassword = true
	profile.TempPasswordExpiresAt = &expired
	repo := &fakeRepo{cred: &Credential{Profile: profile, PasswordHash: hash}}
	svc := newService(repo, &fakeMailer{})

	_, err := svc.Login(context.Background(), "editor@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrTempPasswordExpired)
}

func TestLoginUnexpiredTempPasswordSucceeds(t *testing.T) {
	profile, hash := activeProfile(t)
	future := time.Now().Add(30 * time.Minute)
	profile.MustChangePassword = true
	profile.TempPasswordExpiresAt = &future
	repo := &fakeRepo{cred: &Credential{Profile: profile, PasswordHash: hash}}
	svc := newService(repo, &fakeMailer{})

	got, err := svc.Login(context.Background(), "editor@example.com", "correct horse")
	require.NoError(t, err)
	assert.True(t, got.MustChangePassword)
}

func TestChangePasswordClearsForcedState(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, &fakeMailer{})

	require.NoError(t, svc.ChangePassword(context.Background(), 7, "new password 123"))
	require.Len(t, repo.setArgs, 1)
	call := repo.setArgs[0]
	assert.Equal(t, int64(7), call.userID)
	assert.False(t, call.mustChange)
	assert.Nil(t, call.expiresAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(call.hash), []byte("new password 123")))
}

func TestForgotPasswordSendsBeforeMutating(t *testing.T) {
	profile, hash := activeProfile(t)
	repo := &fakeRepo{cred: &Credential{Profile: profile, PasswordHash: hash}}
	sender := &fakeMailer{err: errors.New("smtp down")}
	svc := newService(repo, sender)

	_, err := svc.ForgotPassword(context.Background(), "editor@example.com")
	require.Error(t, err)
	assert.Empty(t, repo.setArgs, "a failed send must not change the password")
}

func TestForgotPasswordIssuesTempPassword(t *testing.T) {
	profile, hash := activeProfile(t)
	repo := &fakeRepo{cred: &Credential{Profile: profile, PasswordHash: hash}}
	sender := &fakeMailer{}
	svc := newService(repo, sender)

	found, err := svc.ForgotPassword(context.Background(), "editor@example.com")
	require.NoError(t, err)
	assert.True(t, found)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "editor@example.com", sender.sent[0].to)

	require.Len(t, repo.setArgs, 1)
	call := repo.setArgs[0]
	assert.True(t, call.mustChange)
	require.NotNil(t, call.expiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *call.expiresAt, time.Minute)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	repo := &fakeRepo{}
	sender := &fakeMailer{}
	svc := newService(repo, sender)

	found, err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, sender.sent)
	assert.Empty(t, repo.setArgs)
}
