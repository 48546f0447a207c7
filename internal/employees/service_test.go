package employees

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shoiron/shoiron/internal/rbac"
)

// Self-protection is checked before any storage work, so these run without a
// database.

func TestUpdateRejectsSelfDeactivation(t *testing.T) {
	svc := NewService(nil, nil)
	inactive := false

	_, err := svc.Update(context.Background(), 7, 7, UpdateInput{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrSelfDeactivate)
}

func TestDeleteRejectsSelf(t *testing.T) {
	svc := NewService(nil, nil)

	err := svc.Delete(context.Background(), 7, 7)
	assert.ErrorIs(t, err, ErrSelfDelete)

	err = svc.HardDelete(context.Background(), 7, 7)
	assert.ErrorIs(t, err, ErrSelfDelete)
}

func TestFromProfile(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	profile := &rbac.Profile{
		ID:                    3,
		FullName:              "Aigerim S.",
		Email:                 "aigerim@example.com",
		IsActive:              true,
		MustChangePassword:    true,
		TempPasswordExpiresAt: &expires,
		Role:                  &rbac.Role{ID: 2, Name: "Editors", IsActive: true},
	}

	e := fromProfile(profile)
	assert.Equal(t, int64(3), e.ID)
	assert.Equal(t, "aigerim@example.com", e.Email)
	assert.True(t, e.MustChangePassword)
	assert.Equal(t, &RoleRef{ID: 2, Name: "Editors", IsActive: true}, e.Role)

	profile.Role = nil
	assert.Nil(t, fromProfile(profile).Role)
	assert.Nil(t, fromProfile(nil))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", normalizeEmail("  User@Example.COM "))
}
