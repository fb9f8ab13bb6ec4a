package users

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fbauth "github.com/bionicotaku/lingo-utils-fbauth"
)

func TestUpsertFromClaims_CreatesWithDefaults(t *testing.T) {
	svc := NewService(NewMemoryStore())

	u, err := svc.UpsertFromClaims(context.Background(), fbauth.Claims{
		"sub":   "uid-1",
		"email": "parent@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "uid-1", u.FirebaseUID)
	assert.Equal(t, "parent@example.com", u.Email)
	assert.Equal(t, "parent@example.com", u.DisplayName)
	assert.Equal(t, "parent@example.com", u.GuardianName)
	assert.Equal(t, StatusTrial, u.SubscriptionStatus)
	assert.Equal(t, DefaultPlan, u.SubscriptionPlan)
	assert.True(t, u.IsGuardian)
}

func TestUpsertFromClaims_FallsBackToGuardian(t *testing.T) {
	svc := NewService(NewMemoryStore())

	u, err := svc.UpsertFromClaims(context.Background(), fbauth.Claims{"user_id": "uid-2"})
	require.NoError(t, err)
	assert.Equal(t, DefaultGuardianName, u.DisplayName)
	assert.Empty(t, u.Email)
}

func TestUpsertFromClaims_UpdatesChangedProfile(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.UpsertFromClaims(ctx, fbauth.Claims{"sub": "uid-3", "email": "old@example.com", "name": "Sam"})
	require.NoError(t, err)

	second, err := svc.UpsertFromClaims(ctx, fbauth.Claims{"sub": "uid-3", "email": "new@example.com", "name": "Sam Lee"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new@example.com", second.Email)
	assert.Equal(t, "Sam Lee", second.DisplayName)
	assert.Equal(t, "Sam", second.GuardianName, "existing guardian name is kept")

	stored, err := store.FindOrCreate(ctx, User{FirebaseUID: "uid-3"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", stored.Email)
}

func TestUpsertFromClaims_MissingSubject(t *testing.T) {
	svc := NewService(NewMemoryStore())
	_, err := svc.UpsertFromClaims(context.Background(), fbauth.Claims{"email": "x@example.com"})
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestUserJSONHidesFirebaseUID(t *testing.T) {
	raw, err := json.Marshal(User{ID: 7, FirebaseUID: "secret-uid", SubscriptionStatus: StatusTrial})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-uid")
	assert.Contains(t, string(raw), `"id":7`)
}
