// Package users keeps the local account row for each Firebase identity.
package users

import (
	"context"
	"errors"
	"time"

	fbauth "github.com/bionicotaku/lingo-utils-fbauth"
)

// Subscription states a user row may hold.
const (
	StatusInactive = "inactive"
	StatusTrial    = "trial"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"

	DefaultPlan         = "free"
	DefaultGuardianName = "Guardian"
)

// ErrMissingSubject is returned when verified claims carry no user id.
var ErrMissingSubject = errors.New("users: token claims missing subject")

// User is a guardian account. FirebaseUID is never serialised.
type User struct {
	ID                      int64      `json:"id"`
	FirebaseUID             string     `json:"-"`
	Email                   string     `json:"email,omitempty"`
	DisplayName             string     `json:"displayName,omitempty"`
	GuardianName            string     `json:"guardianName,omitempty"`
	IsGuardian              bool       `json:"isGuardian"`
	SubscriptionStatus      string     `json:"subscriptionStatus"`
	SubscriptionPlan        string     `json:"subscriptionPlan"`
	SubscriptionRenewalDate *time.Time `json:"subscriptionRenewalDate,omitempty"`
	BillingEmail            string     `json:"billingEmail,omitempty"`
	BillingPhone            string     `json:"billingPhone,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// Store persists users keyed by Firebase uid.
type Store interface {
	// FindOrCreate returns the user with defaults.FirebaseUID, inserting
	// defaults when no such user exists.
	FindOrCreate(ctx context.Context, defaults User) (*User, error)
	// UpdateProfile saves the email, display name and guardian name of u.
	UpdateProfile(ctx context.Context, u *User) error
}

// Service maps verified token claims onto local users.
type Service struct {
	store Store
}

// NewService returns a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// UpsertFromClaims finds or creates the user for claims and refreshes its
// email and display name when the identity provider reports new values.
func (s *Service) UpsertFromClaims(ctx context.Context, claims fbauth.Claims) (*User, error) {
	uid := claims.Subject()
	if uid == "" {
		return nil, ErrMissingSubject
	}
	email, name := claims.Email(), claims.Name()

	display := DefaultGuardianName
	switch {
	case name != "":
		display = name
	case email != "":
		display = email
	}

	u, err := s.store.FindOrCreate(ctx, User{
		FirebaseUID:        uid,
		Email:              email,
		DisplayName:        display,
		GuardianName:       display,
		IsGuardian:         true,
		SubscriptionStatus: StatusTrial,
		SubscriptionPlan:   DefaultPlan,
	})
	if err != nil {
		return nil, err
	}

	changed := false
	if email != "" && u.Email != email {
		u.Email = email
		changed = true
	}
	if name != "" && u.DisplayName != name {
		u.DisplayName = name
		if u.GuardianName == "" {
			u.GuardianName = name
		}
		changed = true
	}
	if !changed {
		return u, nil
	}
	if err := s.store.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
