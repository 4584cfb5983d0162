package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DemoEmail    = "test@example.com"
	DemoPassword = "password"
)

// TokenIssuer signs access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// Session is returned by Login and Signup.
type Session struct {
	Token   string  `json:"token"`
	Profile Profile `json:"user"`
}

// Directory manages accounts and their profiles.
type Directory struct {
	store  Store
	tokens TokenIssuer
	logger *zap.Logger
}

func NewDirectory(store Store, tokens TokenIssuer, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{store: store, tokens: tokens, logger: logger}
}

// Login checks credentials and issues a token. The demo account is created on first use.
func (d *Directory) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrMissingFields)
	}

	account, err := d.store.Get(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound) && email == DemoEmail && password == DemoPassword:
		account = demoAccount()
		if err := d.store.Insert(ctx, account); err != nil && !errors.Is(err, ErrEmailTaken) {
			return Session{}, fmt.Errorf("failed to provision demo user: %w", err)
		}
		// A concurrent login may have won the insert.
		if account, err = d.store.Get(ctx, email); err != nil {
			return Session{}, fmt.Errorf("failed to load demo user: %w", err)
		}
		d.logger.Info("Provisioned demo user", zap.String("email", email))
	case errors.Is(err, ErrNotFound):
		return Session{}, ErrInvalidCredentials
	case err != nil:
		return Session{}, fmt.Errorf("failed to load user: %w", err)
	}

	if account.Password != password {
		return Session{}, ErrInvalidCredentials
	}
	return d.session(account.Profile)
}

// Signup registers a new account and signs it in.
func (d *Directory) Signup(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: name, email, and password are required", ErrMissingFields)
	}

	account := Account{
		Profile: Profile{
			ID:        uuid.NewString(),
			Name:      name,
			Email:     email,
			DietType:  DietNone,
			Allergies: []string{},
			Preferences: Preferences{
				CuisinePreferences:   []string{},
				UseFrozenIngredients: true,
			},
		},
		Password: password,
	}
	if err := d.store.Insert(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("failed to store user: %w", err)
	}

	d.logger.Info("Registered user", zap.String("email", email), zap.String("id", account.ID))
	return d.session(account.Profile)
}

func (d *Directory) Profile(ctx context.Context, email string) (Profile, error) {
	account, err := d.store.Get(ctx, normalizeEmail(email))
	if err != nil {
		return Profile{}, err
	}
	return account.Profile, nil
}

// UpdateProfile applies patch to the mutable profile fields.
func (d *Directory) UpdateProfile(ctx context.Context, email string, patch ProfilePatch) (Profile, error) {
	if err := patch.validate(); err != nil {
		return Profile{}, err
	}

	account, err := d.store.Get(ctx, normalizeEmail(email))
	if err != nil {
		return Profile{}, err
	}
	patch.apply(&account.Profile)

	if err := d.store.Put(ctx, account); err != nil {
		return Profile{}, fmt.Errorf("failed to store user: %w", err)
	}
	return account.Profile, nil
}

func (d *Directory) session(p Profile) (Session, error) {
	token, err := d.tokens.Issue(p.Email)
	if err != nil {
		return Session{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return Session{Token: token, Profile: p}, nil
}

func demoAccount() Account {
	return Account{
		Profile: Profile{
			ID:    uuid.NewString(),
			Name:  "Test User",
			Email: DemoEmail,
			DietaryGoals: DietaryGoals{
				Calories: 2000,
				Protein:  100,
				Fat:      70,
				Carbs:    250,
			},
			DietType:  DietNone,
			Allergies: []string{},
			Preferences: Preferences{
				CuisinePreferences:   []string{"Italian", "Mediterranean"},
				UseFrozenIngredients: true,
			},
		},
		Password: DemoPassword,
	}
}
