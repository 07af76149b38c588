package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"aromasabor/internal/forms"
	"aromasabor/internal/metrics"
	"aromasabor/internal/models"
	"aromasabor/internal/schema"
)

// ErrPasswordTooLong is returned when a password exceeds bcrypt's 72 byte
// input limit. Multi-byte characters can pass the form's length check and
// still hit it.
var ErrPasswordTooLong = errors.New("password is longer than 72 bytes")

// AuthService checks and creates back-office accounts.
type AuthService struct {
	gateway   *Gateway
	cost      int
	dummyHash []byte
	log       *logrus.Entry
	metrics   *metrics.Metrics
}

func NewAuthService(g *Gateway, cost int, log *logrus.Logger, m *metrics.Metrics) (*AuthService, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown, so both failure paths
	// cost one bcrypt comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt cost %d: %w", cost, err)
	}
	return &AuthService{
		gateway:   g,
		cost:      cost,
		dummyHash: dummy,
		log:       log.WithField("component", "auth"),
		metrics:   m,
	}, nil
}

// VerifyCredentials returns the id of the user with exactly this username and
// password. Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (a *AuthService) VerifyCredentials(ctx context.Context, username, password string) (int64, error) {
	m, err := a.gateway.FindBy(ctx, models.UserEntity, models.UserUsername, username)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		a.metrics.Login(metrics.OutcomeInvalid)
		return 0, ErrInvalidCredentials
	}
	if err != nil {
		a.metrics.Login(metrics.OutcomeError)
		return 0, err
	}

	u := m.(*models.User)
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		a.metrics.Login(metrics.OutcomeInvalid)
		return 0, ErrInvalidCredentials
	}
	a.metrics.Login(metrics.OutcomeOK)
	return u.ID, nil
}

// User loads the account with the given id.
func (a *AuthService) User(ctx context.Context, id int64) (*models.User, error) {
	m, err := a.gateway.Get(ctx, models.UserEntity, id)
	if err != nil {
		return nil, err
	}
	return m.(*models.User), nil
}

// Register creates an account from validated registration values.
func (a *AuthService) Register(ctx context.Context, v schema.Values) (int64, error) {
	hash, err := a.hash(v.String(models.UserPassword))
	if err != nil {
		return 0, err
	}
	u := &models.User{}
	u.Apply(v)
	u.PasswordHash = hash
	if err := a.gateway.Insert(ctx, models.UserEntity, u); err != nil {
		return 0, err
	}
	a.log.WithField("username", u.Username).Info("user registered")
	return u.ID, nil
}

// EnsureAdmin creates the first account when no user exists yet. The
// account goes through the same validation as the registration form.
func (a *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	n, err := a.gateway.Count(ctx, models.UserEntity)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	values, errs := forms.Validate(models.UserEntity, url.Values{
		models.UserUsername:        {username},
		models.UserEmail:           {email},
		models.UserPassword:        {password},
		models.UserPasswordConfirm: {password},
	})
	if errs != nil {
		return false, fmt.Errorf("admin account %q: %w", username, errs)
	}
	if _, err := a.Register(ctx, values); err != nil {
		return false, fmt.Errorf("create admin %q: %w", username, err)
	}
	return true, nil
}

func (a *AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(h), nil
}
