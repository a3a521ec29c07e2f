package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
	"github.com/oksasatya/go-adoptme/pkg/validation"
)

var errInvalidCredentials = apperror.Unauthenticated("invalid credentials")

type SessionService struct {
	Users    repo.UserRepository
	JWT      *helpers.JWTManager
	Revoker  Revoker
	Logger   logrus.FieldLogger
	HashCost int

	now func() time.Time
}

func NewSessionService(users repo.UserRepository, jwt *helpers.JWTManager, revoker Revoker, logger logrus.FieldLogger) *SessionService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &SessionService{
		Users:    users,
		JWT:      jwt,
		Revoker:  revoker,
		Logger:   logger,
		HashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,pwd"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is an authenticated user plus the signed identity token.
type Session struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

func subjectOf(u *entity.User) entity.Subject {
	return entity.Subject{ID: u.ID, Role: u.Role, Email: u.Email, Name: u.FullName()}
}

func (s *SessionService) issue(u *entity.User) (*Session, error) {
	token, exp, err := s.JWT.Generate(subjectOf(u))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &Session{User: u, Token: token, ExpiresAt: exp}, nil
}

func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = entity.NormalizeEmail(in.Email)
	if details := validation.Struct(in); details != nil {
		return nil, apperror.Validation("invalid payload", details)
	}
	hash, err := helpers.HashPasswordCost(in.Password, s.HashCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	now := s.now()
	u := &entity.User{
		ID:             helpers.NewID(),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Password:       hash,
		Role:           entity.RoleUser,
		Pets:           []string{},
		LastConnection: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Users.Insert(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, apperror.Internal(err)
	}
	if err := s.Users.TouchLastConnection(ctx, u.ID, now); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("touch last connection failed")
	}
	s.Logger.WithField("user_id", u.ID).Info("user registered")
	return s.issue(u)
}

// Login never tells an unknown email apart from a wrong password.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = entity.NormalizeEmail(in.Email)
	if details := validation.Struct(in); details != nil {
		return nil, apperror.Validation("invalid payload", details)
	}
	u, err := s.Users.FindOne(ctx, repo.UserFilter{Email: in.Email})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperror.Internal(err)
	}
	if !helpers.CompareHashAndPassword(u.Password, in.Password) {
		if err := s.Users.SetFailedLogins(ctx, u.ID, u.FailedLoginAttempts+1); err != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("record failed login")
		}
		s.Logger.WithField("user_id", u.ID).Info("login rejected")
		return nil, errInvalidCredentials
	}
	if u.FailedLoginAttempts > 0 {
		if err := s.Users.SetFailedLogins(ctx, u.ID, 0); err != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("reset failed logins")
		}
		u.FailedLoginAttempts = 0
	}
	now := s.now()
	if err := s.Users.TouchLastConnection(ctx, u.ID, now); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("touch last connection failed")
	}
	u.LastConnection = &now
	return s.issue(u)
}

// Current returns the stored profile behind the subject.
func (s *SessionService) Current(ctx context.Context, subj entity.Subject) (*entity.User, error) {
	if !subj.Authenticated() {
		return nil, apperror.Unauthenticated("authentication required")
	}
	u, err := s.Users.FindByID(ctx, subj.ID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	now := s.now()
	if err := s.Users.TouchLastConnection(ctx, u.ID, now); err == nil {
		u.LastConnection = &now
	}
	return u, nil
}

// Logout revokes the token id until its expiry.
func (s *SessionService) Logout(ctx context.Context, subj entity.Subject, jti string, exp time.Time) error {
	if s.Revoker != nil && jti != "" {
		if err := s.Revoker.Revoke(ctx, jti, exp); err != nil {
			return apperror.Internal(err)
		}
	}
	if subj.Authenticated() {
		if err := s.Users.TouchLastConnection(ctx, subj.ID, s.now()); err != nil && !errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithError(err).WithField("user_id", subj.ID).Warn("touch last connection failed")
		}
	}
	return nil
}
