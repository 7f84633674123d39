package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"time"

	"data_quest/internal/app/hooks"
	"data_quest/internal/common"
	"data_quest/internal/common/security"
	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,30}$`)

type AuthService struct {
	store        repository.Store
	streaks      *StreakService
	achievements *AchievementService
	hooks        *hooks.Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

func NewAuthService(
	store repository.Store,
	streaks *StreakService,
	achievements *AchievementService,
	dispatcher *hooks.Dispatcher,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		store:        store,
		streaks:      streaks,
		achievements: achievements,
		hooks:        dispatcher,
		logger:       logger,
		now:          time.Now,
	}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	LoginField string `json:"login_field"` // username or email
	Password   string `json:"password"`
}

type AuthResponse struct {
	User            *model.User         `json:"user"`
	Token           string              `json:"token"`
	Streak          *model.StreakUpdate `json:"streak,omitempty"`
	NewAchievements []model.Badge       `json:"newAchievements,omitempty"`
}

func (r SignupRequest) validate() error {
	if !usernamePattern.MatchString(r.Username) {
		return fmt.Errorf("username must be 3-30 letters or digits: %w", common.ErrValidation)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email: %w", common.ErrValidation)
	}
	if len(r.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, common.ErrValidation)
	}
	return nil
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Repos().Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

// Login authenticates the user, then records the day's streak and checks
// achievements. Those two are best-effort and never fail the login.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.LoginField == "" || req.Password == "" {
		return nil, fmt.Errorf("login field and password are required: %w", common.ErrBadRequest)
	}

	users := s.store.Repos().Users
	user, err := users.FindByEmail(ctx, req.LoginField)
	if errors.Is(err, common.ErrNotFound) {
		user, err = users.FindByUsername(ctx, req.LoginField)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	resp := &AuthResponse{User: user, Token: token}

	if streak, err := s.streaks.CheckAndUpdate(ctx, user.ID); err != nil {
		s.logger.Warn("Streak check failed on login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		resp.Streak = streak
		user.TotalXP += int64(streak.XPBonus)
	}
	if badges, err := s.achievements.CheckAchievements(ctx, user.ID); err != nil {
		s.logger.Warn("Achievement check failed on login", zap.String("user_id", user.ID), zap.Error(err))
	} else if len(badges) > 0 {
		resp.NewAchievements = badges
	}

	s.hooks.Dispatch(ctx, hooks.EventLogin, hooks.Payload{UserID: user.ID})
	return resp, nil
}
