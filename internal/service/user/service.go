package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	"storefront/internal/storage"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

const profileFolder = "profiles"

// Service handles registration, login and profile management.
type Service struct {
	repo        userrepo.Repository
	tokens      *tokenManager
	images      storage.ImageStore
	logger      *zap.Logger
	passwordMin int
}

type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	Images    storage.ImageStore
	Logger    *zap.Logger
}

// New creates a Service. Missing options fall back to development defaults.
func New(repo userrepo.Repository, revocations tokenrepo.Repository, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if opts.Images == nil {
		opts.Images = storage.Unconfigured{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(opts.JWTSecret, opts.TokenTTL, revocations),
		images:      opts.Images,
		logger:      opts.Logger,
		passwordMin: 6,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

// Register creates a shopper account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	password := in.Password
	address := strings.TrimSpace(in.Address)
	city := strings.TrimSpace(in.City)
	phone := strings.TrimSpace(in.Phone)
	if name == "" || email == "" || password == "" || address == "" || city == "" || phone == "" {
		return nil, domain.Invalid("Please provide all fields")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Invalid("invalid email")
	}
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Address:      address,
		City:         city,
		Country:      strings.TrimSpace(in.Country),
		Phone:        phone,
		Role:         domain.RoleUser,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.Invalid("email already taken")
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Login validates credentials and issues a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("Please add email or password")
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("user not found")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a raw token to its session and current user.
func (s *Service) Authenticate(ctx context.Context, raw string) (*domain.User, Session, error) {
	sess, err := s.tokens.Validate(ctx, raw)
	if err != nil {
		return nil, Session{}, err
	}
	u, err := s.repo.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, Session{}, ErrInvalidToken
		}
		return nil, Session{}, err
	}
	return u, sess, nil
}

// Logout revokes the session's token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, sess Session) error {
	return s.tokens.Revoke(ctx, sess)
}

func (s *Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("user not found")
	}
	return u, err
}

type ProfileInput struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	Country *string `json:"country"`
	Phone   *string `json:"phone"`
}

// UpdateProfile changes the non-empty fields of in.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	var upd userrepo.UpdateProfileInput
	upd.Name = nonEmpty(in.Name)
	upd.Address = nonEmpty(in.Address)
	upd.City = nonEmpty(in.City)
	upd.Country = nonEmpty(in.Country)
	upd.Phone = nonEmpty(in.Phone)
	if e := nonEmpty(in.Email); e != nil {
		email := normalizeEmail(*e)
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.Invalid("invalid email")
		}
		upd.Email = &email
	}

	u, err := s.repo.UpdateProfile(ctx, userID, upd)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return nil, domain.Invalid("email already taken")
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.NotFound("user not found")
	}
	return u, err
}

// UpdatePassword replaces the password after checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return domain.Invalid("Please provide old or new password")
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("user not found")
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.Invalid("invalid old password")
	}
	if err := validatePassword(newPassword, s.passwordMin); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hashed))
}

// UpdatePicture uploads a new profile picture and removes the previous object.
func (s *Service) UpdatePicture(ctx context.Context, userID string, up storage.Upload) (*domain.User, error) {
	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("user not found")
		}
		return nil, err
	}
	img, err := s.images.Put(ctx, profileFolder, up)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.UpdateProfilePic(ctx, userID, img)
	if err != nil {
		if derr := s.images.Delete(ctx, img.PublicID); derr != nil {
			s.logger.Warn("drop orphaned profile picture", zap.String("public_id", img.PublicID), zap.Error(derr))
		}
		return nil, err
	}
	if current.ProfilePic != nil && current.ProfilePic.PublicID != "" {
		if err := s.images.Delete(ctx, current.ProfilePic.PublicID); err != nil {
			s.logger.Warn("delete previous profile picture", zap.String("public_id", current.ProfilePic.PublicID), zap.Error(err))
		}
	}
	return u, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return domain.Invalid("password must be at least %d characters", min)
	}
	hasLetter := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return domain.Invalid("password must contain at least 1 letter and 1 number")
	}
	return nil
}

