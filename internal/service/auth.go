package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/go-food-api/internal/apperr"
	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/mail"
	"github.com/flicky/go-food-api/internal/model"
	"github.com/flicky/go-food-api/internal/repository"
)

var (
	ErrUserAlreadyExists       = apperr.Conflictf("user with this email already exists")
	ErrRestaurantAlreadyExists = apperr.Conflictf("restaurant with this email already exists")
	ErrInvalidCredentials      = apperr.New(apperr.Unauthenticated, "invalid credentials")
	ErrInvalidOTP              = apperr.Invalid("invalid or expired otp")
	ErrOTPLocked               = apperr.Invalid("too many attempts, request a new code later")
	ErrInvalidResetToken       = apperr.New(apperr.Forbidden, "invalid or expired reset token")
)

// OTPStore keeps one-time codes, the failed-attempt counter and the reset
// token that unlocks a password change.
type OTPStore interface {
	SaveCode(ctx context.Context, subject uuid.UUID, code string, ttl time.Duration) error
	Code(ctx context.Context, subject uuid.UUID) (string, error)
	DeleteCode(ctx context.Context, subject uuid.UUID) error
	Attempts(ctx context.Context, subject uuid.UUID) (int64, error)
	RecordFailure(ctx context.Context, subject uuid.UUID, ttl time.Duration) (int64, error)
	// SaveResetToken stores tokenHash and drops the code and attempt counter.
	SaveResetToken(ctx context.Context, subject uuid.UUID, tokenHash string, ttl time.Duration) error
	ResetToken(ctx context.Context, subject uuid.UUID) (string, error)
	Clear(ctx context.Context, subject uuid.UUID) error
}

const maxOTPAttempts = 5

type AuthService struct {
	userRepo  repository.UserRepository
	restRepo  repository.RestaurantRepository
	otp       OTPStore
	mailer    mail.Sender
	jwtSecret []byte
	jwtExpiry time.Duration
	otpTTL    time.Duration
	otpLength int
}

func NewAuthService(
	userRepo repository.UserRepository,
	restRepo repository.RestaurantRepository,
	otp OTPStore,
	mailer mail.Sender,
	jwtSecret string,
	jwtExpiry, otpTTL time.Duration,
	otpLength int,
) *AuthService {
	return &AuthService{
		userRepo: userRepo, restRepo: restRepo, otp: otp, mailer: mailer,
		jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry, otpTTL: otpTTL, otpLength: otpLength,
	}
}

func (s *AuthService) RegisterUser(ctx context.Context, req dto.RegisterUserRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name: req.Name, Email: email, Password: string(hashed),
		Phone: req.Phone, Address: req.Address, Role: model.RoleCustomer,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, Subject: dto.NewUserResponse(user)}, nil
}

func (s *AuthService) LoginUser(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, Subject: dto.NewUserResponse(user)}, nil
}

func (s *AuthService) RegisterRestaurant(ctx context.Context, req dto.RegisterRestaurantRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	existing, err := s.restRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check restaurant: %w", err)
	}
	if existing != nil {
		return nil, ErrRestaurantAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	kind := req.Type
	if kind == "" {
		kind = "both"
	}
	rest := &model.Restaurant{
		Name: req.Name, Email: email, Password: string(hashed), Address: req.Address,
		Phone: req.Phone, Role: model.RoleRestaurant, Type: kind, Status: model.RestaurantOpen,
	}
	if err := s.restRepo.Create(ctx, rest); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRestaurantAlreadyExists
		}
		return nil, fmt.Errorf("create restaurant: %w", err)
	}

	token, err := s.GenerateToken(rest.ID, rest.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, Subject: dto.NewRestaurantResponse(rest)}, nil
}

func (s *AuthService) LoginRestaurant(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	rest, err := s.restRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if rest == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rest.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(rest.ID, rest.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, Subject: dto.NewRestaurantResponse(rest)}, nil
}

// SendOTP mails a reset code to the restaurant registered under email.
// Unknown addresses succeed silently so callers cannot tell which emails are registered.
func (s *AuthService) SendOTP(ctx context.Context, email string) error {
	rest, err := s.restRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("get restaurant: %w", err)
	}
	if rest == nil {
		return nil
	}

	code, err := generateOTP(s.otpLength)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.otp.SaveCode(ctx, rest.ID, code, s.otpTTL); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	body := fmt.Sprintf("<p>Your password reset code is <b>%s</b>. It expires in %s.</p>", code, s.otpTTL)
	if err := s.mailer.Send(ctx, rest.Email, "Password reset code", body); err != nil {
		_ = s.otp.DeleteCode(ctx, rest.ID)
		return apperr.Wrap(apperr.Internal, err, "send otp")
	}
	return nil
}

// VerifyOTP exchanges a valid code for a single-use reset token. After
// maxOTPAttempts misses the code is dropped and verification stays locked
// until the attempt counter expires.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*dto.OTPVerifiedResponse, error) {
	rest, err := s.restRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if rest == nil {
		return nil, ErrInvalidOTP
	}

	attempts, err := s.otp.Attempts(ctx, rest.ID)
	if err != nil {
		return nil, fmt.Errorf("get otp attempts: %w", err)
	}
	if attempts >= maxOTPAttempts {
		return nil, ErrOTPLocked
	}

	stored, err := s.otp.Code(ctx, rest.ID)
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	if stored == "" {
		return nil, ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		n, err := s.otp.RecordFailure(ctx, rest.ID, s.otpTTL)
		if err != nil {
			return nil, fmt.Errorf("record otp failure: %w", err)
		}
		if n >= maxOTPAttempts {
			if err := s.otp.DeleteCode(ctx, rest.ID); err != nil {
				return nil, fmt.Errorf("drop otp: %w", err)
			}
			return nil, ErrOTPLocked
		}
		return nil, ErrInvalidOTP
	}

	token, err := generateResetToken()
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.otp.SaveResetToken(ctx, rest.ID, hashResetToken(token), s.otpTTL); err != nil {
		return nil, fmt.Errorf("save reset token: %w", err)
	}
	return &dto.OTPVerifiedResponse{RestaurantID: rest.ID, ResetToken: token}, nil
}

// ResetPassword sets a new password when token matches the one issued by VerifyOTP.
// The token is consumed on success.
func (s *AuthService) ResetPassword(ctx context.Context, restaurantID uuid.UUID, token, password string) error {
	stored, err := s.otp.ResetToken(ctx, restaurantID)
	if err != nil {
		return fmt.Errorf("get reset token: %w", err)
	}
	if stored == "" || token == "" ||
		subtle.ConstantTimeCompare([]byte(stored), []byte(hashResetToken(token))) != 1 {
		return ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.restRepo.UpdatePassword(ctx, restaurantID, string(hashed)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return s.otp.Clear(ctx, restaurantID)
}

func (s *AuthService) GenerateToken(subject uuid.UUID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject.String(),
		"role": role,
		"exp":  time.Now().Add(s.jwtExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) TokenTTL() time.Duration { return s.jwtExpiry }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type redisOTPStore struct{ client *redis.Client }

func NewRedisOTPStore(client *redis.Client) OTPStore {
	return &redisOTPStore{client: client}
}

func otpKey(id uuid.UUID) string         { return "otp:" + id.String() }
func otpAttemptsKey(id uuid.UUID) string { return "otp_attempts:" + id.String() }
func otpResetKey(id uuid.UUID) string    { return "otp_reset:" + id.String() }

func (r *redisOTPStore) SaveCode(ctx context.Context, subject uuid.UUID, code string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, otpKey(subject), code, ttl)
	pipe.Del(ctx, otpResetKey(subject))
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisOTPStore) Code(ctx context.Context, subject uuid.UUID) (string, error) {
	return r.get(ctx, otpKey(subject))
}

func (r *redisOTPStore) DeleteCode(ctx context.Context, subject uuid.UUID) error {
	return r.client.Del(ctx, otpKey(subject)).Err()
}

func (r *redisOTPStore) Attempts(ctx context.Context, subject uuid.UUID) (int64, error) {
	n, err := r.client.Get(ctx, otpAttemptsKey(subject)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *redisOTPStore) RecordFailure(ctx context.Context, subject uuid.UUID, ttl time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, otpAttemptsKey(subject))
	pipe.Expire(ctx, otpAttemptsKey(subject), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *redisOTPStore) SaveResetToken(ctx context.Context, subject uuid.UUID, tokenHash string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, otpKey(subject), otpAttemptsKey(subject))
	pipe.Set(ctx, otpResetKey(subject), tokenHash, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisOTPStore) ResetToken(ctx context.Context, subject uuid.UUID) (string, error) {
	return r.get(ctx, otpResetKey(subject))
}

func (r *redisOTPStore) Clear(ctx context.Context, subject uuid.UUID) error {
	return r.client.Del(ctx, otpKey(subject), otpAttemptsKey(subject), otpResetKey(subject)).Err()
}

func (r *redisOTPStore) get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}
