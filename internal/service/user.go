package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restropos/api/internal/auth"
	"github.com/restropos/api/internal/database"
	"github.com/restropos/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore covers tenant signup and login reads.
type UserStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateTenant(ctx context.Context, name string) (database.Tenant, error)
}

type NewUserStore func(db database.DBTX) UserStore

// UserService handles tenant signup and credential checks.
type UserService struct {
	pool      TxBeginner
	store     UserStore
	newStore  NewUserStore
	jwtSecret string
}

func NewUserService(pool TxBeginner, store UserStore, newStore NewUserStore, jwtSecret string) *UserService {
	return &UserService{pool: pool, store: store, newStore: newStore, jwtSecret: jwtSecret}
}

type RegisterTenantRequest struct {
	TenantName string
	Email      string
	Password   string
	FullName   string
}

// RegisterTenant creates the tenant and its first admin user in one
// transaction.
func (s *UserService) RegisterTenant(ctx context.Context, req RegisterTenantRequest) (database.Tenant, database.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return database.Tenant{}, database.User{}, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tenant{}, database.User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tenant, err := store.CreateTenant(ctx, req.TenantName)
	if err != nil {
		return database.Tenant{}, database.User{}, fmt.Errorf("create tenant: %w", err)
	}

	user, err := store.CreateUser(ctx, database.CreateUserParams{
		TenantID:       tenant.ID,
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		Role:           enum.UserRoleAdmin,
	})
	if err != nil {
		return database.Tenant{}, database.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tenant{}, database.User{}, fmt.Errorf("commit tx: %w", err)
	}
	return tenant, user, nil
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Login checks the credentials and issues an access/refresh pair.
func (s *UserService) Login(ctx context.Context, email, password string) (database.User, TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return database.User{}, TokenPair{}, fmt.Errorf("read user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return database.User{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return database.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh validates a refresh token and issues a fresh pair for the
// user it names.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (database.User, TokenPair, error) {
	userID, err := auth.ValidateRefreshToken(s.jwtSecret, refreshToken)
	if err != nil {
		return database.User{}, TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.User{}, TokenPair{}, ErrUserNotFound
		}
		return database.User{}, TokenPair{}, fmt.Errorf("read user: %w", err)
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return database.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *UserService) issueTokens(user database.User) (TokenPair, error) {
	access, err := auth.GenerateToken(s.jwtSecret, user.ID, user.TenantID, user.Email, user.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := auth.GenerateRefreshToken(s.jwtSecret, user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
