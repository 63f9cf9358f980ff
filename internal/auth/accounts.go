package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/dentalbook/internal/store"
)

// Roles carried in sessions.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ErrAccountNotFound is returned by account stores for unknown emails.
var ErrAccountNotFound = errors.New("auth: account not found")

// Account is a staff login.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountStore looks up and registers staff accounts. Emails are compared
// lower-cased.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, a *Account) error
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryAccounts keeps accounts in memory for local runs and tests.
type MemoryAccounts struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[string]Account)}
}

func (m *MemoryAccounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[normalizeEmail(email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (m *MemoryAccounts) Create(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Email = normalizeEmail(a.Email)
	if _, exists := m.accounts[a.Email]; exists {
		return fmt.Errorf("auth: account %s already exists", a.Email)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.accounts[a.Email] = *a
	return nil
}

// PostgresAccounts reads the staff_accounts table.
type PostgresAccounts struct {
	db store.DB
}

func NewPostgresAccounts(db store.DB) *PostgresAccounts {
	if db == nil {
		panic("auth: postgres db required")
	}
	return &PostgresAccounts{db: db}
}

func (p *PostgresAccounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := p.db.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, disabled, created_at
		FROM staff_accounts
		WHERE email = $1
	`, normalizeEmail(email)).Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.Disabled, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: get account: %w", err)
	}
	return &a, nil
}

func (p *PostgresAccounts) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Email = normalizeEmail(a.Email)
	_, err := p.db.Exec(ctx, `
		INSERT INTO staff_accounts (id, email, name, role, password_hash, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Email, a.Name, a.Role, a.PasswordHash, a.Disabled, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("auth: create account: %w", err)
	}
	return nil
}
