package auth

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("email is required")
)

// Account is a registered shopper. Carts are keyed by the account ID
// once the shopper signs in.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
}

// Accounts is an in-memory account registry. Accounts, like carts, do
// not survive a restart; this is a demo shop, not an identity system.
type Accounts struct {
	mu      sync.RWMutex
	byEmail map[string]Account
}

func NewAccounts() *Accounts {
	return &Accounts{byEmail: make(map[string]Account)}
}

// Register creates an account with a bcrypt-hashed password.
func (a *Accounts) Register(email, name, password string) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Account{}, ErrInvalidEmail
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.byEmail[email]; exists {
		return Account{}, ErrEmailTaken
	}

	account := Account{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	a.byEmail[email] = account
	return account, nil
}

// Lookup returns the account registered under an email.
func (a *Accounts) Lookup(email string) (Account, bool) {
	email = strings.ToLower(strings.TrimSpace(email))

	a.mu.RLock()
	defer a.mu.RUnlock()

	account, ok := a.byEmail[email]
	return account, ok
}

// Authenticate checks credentials and returns the matching account.
func (a *Accounts) Authenticate(email, password string) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	a.mu.RLock()
	account, exists := a.byEmail[email]
	a.mu.RUnlock()

	if !exists || !CheckPassword(password, account.PasswordHash) {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}
