package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// パスワード保存方式（PASSWORD_SCHEME）
const (
	SchemePlain  = "plain"
	SchemeBcrypt = "bcrypt"
)

// CredentialVerifier はパスワードの保存形式と照合方法を抽象化する。
type CredentialVerifier interface {
	// Seal は保存用の値を返す。
	Seal(password string) (string, error)
	// Match は保存値と入力値が一致するかを返す。
	Match(stored, supplied string) bool
}

// PlainCredentials はパスワードを平文のまま保存し完全一致で照合する。
type PlainCredentials struct{}

func (PlainCredentials) Seal(password string) (string, error) { return password, nil }

func (PlainCredentials) Match(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// BcryptCredentials はbcryptハッシュで保存・照合する。
type BcryptCredentials struct {
	Cost int
}

func (b BcryptCredentials) Seal(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("password exceeds 72 bytes: %w", err)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Match はハッシュ不正や不一致をすべてfalseとして扱う。
func (BcryptCredentials) Match(stored, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}

// NewCredentialVerifier は方式名からCredentialVerifierを返す。
func NewCredentialVerifier(scheme string) (CredentialVerifier, error) {
	switch scheme {
	case "", SchemePlain:
		return PlainCredentials{}, nil
	case SchemeBcrypt:
		return BcryptCredentials{}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme: %q", scheme)
	}
}
