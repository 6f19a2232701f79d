// Package auth は訪問者スコープ内で完結する簡易的なサインアップ・ログイン・
// ログアウトの状態遷移を提供する。
//
// ユーザー一覧とセッションはどちらも訪問者スコープのストレージに保存されるため、
// 実際の認証やセキュリティ保証は提供しない。
package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/hitoshi/storefront/internal/model"
)

// 成功時メッセージ
const (
	MessageSignupSuccess = "Account created! Redirecting…"
	MessageLoginSuccess  = "Login successful! Redirecting…"
)

// 操作名と結果（メトリクスのラベル値）
const (
	OpSignup = "signup"
	OpLogin  = "login"
	OpLogout = "logout"

	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
)

// DefaultMinPasswordLength はパスワードの最小文字数。
const DefaultMinPasswordLength = 4

// Store は認証サービスが必要とするストレージ操作。storage.Adapterが実装する。
type Store interface {
	ReadUsers(ctx context.Context, scope string) []model.User
	WriteUsers(ctx context.Context, scope string, users []model.User)
	ReadSession(ctx context.Context, scope string) *model.Session
	WriteSession(ctx context.Context, scope string, session model.Session)
	ClearSession(ctx context.Context, scope string)
	WithScopeLock(scope string, fn func())
}

// MetricsRecorder は認証試行を記録するインターフェース。
type MetricsRecorder interface {
	RecordAuthAttempt(op, outcome string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	RedirectTo        string        // 成功後の遷移先
	RedirectAfter     time.Duration // 成功後の遷移までの待ち時間
	MinPasswordLength int
}

// Result はサインアップ・ログイン成功時の結果。
type Result struct {
	Session       model.Session
	Message       string
	RedirectTo    string
	RedirectAfter time.Duration
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	store   Store
	creds   CredentialVerifier
	config  ServiceConfig
	metrics MetricsRecorder
}

// NewService はServiceを生成する。credsがnilの場合は平文比較を使う。
func NewService(store Store, creds CredentialVerifier, config ServiceConfig) *Service {
	if creds == nil {
		creds = PlainCredentials{}
	}
	if config.RedirectTo == "" {
		config.RedirectTo = "/"
	}
	if config.MinPasswordLength <= 0 {
		config.MinPasswordLength = DefaultMinPasswordLength
	}
	return &Service{store: store, creds: creds, config: config}
}

// SetMetrics はメトリクス記録先を設定する。
func (s *Service) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// Signup はアカウントを作成してログイン状態にする。
// 入力検証に失敗した場合は*model.APIErrorを返し、状態は変更しない。
func (s *Service) Signup(ctx context.Context, scope, name, email, password string) (*Result, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)

	if name == "" {
		return nil, s.reject(OpSignup, model.NewNameRequiredError())
	}
	if email == "" {
		return nil, s.reject(OpSignup, model.NewEmailRequiredError())
	}
	if passwordLength(password) < s.config.MinPasswordLength {
		return nil, s.reject(OpSignup, model.NewPasswordTooShortError(s.config.MinPasswordLength))
	}

	sealed, err := s.creds.Seal(password)
	if err != nil {
		return nil, err
	}

	var apiErr *model.APIError
	session := model.Session{Email: email, Name: name}
	s.store.WithScopeLock(scope, func() {
		users := s.store.ReadUsers(ctx, scope)
		if findUser(users, email) != nil {
			apiErr = model.NewAccountExistsError()
			return
		}
		users = append(users, model.User{Name: name, Email: email, Password: sealed})
		s.store.WriteUsers(ctx, scope, users)
		s.store.WriteSession(ctx, scope, session)
	})
	if apiErr != nil {
		return nil, s.reject(OpSignup, apiErr)
	}

	s.record(OpSignup, OutcomeSuccess)
	slog.Info("account created", slog.String("scope", scope))
	return s.result(session, MessageSignupSuccess), nil
}

// Login は既存アカウントでログインする。
func (s *Service) Login(ctx context.Context, scope, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)

	if email == "" {
		return nil, s.reject(OpLogin, model.NewEmailRequiredError())
	}
	if password == "" {
		return nil, s.reject(OpLogin, model.NewPasswordRequiredError())
	}

	var (
		apiErr  *model.APIError
		session model.Session
	)
	s.store.WithScopeLock(scope, func() {
		found := findUser(s.store.ReadUsers(ctx, scope), email)
		if found == nil {
			apiErr = model.NewAccountNotFoundError()
			return
		}
		if !s.creds.Match(found.Password, password) {
			apiErr = model.NewIncorrectPasswordError()
			return
		}
		name := found.Name
		if name == "" {
			name = DisplayNameFromEmail(found.Email)
		}
		session = model.Session{Email: found.Email, Name: name}
		s.store.WriteSession(ctx, scope, session)
	})
	if apiErr != nil {
		return nil, s.reject(OpLogin, apiErr)
	}

	s.record(OpLogin, OutcomeSuccess)
	slog.Info("user logged in", slog.String("scope", scope))
	return s.result(session, MessageLoginSuccess), nil
}

// Logout はセッションを破棄する。ユーザー一覧とカートは残る。
func (s *Service) Logout(ctx context.Context, scope string) {
	s.store.WithScopeLock(scope, func() {
		s.store.ClearSession(ctx, scope)
	})
	s.record(OpLogout, OutcomeSuccess)
}

// Current は現在のセッションを返す。未ログインの場合はnil。
// emailが空のセッションは未ログインとして扱う。
func (s *Service) Current(ctx context.Context, scope string) *model.Session {
	session := s.store.ReadSession(ctx, scope)
	if session == nil || session.Email == "" {
		return nil
	}
	if session.Name == "" {
		session.Name = DisplayNameFromEmail(session.Email)
	}
	return session
}

// DisplayNameFromEmail はメールアドレスの@より前を表示名に変換する。
// 小文字化した上で先頭1文字のみ大文字にする。空の場合は"User"。
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.ToLower(local)
	if local == "" {
		return "User"
	}
	r, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(r)) + local[size:]
}

func (s *Service) result(session model.Session, message string) *Result {
	return &Result{
		Session:       session,
		Message:       message,
		RedirectTo:    s.config.RedirectTo,
		RedirectAfter: s.config.RedirectAfter,
	}
}

func (s *Service) reject(op string, err *model.APIError) error {
	s.record(op, OutcomeInvalid)
	slog.Debug("auth attempt rejected",
		slog.String("op", op),
		slog.String("code", err.Code),
	)
	return err
}

func (s *Service) record(op, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(op, outcome)
	}
}

// passwordLength はUTF-16コード単位で長さを数える。
// 補助面の文字（絵文字など）は2と数える。
func passwordLength(password string) int {
	n := 0
	for _, r := range password {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func findUser(users []model.User, email string) *model.User {
	for i := range users {
		if users[i].EmailMatches(email) {
			return &users[i]
		}
	}
	return nil
}
