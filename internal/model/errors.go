// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（画面にそのまま表示する）
	Category string // カテゴリ: auth, validation, cart, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNameRequired      = "NAME_REQUIRED"
	ErrCodeEmailRequired     = "EMAIL_REQUIRED"
	ErrCodePasswordRequired  = "PASSWORD_REQUIRED"
	ErrCodePasswordTooShort  = "PASSWORD_TOO_SHORT"
	ErrCodeAccountExists     = "ACCOUNT_EXISTS"
	ErrCodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	ErrCodeIncorrectPassword = "INCORRECT_PASSWORD"
	ErrCodeCartLineNotFound  = "CART_LINE_NOT_FOUND"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewNameRequiredError は氏名未入力エラーを生成する。
func NewNameRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeNameRequired,
		Message:  "Please enter your name.",
		Category: "validation",
		Action:   "氏名を入力してください。",
	}
}

// NewEmailRequiredError はメールアドレス未入力エラーを生成する。
func NewEmailRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailRequired,
		Message:  "Please enter your email.",
		Category: "validation",
		Action:   "メールアドレスを入力してください。",
	}
}

// NewPasswordRequiredError はパスワード未入力エラーを生成する。
func NewPasswordRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordRequired,
		Message:  "Please enter your password.",
		Category: "validation",
		Action:   "パスワードを入力してください。",
	}
}

// NewPasswordTooShortError はパスワード長不足エラーを生成する。
func NewPasswordTooShortError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodePasswordTooShort,
		Message:  fmt.Sprintf("Password must be at least %d characters.", minLength),
		Category: "validation",
		Action:   fmt.Sprintf("%d文字以上のパスワードを入力してください。", minLength),
	}
}

// NewAccountExistsError は登録済みメールアドレスでのサインアップエラーを生成する。
// メールアドレスは大文字小文字を区別せずに比較される。
func NewAccountExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountExists,
		Message:  "Account already exists. Please Login.",
		Category: "auth",
		Action:   "ログイン画面からログインしてください。",
	}
}

// NewAccountNotFoundError は未登録メールアドレスでのログインエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "No account found. Please Sign up first.",
		Category: "auth",
		Action:   "サインアップ画面からアカウントを作成してください。",
	}
}

// NewIncorrectPasswordError はパスワード不一致エラーを生成する。
func NewIncorrectPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeIncorrectPassword,
		Message:  "Incorrect password.",
		Category: "auth",
		Action:   "パスワードを確認して再度お試しください。",
	}
}

// NewCartLineNotFoundError はカートに存在しない商品IDが指定された場合のエラーを生成する。
func NewCartLineNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeCartLineNotFound,
		Message:  fmt.Sprintf("Item %s is not in your cart.", id),
		Category: "cart",
		Action:   "カートを再読み込みしてください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("Product not found: %s", id),
		Category: "cart",
		Action:   "商品一覧から選び直してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Something went wrong. Please try again.",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
