// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"strings"
)

// User はサインアップ済みのユーザーを表す。
// Emailが一意キー（大文字小文字を区別しない）。作成後に更新・削除されることはない。
// Passwordの中身はCredentialVerifierの方式に依存する（平文またはハッシュ）。
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UnmarshalJSON は文字列以外の値が混入していてもユーザーレコードを読み込めるようにする。
func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errNotObject
	}
	u.Name = coerceString(fields["name"])
	u.Email = coerceString(fields["email"])
	u.Password = coerceString(fields["password"])
	return nil
}

// EmailMatches はメールアドレスが大文字小文字を区別せずに一致するかを判定する。
func (u User) EmailMatches(email string) bool {
	return strings.EqualFold(u.Email, email)
}

// Session はログイン中のユーザーを表す。
// 未ログイン状態ではレコード自体が存在しない。自動的に期限切れになることはない。
type Session struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UnmarshalJSON はセッションレコードを読み込む。オブジェクト以外はエラーとする。
func (s *Session) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errNotObject
	}
	s.Email = coerceString(fields["email"])
	s.Name = coerceString(fields["name"])
	return nil
}
