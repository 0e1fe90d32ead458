// Package model はドメインモデルを定義する。
package model

import "time"

// User は外部サービスが払い出したユーザーを表す。
// 登録後はこの層から見て不変として扱う。
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session はCookieに保持される認証済みセッションを表す。
// サーバー側にコピーは持たず、Cookieそのものがセッションとなる。
// 変更は再発行か削除のみ。
type Session struct {
	User    User      `json:"user"`
	Expires time.Time `json:"expires"`
}

// Expired は指定時刻の時点でセッションが期限切れかどうかを返す。
func (s Session) Expired(now time.Time) bool {
	return now.After(s.Expires)
}

// UserType はエンタイトルメントを決めるユーザー区分。
type UserType string

const (
	// UserTypeStandard は認証済みユーザーのデフォルト区分。
	UserTypeStandard UserType = "standard"
)
