// Package policy は認可判定を行う純粋関数群を提供する。
// いずれもI/Oを持たず、入力だけで結果が決まる。
package policy

import "github.com/hitoshi/chatgate/internal/model"

// Entitlement はユーザー区分ごとの利用上限。
type Entitlement struct {
	MaxMessagesPerDay int
}

// Entitlements はユーザー区分ごとの上限表。
var Entitlements = map[model.UserType]Entitlement{
	model.UserTypeStandard: {MaxMessagesPerDay: 100},
}

// IsAuthenticated はセッションが存在するかどうかを返す。
func IsAuthenticated(s model.Session, ok bool) bool {
	return ok && s.User.ID != ""
}

// OwnsResource はセッションのユーザーがリソースの所有者かどうかを返す。
// 所有者IDが空の場合は常にfalse。
func OwnsResource(s model.Session, ownerID string) bool {
	return ownerID != "" && s.User.ID == ownerID
}

// CanReadChat はチャットを閲覧できるかどうかを返す。
// 所有者であるか、チャットが公開されていれば閲覧できる。
func CanReadChat(s model.Session, chat *model.Chat) bool {
	if chat == nil {
		return false
	}
	return chat.Visibility == model.VisibilityPublic || OwnsResource(s, chat.UserID)
}

// EntitlementFor はユーザー区分の上限を返す。未知の区分はstandardとして扱う。
func EntitlementFor(t model.UserType) Entitlement {
	if e, ok := Entitlements[t]; ok {
		return e
	}
	return Entitlements[model.UserTypeStandard]
}

// WithinEntitlement はメッセージ数が1日の上限以内かどうかを返す。
// countには今回のメッセージを含めた件数を渡す。
func WithinEntitlement(count int, t model.UserType) bool {
	return count <= EntitlementFor(t).MaxMessagesPerDay
}
