package model

import "time"

// Visibility はチャットの公開範囲を表す。
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid は公開範囲が既知の値かどうかを返す。
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// Chat は外部サービスに保存されたチャットを表す。
type Chat struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"createdAt"`
	Title      string     `json:"title"`
	UserID     string     `json:"userId"`
	Visibility Visibility `json:"visibility"`
}

// MessagePart はメッセージ本文の一部。現状はtextのみ。
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Attachment はメッセージに添付されたファイル。
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// Message はチャット内の1メッセージ。
type Message struct {
	ID          string        `json:"id"`
	ChatID      string        `json:"chatId"`
	Role        string        `json:"role"`
	Parts       []MessagePart `json:"parts"`
	Attachments []Attachment  `json:"attachments"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Vote はメッセージへの評価。
type Vote struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	IsUpvoted bool   `json:"isUpvoted"`
}

// Stream はチャットに紐づくストリームID。
type Stream struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	CreatedAt time.Time `json:"createdAt"`
}
