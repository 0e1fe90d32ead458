package model

import "time"

// DocumentKind はドキュメント（アーティファクト）の種別。
type DocumentKind string

const (
	DocumentKindText  DocumentKind = "text"
	DocumentKindCode  DocumentKind = "code"
	DocumentKindImage DocumentKind = "image"
	DocumentKindSheet DocumentKind = "sheet"
)

// Document はユーザーが所有するドキュメントの1バージョン。
// 同じIDで複数バージョンが存在しうる。
type Document struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Kind      DocumentKind `json:"kind"`
	UserID    string       `json:"userId"`
}

// Suggestion はドキュメントに対する修正提案。
type Suggestion struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"documentId"`
	DocumentCreatedAt time.Time `json:"documentCreatedAt"`
	OriginalText      string    `json:"originalText"`
	SuggestedText     string    `json:"suggestedText"`
	Description       string    `json:"description"`
	IsResolved        bool      `json:"isResolved"`
	UserID            string    `json:"userId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// UploadedFile はファイルアップロードの結果。
type UploadedFile struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}
