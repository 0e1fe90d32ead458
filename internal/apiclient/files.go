package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/hitoshi/chatgate/internal/model"
)

// FileUpload はアップロードするファイル。
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
	UserID      string
}

// UploadFile はファイルをmultipart/form-dataで外部APIへ転送する。
// Content-Typeはmultipartの境界付きの値になる。
func (c *Client) UploadFile(ctx context.Context, f FileUpload) (*model.UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Filename))
	header.Set("Content-Type", f.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart file part: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, fmt.Errorf("failed to write multipart file part: %w", err)
	}
	if err := mw.WriteField("userId", f.UserID); err != nil {
		return nil, fmt.Errorf("failed to write multipart field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	var uploaded model.UploadedFile
	err = c.call(ctx, request{
		method:      http.MethodPost,
		path:        "/files/upload",
		label:       "POST /files/upload",
		rawBody:     &buf,
		contentType: mw.FormDataContentType(),
	}, &uploaded)
	if err != nil {
		return nil, err
	}
	return &uploaded, nil
}
