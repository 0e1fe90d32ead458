package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hitoshi/chatgate/internal/apiclient"
	"github.com/hitoshi/chatgate/internal/model"
)

const (
	// maxUploadBytes はアップロード可能なファイルの最大サイズ。
	maxUploadBytes = 5 << 20
	// multipartOverheadBytes はmultipartの境界やヘッダー分の余裕。
	multipartOverheadBytes = 64 << 10
)

// allowedUploadTypes はアップロードを受け付けるファイル形式。
var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// FileAPI はファイルハンドラーが必要とする外部APIのインターフェース。
type FileAPI interface {
	UploadFile(ctx context.Context, f apiclient.FileUpload) (*model.UploadedFile, error)
}

// FileHandler はファイルアップロードAPIのHTTPハンドラー。
type FileHandler struct {
	api FileAPI
}

// NewFileHandler はFileHandlerを生成する。
func NewFileHandler(api FileAPI) *FileHandler {
	return &FileHandler{api: api}
}

// Upload は添付ファイルを外部APIへ転送する。
// POST /api/files/upload
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverheadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(w, model.BadRequest("File size should be less than 5MB"))
			return
		}
		handleError(w, model.BadRequest("No file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		handleError(w, model.BadRequest("Failed to read file"))
		return
	}
	if len(data) > maxUploadBytes {
		handleError(w, model.BadRequest("File size should be less than 5MB"))
		return
	}

	// クライアント申告のContent-Typeではなく中身から判定する
	contentType := http.DetectContentType(data)
	if !allowedUploadTypes[contentType] {
		handleError(w, model.BadRequest("File type should be JPEG or PNG"))
		return
	}

	sess, err := requireSession(r, model.SurfaceAPI)
	if err != nil {
		handleError(w, err)
		return
	}

	uploaded, err := h.api.UploadFile(r.Context(), apiclient.FileUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
		UserID:      sess.User.ID,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, uploaded)
}
