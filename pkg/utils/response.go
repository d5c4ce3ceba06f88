package utils

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/teamboard/internal/service/mockapi"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondMessage 发送只包含提示信息的成功响应
func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"message": message})
}

// RespondServiceError 把业务错误映射为 HTTP 状态码。
// 校验错误以字符串数组返回，其余错误返回单个字符串。
func RespondServiceError(w http.ResponseWriter, err error) {
	var verr *mockapi.ValidationError
	switch {
	case errors.As(err, &verr):
		RespondJSON(w, http.StatusUnprocessableEntity, map[string][]string{"error": verr.Messages})
	case errors.Is(err, mockapi.ErrUnauthorized):
		RespondError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, mockapi.ErrForbidden):
		RespondError(w, http.StatusForbidden, "You are not allowed to perform this action")
	case errors.Is(err, mockapi.ErrNotFound):
		RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, mockapi.ErrConflict):
		RespondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[api] unexpected error: %v", err)
		RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// DecodeJSON 解析请求体，失败时直接写入 400 响应。
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// IDParam 读取路径中的数字 ID，失败时直接写入 400 响应。
func IDParam(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		RespondError(w, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return id, true
}

const maxUploadSize = 10 << 20

// ReadUpload 读取 multipart 表单中的单个文件字段，失败时直接写入响应。
func ReadUpload(w http.ResponseWriter, r *http.Request, field string) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return "", nil, false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		RespondJSON(w, http.StatusUnprocessableEntity, map[string][]string{"error": {field + " is required"}})
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "failed to read upload")
		return "", nil, false
	}
	return header.Filename, data, true
}
