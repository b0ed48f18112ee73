package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/logger"
)

// 请求体上限 8MB
const maxBodyBytes = 8 << 20

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithError(err).Msg("响应编码失败")
	}
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *apperrors.AppError) {
	if err.HTTPStatus >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", string(err.Code)).Msg("服务器内部错误")
	}
	body := map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
	}
	if err.Details != "" {
		body["details"] = err.Details
	}
	if len(err.Fields) > 0 {
		body["fields"] = err.Fields
	}
	respondJSON(w, err.HTTPStatus, body)
}

// decode 解析并校验请求体，失败时已写入错误响应
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, apperrors.New(apperrors.CodeInvalidInput, "请求体为空"))
		} else {
			respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败").WithDetails(err.Error()))
		}
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		respondError(w, h.validationError(err))
		return false
	}
	return true
}

// validationError 将校验错误翻译为中文字段错误
func (h *Handler) validationError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求参数无效")
	}

	ve := &apperrors.ValidationErrors{}
	for _, fe := range verrs {
		ve.Add(fe.Namespace(), fe.Translate(h.translator))
	}
	appErr := ve.ToAppError()
	appErr.Details = verrs[0].Translate(h.translator)
	return appErr
}
