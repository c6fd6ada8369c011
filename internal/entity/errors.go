package entity

import "errors"

// 领域错误，调用方使用 errors.Is 判断类别。
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrConfiguration        = errors.New("configuration error")
	ErrNotFound             = errors.New("not found")
	ErrUnknownStage         = errors.New("unknown outfit stage")
	ErrInvalidImageURL      = errors.New("invalid image url")
	ErrGenerationInProgress = errors.New("generation already in progress")
)
