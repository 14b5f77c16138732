package relay

import (
	"errors"
	"net/http"
)

// Domain errors for the relay package.
var (
	// ErrInvalidTarget is returned when targetDevice is not a three-digit id.
	ErrInvalidTarget = errors.New("relay: invalid target device")

	// ErrMissingMessage is returned when no message was supplied.
	ErrMissingMessage = errors.New("relay: missing message")

	// ErrInvalidMessage is returned when the message is not a JSON object.
	ErrInvalidMessage = errors.New("relay: message must be a JSON object")

	// ErrTargetOffline is returned when no device holds the target id.
	ErrTargetOffline = errors.New("relay: target device not connected")

	// ErrTargetGone is returned when the target's connection had already closed.
	ErrTargetGone = errors.New("relay: target device connection closed")

	// ErrSendFailed is returned when the transport refused the message.
	ErrSendFailed = errors.New("relay: send failed")
)

// StatusCode maps a Send error to the HTTP status the control plane reports.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidTarget),
		errors.Is(err, ErrMissingMessage),
		errors.Is(err, ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, ErrTargetOffline):
		return http.StatusNotFound
	case errors.Is(err, ErrTargetGone):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the caller-facing text for a Send error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTarget):
		return "设备编号格式无效，必须是三位数字"
	case errors.Is(err, ErrMissingMessage):
		return "缺少目标设备ID或消息内容"
	case errors.Is(err, ErrInvalidMessage):
		return "消息格式无效"
	case errors.Is(err, ErrTargetOffline):
		return "目标设备未连接"
	case errors.Is(err, ErrTargetGone):
		return "目标设备连接已关闭"
	default:
		return "消息发送失败"
	}
}
