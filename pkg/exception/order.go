package exception

import "errors"

var (
	ErrOrderInvalidRequest  = errors.New("order: invalid request")
	ErrOrderRequestNotSent  = errors.New("order: request did not send")
	ErrOrderResponseStatus  = errors.New("order: unexpected response status")
	ErrOrderUnsupportedType = errors.New("order: unsupported type")
	ErrOrderQueueFull       = errors.New("order: queue full")
	ErrOrderSinkClosed      = errors.New("order: sink closed")
)
