package chat

import "errors"

var (
	ErrAssistantNotFound = errors.New("assistant not found")
	ErrProviderFailed    = errors.New("chat provider failed")
)
