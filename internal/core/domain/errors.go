package domain

import "errors"

var (
	ErrInvalidServerID    = errors.New("invalid server id")
	ErrServerNotFound     = errors.New("server not found")
	ErrInvalidChannelID   = errors.New("invalid channel id")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrInvalidMessageID   = errors.New("invalid message id")
	ErrMessageNotFound    = errors.New("message not found")
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrNotAMember         = errors.New("user is not a member of the server")
	ErrAlreadyMember      = errors.New("user is already a member of the server")
	ErrNotOwner           = errors.New("only the server owner may do this")
	ErrNotAuthor          = errors.New("only the message author may do this")
	ErrInvalidName        = errors.New("name must not be empty")
	ErrEmptyMessage       = errors.New("message content must not be empty")
	ErrInvalidGroupKey    = errors.New("invalid group key")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
