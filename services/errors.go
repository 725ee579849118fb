package services

import "errors"

var (
	ErrInvalidKind     = errors.New("interaction must be like or dislike")
	ErrInvalidItemType = errors.New("invalid post type")
	ErrUserNotFound    = errors.New("user not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrForbidden       = errors.New("forbidden")
	ErrEmptyTitle      = errors.New("title is required")
	ErrEmptyEmail      = errors.New("email is required")
	ErrInvalidRole     = errors.New("role must be User or Admin")
)
