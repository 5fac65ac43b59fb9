package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidRoomType = errors.New("invalid room type")
	ErrInvalidStyle    = errors.New("invalid style")
	ErrInvalidRating   = errors.New("invalid rating")
)
