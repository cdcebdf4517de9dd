package services

import "errors"

// Dashboard service errors
var (
	// Dataset errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrStoreClosed     = errors.New("dataset store closed")

	// Upload errors
	ErrEmptyUpload    = errors.New("upload is empty")
	ErrUnreadableFile = errors.New("upload could not be read")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
