package authoring

import "errors"

var (
	ErrSessionClosed        = errors.New("authoring session is closed")
	ErrMediaNotFound        = errors.New("media item not found")
	ErrIndexOutOfRange      = errors.New("media index out of range")
	ErrUnsupportedMediaType = errors.New("only video files are allowed")
	ErrMediaTooLarge        = errors.New("file exceeds the 500 MB limit")
	ErrNotAnImage           = errors.New("only image files are allowed")
	ErrEmptyTag             = errors.New("tag must not be empty")
	ErrDuplicateTag         = errors.New("tag already exists")
	ErrTagTooLong           = errors.New("tag must be at most 50 characters")
	ErrTooManyTags          = errors.New("a course can have at most 10 tags")
	ErrTagNotFound          = errors.New("tag not found")
	ErrUnknownField         = errors.New("unknown metadata field")
	ErrInvalidFieldValue    = errors.New("invalid metadata field value")
	ErrUnknownIntent        = errors.New("unknown commit intent")
	ErrIntentNotAllowed     = errors.New("commit intent is not allowed in the current lifecycle status")
	ErrNoChanges            = errors.New("there are no unsaved changes")
	ErrValidationFailed     = errors.New("validation failed")
	ErrCommitInFlight       = errors.New("a commit is already in progress")
	ErrCommitFailed         = errors.New("failed to commit course")
)
