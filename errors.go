package radiowave

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUserNotFound         = "USER_NOT_FOUND"
	TextCodeRoomNotFound         = "ROOM_NOT_FOUND"
	TextCodeChannelNotFound      = "CHANNEL_NOT_FOUND"
	TextCodeMembershipNotFound   = "MEMBERSHIP_NOT_FOUND"
	TextCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	TextCodeMissingArgument      = "MISSING_ARGUMENT"
	TextCodeSelfInvite           = "SELF_INVITE"
	TextCodeMembershipExists     = "MEMBERSHIP_EXISTS"
	TextCodeInvalidTransition    = "INVALID_MEMBERSHIP_TRANSITION"
	TextCodeNoStrategy           = "NO_AUTH_STRATEGY"
	TextCodePersistence          = "PERSISTENCE_ERROR"
)

// ErrUserNotFound is returned when no user row matches a jid
var ErrUserNotFound = goerrors.New("could not find user", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrRoomNotFound is returned when no room matches the lookup
var ErrRoomNotFound = goerrors.New("could not find room", goerrors.CategoryNotFound).
	WithTextCode(TextCodeRoomNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrChannelNotFound is returned when no channel matches the lookup
var ErrChannelNotFound = goerrors.New("could not find channel", goerrors.CategoryNotFound).
	WithTextCode(TextCodeChannelNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMembershipNotFound is returned when a user has no join row for a room or channel
var ErrMembershipNotFound = goerrors.New("could not find membership", goerrors.CategoryNotFound).
	WithTextCode(TextCodeMembershipNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAuthenticationFailed is the generic rejection surfaced to callers.
var ErrAuthenticationFailed = goerrors.New("authentication failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoStrategy is returned when no registered strategy matches a method
var ErrNoStrategy = goerrors.New("no authentication strategy for method", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoStrategy).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingJID is returned before any I/O when a jid is required
var ErrMissingJID = goerrors.New("jid is required", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingArgument).
	WithCode(goerrors.CodeBadRequest)

// ErrMissingRoom is returned before any I/O when a room is required
var ErrMissingRoom = goerrors.New("room is required", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingArgument).
	WithCode(goerrors.CodeBadRequest)

// ErrMissingChannel is returned before any I/O when a channel is required
var ErrMissingChannel = goerrors.New("channel is required", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingArgument).
	WithCode(goerrors.CodeBadRequest)

// ErrMissingUser is returned before any I/O when a user is required
var ErrMissingUser = goerrors.New("user is required", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingArgument).
	WithCode(goerrors.CodeBadRequest)

// ErrMissingData is returned before any I/O when a payload is required
var ErrMissingData = goerrors.New("data is required", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingArgument).
	WithCode(goerrors.CodeBadRequest)

// ErrSelfInvite is returned when the invitee and the inviter are the same user
var ErrSelfInvite = goerrors.New("cannot invite inviter", goerrors.CategoryValidation).
	WithTextCode(TextCodeSelfInvite).
	WithCode(goerrors.CodeBadRequest)

// ErrMembershipExists is returned when a join row already exists for the pair
var ErrMembershipExists = goerrors.New("membership already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeMembershipExists).
	WithCode(goerrors.CodeConflict)

// ErrInvalidTransition is returned when a membership state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid membership state transition", goerrors.CategoryConflict).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// IsNotFound reports whether err is a not found error, including
// sql.ErrNoRows surfaced by the persistence layer.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.IsNotFound(err) || isNoRows(err)
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return err != nil && goerrors.IsValidation(err)
}

// IsAuth reports whether err is an authentication error
func IsAuth(err error) bool {
	return err != nil && goerrors.IsAuth(err)
}

// HasTextCode reports whether err carries the given text code
func HasTextCode(err error, code string) bool {
	var e *goerrors.Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.TextCode == code
}

func persistenceError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(TextCodePersistence).
		WithCode(goerrors.CodeInternal)
}
