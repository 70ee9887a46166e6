package roster

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeItemNotFound = "ROSTER_ITEM_NOT_FOUND"
	TextCodeInvalidItem  = "ROSTER_ITEM_INVALID"
	TextCodeUnrecognized = "ROSTER_UNRECOGNIZED_REQUEST"
)

// ErrItemNotFound is returned by a Store when owner has no item for a jid
var ErrItemNotFound = goerrors.New("roster item not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeItemNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidItem is returned when a wire item has no jid
var ErrInvalidItem = goerrors.New("roster item not properly set", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidItem).
	WithCode(goerrors.CodeBadRequest)

// ErrUnrecognizedRequest is returned by Handle for stanzas Match rejects.
var ErrUnrecognizedRequest = goerrors.New("could not recognize roster request", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUnrecognized).
	WithCode(goerrors.CodeBadRequest)

// Store persists roster items per owner. Owners and item jids are bare.
type Store interface {
	List(ctx context.Context, owner string) ([]Item, error)
	// Get returns ErrItemNotFound when the item does not exist.
	Get(ctx context.Context, owner, jid string) (*Item, error)
	Add(ctx context.Context, owner string, item Item) error
	Update(ctx context.Context, owner string, item Item) error
	Delete(ctx context.Context, owner, jid string) error
}
