package feeds

import "errors"

var (
	ErrUnauthorized           = errors.New("feeds: unauthorized")
	ErrLengthMismatch         = errors.New("feeds: array length mismatch")
	ErrInvalidFeedID          = errors.New("feeds: invalid feed id")
	ErrInvalidCategory        = errors.New("feeds: feed id category is not calculated")
	ErrFeedExists             = errors.New("feeds: calculated feed already exists")
	ErrFeedNotFound           = errors.New("feeds: feed not found")
	ErrSameIdentifier         = errors.New("feeds: old and new feed id are equal")
	ErrAliasNotFound          = errors.New("feeds: alias not found")
	ErrCalculatedNotSupported = errors.New("feeds: calculated feed not supported")
	ErrInvalidProof           = errors.New("feeds: merkle proof invalid")
	ErrOverflow               = errors.New("feeds: value overflows 256 bits")
	ErrInsufficientValue      = errors.New("feeds: insufficient value for fee")
	ErrNilCollaborator        = errors.New("feeds: nil collaborator")
)
