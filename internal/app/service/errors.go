package service

import "errors"

// Kind classifies service errors so transports can map them without
// knowing every sentinel.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	}
	return "internal"
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidQuantity, KindValidation},
	{ErrInvalidRating, KindValidation},
	{ErrInvalidRecipe, KindValidation},
	{ErrCategoryNotFound, KindValidation},
	{ErrRecipeNotFound, KindNotFound},
	{ErrCartItemNotFound, KindNotFound},
	{ErrReviewNotFound, KindNotFound},
	{ErrOrderNotFound, KindNotFound},
	{ErrReviewForbidden, KindForbidden},
	{ErrEmptyCart, KindConflict},
	{ErrPaymentAlreadyProcessed, KindConflict},
	{ErrReviewAlreadyExists, KindConflict},
	{ErrPaymentProviderUnavailable, KindUnavailable},
}

// KindOf reports the kind of err, looking through wrapping.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
