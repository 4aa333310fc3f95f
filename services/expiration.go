package services

import "time"

// Reactions move a post's flame timer: a like buys the post an hour, a dislike
// takes one away. Posts without an expiration are never touched.
const (
	// ExpirationStep is the amount a single like/dislike shifts expires_at.
	ExpirationStep = time.Hour

	// ExpirationFloor is the minimum remaining lifetime after a backward
	// shift. Clamping here keeps a dislike burst from expiring a post on
	// the spot.
	ExpirationFloor = time.Minute
)

func expiryStep(s ReactionState) time.Duration {
	switch s {
	case StateLiked:
		return ExpirationStep
	case StateDisliked:
		return -ExpirationStep
	default:
		return 0
	}
}

// ExpiryDelta returns the net shift for a state transition as a single value,
// so a like-to-dislike flip moves the timer two steps in one update instead of
// passing through an intermediate timestamp.
func ExpiryDelta(prev, next ReactionState) time.Duration {
	return expiryStep(next) - expiryStep(prev)
}

// AdjustExpiry applies delta to the current expiration, clamping the result to
// now + ExpirationFloor when the shift would land it in the past.
func AdjustExpiry(current time.Time, delta time.Duration, now time.Time) time.Time {
	next := current.Add(delta)
	if !next.After(now) {
		return now.Add(ExpirationFloor)
	}
	return next
}
