package core

import "github.com/pkg/errors"

var (
	// ErrTrustAnchorMismatch is returned when the bootstrap header does not hash to the trusted root.
	ErrTrustAnchorMismatch = errors.New("trusted block root does not match bootstrap header")
	// ErrInvalidMerkleProof is returned when a branch does not prove its leaf.
	ErrInvalidMerkleProof = errors.New("invalid merkle proof")
	// ErrPeriodSkip is returned when the update slots are out of order or the
	// signature period is out of reach of the store.
	ErrPeriodSkip = errors.New("update skips a sync committee period")
	// ErrIrrelevantUpdate is returned for updates that cannot advance the store.
	ErrIrrelevantUpdate = errors.New("update is not relevant")
	// ErrInsufficientParticipants is returned when too few committee members signed.
	ErrInsufficientParticipants = errors.New("sync committee does not have sufficient participants")
	// ErrSignatureVerificationFailure is returned when the aggregate signature is invalid.
	ErrSignatureVerificationFailure = errors.New("sync committee signature is invalid")
	// ErrCommitteeMismatch is returned when a sync committee disagrees with the
	// trusted one or does not have the configured size.
	ErrCommitteeMismatch = errors.New("sync committee mismatch")
)
