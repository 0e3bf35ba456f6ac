package port

import "context"

type Roster interface {
	// IsEligible reports whether the kerb may check out items. Eligibility
	// policy lives entirely behind this interface; the loan core never
	// decides it locally.
	IsEligible(ctx context.Context, kerb string) (bool, error)
}
