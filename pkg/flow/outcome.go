package flow

// State is the current position of a claim flow
type State string

const (
	// StateLoading is the initial state, before the auth provider is ready
	StateLoading State = "loading"
	// StateVerifying means a verification query is in flight or being retried
	StateVerifying State = "verifying"
	// StateValid means verification succeeded but the user is not authenticated
	StateValid State = "valid"
	// StateClaiming means the claim mutation is in flight
	StateClaiming State = "claiming"
	// StateClaimed is terminal success; a delayed redirect follows
	StateClaimed State = "claimed"
	// StateError is terminal failure; only claim_failed offers a retry
	StateError State = "error"
)

// Reason tags a terminal error. The set is closed; every failure the flow can
// produce maps onto exactly one of these.
type Reason string

const (
	ReasonMalformedInput    Reason = "malformed_input"
	ReasonNotFoundExhausted Reason = "not_found_exhausted"
	ReasonExpired           Reason = "expired"
	ReasonAlreadyClaimed    Reason = "already_claimed"
	ReasonUnexpected        Reason = "unexpected"
	ReasonClaimFailed       Reason = "claim_failed"
)

// Message returns the fixed user-facing message and remediation hint for a reason
func (r Reason) Message() string {
	switch r {
	case ReasonMalformedInput:
		return "This link is missing its code. Please open the original link you were sent."
	case ReasonNotFoundExhausted:
		return "We couldn't find this code yet. It may still be processing; try again shortly or request a new link."
	case ReasonExpired:
		return "This link has expired. Please request a new one."
	case ReasonAlreadyClaimed:
		return "This link was already used. Check your dashboard to see the result."
	case ReasonClaimFailed:
		return "Something went wrong completing the claim. You can try again."
	default:
		return "Something went wrong. Please try again or contact support."
	}
}

// OutcomeKind discriminates the verification outcome union
type OutcomeKind int

const (
	// OutcomeUnknown is the zero value so that a forgotten Outcome can never
	// read as a claimable token; the controller treats it as a verifier bug
	OutcomeUnknown OutcomeKind = iota
	// OutcomeValid means the token was found and can be claimed
	OutcomeValid
	// OutcomeNotFound is ambiguous between "never existed" and "not yet
	// visible"; the controller retries it a bounded number of times
	OutcomeNotFound
	// OutcomeTerminal means retrying could never change the answer
	OutcomeTerminal
)

// Context is the flow-specific data attached to a valid token
type Context struct {
	Platform         string
	PlatformUsername string
	Tier             string
	AmountCents      int64
}

// Outcome is the result of one verification query
type Outcome struct {
	Kind    OutcomeKind
	Reason  Reason // set when Kind == OutcomeTerminal
	Context Context
}

// Identity is the authenticated principal observed from the auth provider
type Identity struct {
	ID     string
	Handle string
}

// Session is a snapshot of the external auth provider's state. The flow only
// ever reads these three fields; it never owns session state itself.
type Session struct {
	Ready         bool
	Authenticated bool
	Identity      Identity
}

// ClaimResult is the successful result of the claim mutation
type ClaimResult struct {
	RedirectTarget string
}

// Snapshot is the externally visible state of a controller, consumed by the
// presentation layer
type Snapshot struct {
	State          State
	Context        Context
	Reason         Reason
	Message        string
	RedirectTarget string
	Authenticated  bool
}
