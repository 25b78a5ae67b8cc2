package auth

// State is the session lifecycle state reported to clients.
type State string

const (
	StateInitializing           State = "initializing"
	StateUnauthenticated        State = "unauthenticated"
	StateAuthenticatedNoProfile State = "authenticated_no_profile"
	StateAuthenticated          State = "authenticated"
)

// Loading reports whether the state is transient and a client should wait.
func (s State) Loading() bool {
	return s == StateInitializing || s == StateAuthenticatedNoProfile
}

// Event drives the session state machine.
type Event string

const (
	EventIdentityAbsent  Event = "identity_absent"
	EventIdentityPresent Event = "identity_present"
	EventProfileResolved Event = "profile_resolved"
	EventProfileMissing  Event = "profile_missing"
	EventSignedOut       Event = "signed_out"
	EventSessionExpired  Event = "session_expired"
)

// Effect is a bit set of side effects the caller must perform after a transition.
type Effect uint8

const EffectNone Effect = 0

const (
	// EffectRedirectToEntry sends the client to the login screen.
	EffectRedirectToEntry Effect = 1 << iota
	// EffectRedirectToDefault sends the client to the role's default screen.
	EffectRedirectToDefault
	// EffectForceSignOut ends the identity provider session.
	EffectForceSignOut
)

// Has reports whether e includes all bits of other.
func (e Effect) Has(other Effect) bool { return other != 0 && e&other == other }

type transitionKey struct {
	from State
	on   Event
}

type transitionResult struct {
	to     State
	effect Effect
}

var transitions = map[transitionKey]transitionResult{
	{StateInitializing, EventIdentityAbsent}:            {StateUnauthenticated, EffectRedirectToEntry},
	{StateInitializing, EventIdentityPresent}:           {StateAuthenticatedNoProfile, EffectNone},
	{StateUnauthenticated, EventIdentityPresent}:        {StateAuthenticatedNoProfile, EffectNone},
	{StateAuthenticatedNoProfile, EventProfileResolved}: {StateAuthenticated, EffectRedirectToDefault},
	{StateAuthenticatedNoProfile, EventProfileMissing}:  {StateUnauthenticated, EffectForceSignOut | EffectRedirectToEntry},
	{StateAuthenticatedNoProfile, EventSignedOut}:       {StateUnauthenticated, EffectRedirectToEntry},
	{StateAuthenticated, EventSignedOut}:                {StateUnauthenticated, EffectRedirectToEntry},
	{StateAuthenticated, EventSessionExpired}:           {StateUnauthenticated, EffectRedirectToEntry},
	{StateAuthenticatedNoProfile, EventSessionExpired}:  {StateUnauthenticated, EffectRedirectToEntry},
}

// Transition is the pure session state machine. Pairs without a rule leave the state unchanged.
func Transition(from State, on Event) (State, Effect) {
	if r, ok := transitions[transitionKey{from, on}]; ok {
		return r.to, r.effect
	}
	return from, EffectNone
}
