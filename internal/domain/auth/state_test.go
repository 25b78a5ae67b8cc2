package auth

import "testing"

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		from   State
		on     Event
		to     State
		effect Effect
	}{
		{StateInitializing, EventIdentityAbsent, StateUnauthenticated, EffectRedirectToEntry},
		{StateInitializing, EventIdentityPresent, StateAuthenticatedNoProfile, EffectNone},
		{StateUnauthenticated, EventIdentityPresent, StateAuthenticatedNoProfile, EffectNone},
		{StateAuthenticatedNoProfile, EventProfileResolved, StateAuthenticated, EffectRedirectToDefault},
		{StateAuthenticatedNoProfile, EventProfileMissing, StateUnauthenticated, EffectForceSignOut | EffectRedirectToEntry},
		{StateAuthenticated, EventSignedOut, StateUnauthenticated, EffectRedirectToEntry},
		{StateAuthenticated, EventSessionExpired, StateUnauthenticated, EffectRedirectToEntry},

		// Pairs without a rule are no-ops.
		{StateAuthenticated, EventIdentityPresent, StateAuthenticated, EffectNone},
		{StateUnauthenticated, EventProfileResolved, StateUnauthenticated, EffectNone},
		{StateInitializing, EventSignedOut, StateInitializing, EffectNone},
		{StateUnauthenticated, EventSessionExpired, StateUnauthenticated, EffectNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.on), func(t *testing.T) {
			to, effect := Transition(tt.from, tt.on)
			if to != tt.to || effect != tt.effect {
				t.Fatalf("Transition(%s, %s) = (%s, %b), want (%s, %b)", tt.from, tt.on, to, effect, tt.to, tt.effect)
			}
		})
	}
}

func TestTransition_NeverAuthenticatedWithoutProfileEvent(t *testing.T) {
	states := []State{StateInitializing, StateUnauthenticated, StateAuthenticatedNoProfile, StateAuthenticated}
	events := []Event{
		EventIdentityAbsent, EventIdentityPresent, EventProfileResolved,
		EventProfileMissing, EventSignedOut, EventSessionExpired,
	}
	for _, s := range states {
		for _, e := range events {
			to, _ := Transition(s, e)
			if to == StateAuthenticated && s != StateAuthenticated && e != EventProfileResolved {
				t.Fatalf("%s --%s--> authenticated without a resolved profile", s, e)
			}
		}
	}
}

func TestState_Loading(t *testing.T) {
	if !StateInitializing.Loading() || !StateAuthenticatedNoProfile.Loading() {
		t.Fatalf("transient states must report loading")
	}
	if StateAuthenticated.Loading() || StateUnauthenticated.Loading() {
		t.Fatalf("settled states must not report loading")
	}
}

func TestEffect_Has(t *testing.T) {
	e := EffectForceSignOut | EffectRedirectToEntry
	if !e.Has(EffectForceSignOut) || !e.Has(EffectRedirectToEntry) {
		t.Fatalf("expected both bits")
	}
	if e.Has(EffectRedirectToDefault) || e.Has(EffectNone) {
		t.Fatalf("unexpected bit")
	}
}
