// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package social

import "codeberg.org/oliverandrich/talentgate-identity/internal/models"

// Outcome is the result of matching an external assertion to local identities.
type Outcome int

const (
	// MatchedByExternalID: an identity already carries the external uid.
	// Mutable profile fields are reconciled, nothing is created.
	MatchedByExternalID Outcome = iota
	// MatchedByEmail: the uid is unknown but an identity owns the email (or
	// is the explicit link target). The uid gets bound to that identity.
	MatchedByEmail
	// NoMatch: a new CANDIDATE identity is created from the assertion.
	NoMatch
	// Conflict: the uid belongs to another identity, or the identity is
	// already bound to another uid. Nothing is modified.
	Conflict
)

func (o Outcome) String() string {
	switch o {
	case MatchedByExternalID:
		return "matched_by_external_id"
	case MatchedByEmail:
		return "matched_by_email"
	case NoMatch:
		return "no_match"
	default:
		return "conflict"
	}
}

// Decision names the outcome and the identity it applies to. User is nil
// for NoMatch and Conflict.
type Decision struct {
	Outcome Outcome
	User    *models.User
}

// Decide maps the lookups for an assertion to an outcome. byUID and byEmail
// are the identities found by external uid and by email (nil when absent).
// target is the identity an explicit link request wants to bind, nil for
// sign-in.
func Decide(byUID, byEmail, target *models.User) Decision {
	if target != nil {
		switch {
		case byUID != nil && byUID.ID == target.ID:
			return Decision{Outcome: MatchedByExternalID, User: target}
		case byUID != nil:
			return Decision{Outcome: Conflict}
		case target.IsLinked():
			// Nobody owns the uid, so target is bound to a different one.
			return Decision{Outcome: Conflict}
		}
		return Decision{Outcome: MatchedByEmail, User: target}
	}

	switch {
	case byUID != nil:
		return Decision{Outcome: MatchedByExternalID, User: byUID}
	case byEmail != nil && byEmail.IsLinked():
		return Decision{Outcome: Conflict}
	case byEmail != nil:
		return Decision{Outcome: MatchedByEmail, User: byEmail}
	}
	return Decision{Outcome: NoMatch}
}
