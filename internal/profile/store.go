// Package profile reuses biometrics recorded in earlier tracking events, so a
// returning user does not have to enter them again.
package profile

import (
	"diettracker/internal/model"
	"diettracker/internal/repository"
)

// Querier is the read side of the event log.
type Querier interface {
	Query(match repository.Predicate) ([]model.TrackingEvent, error)
}

// LoadProfile returns the profile embedded in the latest event of user that has
// one, or nil for a first-time user. Events without a profile are skipped.
// The returned profile is normalized but not validated.
func LoadProfile(user string, log Querier) (*model.UserProfile, error) {
	events, err := log.Query(repository.ForUser(user))
	if err != nil {
		return nil, err
	}

	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Profile == nil {
			continue
		}
		p := events[i].Profile.Profile(user)
		return &p, nil
	}
	return nil, nil
}
