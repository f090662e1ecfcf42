// Package eligibility pre-filters pairs on profile attributes before any
// decision reaches the match ladder. Profile storage itself lives in an
// external subsystem; this package only consumes it through a port.
package eligibility

import (
	"context"

	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Attributes are the profile fields the pre-filter needs. Everything else
// about a profile stays in the external store.
type Attributes struct {
	UserID   domain.UserID
	Gender   Gender
	Religion string
	Age      int
}

// AttributeSource is the port to the external profile subsystem.
type AttributeSource interface {
	Attributes(ctx context.Context, userID domain.UserID) (Attributes, error)
}

const (
	minAge = 18
	maxAge = 80
)

// Checker applies the hard pair gates: opposite genders, shared religion,
// both within the permitted age band.
type Checker struct {
	source AttributeSource
}

func NewChecker(source AttributeSource) *Checker {
	return &Checker{source: source}
}

// Check returns a validation error naming the first failed gate, or nil when
// the pair may proceed.
func (c *Checker) Check(ctx context.Context, a, b domain.UserID) error {
	left, err := c.source.Attributes(ctx, a)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load profile attributes")
	}
	right, err := c.source.Attributes(ctx, b)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load profile attributes")
	}

	if left.Gender == right.Gender {
		return dErrors.New(dErrors.CodeValidation, "participants must be of opposite genders")
	}
	if left.Religion != right.Religion {
		return dErrors.New(dErrors.CodeValidation, "participants must share a religion")
	}
	for _, attrs := range []Attributes{left, right} {
		if attrs.Age < minAge || attrs.Age > maxAge {
			return dErrors.New(dErrors.CodeValidation, "participant age outside the permitted range")
		}
	}
	return nil
}
