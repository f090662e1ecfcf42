// Package traits converts raw psychometric test scores into the normalized
// trait vector the compatibility scorer consumes.
package traits

import (
	"time"

	"taaruf/pkg/domain"
)

// Dimension names one axis of the trait vector.
type Dimension string

const (
	Dominance          Dimension = "dominance"
	Stability          Dimension = "stability"
	Empathy            Dimension = "empathy"
	Logic              Dimension = "logic"
	Religiosity        Dimension = "religiosity"
	ConflictStyle      Dimension = "conflict_style"
	AttachmentSecurity Dimension = "attachment_security"
	Ambition           Dimension = "ambition"
)

// Dimensions lists every axis in a fixed order.
var Dimensions = []Dimension{
	Dominance, Stability, Empathy, Logic,
	Religiosity, ConflictStyle, AttachmentSecurity, Ambition,
}

// TestCategory names a psychometric assessment kind as delivered by the
// external assessment subsystem.
type TestCategory string

const (
	CategoryDISC          TestCategory = "disc"
	CategoryBigFive       TestCategory = "big_five"
	CategoryEQ            TestCategory = "eq"
	CategoryIQ            TestCategory = "iq"
	CategoryPreMarriage   TestCategory = "pre_marriage"
	CategoryConflictStyle TestCategory = "conflict_style"
	CategoryAttachment    TestCategory = "attachment"
	CategoryCareer        TestCategory = "career"
)

// TestResult is one raw per-category score from the assessment subsystem.
type TestResult struct {
	UserID   domain.UserID
	Category TestCategory
	Score    float64
}

// Vector is the fixed-dimension normalized trait profile, every axis in
// [0,100].
type Vector map[Dimension]float64

// Stamped is a vector frozen with the engine version and time that produced
// it. It is immutable until invalidated by a test update or a version bump.
type Stamped struct {
	UserID      domain.UserID
	Vector      Vector
	SourceTests int
	Version     int
	ComputedAt  time.Time
}

// Stale reports whether the stamped vector must be recomputed before use:
// either the engine moved on, or a source test was updated after stamping.
func (s Stamped) Stale(currentVersion int, testsUpdatedAt time.Time) bool {
	if s.Version != currentVersion {
		return true
	}
	return testsUpdatedAt.After(s.ComputedAt)
}
