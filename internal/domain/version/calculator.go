package version

// Policy controls how commit severity maps onto version increments.
// It is resolved from configuration once, before any computation runs.
type Policy struct {
	// FeaturesAlwaysIncrementMinor forces feature commits to bump the minor
	// component even while the major version is 0. Off by default: on a 0.x
	// line a feature bumps the patch component.
	FeaturesAlwaysIncrementMinor bool

	// BreakingAlwaysIncrementMajor forces breaking changes to bump the major
	// component even while the major version is 0. Off by default: on a 0.x
	// line a breaking change bumps the minor component.
	BreakingAlwaysIncrementMajor bool
}

// Signal summarizes the bump-eligible commits of one run.
type Signal struct {
	Breaking bool
	Feature  bool
	Fix      bool
}

// Empty returns true when no commit qualifies for a bump.
func (s Signal) Empty() bool {
	return !s.Breaking && !s.Feature && !s.Fix
}

// Merge combines two signals.
func (s Signal) Merge(other Signal) Signal {
	return Signal{
		Breaking: s.Breaking || other.Breaking,
		Feature:  s.Feature || other.Feature,
		Fix:      s.Fix || other.Fix,
	}
}

// Decision is the outcome of next-version computation.
// Invariant: Next >= Current, and Bump == BumpNone implies Next == Current.
type Decision struct {
	Current SemanticVersion
	Next    SemanticVersion
	Bump    BumpType
}

// IsRelease returns true when the decision calls for a new version.
func (d Decision) IsRelease() bool {
	return d.Bump != BumpNone
}

// Calculator computes the next version from the current version and the
// severity signal of the analyzed commits.
type Calculator struct {
	policy Policy
}

// NewCalculator creates a calculator with the given policy.
func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// ComputeNext decides the next version.
//
// A current version carrying a prerelease label advances its prerelease line
// instead of the release triple. Otherwise severity reduces to the maximum
// present: breaking > feature > fix. On a 0.x line a breaking change bumps
// minor (major under BreakingAlwaysIncrementMajor) and a feature bumps patch
// (minor under FeaturesAlwaysIncrementMinor). With an empty signal the
// version stands and no release is due.
func (c *Calculator) ComputeNext(current SemanticVersion, sig Signal) Decision {
	if sig.Empty() {
		return Decision{Current: current, Next: current, Bump: BumpNone}
	}

	if current.IsPrerelease() {
		next := NewVersionBump(BumpPrerelease).Apply(current)
		return Decision{Current: current, Next: next, Bump: BumpPrerelease}
	}

	bump := c.severity(current, sig)
	next := NewVersionBump(bump).Apply(current)
	return Decision{Current: current, Next: next, Bump: bump}
}

func (c *Calculator) severity(current SemanticVersion, sig Signal) BumpType {
	switch {
	case sig.Breaking:
		if current.Major() > 0 || c.policy.BreakingAlwaysIncrementMajor {
			return BumpMajor
		}
		if current.Minor() == 0 {
			// 0.0.x line: everything is unstable, a patch suffices.
			return BumpPatch
		}
		return BumpMinor

	case sig.Feature:
		if current.Major() == 0 && !c.policy.FeaturesAlwaysIncrementMinor {
			return BumpPatch
		}
		return BumpMinor

	default:
		return BumpPatch
	}
}
