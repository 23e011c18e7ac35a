package types

import "github.com/m-mizutani/goerr/v2"

// ConflictPolicy decides what finalizing under an existing action name does
type ConflictPolicy string

const (
	// ConflictPolicyOverwrite replaces the existing action entirely
	ConflictPolicyOverwrite ConflictPolicy = "overwrite"
	// ConflictPolicyReject refuses to finalize and keeps the session open
	ConflictPolicyReject ConflictPolicy = "reject"
)

func (p ConflictPolicy) IsValid() bool {
	switch p {
	case ConflictPolicyOverwrite, ConflictPolicyReject:
		return true
	default:
		return false
	}
}

func (p ConflictPolicy) String() string {
	return string(p)
}

// ParseConflictPolicy parses a string into a ConflictPolicy. Empty means overwrite.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	if s == "" {
		return ConflictPolicyOverwrite, nil
	}
	p := ConflictPolicy(s)
	if !p.IsValid() {
		return "", goerr.New("invalid conflict policy", goerr.V("policy", s))
	}
	return p, nil
}

// Containment selects how the day window is tested against the current time
type Containment string

const (
	// ContainmentRaw compares start <= now <= end on the raw HHMM strings.
	// A window whose start is after its end never matches.
	ContainmentRaw Containment = "raw"
	// ContainmentWraparound treats start > end as a window crossing midnight
	ContainmentWraparound Containment = "wraparound"
)

func (c Containment) IsValid() bool {
	switch c {
	case ContainmentRaw, ContainmentWraparound:
		return true
	default:
		return false
	}
}

func (c Containment) String() string {
	return string(c)
}

// ParseContainment parses a string into a Containment. Empty means raw.
func ParseContainment(s string) (Containment, error) {
	if s == "" {
		return ContainmentRaw, nil
	}
	c := Containment(s)
	if !c.IsValid() {
		return "", goerr.New("invalid containment mode", goerr.V("containment", s))
	}
	return c, nil
}
