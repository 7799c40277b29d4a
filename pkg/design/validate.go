package design

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/mate/pkg/xform"
)

// Tolerances used by the geometric checks.
const (
	UnitTolerance  = 1e-6
	RigidTolerance = 1e-6
)

// ValidationSeverity indicates whether a validation finding blocks meshing
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks meshing
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Subject  string             // part or assembly name (empty if design-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Subject, e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func (w ValidationWarning) String() string {
	if w.Subject == "" {
		return w.Message
	}
	return w.Subject + ": " + w.Message
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether no blocking error was found.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs the Tier 1 structural checks. An empty slice means the
// design is consistent. It never mutates the design.
func Validate(d *Design) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRegistry(d)...)
	errs = append(errs, validateMembers(d)...)
	return errs
}

// ValidateAll runs all tiers (structural, geometric, anchors) and returns
// errors and warnings separately.
func ValidateAll(d *Design) ValidationResult {
	tier1 := Validate(d)
	tier2Errs, tier2Warnings := validateGeometry(d)
	tier3Warnings := validateAnchors(d)

	var result ValidationResult
	for _, e := range tier1 {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{Subject: e.Subject, Message: e.Message})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	result.Errors = append(result.Errors, tier2Errs...)
	result.Warnings = append(result.Warnings, tier2Warnings...)
	result.Warnings = append(result.Warnings, tier3Warnings...)
	return result
}

// ---------------------------------------------------------------------------
// Tier 1: Structure
// ---------------------------------------------------------------------------

// validateRegistry checks that the lookup indexes agree with the ordered
// registries.
func validateRegistry(d *Design) []ValidationError {
	var errs []ValidationError
	if len(d.parts) == 0 {
		errs = append(errs, ValidationError{
			Message:  "design defines no parts",
			Severity: SeverityWarning,
		})
	}
	for i, p := range d.parts {
		if j, ok := d.partIndex[p.Name()]; !ok || j != i {
			errs = append(errs, ValidationError{
				Subject:  p.Name(),
				Message:  "part is not indexed under its name",
				Severity: SeverityError,
			})
		}
	}
	for i, a := range d.assemblies {
		if j, ok := d.asmIndex[a.Name()]; !ok || j != i {
			errs = append(errs, ValidationError{
				Subject:  a.Name(),
				Message:  "assembly is not indexed under its name",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateMembers checks that every assembly member is a registered part
// and that the root comes first.
func validateMembers(d *Design) []ValidationError {
	var errs []ValidationError
	for _, a := range d.assemblies {
		members := a.Members()
		if len(members) == 0 || members[0] != a.Root() {
			errs = append(errs, ValidationError{
				Subject:  a.Name(),
				Message:  "root part is not the first member",
				Severity: SeverityError,
			})
		}
		for _, m := range members {
			if d.Part(m.Name()) != m {
				errs = append(errs, ValidationError{
					Subject:  a.Name(),
					Message:  fmt.Sprintf("member %q is not a part of this design", m.Name()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 2: Geometry
// ---------------------------------------------------------------------------

func validateGeometry(d *Design) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	for _, p := range d.parts {
		if p.Shape() == nil {
			warnings = append(warnings, ValidationWarning{
				Subject: p.Name(),
				Message: "part has no shape and will not be meshed",
			})
		}
		for _, a := range p.Anchors() {
			if a.IsZero() {
				errs = append(errs, ValidationError{
					Subject:  p.Name(),
					Message:  fmt.Sprintf("anchor %q has a zero axis", a.Name()),
					Severity: SeverityError,
				})
				continue
			}
			if !a.IsUnit(UnitTolerance) {
				warnings = append(warnings, ValidationWarning{
					Subject: p.Name(),
					Message: fmt.Sprintf("anchor %q axes are not unit length (|u|=%.6g, |v|=%.6g)", a.Name(), a.U().Len(), a.V().Len()),
				})
			}
		}
		if !xform.IsRigid(p.CombinedTransform(), RigidTolerance) {
			warnings = append(warnings, ValidationWarning{
				Subject: p.Name(),
				Message: fmt.Sprintf("placement is not a rigid motion (%d transforms in history)", p.Len()),
			})
		}
	}
	return errs, warnings
}

// ---------------------------------------------------------------------------
// Tier 3: Anchors and membership
// ---------------------------------------------------------------------------

func validateAnchors(d *Design) []ValidationWarning {
	var warnings []ValidationWarning

	for _, a := range d.assemblies {
		collisions := a.Collisions()
		names := make([]string, 0, len(collisions))
		for name := range collisions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			owners := collisions[name]
			warnings = append(warnings, ValidationWarning{
				Subject: a.Name(),
				Message: fmt.Sprintf("anchor %q is carried by %s; %q wins", name, strings.Join(owners, ", "), owners[len(owners)-1]),
			})
		}
	}

	if len(d.assemblies) > 0 {
		for _, p := range d.parts {
			if d.Owner(p) == nil {
				warnings = append(warnings, ValidationWarning{
					Subject: p.Name(),
					Message: "part is not a member of any assembly",
				})
			}
		}
	}
	return warnings
}
