// Package attendance computes attendance standing against a target percentage:
// the current percentage, the classes that must still be attended to reach the
// target and the classes that may be missed while staying at or above it.
//
// Every figure derived from attended/total counts in the application goes
// through this package.
package attendance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
)

// maxClasses bounds the counts returned by ClassesNeeded and ClassesAffordable.
// Beyond it the result is reported as Unreachable / Unbounded.
const maxClasses = math.MaxInt32

var ErrInvalidInput = errors.New("invalid attendance input")

// Tally holds the attended/total class counts and the target percentage they are measured against.
type Tally struct {
	Attended int     `json:"attended_classes"`
	Total    int     `json:"total_classes"`
	Target   float64 `json:"target_percentage"`
}

// Validate rejects negative counts, more attended than total classes, and targets outside [0, 100].
func (t Tally) Validate() error {
	var flds []core.FieldError
	if t.Attended < 0 {
		flds = append(flds, core.FieldError{Field: "attended_classes", Error: "must be a non-negative integer"})
	}
	if t.Total < 0 {
		flds = append(flds, core.FieldError{Field: "total_classes", Error: "must be a non-negative integer"})
	}
	if t.Attended >= 0 && t.Total >= 0 && t.Attended > t.Total {
		flds = append(flds, core.FieldError{Field: "attended_classes", Error: "cannot exceed total classes"})
	}
	if math.IsNaN(t.Target) || t.Target < 0 || t.Target > 100 {
		flds = append(flds, core.FieldError{Field: "target_percentage", Error: "must be between 0 and 100"})
	}
	if flds != nil {
		return core.NewValidationError(ErrInvalidInput, flds...)
	}
	return nil
}

func percentage(attended, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(attended) / float64(total) * 100
}

func meets(attended, total int, target float64) bool {
	return percentage(attended, total) >= target
}

// CurrentPercentage returns Attended/Total*100, or 0 when no class was held.
func CurrentPercentage(t Tally) float64 {
	return percentage(t.Attended, t.Total)
}

// Recovery is the number of consecutive classes to attend in order to reach the target.
type Recovery struct {
	Classes     int
	Unreachable bool // the target is 100% and at least one class was missed
}

func (r Recovery) String() string {
	if r.Unreachable {
		return "unreachable"
	}
	return strconv.Itoa(r.Classes)
}

func (r Recovery) MarshalJSON() ([]byte, error) {
	if r.Unreachable {
		return json.Marshal("unreachable")
	}
	return json.Marshal(r.Classes)
}

func (r *Recovery) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "unreachable" {
			return errors.Errorf("invalid classes needed %q", s)
		}
		*r = Recovery{Unreachable: true}
		return nil
	}
	*r = Recovery{}
	return json.Unmarshal(data, &r.Classes)
}

// Allowance is the number of consecutive classes that may be missed while staying on target.
type Allowance struct {
	Classes   int
	Unbounded bool // the target is 0%
}

func (a Allowance) String() string {
	if a.Unbounded {
		return "unbounded"
	}
	return strconv.Itoa(a.Classes)
}

func (a Allowance) MarshalJSON() ([]byte, error) {
	if a.Unbounded {
		return json.Marshal("unbounded")
	}
	return json.Marshal(a.Classes)
}

func (a *Allowance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "unbounded" {
			return errors.Errorf("invalid classes affordable %q", s)
		}
		*a = Allowance{Unbounded: true}
		return nil
	}
	*a = Allowance{}
	return json.Unmarshal(data, &a.Classes)
}

// ClassesNeeded returns the smallest x such that (Attended+x)/(Total+x)*100 >= Target.
//
// A tally with no class held never meets a positive target: at least one class is needed.
func ClassesNeeded(t Tally) (Recovery, error) {
	if err := t.Validate(); err != nil {
		return Recovery{}, err
	}
	if meets(t.Attended, t.Total, t.Target) {
		return Recovery{}, nil
	}
	if t.Total == 0 {
		return Recovery{Classes: 1}, nil
	}
	if t.Target >= 100 {
		return Recovery{Unreachable: true}, nil
	}

	f := math.Ceil((t.Target*float64(t.Total) - 100*float64(t.Attended)) / (100 - t.Target))
	if f > maxClasses-float64(t.Total) {
		return Recovery{Unreachable: true}, nil
	}
	x := int(math.Max(f, 0))

	// the closed form may be off by one under floating point
	for !meets(t.Attended+x, t.Total+x, t.Target) {
		x++
	}
	for x > 0 && meets(t.Attended+x-1, t.Total+x-1, t.Target) {
		x--
	}
	return Recovery{Classes: x}, nil
}

// ClassesAffordable returns the largest x such that Attended/(Total+x)*100 >= Target,
// or 0 when the tally is below target.
func ClassesAffordable(t Tally) (Allowance, error) {
	if err := t.Validate(); err != nil {
		return Allowance{}, err
	}
	if !meets(t.Attended, t.Total, t.Target) {
		return Allowance{}, nil
	}
	if t.Target == 0 {
		return Allowance{Unbounded: true}, nil
	}

	f := math.Floor((100*float64(t.Attended) - t.Target*float64(t.Total)) / t.Target)
	if f > maxClasses-float64(t.Total) {
		return Allowance{Unbounded: true}, nil
	}
	x := int(math.Max(f, 0))

	for x > 0 && !meets(t.Attended, t.Total+x, t.Target) {
		x--
	}
	for meets(t.Attended, t.Total+x+1, t.Target) {
		x++
	}
	return Allowance{Classes: x}, nil
}

// Standing is a tally evaluated against its target.
type Standing struct {
	Tally
	Percentage  float64   `json:"current_percentage"` // rounded to 2 decimals
	MeetsTarget bool      `json:"meets_target"`
	Needed      Recovery  `json:"classes_needed"`
	Affordable  Allowance `json:"classes_affordable"`
}

// Evaluate computes the full Standing of t.
func Evaluate(t Tally) (Standing, error) {
	needed, err := ClassesNeeded(t)
	if err != nil {
		return Standing{}, err
	}
	affordable, err := ClassesAffordable(t)
	if err != nil {
		return Standing{}, err
	}
	return Standing{
		Tally:       t,
		Percentage:  Round(CurrentPercentage(t), 2),
		MeetsTarget: meets(t.Attended, t.Total, t.Target),
		Needed:      needed,
		Affordable:  affordable,
	}, nil
}

// Message is a human readable recommendation for the standing.
func (s Standing) Message() string {
	target := FormatPercentage(s.Target)
	switch {
	case !s.MeetsTarget && s.Needed.Unreachable:
		return fmt.Sprintf("You can no longer reach %s%% attendance.", target)
	case !s.MeetsTarget:
		return fmt.Sprintf("You need to attend at least %d more class(es) to reach %s%% attendance.", s.Needed.Classes, target)
	case s.Affordable.Unbounded:
		return fmt.Sprintf("You can miss any number of classes and still maintain %s%% attendance.", target)
	default:
		return fmt.Sprintf("You can afford to miss %d more class(es) and still maintain %s%% attendance.", s.Affordable.Classes, target)
	}
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FormatPercentage formats p without trailing zeros (75 -> "75", 72.5 -> "72.5").
func FormatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
