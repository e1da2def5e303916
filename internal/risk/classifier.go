package risk

import (
	"fmt"
	"strings"
	"time"

	"hemotwin-backend/internal/bloodtest"
)

// Level is the coarse risk verdict.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

func (l Level) rank() int {
	switch l {
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	default:
		return 0
	}
}

// raise returns the higher of l and to.
func (l Level) raise(to Level) Level {
	if to.rank() > l.rank() {
		return to
	}
	return l
}

// WBC thresholds are absolute and do not depend on sex or age.
const (
	wbcVeryHigh = 100000
	wbcElevated = 50000
)

// Profile carries the demographics the classifier needs.
type Profile struct {
	DOB string
	Sex string
}

// Assessment is the classifier output. It is computed on demand and never stored.
type Assessment struct {
	Level       Level    `json:"riskLevel"`
	Explanation []string `json:"explanation"`
	Age         int      `json:"age"`
	Sex         Sex      `json:"sex"`
}

// Classify evaluates record for profile using the current year for age.
func Classify(record bloodtest.LabRecord, profile Profile) (Assessment, error) {
	return ClassifyAt(record, profile, time.Now().UTC())
}

// Demographics parses the sex of p and lists its absent demographic fields. A sex
// that is present but unrecognized yields ErrInvalidSex instead of a gap.
func Demographics(p Profile) (Sex, []string, error) {
	var missing []string
	if strings.TrimSpace(p.DOB) == "" {
		missing = append(missing, "dob")
	}
	if strings.TrimSpace(p.Sex) == "" {
		return "", append(missing, "sex"), nil
	}
	sex, ok := ParseSex(p.Sex)
	if !ok {
		return "", missing, fmt.Errorf("%w: %q", ErrInvalidSex, p.Sex)
	}
	return sex, missing, nil
}

// ClassifyAt evaluates record for profile as of now.
//
// Metrics are evaluated in the order WBC, RBC, Platelets, Hemoglobin and
// each contributes exactly one explanation line. The level starts Low and is
// only ever raised. Absent inputs refuse the whole classification.
func ClassifyAt(record bloodtest.LabRecord, profile Profile, now time.Time) (Assessment, error) {
	sex, gaps, sexErr := Demographics(profile)
	missing := append(record.Missing(bloodtest.Metrics...), gaps...)
	if len(missing) > 0 {
		return Assessment{}, &MissingDataError{Fields: missing}
	}
	if sexErr != nil {
		return Assessment{}, sexErr
	}

	age, err := AgeAt(profile.DOB, now)
	if err != nil {
		return Assessment{}, err
	}

	wbc, _ := record.Get(bloodtest.MetricWBC)
	rbc, _ := record.Get(bloodtest.MetricRBC)
	platelets, _ := record.Get(bloodtest.MetricPlatelets)
	hemoglobin, _ := record.Get(bloodtest.MetricHemoglobin)

	out := Assessment{Level: LevelLow, Age: age, Sex: sex}

	switch {
	case wbc > wbcVeryHigh:
		out.Level = out.Level.raise(LevelHigh)
		out.Explanation = append(out.Explanation, fmt.Sprintf("WBC: %s (Above 100,000 - Very High)", bloodtest.FormatNumber(wbc)))
	case wbc > wbcElevated:
		out.Level = out.Level.raise(LevelMedium)
		out.Explanation = append(out.Explanation, fmt.Sprintf("WBC: %s (Above 50,000 - Elevated)", bloodtest.FormatNumber(wbc)))
	default:
		out.Explanation = append(out.Explanation, normalLine("WBC", wbc, wbcRange))
	}

	out.checkLowerBound("RBC", rbc, rbcRanges[sex])
	out.checkLowerBound("Platelets", platelets, plateletRange)
	out.checkLowerBound("Hemoglobin", hemoglobin, hemoglobinRanges[sex])

	return out, nil
}

func (a *Assessment) checkLowerBound(label string, value float64, r Range) {
	if value < r.Low {
		a.Level = a.Level.raise(LevelHigh)
		a.Explanation = append(a.Explanation, fmt.Sprintf("%s: %s (Below Normal: %s)", label, bloodtest.FormatNumber(value), r))
		return
	}
	a.Explanation = append(a.Explanation, normalLine(label, value, r))
}

func normalLine(label string, value float64, r Range) string {
	return fmt.Sprintf("%s: %s (Normal Range: %s)", label, bloodtest.FormatNumber(value), r)
}
