package risk

import (
	"strings"

	"hemotwin-backend/internal/bloodtest"
)

// Sex selects sex-specific reference ranges.
type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

// ParseSex normalizes free-form input. ok is false for anything unrecognized.
func ParseSex(raw string) (Sex, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m":
		return SexMale, true
	case "female", "f":
		return SexFemale, true
	default:
		return "", false
	}
}

// Range is an inclusive normal interval.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (r Range) String() string {
	return bloodtest.FormatNumber(r.Low) + " - " + bloodtest.FormatNumber(r.High)
}

// WBC and platelets are sex-independent here; RBC and hemoglobin are not.
var (
	wbcRange      = Range{Low: 4500, High: 11000}
	plateletRange = Range{Low: 150000, High: 400000}
	rbcRanges     = map[Sex]Range{
		SexMale:   {Low: 4.7, High: 6.1},
		SexFemale: {Low: 4.2, High: 5.4},
	}
	hemoglobinRanges = map[Sex]Range{
		SexMale:   {Low: 14, High: 18},
		SexFemale: {Low: 12, High: 16},
	}
)

// ClassifierRange returns the range the classifier compares metric against.
func ClassifierRange(metric string, sex Sex) (Range, bool) {
	switch metric {
	case bloodtest.MetricWBC:
		return wbcRange, true
	case bloodtest.MetricPlatelets:
		return plateletRange, true
	case bloodtest.MetricRBC:
		r, ok := rbcRanges[sex]
		return r, ok
	case bloodtest.MetricHemoglobin:
		r, ok := hemoglobinRanges[sex]
		return r, ok
	default:
		return Range{}, false
	}
}

// AgeGroup buckets patients for display ranges.
type AgeGroup string

const (
	AgeChild AgeGroup = "child"
	AgeAdult AgeGroup = "adult"
)

// childAgeLimit is the first adult age.
const childAgeLimit = 18

// GroupForAge returns the display age bucket.
func GroupForAge(age int) AgeGroup {
	if age < childAgeLimit {
		return AgeChild
	}
	return AgeAdult
}

// ReferenceRange is a human-readable normal range shown next to a lab value.
type ReferenceRange struct {
	Metric string `json:"metric"`
	Label  string `json:"label"`
	Range  string `json:"range"`
}

type displayRange struct {
	metric string
	group  AgeGroup
	sex    Sex // empty applies to both
	text   string
}

var displayRanges = []displayRange{
	{metric: bloodtest.MetricWBC, group: AgeChild, text: "5,000 - 10,000 K/uL"},
	{metric: bloodtest.MetricWBC, group: AgeAdult, sex: SexMale, text: "5,000 - 10,000 K/uL"},
	{metric: bloodtest.MetricWBC, group: AgeAdult, sex: SexFemale, text: "4,500 - 11,000 K/uL"},

	{metric: bloodtest.MetricRBC, group: AgeChild, text: "4.0 - 5.5 M/uL"},
	{metric: bloodtest.MetricRBC, group: AgeAdult, sex: SexMale, text: "4.7 - 6.1 M/uL"},
	{metric: bloodtest.MetricRBC, group: AgeAdult, sex: SexFemale, text: "4.2 - 5.4 M/uL"},

	{metric: bloodtest.MetricPlatelets, group: AgeChild, text: "150,000 - 400,000 K/uL"},
	{metric: bloodtest.MetricPlatelets, group: AgeAdult, text: "150,000 - 400,000 K/uL"},

	{metric: bloodtest.MetricHemoglobin, group: AgeChild, text: "9.5 - 15.5 g/dL"},
	{metric: bloodtest.MetricHemoglobin, group: AgeAdult, sex: SexMale, text: "14 - 18 g/dL"},
	{metric: bloodtest.MetricHemoglobin, group: AgeAdult, sex: SexFemale, text: "12 - 16 g/dL"},
}

var metricLabels = map[string]string{
	bloodtest.MetricWBC:        "White Blood Cells",
	bloodtest.MetricRBC:        "Red Blood Cells",
	bloodtest.MetricPlatelets:  "Platelets",
	bloodtest.MetricHemoglobin: "Hemoglobin",
}

// ReferenceRanges returns the display ranges for a patient, one per metric.
func ReferenceRanges(age int, sex Sex) []ReferenceRange {
	group := GroupForAge(age)
	out := make([]ReferenceRange, 0, len(bloodtest.Metrics))
	for _, metric := range bloodtest.Metrics {
		for _, def := range displayRanges {
			if def.metric != metric || def.group != group {
				continue
			}
			if def.sex != "" && def.sex != sex {
				continue
			}
			out = append(out, ReferenceRange{Metric: metric, Label: metricLabels[metric], Range: def.text})
			break
		}
	}
	return out
}
