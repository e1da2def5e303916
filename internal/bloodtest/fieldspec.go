package bloodtest

// Metric names used as LabRecord keys and document fields.
const (
	MetricWBC        = "wbc"
	MetricRBC        = "rbc"
	MetricPlatelets  = "platelets"
	MetricHemoglobin = "hemoglobin"
)

// FieldSpec describes how to locate and validate one lab metric in OCR text.
type FieldSpec struct {
	Metric    string
	Keywords  []string
	MinValid  float64
	MaxValid  float64
	Tolerance float64
}

// Accepts reports whether v falls inside the spec's tolerance window.
func (s FieldSpec) Accepts(v float64) bool {
	return v >= s.MinValid-s.Tolerance && v <= s.MaxValid+s.Tolerance
}

// Metrics lists the metrics every stored record carries, in evaluation order.
var Metrics = []string{MetricWBC, MetricRBC, MetricPlatelets, MetricHemoglobin}

// DefaultSpecs returns the hematology specs used for report scans.
// Multi-word keywords only match when OCR glued the words together.
func DefaultSpecs() []FieldSpec {
	return []FieldSpec{
		{
			Metric:    MetricWBC,
			Keywords:  []string{"WBC", "White Blood Cell", "White Blood Cells"},
			MinValid:  4000,
			MaxValid:  500000,
			Tolerance: 1000,
		},
		{
			Metric:    MetricRBC,
			Keywords:  []string{"RBC", "Red Blood Cell", "Red Blood Cells"},
			MinValid:  4.0,
			MaxValid:  6.5,
			Tolerance: 1.0,
		},
		{
			Metric:    MetricPlatelets,
			Keywords:  []string{"Platelets", "Platelet Count", "Platelet", "PLT"},
			MinValid:  150000,
			MaxValid:  410000,
			Tolerance: 10000,
		},
		{
			Metric:    MetricHemoglobin,
			Keywords:  []string{"Hemoglobin", "HGB", "HB"},
			MinValid:  9.0,
			MaxValid:  18.5,
			Tolerance: 1.0,
		},
	}
}

// SpecFor returns the default spec for metric.
func SpecFor(metric string) (FieldSpec, bool) {
	for _, spec := range DefaultSpecs() {
		if spec.Metric == metric {
			return spec, true
		}
	}
	return FieldSpec{}, false
}
