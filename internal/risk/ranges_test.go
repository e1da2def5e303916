package risk

import (
	"testing"

	"hemotwin-backend/internal/bloodtest"
)

func TestReferenceRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		age  int
		sex  Sex
		want map[string]string
	}{
		{
			name: "child ignores sex",
			age:  12,
			sex:  SexMale,
			want: map[string]string{
				bloodtest.MetricWBC:        "5,000 - 10,000 K/uL",
				bloodtest.MetricRBC:        "4.0 - 5.5 M/uL",
				bloodtest.MetricPlatelets:  "150,000 - 400,000 K/uL",
				bloodtest.MetricHemoglobin: "9.5 - 15.5 g/dL",
			},
		},
		{
			name: "adult male",
			age:  40,
			sex:  SexMale,
			want: map[string]string{
				bloodtest.MetricWBC:        "5,000 - 10,000 K/uL",
				bloodtest.MetricRBC:        "4.7 - 6.1 M/uL",
				bloodtest.MetricPlatelets:  "150,000 - 400,000 K/uL",
				bloodtest.MetricHemoglobin: "14 - 18 g/dL",
			},
		},
		{
			name: "adult female at eighteen",
			age:  18,
			sex:  SexFemale,
			want: map[string]string{
				bloodtest.MetricWBC:        "4,500 - 11,000 K/uL",
				bloodtest.MetricRBC:        "4.2 - 5.4 M/uL",
				bloodtest.MetricPlatelets:  "150,000 - 400,000 K/uL",
				bloodtest.MetricHemoglobin: "12 - 16 g/dL",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ReferenceRanges(tt.age, tt.sex)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d ranges, got %d", len(tt.want), len(got))
			}
			for i, r := range got {
				if r.Metric != bloodtest.Metrics[i] {
					t.Fatalf("range %d: expected metric %s, got %s", i, bloodtest.Metrics[i], r.Metric)
				}
				if r.Range != tt.want[r.Metric] {
					t.Fatalf("%s: got %q want %q", r.Metric, r.Range, tt.want[r.Metric])
				}
			}
		})
	}
}

func TestClassifierRangeAsymmetry(t *testing.T) {
	male, _ := ClassifierRange(bloodtest.MetricWBC, SexMale)
	female, _ := ClassifierRange(bloodtest.MetricWBC, SexFemale)
	if male != female {
		t.Fatalf("expected sex-independent wbc range, got %v and %v", male, female)
	}
	maleHgb, _ := ClassifierRange(bloodtest.MetricHemoglobin, SexMale)
	femaleHgb, _ := ClassifierRange(bloodtest.MetricHemoglobin, SexFemale)
	if maleHgb == femaleHgb {
		t.Fatalf("expected sex-specific hemoglobin ranges")
	}
	if _, ok := ClassifierRange("glucose", SexMale); ok {
		t.Fatalf("expected unknown metric to have no range")
	}
}

func TestParseSex(t *testing.T) {
	for raw, want := range map[string]Sex{"Male": SexMale, " female ": SexFemale, "F": SexFemale} {
		got, ok := ParseSex(raw)
		if !ok || got != want {
			t.Fatalf("ParseSex(%q) = %q, %v", raw, got, ok)
		}
	}
	if _, ok := ParseSex("other"); ok {
		t.Fatal("expected unrecognized sex to fail")
	}
}
