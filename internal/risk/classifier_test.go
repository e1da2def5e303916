package risk

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"hemotwin-backend/internal/bloodtest"
)

var fixedNow = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func record(wbc, rbc, platelets, hemoglobin float64) bloodtest.LabRecord {
	return bloodtest.LabRecord{
		bloodtest.MetricWBC:        bloodtest.Found(wbc),
		bloodtest.MetricRBC:        bloodtest.Found(rbc),
		bloodtest.MetricPlatelets:  bloodtest.Found(platelets),
		bloodtest.MetricHemoglobin: bloodtest.Found(hemoglobin),
	}
}

func TestClassifyAllNormal(t *testing.T) {
	got, err := ClassifyAt(record(7000, 4.5, 200000, 13), Profile{DOB: "15/06/1995", Sex: "Female"}, fixedNow)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Level != LevelLow {
		t.Fatalf("expected Low, got %s", got.Level)
	}
	want := []string{
		"WBC: 7000 (Normal Range: 4500 - 11000)",
		"RBC: 4.5 (Normal Range: 4.2 - 5.4)",
		"Platelets: 200000 (Normal Range: 150000 - 400000)",
		"Hemoglobin: 13 (Normal Range: 12 - 16)",
	}
	if !reflect.DeepEqual(got.Explanation, want) {
		t.Fatalf("explanation mismatch:\n got %q\nwant %q", got.Explanation, want)
	}
	if got.Age != 31 || got.Sex != SexFemale {
		t.Fatalf("unexpected demographics: age=%d sex=%s", got.Age, got.Sex)
	}
}

func TestClassifyVeryHighWBC(t *testing.T) {
	rec := bloodtest.Extract("WBC: 120,000 /uL", bloodtest.DefaultSpecs())
	rec[bloodtest.MetricRBC] = bloodtest.Found(5.2)
	rec[bloodtest.MetricPlatelets] = bloodtest.Found(250000)
	rec[bloodtest.MetricHemoglobin] = bloodtest.Found(15)

	got, err := ClassifyAt(rec, Profile{DOB: "15/06/95", Sex: "male"}, fixedNow)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Level != LevelHigh {
		t.Fatalf("expected High, got %s", got.Level)
	}
	if got.Explanation[0] != "WBC: 120000 (Above 100,000 - Very High)" {
		t.Fatalf("unexpected wbc line: %q", got.Explanation[0])
	}
}

func TestClassifyLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rec       bloodtest.LabRecord
		sex       string
		wantLevel Level
		wantLine  int
		want      string
	}{
		{
			name: "elevated wbc", rec: record(60000, 5.0, 200000, 15), sex: "Male",
			wantLevel: LevelMedium, wantLine: 0, want: "WBC: 60000 (Above 50,000 - Elevated)",
		},
		{
			name: "exactly fifty thousand is normal", rec: record(50000, 5.0, 200000, 15), sex: "Male",
			wantLevel: LevelLow, wantLine: 0, want: "WBC: 50000 (Normal Range: 4500 - 11000)",
		},
		{
			name: "exactly one hundred thousand is elevated", rec: record(100000, 5.0, 200000, 15), sex: "Male",
			wantLevel: LevelMedium, wantLine: 0, want: "WBC: 100000 (Above 50,000 - Elevated)",
		},
		{
			name: "medium raised by low hemoglobin", rec: record(60000, 4.5, 200000, 10), sex: "Female",
			wantLevel: LevelHigh, wantLine: 3, want: "Hemoglobin: 10 (Below Normal: 12 - 16)",
		},
		{
			name: "male rbc below range", rec: record(7000, 4.5, 200000, 15), sex: "Male",
			wantLevel: LevelHigh, wantLine: 1, want: "RBC: 4.5 (Below Normal: 4.7 - 6.1)",
		},
		{
			name: "same rbc normal for female", rec: record(7000, 4.5, 200000, 13), sex: "Female",
			wantLevel: LevelLow, wantLine: 1, want: "RBC: 4.5 (Normal Range: 4.2 - 5.4)",
		},
		{
			name: "low platelets", rec: record(7000, 5.0, 100000, 15), sex: "Male",
			wantLevel: LevelHigh, wantLine: 2, want: "Platelets: 100000 (Below Normal: 150000 - 400000)",
		},
		{
			name: "high wbc never downgraded", rec: record(150000, 5.0, 200000, 15), sex: "Male",
			wantLevel: LevelHigh, wantLine: 3, want: "Hemoglobin: 15 (Normal Range: 14 - 18)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ClassifyAt(tt.rec, Profile{DOB: "01/02/1980", Sex: tt.sex}, fixedNow)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if got.Level != tt.wantLevel {
				t.Fatalf("expected %s, got %s", tt.wantLevel, got.Level)
			}
			if len(got.Explanation) != 4 {
				t.Fatalf("expected 4 explanation lines, got %d", len(got.Explanation))
			}
			if got.Explanation[tt.wantLine] != tt.want {
				t.Fatalf("line %d: got %q want %q", tt.wantLine, got.Explanation[tt.wantLine], tt.want)
			}
		})
	}
}

func TestClassifyExplanationOrder(t *testing.T) {
	got, err := ClassifyAt(record(120000, 3.9, 90000, 9), Profile{DOB: "01/02/1980", Sex: "Male"}, fixedNow)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	prefixes := []string{"WBC: ", "RBC: ", "Platelets: ", "Hemoglobin: "}
	for i, prefix := range prefixes {
		if len(got.Explanation[i]) < len(prefix) || got.Explanation[i][:len(prefix)] != prefix {
			t.Fatalf("line %d: expected prefix %q, got %q", i, prefix, got.Explanation[i])
		}
	}
}

func TestClassifyRefusesMissingMetric(t *testing.T) {
	rec := record(7000, 4.5, 200000, 13)
	rec[bloodtest.MetricRBC] = bloodtest.NotFound

	got, err := ClassifyAt(rec, Profile{DOB: "15/06/95", Sex: "Female"}, fixedNow)
	if !errors.Is(err, ErrMissingData) || !errors.Is(err, ErrRefused) {
		t.Fatalf("expected missing data refusal, got %v", err)
	}
	var missing *MissingDataError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingDataError, got %T", err)
	}
	if !reflect.DeepEqual(missing.Fields, []string{"rbc"}) {
		t.Fatalf("unexpected missing fields: %v", missing.Fields)
	}
	if got.Level != "" || len(got.Explanation) != 0 {
		t.Fatalf("expected no partial assessment, got %+v", got)
	}
}

func TestClassifyRefusesMissingDemographics(t *testing.T) {
	_, err := ClassifyAt(record(7000, 4.5, 200000, 13), Profile{DOB: " ", Sex: " "}, fixedNow)
	var missing *MissingDataError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingDataError, got %v", err)
	}
	if !reflect.DeepEqual(missing.Fields, []string{"dob", "sex"}) {
		t.Fatalf("unexpected missing fields: %v", missing.Fields)
	}
}

func TestClassifyRefusesUnrecognizedSex(t *testing.T) {
	_, err := ClassifyAt(record(7000, 4.5, 200000, 13), Profile{DOB: "15/06/1995", Sex: "unknown"}, fixedNow)
	if !errors.Is(err, ErrInvalidSex) || !errors.Is(err, ErrRefused) {
		t.Fatalf("expected ErrInvalidSex, got %v", err)
	}
	var missing *MissingDataError
	if errors.As(err, &missing) {
		t.Fatalf("a recorded sex must not be reported missing: %v", missing.Fields)
	}

	// Missing lab values still take precedence.
	rec := record(7000, 4.5, 200000, 13)
	delete(rec, bloodtest.MetricRBC)
	_, err = ClassifyAt(rec, Profile{DOB: "15/06/1995", Sex: "unknown"}, fixedNow)
	if !errors.As(err, &missing) || !reflect.DeepEqual(missing.Fields, []string{"rbc"}) {
		t.Fatalf("expected missing rbc, got %v", err)
	}
}

func TestClassifyRefusesMalformedDOB(t *testing.T) {
	_, err := ClassifyAt(record(7000, 4.5, 200000, 13), Profile{DOB: "1995-06-15", Sex: "Female"}, fixedNow)
	if !errors.Is(err, ErrInvalidDOB) {
		t.Fatalf("expected ErrInvalidDOB, got %v", err)
	}
	if errors.Is(err, ErrMissingData) {
		t.Fatalf("malformed dob must not report missing data")
	}
}

func TestClassifyUsesCurrentYear(t *testing.T) {
	got, err := Classify(record(7000, 4.5, 200000, 13), Profile{DOB: "15/06/95", Sex: "Female"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if want := time.Now().UTC().Year() - 1995; got.Age != want {
		t.Fatalf("expected age %d, got %d", want, got.Age)
	}
}
