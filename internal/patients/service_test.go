package patients

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/healthdata"
	"hemotwin-backend/internal/shared/storage/docstore"
)

func newTestService() (*Service, *healthdata.Service) {
	docs := docstore.NewMemoryStore()
	health := healthdata.NewService(docs)
	svc := NewService(docs, health)
	svc.Now = func() time.Time { return time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC) }
	svc.NewPatientID = func() string { return "HT4242" }
	return svc, health
}

func validProfile() Profile {
	return Profile{
		FirstName: "Ana",
		LastName:  "Silva",
		Sex:       "female",
		DOB:       "05/03/1990",
		Ethnicity: "Hispanic",
		Weight:    "61.5",
		Height:    "168",
		Exercise:  "3x week",
		Allergies: "none",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, health := newTestService()

	p, err := svc.Register(ctx, "Ana@Example.com", validProfile(), nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Email != "ana@example.com" || p.PatientID != "HT4242" || p.Sex != "Female" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	got, err := svc.Get(ctx, "ANA@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FirstName != "Ana" || got.PatientID != "HT4242" {
		t.Fatalf("unexpected stored profile: %+v", got)
	}

	rec, err := health.Get(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("health get: %v", err)
	}
	if len(rec.Missing(bloodtest.Metrics...)) != 4 {
		t.Fatalf("expected empty seeded record, got %v", rec)
	}

	if _, err := svc.Register(ctx, "ana@example.com", validProfile(), nil); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterSeedsInitialRecord(t *testing.T) {
	ctx := context.Background()
	svc, health := newTestService()

	initial := bloodtest.LabRecord{bloodtest.MetricWBC: bloodtest.Found(7500)}
	if _, err := svc.Register(ctx, "ana@example.com", validProfile(), initial); err != nil {
		t.Fatalf("register: %v", err)
	}
	rec, _ := health.Get(ctx, "ana@example.com")
	if v, ok := rec.Get(bloodtest.MetricWBC); !ok || v != 7500 {
		t.Fatalf("expected seeded wbc, got %v %v", v, ok)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		email  string
		mutate func(*Profile)
		field  string
	}{
		{name: "missing email", email: "", mutate: func(*Profile) {}, field: "email"},
		{name: "bad email", email: "not-an-email", mutate: func(*Profile) {}, field: "email"},
		{name: "missing first name", email: "a@b.co", mutate: func(p *Profile) { p.FirstName = " " }, field: "firstName"},
		{name: "missing allergies", email: "a@b.co", mutate: func(p *Profile) { p.Allergies = "" }, field: "allergies"},
		{name: "bad sex", email: "a@b.co", mutate: func(p *Profile) { p.Sex = "other" }, field: "sex"},
		{name: "two digit year", email: "a@b.co", mutate: func(p *Profile) { p.DOB = "05/03/90" }, field: "dob"},
		{name: "bad month", email: "a@b.co", mutate: func(p *Profile) { p.DOB = "05/13/1990" }, field: "dob"},
		{name: "future dob", email: "a@b.co", mutate: func(p *Profile) { p.DOB = "01/01/2030" }, field: "dob"},
		{name: "zero weight", email: "a@b.co", mutate: func(p *Profile) { p.Weight = "0" }, field: "weight"},
		{name: "text height", email: "a@b.co", mutate: func(p *Profile) { p.Height = "tall" }, field: "height"},
		{name: "nan weight", email: "a@b.co", mutate: func(p *Profile) { p.Weight = "NaN" }, field: "weight"},
		{name: "infinite height", email: "a@b.co", mutate: func(p *Profile) { p.Height = "+Inf" }, field: "height"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			p := validProfile()
			tt.mutate(&p)
			_, err := svc.Register(context.Background(), tt.email, p, nil)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Fatalf("expected field %s, got %s", tt.field, vErr.Field)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatal("expected ErrInvalidInput")
			}
		})
	}
}

func TestRegisterRejectsInvalidInitialRecord(t *testing.T) {
	svc, _ := newTestService()
	initial := bloodtest.LabRecord{bloodtest.MetricWBC: bloodtest.Found(-1)}
	_, err := svc.Register(context.Background(), "ana@example.com", validProfile(), initial)
	if !errors.Is(err, healthdata.ErrInvalidInput) {
		t.Fatalf("expected health data validation error, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "ana@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("profile must not be written, got %v", err)
	}
}

// flakyDocs fails the first write to one collection.
type flakyDocs struct {
	docstore.Store
	collection string
	failed     bool
}

func (d *flakyDocs) Set(ctx context.Context, collection, key string, value any) error {
	if collection == d.collection && !d.failed {
		d.failed = true
		return errors.New("write timeout")
	}
	return d.Store.Set(ctx, collection, key, value)
}

func TestRegisterSeedFailureCanBeRetried(t *testing.T) {
	ctx := context.Background()
	docs := &flakyDocs{Store: docstore.NewMemoryStore(), collection: docstore.CollectionHealthData}
	health := healthdata.NewService(docs)
	svc := NewService(docs, health)

	if _, err := svc.Register(ctx, "ana@example.com", validProfile(), nil); err == nil {
		t.Fatal("expected seed failure")
	}
	if _, err := svc.Get(ctx, "ana@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("profile must not be written before health data, got %v", err)
	}

	if _, err := svc.Register(ctx, "ana@example.com", validProfile(), nil); err != nil {
		t.Fatalf("retry register: %v", err)
	}
	if _, err := health.Get(ctx, "ana@example.com"); err != nil {
		t.Fatalf("health get: %v", err)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	if _, err := svc.Register(ctx, "ana@example.com", validProfile(), nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.Update(ctx, "ana@example.com", Profile{
		Weight:    "63",
		Sex:       "M",
		Email:     "other@example.com",
		PatientID: "HT0000",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Weight != "63" || updated.Sex != "Male" || updated.FirstName != "Ana" {
		t.Fatalf("unexpected merge: %+v", updated)
	}
	if updated.Email != "ana@example.com" || updated.PatientID != "HT4242" {
		t.Fatalf("email and patient id must not change: %+v", updated)
	}

	if _, err := svc.Update(ctx, "ana@example.com", Profile{DOB: "1990-03-05"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid dob, got %v", err)
	}
	if _, err := svc.Update(ctx, "nobody@example.com", Profile{Weight: "60"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRandomPatientID(t *testing.T) {
	pattern := regexp.MustCompile(`^HT[1-9]\d{3}$`)
	for i := 0; i < 100; i++ {
		if id := randomPatientID(); !pattern.MatchString(id) {
			t.Fatalf("unexpected patient id %q", id)
		}
	}
}
