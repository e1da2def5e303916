package patients

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/healthdata"
	"hemotwin-backend/internal/risk"
	"hemotwin-backend/internal/shared/storage/docstore"
	"hemotwin-backend/internal/shared/telemetry"
)

var dobPattern = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/\d{4}$`)

// Service manages patient profiles.
type Service struct {
	Docs   docstore.Store
	Health *healthdata.Service

	// Now and NewPatientID are replaceable in tests.
	Now          func() time.Time
	NewPatientID func() string
}

// NewService constructs a Service backed by docs.
func NewService(docs docstore.Store, health *healthdata.Service) *Service {
	return &Service{
		Docs:         docs,
		Health:       health,
		Now:          func() time.Time { return time.Now().UTC() },
		NewPatientID: randomPatientID,
	}
}

// Register creates the profile for email and seeds its lab record with initial,
// or with an all-missing record when initial is nil.
func (s *Service) Register(ctx context.Context, email string, p Profile, initial bloodtest.LabRecord) (Profile, error) {
	key := docstore.NormalizeKey(email)
	if err := validateEmail(key); err != nil {
		return Profile{}, err
	}

	p = trimProfile(p)
	if err := validateProfile(&p, s.Now()); err != nil {
		return Profile{}, err
	}
	if initial == nil {
		initial = bloodtest.EmptyRecord()
	}
	if err := healthdata.Validate(initial); err != nil {
		return Profile{}, err
	}

	var existing Profile
	err := s.Docs.Get(ctx, docstore.CollectionPatients, key, &existing)
	switch {
	case err == nil:
		return Profile{}, ErrAlreadyRegistered
	case !errors.Is(err, docstore.ErrNotFound):
		return Profile{}, fmt.Errorf("lookup patient: %w", err)
	}

	now := s.Now()
	p.Email = key
	p.PatientID = s.NewPatientID()
	p.CreatedAt = now
	p.UpdatedAt = now

	// The profile is written last so a failed seed leaves the email free to register again.
	if err := s.Health.Replace(ctx, key, initial); err != nil {
		return Profile{}, fmt.Errorf("seed health data: %w", err)
	}
	if err := s.Docs.Set(ctx, docstore.CollectionPatients, key, p); err != nil {
		return Profile{}, fmt.Errorf("save patient: %w", err)
	}

	telemetry.Info("patients.registered", map[string]any{
		"patient_id": p.PatientID,
		"seeded":     len(initial.Missing(bloodtest.Metrics...)) < len(bloodtest.Metrics),
	})
	return p, nil
}

// Get returns the profile stored for email.
func (s *Service) Get(ctx context.Context, email string) (Profile, error) {
	key := docstore.NormalizeKey(email)
	if key == "" {
		return Profile{}, invalid("email", "is required")
	}
	var p Profile
	if err := s.Docs.Get(ctx, docstore.CollectionPatients, key, &p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("load patient: %w", err)
	}
	return p, nil
}

// Update merges the non-empty fields of patch into the stored profile. Email and
// patient ID never change.
func (s *Service) Update(ctx context.Context, email string, patch Profile) (Profile, error) {
	current, err := s.Get(ctx, email)
	if err != nil {
		return Profile{}, err
	}

	merged := merge(current, trimProfile(patch))
	if err := validateProfile(&merged, s.Now()); err != nil {
		return Profile{}, err
	}
	merged.UpdatedAt = s.Now()

	if err := s.Docs.Set(ctx, docstore.CollectionPatients, current.Email, merged); err != nil {
		return Profile{}, fmt.Errorf("save patient: %w", err)
	}
	return merged, nil
}

func merge(current, patch Profile) Profile {
	out := current
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.FirstName, patch.FirstName)
	set(&out.LastName, patch.LastName)
	set(&out.Sex, patch.Sex)
	set(&out.DOB, patch.DOB)
	set(&out.Ethnicity, patch.Ethnicity)
	set(&out.Weight, patch.Weight)
	set(&out.Height, patch.Height)
	set(&out.Exercise, patch.Exercise)
	set(&out.Allergies, patch.Allergies)
	return out
}

func trimProfile(p Profile) Profile {
	for _, f := range []*string{&p.FirstName, &p.LastName, &p.Sex, &p.DOB, &p.Ethnicity, &p.Weight, &p.Height, &p.Exercise, &p.Allergies} {
		*f = strings.TrimSpace(*f)
	}
	return p
}

// validateProfile checks required fields and normalizes sex to Male or Female.
func validateProfile(p *Profile, now time.Time) error {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"sex", p.Sex},
		{"dob", p.DOB},
		{"ethnicity", p.Ethnicity},
		{"weight", p.Weight},
		{"height", p.Height},
		{"exercise", p.Exercise},
		{"allergies", p.Allergies},
	}
	for _, f := range required {
		if f.value == "" {
			return invalid(f.name, "is required")
		}
	}

	sex, ok := risk.ParseSex(p.Sex)
	if !ok {
		return invalid("sex", "must be Male or Female")
	}
	p.Sex = string(sex)

	if !dobPattern.MatchString(p.DOB) {
		return invalid("dob", "must be in the format dd/mm/yyyy")
	}
	if _, err := risk.AgeAt(p.DOB, now); err != nil {
		return invalid("dob", "must not be in the future")
	}

	for _, f := range []struct {
		name  string
		value string
	}{{"weight", p.Weight}, {"height", p.Height}} {
		n, err := strconv.ParseFloat(f.value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
			return invalid(f.name, "must be a positive number")
		}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return invalid("email", "is not a valid address")
	}
	return nil
}

func randomPatientID() string {
	return fmt.Sprintf("HT%d", 1000+rand.Intn(9000))
}
