// Package assessments classifies a patient's stored lab record on demand. Results are
// never persisted; every request recomputes them from the current profile and record.
package assessments

import (
	"context"
	"errors"
	"time"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/healthdata"
	"hemotwin-backend/internal/patients"
	"hemotwin-backend/internal/risk"
	"hemotwin-backend/internal/shared/metrics"
	"hemotwin-backend/internal/shared/telemetry"
)

// Result is an assessment together with the inputs it was computed from.
type Result struct {
	risk.Assessment
	PatientID string                `json:"patientId"`
	Record    bloodtest.LabRecord   `json:"record"`
	Ranges    []risk.ReferenceRange `json:"referenceRanges"`
}

// Service runs the classifier for registered patients.
type Service struct {
	Patients *patients.Service
	Health   *healthdata.Service
	Now      func() time.Time
}

// NewService constructs a Service.
func NewService(p *patients.Service, h *healthdata.Service) *Service {
	return &Service{Patients: p, Health: h, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Assess classifies the stored record of email. Refusals wrap risk.ErrRefused.
func (s *Service) Assess(ctx context.Context, email string) (Result, error) {
	profile, err := s.Patients.Get(ctx, email)
	if err != nil {
		return Result{}, err
	}
	record, err := s.Health.Get(ctx, email)
	if err != nil {
		return Result{}, err
	}

	assessment, err := risk.ClassifyAt(record, risk.Profile{DOB: profile.DOB, Sex: profile.Sex}, s.now())
	if err != nil {
		if errors.Is(err, risk.ErrRefused) {
			metrics.IncAssessmentsRefused()
			telemetry.Info("assessments.refused", map[string]any{"patient_id": profile.PatientID, "reason": err.Error()})
		}
		return Result{}, err
	}

	metrics.IncAssessmentsCompleted()
	telemetry.Info("assessments.completed", map[string]any{"patient_id": profile.PatientID, "risk_level": string(assessment.Level)})
	return Result{
		Assessment: assessment,
		PatientID:  profile.PatientID,
		Record:     record,
		Ranges:     risk.ReferenceRanges(assessment.Age, assessment.Sex),
	}, nil
}

// Ranges returns the display reference ranges for email's age and sex.
func (s *Service) Ranges(ctx context.Context, email string) ([]risk.ReferenceRange, error) {
	profile, err := s.Patients.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	sex, missing, err := risk.Demographics(risk.Profile{DOB: profile.DOB, Sex: profile.Sex})
	if len(missing) > 0 {
		return nil, &risk.MissingDataError{Fields: missing}
	}
	if err != nil {
		return nil, err
	}
	age, err := risk.AgeAt(profile.DOB, s.now())
	if err != nil {
		return nil, err
	}
	return risk.ReferenceRanges(age, sex), nil
}
