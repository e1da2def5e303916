package healthdata

import (
	"context"
	"errors"
	"fmt"
	"math"

	"hemotwin-backend/internal/bloodtest"
	"hemotwin-backend/internal/shared/storage/docstore"
)

// Service reads and writes the lab record kept per patient in the healthData
// collection.
type Service struct {
	Docs  docstore.Store
	Specs []bloodtest.FieldSpec
}

// NewService constructs a Service using the default extraction specs.
func NewService(docs docstore.Store) *Service {
	return &Service{Docs: docs, Specs: bloodtest.DefaultSpecs()}
}

// Get returns the stored record for email. A patient without a record gets an
// all-missing one.
func (s *Service) Get(ctx context.Context, email string) (bloodtest.LabRecord, error) {
	key := docstore.NormalizeKey(email)
	if key == "" {
		return nil, &ValidationError{Metric: "email", Message: "is required"}
	}
	var rec bloodtest.LabRecord
	if err := s.Docs.Get(ctx, docstore.CollectionHealthData, key, &rec); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return bloodtest.EmptyRecord(), nil
		}
		return nil, fmt.Errorf("load health data: %w", err)
	}
	return complete(rec), nil
}

// Replace stores record as the patient's lab record.
func (s *Service) Replace(ctx context.Context, email string, record bloodtest.LabRecord) error {
	key := docstore.NormalizeKey(email)
	if key == "" {
		return &ValidationError{Metric: "email", Message: "is required"}
	}
	if err := Validate(record); err != nil {
		return err
	}
	if err := s.Docs.Set(ctx, docstore.CollectionHealthData, key, complete(record)); err != nil {
		return fmt.Errorf("save health data: %w", err)
	}
	return nil
}

// ApplyExtraction stores extracted only when it differs from the stored record and
// reports whether it did.
func (s *Service) ApplyExtraction(ctx context.Context, email string, extracted bloodtest.LabRecord) (bool, error) {
	current, err := s.Get(ctx, email)
	if err != nil {
		return false, err
	}
	if current.Equal(extracted) {
		return false, nil
	}
	if err := s.Replace(ctx, email, extracted); err != nil {
		return false, err
	}
	return true, nil
}

// Preview runs the extractor over text without storing anything.
func (s *Service) Preview(text string) bloodtest.LabRecord {
	specs := s.Specs
	if len(specs) == 0 {
		specs = bloodtest.DefaultSpecs()
	}
	return complete(bloodtest.Extract(text, specs))
}

// Validate accepts records holding only known metrics with finite, non-negative values.
func Validate(record bloodtest.LabRecord) error {
	for metric, v := range record {
		if _, ok := bloodtest.SpecFor(metric); !ok {
			return &ValidationError{Metric: metric, Message: "unknown metric"}
		}
		n, found := v.Get()
		if !found {
			continue
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return &ValidationError{Metric: metric, Message: "must be a finite number"}
		}
		if n < 0 {
			return &ValidationError{Metric: metric, Message: "must not be negative"}
		}
	}
	return nil
}

// complete returns a copy of rec with every default metric present.
func complete(rec bloodtest.LabRecord) bloodtest.LabRecord {
	out := bloodtest.EmptyRecord()
	for k, v := range rec {
		out[k] = v
	}
	return out
}
