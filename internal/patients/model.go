package patients

import "time"

// Profile is a registered patient, stored in the patients collection under the
// lower-cased email.
type Profile struct {
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Sex       string    `json:"sex"`
	DOB       string    `json:"dob"`
	Ethnicity string    `json:"ethnicity"`
	Weight    string    `json:"weight"`
	Height    string    `json:"height"`
	Exercise  string    `json:"exercise"`
	Allergies string    `json:"allergies"`
	Email     string    `json:"email"`
	PatientID string    `json:"patientId"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
