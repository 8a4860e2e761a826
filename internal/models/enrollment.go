package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentExpired  EnrollmentStatus = "expired"
	EnrollmentRevoked  EnrollmentStatus = "revoked"
	EnrollmentRefunded EnrollmentStatus = "refunded"
)

// Enrollment is the entitlement relation between a user and a test,
// maintained by the catalog/payments services. This service treats it
// as an opaque read-only predicate.
type Enrollment struct {
	ID     uint             `json:"id" gorm:"primaryKey"`
	UserID string           `json:"user_id" gorm:"not null;size:255;index:idx_enrollments_user_test"`
	TestID string           `json:"test_id" gorm:"not null;size:255;index:idx_enrollments_user_test"`
	Status EnrollmentStatus `json:"status" gorm:"not null;size:20;default:active"`

	EnrolledAt time.Time  `json:"enrolled_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
