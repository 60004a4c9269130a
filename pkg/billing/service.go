// Package billing computes the billing standing of an organization. The
// lifecycle resolver consumes the result as a read-only input; nothing in
// this package grants or denies access, and payment processing itself
// lives outside this system.
package billing

import (
	"context"
	"time"

	"github.com/taskhive/taskhive/pkg/identity"
)

// StatusProvider reports an organization's billing standing
type StatusProvider interface {
	Status(ctx context.Context, orgID int64) (identity.BillingStatus, error)
}

// OrgReader is the slice of the store the billing service reads
type OrgReader interface {
	GetOrganizationBillingStart(ctx context.Context, orgID int64) (time.Time, bool, error)
}

// Config holds billing classification settings
type Config struct {
	// TrialPeriod is how long after billing start an organization is
	// considered trialing.
	TrialPeriod time.Duration

	// GracePeriod is how long past the trial an organization stays
	// ACTIVE before moving to PAST_DUE.
	GracePeriod time.Duration
}

// DefaultConfig returns the default billing windows
func DefaultConfig() Config {
	return Config{
		TrialPeriod: 14 * 24 * time.Hour,
		GracePeriod: 30 * 24 * time.Hour,
	}
}

// Service derives billing status from the organization's billing-start
// timestamp
type Service struct {
	reader OrgReader
	config Config
	now    func() time.Time
}

// NewService creates a billing status service
func NewService(reader OrgReader, config Config) *Service {
	return &Service{
		reader: reader,
		config: config,
		now:    time.Now,
	}
}

// Status returns the billing standing for an organization. Organizations
// without a billing-start timestamp have no billing relationship.
func (s *Service) Status(ctx context.Context, orgID int64) (identity.BillingStatus, error) {
	start, ok, err := s.reader.GetOrganizationBillingStart(ctx, orgID)
	if err != nil {
		return identity.BillingStatusNone, err
	}
	if !ok || start.IsZero() {
		return identity.BillingStatusNone, nil
	}

	elapsed := s.now().Sub(start)
	switch {
	case elapsed < s.config.TrialPeriod:
		return identity.BillingStatusTrialing, nil
	case elapsed < s.config.TrialPeriod+s.config.GracePeriod:
		return identity.BillingStatusActive, nil
	default:
		return identity.BillingStatusPastDue, nil
	}
}

// StaticProvider always reports the same status. Used for personal
// accounts and in tests.
type StaticProvider struct {
	Value identity.BillingStatus
}

// Status implements StatusProvider
func (p StaticProvider) Status(ctx context.Context, orgID int64) (identity.BillingStatus, error) {
	return p.Value, nil
}
