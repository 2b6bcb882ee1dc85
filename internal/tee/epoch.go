package tee

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"
)

// State is the persisted key-epoch state. At most one previous epoch is
// retained; previous-epoch decryption is disabled once the grace period
// elapses.
type State struct {
	CurrentEpoch      uint64     `json:"currentEpoch" bson:"current_epoch"`
	CurrentPublicKey  string     `json:"currentPublicKey" bson:"current_public_key"`
	PreviousEpoch     *uint64    `json:"previousEpoch,omitempty" bson:"previous_epoch,omitempty"`
	PreviousPublicKey string     `json:"previousPublicKey,omitempty" bson:"previous_public_key,omitempty"`
	GracePeriodEndsAt *time.Time `json:"gracePeriodEndsAt,omitempty" bson:"grace_period_ends_at,omitempty"`
}

// PreviousUsable returns the previous epoch if fallback decryption is still
// permitted at the given time.
func (s State) PreviousUsable(now time.Time) *uint64 {
	if s.PreviousEpoch == nil {
		return nil
	}
	if s.GracePeriodEndsAt != nil && !now.Before(*s.GracePeriodEndsAt) {
		return nil
	}
	return s.PreviousEpoch
}

// RotationRecord is one entry of the immutable rotation audit trail.
type RotationRecord struct {
	FromEpoch     uint64    `json:"fromEpoch" bson:"from_epoch"`
	ToEpoch       uint64    `json:"toEpoch" bson:"to_epoch"`
	FromPublicKey string    `json:"fromPublicKey" bson:"from_public_key"`
	ToPublicKey   string    `json:"toPublicKey" bson:"to_public_key"`
	Reason        string    `json:"reason" bson:"reason"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}

// StateStore persists the epoch state across restarts.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// RotationAuditor records rotation events in an append-only trail.
type RotationAuditor interface {
	Record(ctx context.Context, rec RotationRecord) error
}

// Manager owns epoch state transitions. Rotation is an explicit operator
// action; nothing in the republish path ever triggers it.
type Manager struct {
	deriver Deriver
	store   StateStore
	auditor RotationAuditor
	grace   time.Duration
	logger  *slog.Logger
}

func NewManager(deriver Deriver, store StateStore, auditor RotationAuditor, grace time.Duration, logger *slog.Logger) *Manager {
	if grace <= 0 {
		grace = 30 * 24 * time.Hour
	}
	return &Manager{deriver: deriver, store: store, auditor: auditor, grace: grace, logger: logger}
}

// Bootstrap initializes epoch 1 when no state has been persisted yet.
func (m *Manager) Bootstrap(ctx context.Context) (State, error) {
	priv, pub, err := m.deriver.Keypair(1)
	if err != nil {
		return State{}, err
	}
	priv.Zero()
	s := State{
		CurrentEpoch:     1,
		CurrentPublicKey: hex.EncodeToString(pub.SerializeCompressed()),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return State{}, err
	}
	m.logger.Info("epoch state bootstrapped", "epoch", s.CurrentEpoch)
	return s, nil
}

// Rotate advances to the next epoch, retains the outgoing one for the grace
// period, and appends the rotation to the audit trail.
func (m *Manager) Rotate(ctx context.Context, reason string) (State, error) {
	s, err := m.store.Load(ctx)
	if err != nil {
		return State{}, err
	}

	next := s.CurrentEpoch + 1
	priv, pub, err := m.deriver.Keypair(next)
	if err != nil {
		return State{}, err
	}
	priv.Zero()

	now := time.Now().UTC()
	graceEnd := now.Add(m.grace)
	prev := s.CurrentEpoch
	rotated := State{
		CurrentEpoch:      next,
		CurrentPublicKey:  hex.EncodeToString(pub.SerializeCompressed()),
		PreviousEpoch:     &prev,
		PreviousPublicKey: s.CurrentPublicKey,
		GracePeriodEndsAt: &graceEnd,
	}

	rec := RotationRecord{
		FromEpoch:     s.CurrentEpoch,
		ToEpoch:       next,
		FromPublicKey: s.CurrentPublicKey,
		ToPublicKey:   rotated.CurrentPublicKey,
		Reason:        reason,
		Timestamp:     now,
	}
	if err := m.auditor.Record(ctx, rec); err != nil {
		return State{}, err
	}
	if err := m.store.Save(ctx, rotated); err != nil {
		return State{}, err
	}

	m.logger.Info("epoch rotated",
		"from", rec.FromEpoch,
		"to", rec.ToEpoch,
		"grace_ends", graceEnd,
	)
	return rotated, nil
}
