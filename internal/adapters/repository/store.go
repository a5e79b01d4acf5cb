// Package repository holds the authoritative participation records per session.
package repository

import (
	"context"

	"github.com/okian/tally/internal/domain/model"
)

// Store provides read/write access to session records.
type Store interface {
	// Load replaces the session's record set wholesale. The batch is
	// validated first; on error the previous set is left untouched.
	Load(ctx context.Context, info model.SessionInfo, records []model.ParticipationRecord) error

	// Get returns a copy of one record. Returns a NotFoundError when the
	// session or student is unknown.
	Get(ctx context.Context, sessionID, studentID string) (model.ParticipationRecord, error)

	// All returns copies of the session's records in ingestion order.
	All(ctx context.Context, sessionID string) ([]model.ParticipationRecord, error)

	// SetApprovedScore commits a reviewer score if the record's version
	// still equals expectedVersion. Returns ErrVersionConflict otherwise.
	SetApprovedScore(ctx context.Context, sessionID, studentID string, score int, expectedVersion uint64) (model.ParticipationRecord, error)

	// ApproveAll sets the approved score to the AI score on every record
	// without an override and returns how many records changed.
	ApproveAll(ctx context.Context, sessionID string) (int, error)

	// Discard drops a whole session.
	Discard(ctx context.Context, sessionID string) error

	// Session returns the info a session was loaded with.
	Session(ctx context.Context, sessionID string) (model.SessionInfo, error)

	// Sessions lists loaded sessions in load order.
	Sessions(ctx context.Context) []model.SessionInfo

	// Count returns the number of loaded sessions.
	Count(ctx context.Context) int
}
