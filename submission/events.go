package submission

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/veratrix/esg/errors"
)

// AppendEvent writes one audit record. The detail value is marshaled to
// JSON; pass nil for events without structured detail.
func (s *Store) AppendEvent(submissionID, eventType string, detail interface{}, actor string) error {
	if actor == "" {
		actor = "system"
	}

	var detailJSON interface{}
	if detail != nil {
		data, err := json.Marshal(detail)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal detail for event %s", eventType)
		}
		detailJSON = string(data)
	}

	query := `
		INSERT INTO submission_events (submission_id, event_type, detail, actor, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		submissionID,
		eventType,
		detailJSON,
		actor,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to append event %s", eventType)
	}

	return nil
}

// ListEvents returns the full audit trail for a submission in insertion order
func (s *Store) ListEvents(submissionID string) ([]*Event, error) {
	query := `
		SELECT id, submission_id, event_type, detail, actor, created_at
		FROM submission_events
		WHERE submission_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.Query(query, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list submission events")
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var detail sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.SubmissionID, &e.EventType, &detail, &e.Actor, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan submission event")
		}

		if detail.Valid {
			e.Detail = []byte(detail.String)
		}

		e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse created_at for event %d", e.ID)
		}

		events = append(events, &e)
	}

	return events, rows.Err()
}
