package submission

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/veratrix/esg/errors"
)

// CreateAcknowledgment persists one received gateway acknowledgment.
// The UNIQUE(submission_id, stage) constraint rejects duplicate stages.
func (s *Store) CreateAcknowledgment(a *Acknowledgment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now

	query := `
		INSERT INTO acknowledgments (
			id, submission_id, stage, external_id, ack_date, status,
			message, code, raw_payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var ackDate interface{}
	if a.AckDate != nil {
		ackDate = a.AckDate.UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(query,
		a.ID,
		a.SubmissionID,
		string(a.Stage),
		nullable(a.ExternalID),
		ackDate,
		string(a.Status),
		nullable(a.Message),
		nullable(a.Code),
		nullable(a.RawPayload),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record %s acknowledgment", a.Stage)
	}

	return nil
}

// ListAcknowledgments returns all acknowledgments for a submission ordered
// by stage (ack1, ack2, ack3).
func (s *Store) ListAcknowledgments(submissionID string) ([]*Acknowledgment, error) {
	query := `
		SELECT id, submission_id, stage, external_id, ack_date, status,
		       message, code, raw_payload, created_at
		FROM acknowledgments
		WHERE submission_id = ?
		ORDER BY stage ASC
	`

	rows, err := s.db.Query(query, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list acknowledgments")
	}
	defer rows.Close()

	var acks []*Acknowledgment
	for rows.Next() {
		var a Acknowledgment
		var stage, status, createdAt string
		var externalID, ackDate, message, code, rawPayload sql.NullString

		if err := rows.Scan(&a.ID, &a.SubmissionID, &stage, &externalID, &ackDate,
			&status, &message, &code, &rawPayload, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan acknowledgment")
		}

		a.Stage = AckStage(stage)
		a.Status = AckStatus(status)
		if externalID.Valid {
			a.ExternalID = externalID.String
		}
		if message.Valid {
			a.Message = message.String
		}
		if code.Valid {
			a.Code = code.String
		}
		if rawPayload.Valid {
			a.RawPayload = rawPayload.String
		}
		if ackDate.Valid {
			t, err := time.Parse(time.RFC3339, ackDate.String)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse ack_date for acknowledgment %s", a.ID)
			}
			a.AckDate = &t
		}

		a.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse created_at for acknowledgment %s", a.ID)
		}

		acks = append(acks, &a)
	}

	return acks, rows.Err()
}
