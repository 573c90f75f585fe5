package submission

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/veratrix/esg/errors"
)

// CreateValidationReport inserts a new immutable validation report.
// A re-run of validation always creates a new report row.
func (s *Store) CreateValidationReport(r *ValidationReport) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now

	query := `
		INSERT INTO validation_reports (
			id, submission_id, validator, status, error_count, warning_count,
			summary, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var detail interface{}
	if len(r.Detail) > 0 {
		detail = string(r.Detail)
	}

	_, err := s.db.Exec(query,
		r.ID,
		r.SubmissionID,
		r.Validator,
		string(r.Status),
		r.ErrorCount,
		r.WarningCount,
		nullable(r.Summary),
		detail,
		now.Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create validation report")
	}

	return nil
}

// ListValidationReports returns all reports for a submission, newest first
func (s *Store) ListValidationReports(submissionID string) ([]*ValidationReport, error) {
	query := `
		SELECT id, submission_id, validator, status, error_count, warning_count,
		       summary, detail, created_at
		FROM validation_reports
		WHERE submission_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.Query(query, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list validation reports")
	}
	defer rows.Close()

	var reports []*ValidationReport
	for rows.Next() {
		var r ValidationReport
		var status, createdAt string
		var summary, detail sql.NullString

		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.Validator, &status,
			&r.ErrorCount, &r.WarningCount, &summary, &detail, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan validation report")
		}

		r.Status = ValidationStatus(status)
		if summary.Valid {
			r.Summary = summary.String
		}
		if detail.Valid {
			r.Detail = []byte(detail.String)
		}

		r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse created_at for report %s", r.ID)
		}

		reports = append(reports, &r)
	}

	return reports, rows.Err()
}
