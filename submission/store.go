package submission

import (
	"database/sql"
	"time"

	"github.com/veratrix/esg/errors"
)

// Store is the submission registry: durable persistence for submissions,
// their files, validation reports, acknowledgments, and audit events.
type Store struct {
	db *sql.DB
}

// NewStore creates a registry store over an open database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// NextSequenceNumber returns the next monotonically increasing sequence
// number for the given parent document. The first submission gets 1.
func (s *Store) NextSequenceNumber(documentID string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(sequence_number) FROM submissions WHERE document_id = ?`,
		documentID,
	).Scan(&max)
	if err != nil {
		return 0, errors.Wrap(err, "failed to query max sequence number")
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

// CreateSubmission inserts a new submission row
func (s *Store) CreateSubmission(sub *Submission) error {
	query := `
		INSERT INTO submissions (
			id, document_id, status, submission_type, sequence_number,
			center, package_format, tenant_id, environment,
			package_path, external_submission_id, transmission_id,
			error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	_, err := s.db.Exec(query,
		sub.ID,
		sub.DocumentID,
		string(sub.Status),
		sub.SubmissionType,
		sub.SequenceNumber,
		sub.Center,
		sub.PackageFormat,
		sub.TenantID,
		string(sub.Environment),
		nullable(sub.PackagePath),
		nullable(sub.ExternalSubmissionID),
		nullable(sub.TransmissionID),
		nullable(sub.ErrorMessage),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create submission")
	}

	return nil
}

// GetSubmission retrieves a submission by ID
func (s *Store) GetSubmission(id string) (*Submission, error) {
	query := `
		SELECT id, document_id, status, submission_type, sequence_number,
		       center, package_format, tenant_id, environment,
		       package_path, external_submission_id, transmission_id,
		       error_message, created_at, updated_at
		FROM submissions
		WHERE id = ?
	`

	sub, err := scanSubmission(s.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("submission %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get submission %s", id)
	}
	return sub, nil
}

// ListSubmissionsByDocument returns all submissions for a parent document,
// ordered by sequence number.
func (s *Store) ListSubmissionsByDocument(documentID string) ([]*Submission, error) {
	query := `
		SELECT id, document_id, status, submission_type, sequence_number,
		       center, package_format, tenant_id, environment,
		       package_path, external_submission_id, transmission_id,
		       error_message, created_at, updated_at
		FROM submissions
		WHERE document_id = ?
		ORDER BY sequence_number ASC
	`

	rows, err := s.db.Query(query, documentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list submissions")
	}
	defer rows.Close()

	var subs []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan submission")
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// UpdateStatus moves a submission to a new status. An empty errorMessage
// clears any previous error; the pipeline sets it on failure transitions.
func (s *Store) UpdateStatus(id string, status Status, errorMessage string) error {
	query := `
		UPDATE submissions
		SET status = ?,
		    error_message = ?,
		    updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(query,
		string(status),
		nullable(errorMessage),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update submission status to %s", status)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("submission %s", id)
	}

	return nil
}

// SetPackagePath records the archive artifact path after assembly
func (s *Store) SetPackagePath(id, packagePath string) error {
	result, err := s.db.Exec(
		`UPDATE submissions SET package_path = ?, updated_at = ? WHERE id = ?`,
		packagePath, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return errors.Wrap(err, "failed to set package path")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("submission %s", id)
	}

	return nil
}

// SetTransmission records the gateway identifiers returned by a successful submit
func (s *Store) SetTransmission(id, externalSubmissionID, transmissionID string) error {
	result, err := s.db.Exec(
		`UPDATE submissions SET external_submission_id = ?, transmission_id = ?, updated_at = ? WHERE id = ?`,
		externalSubmissionID, transmissionID, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return errors.Wrap(err, "failed to set transmission identifiers")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("submission %s", id)
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row scanner) (*Submission, error) {
	var sub Submission
	var status, environment, createdAt, updatedAt string
	var packagePath, externalID, transmissionID, errorMessage sql.NullString

	err := row.Scan(
		&sub.ID,
		&sub.DocumentID,
		&status,
		&sub.SubmissionType,
		&sub.SequenceNumber,
		&sub.Center,
		&sub.PackageFormat,
		&sub.TenantID,
		&environment,
		&packagePath,
		&externalID,
		&transmissionID,
		&errorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Status = Status(status)
	sub.Environment = Environment(environment)
	if packagePath.Valid {
		sub.PackagePath = packagePath.String
	}
	if externalID.Valid {
		sub.ExternalSubmissionID = externalID.String
	}
	if transmissionID.Valid {
		sub.TransmissionID = transmissionID.String
	}
	if errorMessage.Valid {
		sub.ErrorMessage = errorMessage.String
	}

	sub.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for submission %s", sub.ID)
	}
	sub.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for submission %s", sub.ID)
	}

	return &sub, nil
}

// nullable maps empty strings to NULL for optional columns
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
