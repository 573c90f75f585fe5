package submission

import (
	"time"

	"github.com/google/uuid"

	"github.com/veratrix/esg/errors"
)

// CreateFile records a file written into an assembled package.
// Digests must be computed over the exact bytes written.
func (s *Store) CreateFile(f *File) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	f.CreatedAt = now

	query := `
		INSERT INTO submission_files (
			id, submission_id, path, kind, size_bytes, md5, sha256, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		f.ID,
		f.SubmissionID,
		f.Path,
		string(f.Kind),
		f.SizeBytes,
		f.MD5,
		f.SHA256,
		now.Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record package file %s", f.Path)
	}

	return nil
}

// ListFiles returns all recorded files for a submission, ordered by path
// for deterministic manifests.
func (s *Store) ListFiles(submissionID string) ([]*File, error) {
	query := `
		SELECT id, submission_id, path, kind, size_bytes, md5, sha256, created_at
		FROM submission_files
		WHERE submission_id = ?
		ORDER BY path ASC
	`

	rows, err := s.db.Query(query, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list submission files")
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		var f File
		var kind, createdAt string

		if err := rows.Scan(&f.ID, &f.SubmissionID, &f.Path, &kind, &f.SizeBytes, &f.MD5, &f.SHA256, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan submission file")
		}

		f.Kind = FileKind(kind)
		f.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse created_at for file %s", f.ID)
		}

		files = append(files, &f)
	}

	return files, rows.Err()
}
