package submission

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/veratrix/esg/errors"
)

// CreateGatewayConfig inserts a gateway configuration. The partial unique
// index enforces a single active config per (tenant, environment).
func (s *Store) CreateGatewayConfig(c *GatewayConfig) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO gateway_configs (
			id, tenant_id, environment, connection_type, username, password,
			sender_id, receiver_id, endpoint, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	active := 0
	if c.Active {
		active = 1
	}

	_, err := s.db.Exec(query,
		c.ID,
		c.TenantID,
		string(c.Environment),
		string(c.ConnectionType),
		nullable(c.Username),
		nullable(c.Password),
		c.SenderID,
		c.ReceiverID,
		c.Endpoint,
		active,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create gateway config")
	}

	return nil
}

// ActiveGatewayConfig resolves the single active configuration for a
// (tenant, environment) pair, or ErrConfigNotFound.
func (s *Store) ActiveGatewayConfig(tenantID string, env Environment) (*GatewayConfig, error) {
	query := `
		SELECT id, tenant_id, environment, connection_type, username, password,
		       sender_id, receiver_id, endpoint, active, created_at, updated_at
		FROM gateway_configs
		WHERE tenant_id = ? AND environment = ? AND active = 1
	`

	var c GatewayConfig
	var environment, connectionType, createdAt, updatedAt string
	var username, password sql.NullString
	var active int

	err := s.db.QueryRow(query, tenantID, string(env)).Scan(
		&c.ID,
		&c.TenantID,
		&environment,
		&connectionType,
		&username,
		&password,
		&c.SenderID,
		&c.ReceiverID,
		&c.Endpoint,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrConfigNotFound, "tenant %s environment %s", tenantID, env)
		}
		return nil, errors.Wrap(err, "failed to resolve gateway config")
	}

	c.Environment = Environment(environment)
	c.ConnectionType = ConnectionType(connectionType)
	c.Active = active == 1
	if username.Valid {
		c.Username = username.String
	}
	if password.Valid {
		c.Password = password.String
	}

	c.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for gateway config %s", c.ID)
	}
	c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for gateway config %s", c.ID)
	}

	return &c, nil
}

// DeactivateGatewayConfig marks a configuration inactive so a replacement
// can become the active record for its (tenant, environment) pair.
func (s *Store) DeactivateGatewayConfig(id string) error {
	result, err := s.db.Exec(
		`UPDATE gateway_configs SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return errors.Wrap(err, "failed to deactivate gateway config")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("gateway config %s", id)
	}

	return nil
}
