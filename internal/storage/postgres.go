package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/richyrich98/dotanddot/internal/geo"
	"github.com/richyrich98/dotanddot/internal/path"
	"github.com/richyrich98/dotanddot/internal/report"
)

// PostgresClient is the durable store for paths and accuracy reports. It
// implements path.Store and report.Store. Per-row atomicity of single
// statements is the database's; no transactions span operations here.
type PostgresClient struct {
	db *sql.DB
}

func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &PostgresClient{db: db}

	// Initialize schema
	if err := client.initSchema(); err != nil {
		return nil, err
	}

	return client, nil
}

func (p *PostgresClient) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shared_paths (
		path_id TEXT PRIMARY KEY,
		coordinates JSONB NOT NULL,
		vertex_data JSONB,
		user_location JSONB,
		source_user_path_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS user_paths (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		coordinates JSONB NOT NULL,
		vertex_data JSONB,
		user_location JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_user_paths_owner ON user_paths (user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS location_reports (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		default_location JSONB NOT NULL,
		corrected_location JSONB NOT NULL,
		geohash_cell TEXT NOT NULL DEFAULT '',
		local_key TEXT UNIQUE,
		timestamp TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_location_reports_ts ON location_reports (timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_location_reports_cell ON location_reports (geohash_cell);
	`

	_, err := p.db.Exec(schema)
	return err
}

func (p *PostgresClient) Close() error {
	return p.db.Close()
}

// Shared path operations

func (p *PostgresClient) InsertSharedPath(ctx context.Context, sp *path.SharedPath) error {
	coords, err := json.Marshal(sp.Coordinates)
	if err != nil {
		return fmt.Errorf("failed to marshal coordinates: %w", err)
	}
	vertexData, err := marshalNullable(sp.VertexData)
	if err != nil {
		return fmt.Errorf("failed to marshal vertex data: %w", err)
	}
	userLocation, err := marshalNullablePoint(sp.UserLocation)
	if err != nil {
		return fmt.Errorf("failed to marshal user location: %w", err)
	}

	query := `
		INSERT INTO shared_paths (path_id, coordinates, vertex_data, user_location, source_user_path_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`
	_, err = p.db.ExecContext(ctx, query, sp.PathID, coords, vertexData, userLocation, sp.SourceUserPathID, sp.CreatedAt)
	return err
}

func (p *PostgresClient) GetSharedPath(ctx context.Context, pathID string) (*path.SharedPath, error) {
	query := `
		SELECT path_id, coordinates, vertex_data, user_location, COALESCE(source_user_path_id, ''), created_at
		FROM shared_paths
		WHERE path_id = $1
	`

	var (
		sp           path.SharedPath
		coords       []byte
		vertexData   []byte
		userLocation []byte
	)
	err := p.db.QueryRowContext(ctx, query, pathID).Scan(
		&sp.PathID, &coords, &vertexData, &userLocation, &sp.SourceUserPathID, &sp.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(coords, &sp.Coordinates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal coordinates: %w", err)
	}
	if sp.VertexData, err = unmarshalNullable(vertexData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vertex data: %w", err)
	}
	if sp.UserLocation, err = unmarshalNullablePoint(userLocation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user location: %w", err)
	}

	return &sp, nil
}

func (p *PostgresClient) SharedPathExists(ctx context.Context, pathID string) (bool, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shared_paths WHERE path_id = $1`, pathID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// User path operations

func (p *PostgresClient) InsertUserPath(ctx context.Context, up *path.UserPath) error {
	coords, err := json.Marshal(up.Coordinates)
	if err != nil {
		return fmt.Errorf("failed to marshal coordinates: %w", err)
	}
	vertexData, err := marshalNullable(up.VertexData)
	if err != nil {
		return fmt.Errorf("failed to marshal vertex data: %w", err)
	}
	userLocation, err := marshalNullablePoint(up.UserLocation)
	if err != nil {
		return fmt.Errorf("failed to marshal user location: %w", err)
	}

	query := `
		INSERT INTO user_paths (id, user_id, name, description, coordinates, vertex_data, user_location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = p.db.ExecContext(ctx, query, up.ID, up.OwnerID, up.Name, up.Description, coords, vertexData, userLocation, up.CreatedAt)
	return err
}

func (p *PostgresClient) GetUserPath(ctx context.Context, id string) (*path.UserPath, error) {
	query := `
		SELECT id, user_id, name, description, coordinates, vertex_data, user_location, created_at
		FROM user_paths
		WHERE id = $1
	`

	row := p.db.QueryRowContext(ctx, query, id)
	up, err := scanUserPath(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return up, nil
}

func (p *PostgresClient) ListUserPathsByOwner(ctx context.Context, ownerID string) ([]*path.UserPath, error) {
	query := `
		SELECT id, user_id, name, description, coordinates, vertex_data, user_location, created_at
		FROM user_paths
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []*path.UserPath
	for rows.Next() {
		up, err := scanUserPath(rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, up)
	}

	return paths, rows.Err()
}

func (p *PostgresClient) UpdateUserPath(ctx context.Context, id, ownerID string, upd *path.Update) error {
	var (
		set  []string
		args []interface{}
	)

	if upd.Name != nil {
		args = append(args, *upd.Name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if upd.Description != nil {
		args = append(args, *upd.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if upd.Coordinates != nil {
		coords, err := json.Marshal(*upd.Coordinates)
		if err != nil {
			return fmt.Errorf("failed to marshal coordinates: %w", err)
		}
		args = append(args, coords)
		set = append(set, fmt.Sprintf("coordinates = $%d", len(args)))
	}
	if upd.VertexData != nil {
		vertexData, err := marshalNullable(*upd.VertexData)
		if err != nil {
			return fmt.Errorf("failed to marshal vertex data: %w", err)
		}
		args = append(args, vertexData)
		set = append(set, fmt.Sprintf("vertex_data = $%d", len(args)))
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(
		"UPDATE user_paths SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(set, ", "), len(args)-1, len(args),
	)

	_, err := p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *PostgresClient) DeleteUserPath(ctx context.Context, id, ownerID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM user_paths WHERE id = $1 AND user_id = $2`, id, ownerID)
	return err
}

// Location report operations

func (p *PostgresClient) InsertReport(ctx context.Context, r *report.LocationReport) error {
	defaultLoc, err := json.Marshal(r.DefaultLocation)
	if err != nil {
		return fmt.Errorf("failed to marshal default location: %w", err)
	}
	correctedLoc, err := json.Marshal(r.CorrectedLocation)
	if err != nil {
		return fmt.Errorf("failed to marshal corrected location: %w", err)
	}

	query := `
		INSERT INTO location_reports (id, user_id, default_location, corrected_location, geohash_cell, local_key, timestamp)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), $7)
	`
	_, err = p.db.ExecContext(ctx, query, r.ID, r.ReporterID, defaultLoc, correctedLoc, r.GeohashCell, r.LocalKey, r.Timestamp)
	return err
}

func (p *PostgresClient) ListReports(ctx context.Context) ([]*report.LocationReport, error) {
	query := `
		SELECT id, COALESCE(user_id, ''), default_location, corrected_location, geohash_cell, COALESCE(local_key, ''), timestamp
		FROM location_reports
		ORDER BY timestamp DESC
	`
	return p.queryReports(ctx, query)
}

func (p *PostgresClient) ListReportsByCell(ctx context.Context, cellPrefix string) ([]*report.LocationReport, error) {
	query := `
		SELECT id, COALESCE(user_id, ''), default_location, corrected_location, geohash_cell, COALESCE(local_key, ''), timestamp
		FROM location_reports
		WHERE geohash_cell LIKE $1 || '%'
		ORDER BY timestamp DESC
	`
	return p.queryReports(ctx, query, cellPrefix)
}

func (p *PostgresClient) ReportExistsByLocalKey(ctx context.Context, localKey string) (bool, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM location_reports WHERE local_key = $1`, localKey).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *PostgresClient) queryReports(ctx context.Context, query string, args ...interface{}) ([]*report.LocationReport, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*report.LocationReport
	for rows.Next() {
		var (
			r            report.LocationReport
			defaultLoc   []byte
			correctedLoc []byte
		)
		if err := rows.Scan(&r.ID, &r.ReporterID, &defaultLoc, &correctedLoc, &r.GeohashCell, &r.LocalKey, &r.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(defaultLoc, &r.DefaultLocation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal default location: %w", err)
		}
		if err := json.Unmarshal(correctedLoc, &r.CorrectedLocation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal corrected location: %w", err)
		}
		reports = append(reports, &r)
	}

	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserPath(row rowScanner) (*path.UserPath, error) {
	var (
		up           path.UserPath
		coords       []byte
		vertexData   []byte
		userLocation []byte
	)
	err := row.Scan(&up.ID, &up.OwnerID, &up.Name, &up.Description, &coords, &vertexData, &userLocation, &up.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(coords, &up.Coordinates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal coordinates: %w", err)
	}
	if up.VertexData, err = unmarshalNullable(vertexData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vertex data: %w", err)
	}
	if up.UserLocation, err = unmarshalNullablePoint(userLocation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user location: %w", err)
	}

	return &up, nil
}

func marshalNullable(data map[string]interface{}) (interface{}, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

func unmarshalNullable(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func marshalNullablePoint(p *geo.Point) (interface{}, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func unmarshalNullablePoint(raw []byte) (*geo.Point, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p geo.Point
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
