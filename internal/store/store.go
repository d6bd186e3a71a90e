// Package store persists scored findings in PostgreSQL so scans can be
// queried and compared after the fact.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/observability"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL implementation of schemas.FindingStore.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  observability.GetLogger().Named("store"),
	}, nil
}

// PersistResults writes the scan record and every scored finding in one
// transaction.
func (s *Store) PersistResults(ctx context.Context, set *schemas.ResultSet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after commit reports ErrTxClosed; that is the normal path.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if err := s.persistScan(ctx, tx, set); err != nil {
		return err
	}
	if findings := set.Findings(); len(findings) > 0 {
		if err := s.persistFindings(ctx, tx, set, findings); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) persistScan(ctx context.Context, tx pgx.Tx, set *schemas.ResultSet) error {
	sql := `
        INSERT INTO scans (id, started_at, total_units, degraded_units, total_findings)
        VALUES ($1, $2, $3, $4, $5);
    `
	_, err := tx.Exec(ctx, sql,
		set.ScanID, set.StartedAt.UTC(),
		set.Summary["total_units"], set.Summary["degraded_units"], set.Summary["total_findings"],
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	return nil
}

func (s *Store) persistFindings(ctx context.Context, tx pgx.Tx, set *schemas.ResultSet, findings []schemas.ScoredFinding) error {
	unitNames := make(map[string]string, len(set.Units))
	for _, u := range set.Units {
		unitNames[u.UnitID] = u.UnitName
	}

	rows := make([][]interface{}, len(findings))
	for i, f := range findings {
		rows[i] = []interface{}{
			f.ID, set.ScanID, f.UnitID, unitNames[f.UnitID],
			string(f.Origin), string(f.Provenance), f.Category, f.CWE, f.RuleID,
			f.Span.StartLine, f.Span.EndLine,
			f.Description, f.Evidence, f.Rationale,
			f.Confidence, f.Vector, f.BaseScore, f.RiskScore, string(f.Severity),
		}
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"findings"},
		[]string{
			"id", "scan_id", "unit_id", "unit_name",
			"origin", "provenance", "category", "cwe", "rule_id",
			"start_line", "end_line",
			"description", "evidence", "rationale",
			"confidence", "cvss_vector", "base_score", "risk_score", "severity",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy findings: %w", err)
	}
	if int(copyCount) != len(findings) {
		return fmt.Errorf("mismatch in copied findings count: expected %d, got %d", len(findings), copyCount)
	}
	return nil
}

// GetFindingsByScanID returns every stored finding for a scan, most urgent
// first.
func (s *Store) GetFindingsByScanID(ctx context.Context, scanID string) ([]schemas.ScoredFinding, error) {
	query := `
        SELECT id, unit_id, origin, provenance, category, cwe, rule_id,
               start_line, end_line, description, evidence, rationale,
               confidence, cvss_vector, base_score, risk_score, severity
        FROM findings
        WHERE scan_id = $1
        ORDER BY base_score DESC, risk_score DESC, start_line ASC;
    `
	rows, err := s.pool.Query(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []schemas.ScoredFinding
	for rows.Next() {
		var (
			f          schemas.ScoredFinding
			origin     string
			provenance string
			severity   string
		)
		err := rows.Scan(
			&f.ID, &f.UnitID, &origin, &provenance, &f.Category, &f.CWE, &f.RuleID,
			&f.Span.StartLine, &f.Span.EndLine, &f.Description, &f.Evidence, &f.Rationale,
			&f.Confidence, &f.Vector, &f.BaseScore, &f.RiskScore, &severity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}
		f.Origin = schemas.Origin(origin)
		f.Provenance = schemas.Provenance(provenance)
		f.Severity = schemas.Severity(severity)
		findings = append(findings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return findings, nil
}
