package postgres

import (
	"context"
	"fmt"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/jackc/pgx/v5"
)

const countCriticalFindingsQuery = `
SELECT COUNT(*) FROM findings WHERE analysis_run_id=$1 AND severity='CRITICAL'`

// projectHealth derives repository status from the critical findings of one run.
// It runs inside the completing transaction so the count includes the finding just written.
func projectHealth(ctx context.Context, tx pgx.Tx, runID string) (entities.RepositoryStatus, error) {
	var critical int64
	if err := tx.QueryRow(ctx, countCriticalFindingsQuery, runID).Scan(&critical); err != nil {
		return "", fmt.Errorf("count critical findings: %w", err)
	}
	return entities.ProjectHealth(critical), nil
}
