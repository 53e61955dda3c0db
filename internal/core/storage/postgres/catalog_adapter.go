package postgres

import (
	"context"
	"database/sql"
	"fmt"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

// CatalogAdapter implements storage.ToolCatalog over the tools table. The
// analytics core only reads display attributes; the CMS owns the writes.
type CatalogAdapter struct {
	db *sql.DB
}

// NewCatalogAdapter creates a catalog adapter over an existing connection pool.
func NewCatalogAdapter(db *sql.DB) *CatalogAdapter {
	return &CatalogAdapter{db: db}
}

// GetTool fetches one tool by id. Returns storage.ErrToolNotFound for unknown ids.
func (a *CatalogAdapter) GetTool(ctx context.Context, id int64) (*v1.Tool, error) {
	tool, err := scanToolRow(a.db.QueryRowContext(ctx, queryGetTool, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrToolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tool %d: %w", id, err)
	}
	return tool, nil
}

// ListTools returns every catalog tool, id ascending.
func (a *CatalogAdapter) ListTools(ctx context.Context) ([]*v1.Tool, error) {
	rows, err := a.db.QueryContext(ctx, queryListTools)
	if err != nil {
		return nil, fmt.Errorf("failed to query tools: %w", err)
	}
	defer rows.Close()

	var tools []*v1.Tool
	for rows.Next() {
		tool, err := scanToolRow(rows)
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tools: %w", err)
	}

	return tools, nil
}
