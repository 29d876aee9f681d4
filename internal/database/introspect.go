package database

import (
	"context"
	"fmt"
	"strings"
)

const maxSampleValueLen = 100

type column struct {
	name     string
	dataType string
	nullable bool
}

// UsableTableNames lists the tables and views the model may query, sorted by
// name.
func (h *Handle) UsableTableNames(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, h.tablesQuery())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}
	return names, nil
}

// TableInfo describes every usable table as a CREATE TABLE statement followed
// by a comment block with sample rows.
func (h *Handle) TableInfo(ctx context.Context) (string, error) {
	tables, err := h.UsableTableNames(ctx)
	if err != nil {
		return "", err
	}

	blocks := make([]string, 0, len(tables))
	for _, table := range tables {
		block, err := h.describeTable(ctx, table)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (h *Handle) describeTable(ctx context.Context, table string) (string, error) {
	columns, err := h.columns(ctx, table)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", h.quoteIdent(table))
	for i, col := range columns {
		fmt.Fprintf(&b, "\t%s %s", h.quoteIdent(col.name), strings.ToUpper(col.dataType))
		if !col.nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")

	if h.sampleRows == 0 {
		return b.String(), nil
	}

	sample, err := h.Run(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", h.quoteIdent(table), h.sampleRows))
	if err != nil {
		// A table we cannot read is still worth describing.
		return b.String(), nil
	}
	fmt.Fprintf(&b, "\n\n/*\n%d rows from %s table:\n", h.sampleRows, table)
	b.WriteString(strings.Join(sample.Columns, "\t"))
	for _, row := range sample.Data {
		cells := make([]string, len(row))
		for i, value := range row {
			if value == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = truncate(fmt.Sprint(value), maxSampleValueLen)
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, "\t"))
	}
	b.WriteString("\n*/")
	return b.String(), nil
}

func (h *Handle) columns(ctx context.Context, table string) ([]column, error) {
	rows, err := h.db.QueryContext(ctx, h.columnsQuery(), table)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]column, 0)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", table, err)
		}
		columns = append(columns, column{
			name:     name,
			dataType: dataType,
			nullable: !strings.EqualFold(strings.TrimSpace(nullable), "NO"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %q: %w", table, err)
	}
	return columns, nil
}

func (h *Handle) tablesQuery() string {
	switch h.dialect {
	case DialectMySQL:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name`
	case DialectSQLite:
		return `SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`
	default:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name`
	}
}

func (h *Handle) columnsQuery() string {
	switch h.dialect {
	case DialectMySQL:
		return `SELECT column_name, column_type, is_nullable FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`
	case DialectSQLite:
		return `SELECT name, type, CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END FROM pragma_table_info(?) ORDER BY cid`
	case DialectDuckDB:
		return `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position`
	default:
		return `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
