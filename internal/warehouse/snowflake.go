package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/snowflakedb/gosnowflake"
)

// Params holds the Snowflake connection parameters.
type Params struct {
	Account   string
	User      string
	Password  string
	Role      string
	Warehouse string
	Database  string
}

// QueryError wraps a failed warehouse query with the statement that caused
// it.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// sqlOpenFunc is a package-level variable to allow testing sql.Open failures.
var sqlOpenFunc = sql.Open

// Client runs ad-hoc queries against Snowflake. It is an independent
// utility with no coupling to the bot runtime.
type Client struct {
	db *sql.DB
}

// NewClient opens a Snowflake connection for the given parameters.
func NewClient(p Params) (*Client, error) {
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   p.Account,
		User:      p.User,
		Password:  p.Password,
		Role:      p.Role,
		Warehouse: p.Warehouse,
		Database:  p.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("building snowflake dsn: %w", err)
	}

	db, err := sqlOpenFunc("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snowflake connection: %w", err)
	}
	return &Client{db: db}, nil
}

// NewClientFromDB creates a Client from an existing *sql.DB connection.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// Query runs the statement and returns the column names plus all rows as
// strings. NULL values render as empty strings.
func (c *Client) Query(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, &QueryError{Query: query, Err: err}
	}

	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, &QueryError{Query: query, Err: err}
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = v.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, &QueryError{Query: query, Err: err}
	}

	return cols, out, nil
}

// QueryMaps runs the statement and returns each row as a column→value map.
func (c *Client) QueryMaps(ctx context.Context, query string) ([]map[string]string, error) {
	cols, rows, err := c.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]string, len(cols))
		for i, col := range cols {
			m[col] = row[i]
		}
		out = append(out, m)
	}
	return out, nil
}

// QueryMarkdown runs the statement and renders the result as a markdown
// table, suitable for posting to a chat surface.
func (c *Client) QueryMarkdown(ctx context.Context, query string) (string, error) {
	cols, rows, err := c.Query(ctx, query)
	if err != nil {
		return "", err
	}
	return MarkdownTable(cols, rows), nil
}

// SchemaNames lists the schemas visible in the configured database.
func (c *Client) SchemaNames(ctx context.Context) ([]string, error) {
	return c.showNames(ctx, "SHOW SCHEMAS")
}

// TableNames lists the tables in the given schema.
func (c *Client) TableNames(ctx context.Context, schema string) ([]string, error) {
	return c.showNames(ctx, fmt.Sprintf("SHOW TABLES IN SCHEMA %s", schema))
}

// showNames runs a SHOW statement and extracts the "name" column, which
// Snowflake places second in SHOW output.
func (c *Client) showNames(ctx context.Context, query string) ([]string, error) {
	cols, rows, err := c.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	nameIdx := 1
	for i, col := range cols {
		if strings.EqualFold(col, "name") {
			nameIdx = i
			break
		}
	}
	if len(cols) <= nameIdx {
		return nil, &QueryError{Query: query, Err: fmt.Errorf("unexpected SHOW output with %d columns", len(cols))}
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row[nameIdx])
	}
	return names, nil
}

// MarkdownTable renders columns and rows as a markdown table. An empty row
// set renders as an empty string.
func MarkdownTable(cols []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")

	seps := make([]string, len(cols))
	for i, col := range cols {
		seps[i] = strings.Repeat("-", len(col))
	}
	b.WriteString("| " + strings.Join(seps, " | ") + " |")

	for _, row := range rows {
		b.WriteString("\n| " + strings.Join(row, " | ") + " |")
	}
	return b.String()
}
