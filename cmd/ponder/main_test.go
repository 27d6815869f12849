package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lhoral/ponder/internal/config"
	"github.com/lhoral/ponder/internal/llm"
	"github.com/lhoral/ponder/internal/warehouse"
)

func TestResolveVersion(t *testing.T) {
	require.Equal(t, "v1.2.3", resolveVersion("v1.2.3"))
	// "dev" resolves via build info; in tests it stays "dev" or becomes
	// the module version, never empty.
	require.NotEmpty(t, resolveVersion("dev"))
}

func TestRootCmdHasSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	require.Contains(t, names, "serve")
	require.Contains(t, names, "query")
	require.Contains(t, names, "version")
}

func TestVersionCmd(t *testing.T) {
	origVersion := version
	version = "v0.9.0"
	defer func() { version = origVersion }()

	root := newRootCmd()
	root.SetArgs([]string{"version"})
	var buf bytes.Buffer
	root.SetOut(&buf)
	require.NoError(t, root.Execute())
}

func TestNewClaudeClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Configured model and prompt flow into the client options.
	client := newClaudeClient(&config.Config{
		AnthropicAPIKey: "sk-ant-test",
		ClaudeModel:     string(llm.ModelHaiku3),
		SystemPrompt:    "You are a data assistant.",
	}, logger)
	require.IsType(t, &llm.ClaudeClient{}, client)

	// No model configured keeps the client default.
	client = newClaudeClient(&config.Config{AnthropicAPIKey: "sk-ant-test"}, logger)
	require.NotNil(t, client)
}

type stubWarehouse struct {
	markdown string
	maps     []map[string]string
	schemas  []string
	tables   []string
	err      error
	closed   bool
}

func (s *stubWarehouse) QueryMarkdown(_ context.Context, _ string) (string, error) {
	return s.markdown, s.err
}

func (s *stubWarehouse) QueryMaps(_ context.Context, _ string) ([]map[string]string, error) {
	return s.maps, s.err
}

func (s *stubWarehouse) SchemaNames(_ context.Context) ([]string, error) {
	return s.schemas, s.err
}

func (s *stubWarehouse) TableNames(_ context.Context, _ string) ([]string, error) {
	return s.tables, s.err
}

func (s *stubWarehouse) Close() error {
	s.closed = true
	return nil
}

func withQueryStubs(t *testing.T, cfg *config.Config, stub *stubWarehouse) {
	t.Helper()
	origLoad := configLoad
	origNew := newWarehouseClient
	configLoad = func() (*config.Config, error) { return cfg, nil }
	newWarehouseClient = func(_ warehouse.Params) (warehouseClient, error) { return stub, nil }
	t.Cleanup(func() {
		configLoad = origLoad
		newWarehouseClient = origNew
	})
}

func snowflakeConfig() *config.Config {
	return &config.Config{
		Snowflake: config.SnowflakeConfig{Account: "acct", User: "u", Password: "p"},
	}
}

func runQueryCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newQueryCmd()
	cmd.SetArgs(args)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	err := cmd.Execute()
	return buf.String(), err
}

func TestQueryCmdMarkdown(t *testing.T) {
	stub := &stubWarehouse{markdown: "| A |\n| - |\n| 1 |"}
	withQueryStubs(t, snowflakeConfig(), stub)

	out, err := runQueryCmd(t, "SELECT a FROM t")
	require.NoError(t, err)
	require.Contains(t, out, "| A |")
	require.True(t, stub.closed)
}

func TestQueryCmdJSON(t *testing.T) {
	stub := &stubWarehouse{maps: []map[string]string{{"A": "1"}}}
	withQueryStubs(t, snowflakeConfig(), stub)

	out, err := runQueryCmd(t, "--json", "SELECT a FROM t")
	require.NoError(t, err)
	require.Contains(t, out, `"A": "1"`)
}

func TestQueryCmdSchemas(t *testing.T) {
	stub := &stubWarehouse{schemas: []string{"PUBLIC", "ANALYTICS"}}
	withQueryStubs(t, snowflakeConfig(), stub)

	out, err := runQueryCmd(t, "--schemas")
	require.NoError(t, err)
	require.Contains(t, out, "PUBLIC")
	require.Contains(t, out, "ANALYTICS")
}

func TestQueryCmdTables(t *testing.T) {
	stub := &stubWarehouse{tables: []string{"ORDERS"}}
	withQueryStubs(t, snowflakeConfig(), stub)

	out, err := runQueryCmd(t, "--tables", "ANALYTICS")
	require.NoError(t, err)
	require.Contains(t, out, "ORDERS")
}

func TestQueryCmdNoWarehouseConfigured(t *testing.T) {
	withQueryStubs(t, &config.Config{}, &stubWarehouse{})

	_, err := runQueryCmd(t, "SELECT 1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no snowflake warehouse configured")
}

func TestQueryCmdMissingStatement(t *testing.T) {
	withQueryStubs(t, snowflakeConfig(), &stubWarehouse{})

	_, err := runQueryCmd(t)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one SQL statement")
}

func TestQueryCmdQueryError(t *testing.T) {
	stub := &stubWarehouse{err: errors.New("syntax error")}
	withQueryStubs(t, snowflakeConfig(), stub)

	_, err := runQueryCmd(t, "SELECT nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "syntax error")
}
