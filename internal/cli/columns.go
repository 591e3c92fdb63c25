package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/auditcoe/internal/schema"
	"github.com/joacominatel/auditcoe/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

// ColumnsOptions holds flags for the columns command.
type ColumnsOptions struct {
	*RootOptions
	Schema string
	JSON   bool
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ColumnsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "columns <table>",
		Short: "Show the live columns of a table",
		Long: `Show the live columns of a table as the API sees them.

Columns marked required are NOT NULL without a default; an insert must
supply them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runColumns(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", schema.DefaultSchema, "database schema")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON instead of a table")

	return cmd
}

func runColumns(cmd *cobra.Command, opts *ColumnsOptions, table string) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	// Diagnostics go to stderr so --json output stays clean.
	log := util.NewLoggerTo(zapcore.Lock(os.Stderr), false, "warn")
	defer log.Sync() //nolint:errcheck

	svc, err := openService(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer svc.Disconnect() //nolint:errcheck

	ts, err := svc.DescribeTable(cmd.Context(), opts.Schema, table)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		return writeColumnsJSON(out, ts)
	}
	_, err = fmt.Fprint(out, renderColumns(ts))
	return err
}

func writeColumnsJSON(w io.Writer, ts schema.TableSchema) error {
	cols := ts.Columns
	if cols == nil {
		cols = []schema.ColumnMeta{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"schema":   ts.Schema,
		"table":    ts.Table,
		"columns":  cols,
		"required": schema.CheckRequired(ts, nil),
	})
}

// renderColumns formats ts as an aligned, styled listing.
func renderColumns(ts schema.TableSchema) string {
	var b strings.Builder

	title := fmt.Sprintf("%s.%s", ts.Schema, ts.Table)
	if ts.IsEmpty() {
		b.WriteString(StyleTitle.Render(title) + " " + StyleError.Render("table not found") + "\n")
		return b.String()
	}
	b.WriteString(StyleTitle.Render(title) + " " +
		StyleMuted.Render(fmt.Sprintf("(%d columns)", len(ts.Columns))) + "\n")

	required := make(map[string]bool)
	for _, name := range schema.CheckRequired(ts, nil) {
		required[name] = true
	}

	nameWidth, typeWidth := 0, 0
	for _, c := range ts.Columns {
		nameWidth = max(nameWidth, lipgloss.Width(c.Name))
		typeWidth = max(typeWidth, lipgloss.Width(typeLabel(c)))
	}
	nameCol := lipgloss.NewStyle().Width(nameWidth + 2)
	typeCol := StyleType.Width(typeWidth + 2)

	for _, c := range ts.Columns {
		var flags []string
		switch {
		case required[c.Name]:
			flags = append(flags, StyleRequired.Render("required"))
		case c.HasDefault:
			flags = append(flags, StyleSuccess.Render("default"))
		case c.Nullable:
			flags = append(flags, StyleMuted.Render("nullable"))
		}
		line := "  " + nameCol.Render(c.Name) + typeCol.Render(typeLabel(c)) + strings.Join(flags, " ")
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return b.String()
}

func typeLabel(c schema.ColumnMeta) string {
	if c.IsEnumerated() {
		return c.DeclaredTypeName + " (enum)"
	}
	return c.DataType
}
