package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"appraisal/internal/app/server"
	"appraisal/internal/domain/performance"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/db"
)

type rootOptions struct {
	actor string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "appraisalctl",
		Short:        "Administer performance documents and appraiser mappings",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.actor, "as", "ADMIN", "person number recorded as the acting HR user")

	root.AddCommand(
		newMigrateCmd(),
		newLaunchCmd(opts),
		newAddEmployeeCmd(opts),
		newPromoteCmd(opts),
		newMappingsCmd(opts),
	)
	return root
}

// withApp wires the services, runs fn and flushes queued notifications.
func withApp(ctx context.Context, fn func(*server.App) error) error {
	app, err := server.New(ctx, config.Load())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func (o *rootOptions) hrActor() performance.Actor {
	return performance.Actor{
		UserID:       "appraisalctl",
		PersonNumber: o.actor,
		HR:           true,
		RequestID:    "cli-" + uuid.NewString(),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newLaunchCmd(opts *rootOptions) *cobra.Command {
	var documentID string
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch a performance document for every eligible employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *server.App) error {
				result, err := app.Performance.Launch(cmd.Context(), opts.hrActor(), documentID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "performance document id")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func newAddEmployeeCmd(opts *rootOptions) *cobra.Command {
	var documentID, personNumber string
	cmd := &cobra.Command{
		Use:   "add-employee",
		Short: "Add one employee to an already launched performance document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *server.App) error {
				result, err := app.Performance.AddEmployee(cmd.Context(), opts.hrActor(), documentID, personNumber)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "performance document id")
	cmd.Flags().StringVar(&personNumber, "person", "", "employee person number")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}

func newPromoteCmd(opts *rootOptions) *cobra.Command {
	var ids []string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Move employee documents that share a status to the next flow step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *server.App) error {
				result, err := app.Performance.Promote(cmd.Context(), opts.hrActor(), ids)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "comma separated employee document ids")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

func newMappingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Export or import appraiser mappings",
	}
	cmd.AddCommand(newMappingsExportCmd(), newMappingsImportCmd(opts))
	return cmd
}

func newMappingsExportCmd() *cobra.Command {
	var cycleID, rawFormat, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the appraiser mappings of a cycle as csv or xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := performance.ParseFormat(rawFormat)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(app *server.App) error {
				mappings, err := app.Performance.ExportMappings(cmd.Context(), cycleID)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return performance.WriteMappings(w, format, mappings)
			})
		},
	}
	cmd.Flags().StringVar(&cycleID, "cycle", "", "performance cycle id")
	cmd.Flags().StringVar(&rawFormat, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("cycle")
	return cmd
}

func newMappingsImportCmd(opts *rootOptions) *cobra.Command {
	var path, rawFormat string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace appraiser mappings from a csv or xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := importFormat(rawFormat, path)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return withApp(cmd.Context(), func(app *server.App) error {
				result, err := app.Performance.ImportMappings(cmd.Context(), opts.hrActor(), f, format)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "mapping file to import")
	cmd.Flags().StringVar(&rawFormat, "format", "", "csv or xlsx, taken from the file extension when empty")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func importFormat(raw, path string) (performance.Format, error) {
	if strings.TrimSpace(raw) == "" {
		raw = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	return performance.ParseFormat(raw)
}
