package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/core"
)

type exportOptions struct {
	FrameworkID int64
	Output      string
	Related     bool
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored competency framework as CSV",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.FrameworkID <= 0 {
				return withCode(exitUsage, errors.New("--framework-id must be positive"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.FrameworkID, "framework-id", 0, "Framework to export")
	cmd.Flags().StringVar(&opts.Output, "output", "-", "Output file, or a directory to write <shortname>-<idnumber>.csv into (- for stdout)")
	cmd.Flags().BoolVar(&opts.Related, "related", false, "Include the relatedidnumbers column")
	_ = cmd.MarkFlagRequired("framework-id")

	return cmd
}

func runExport(cmd *cobra.Command, opts exportOptions) error {
	ctx := cmd.Context()
	cfg := configFrom(cmd)

	st, release, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer release()

	service, err := core.NewService(st, cfg)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer service.Close()

	var buf bytes.Buffer
	fw, err := service.Export(ctx, opts.FrameworkID, &buf, competency.ExportOptions{IncludeRelated: opts.Related})
	if err != nil {
		return classify(err)
	}

	if opts.Output == "-" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}

	path := opts.Output
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, competency.Filename(fw))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return writeJSONLine(cmd.ErrOrStderr(), map[string]any{
		"status":       "ok",
		"framework_id": fw.ID,
		"output":       path,
	})
}
