package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/core"
)

type importOptions struct {
	Input           string
	Delimiter       string
	Encoding        string
	Positional      bool
	DryRun          bool
	FrameworkPolicy string
	DuplicatePolicy string
	Actor           int64
	ContextID       int64
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a competency framework from CSV",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range []string{opts.FrameworkPolicy, opts.DuplicatePolicy} {
				if p == "" {
					continue
				}
				if _, err := competency.ParseDuplicatePolicy(p); err != nil {
					return withCode(exitUsage, err)
				}
			}
			if opts.Delimiter != "" {
				if _, err := competency.ParseDelimiter(opts.Delimiter); err != nil {
					return withCode(exitUsage, err)
				}
			}
			if opts.ContextID < 0 {
				return withCode(exitUsage, errors.New("--context-id must not be negative"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "CSV file to import (- for stdin)")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", "", "Field delimiter: comma, semicolon, colon, tab, or one character")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "File encoding label, e.g. utf-8 or windows-1252")
	cmd.Flags().BoolVar(&opts.Positional, "positional", false, "Map columns by position instead of by header name")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Run the import against an in-memory store")
	cmd.Flags().StringVar(&opts.FrameworkPolicy, "framework-policy", "", "Repeated framework rows: reject, keep-first, keep-last")
	cmd.Flags().StringVar(&opts.DuplicatePolicy, "duplicate-policy", "", "Repeated competency idnumbers: reject, keep-first, keep-last")
	cmd.Flags().Int64Var(&opts.Actor, "actor", 0, "User id recorded on created scales")
	cmd.Flags().Int64Var(&opts.ContextID, "context-id", 0, "Context the framework belongs to")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	ctx := cmd.Context()
	cfg := *configFrom(cmd)
	if opts.FrameworkPolicy != "" {
		cfg.Import.FrameworkPolicy = opts.FrameworkPolicy
	}
	if opts.DuplicatePolicy != "" {
		cfg.Import.DuplicatePolicy = opts.DuplicatePolicy
	}
	if opts.ContextID > 0 {
		cfg.Import.ContextID = opts.ContextID
	}

	in, closeInput, err := openInput(cmd, opts.Input)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer closeInput()

	st, release, err := openStore(ctx, &cfg, opts.DryRun)
	if err != nil {
		return err
	}
	defer release()

	service, err := core.NewService(st, &cfg)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer service.Close()

	var mapping competency.Mapping
	if opts.Positional {
		mapping = competency.DefaultMapping()
	}
	if opts.Actor > 0 {
		ctx = competency.WithActor(ctx, opts.Actor)
	}

	res, err := service.Import(ctx, in, competency.ReadOptions{
		Delimiter: opts.Delimiter,
		Encoding:  opts.Encoding,
	}, mapping)
	if err != nil {
		return classify(err)
	}
	return writeJSONLine(cmd.OutOrStdout(), newImportSummary(res, opts.DryRun))
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}
