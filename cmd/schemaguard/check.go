package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deppfellow/schemaguard/internal/schema"
	"github.com/deppfellow/schemaguard/internal/validation"
)

// errInvalid makes the command exit non-zero after the failures are printed.
var errInvalid = errors.New("document is invalid")

type checkOptions struct {
	schemaPath   string
	documentPath string
	target       string
	useDefaults  string
	draft        string
	assertFormat bool
}

type checkReport struct {
	Valid    bool            `json:"valid"`
	Failures schema.Failures `json:"failures,omitempty"`
	Document any             `json:"document,omitempty"`
}

func newCheckCmd() *cobra.Command {
	opts := checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a JSON or YAML document against a schema",
		Long: `Validate a document against a schema and print the result as JSON.

Without --target the whole document is validated. With --target the
document is treated as a request document and the value at the dotted
path is validated, e.g. --target query.limit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.schemaPath, "schema", "", "schema file (.json, .yaml)")
	cmd.Flags().StringVar(&opts.documentPath, "document", "", "document file (.json, .yaml)")
	cmd.Flags().StringVar(&opts.target, "target", "", "dotted path of the value to validate")
	cmd.Flags().StringVar(&opts.useDefaults, "use-defaults", "off", "apply schema defaults: off, missing or empty")
	cmd.Flags().StringVar(&opts.draft, "draft", "", "JSON Schema draft (default 2020-12)")
	cmd.Flags().BoolVar(&opts.assertFormat, "assert-format", false, "treat format as an assertion")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("document")

	return cmd
}

func runCheck(ctx context.Context, out io.Writer, opts checkOptions) error {
	doc, err := schema.Load(opts.schemaPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(opts.documentPath)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	value, err := schema.DecodeDocument(data, filepath.Ext(opts.documentPath))
	if err != nil {
		return err
	}

	req, target := validation.Request{validation.DefaultTarget: value}, validation.DefaultTarget
	if opts.target != "" {
		object, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("--target needs the document to be an object")
		}
		req, target = validation.Request(object), opts.target
	}

	w, err := validation.New[io.Writer](doc, nil, validation.Config{
		Engine: schema.Options{
			Draft:        opts.draft,
			UseDefaults:  schema.DefaultsMode(opts.useDefaults),
			AssertFormat: opts.assertFormat,
		},
		Target:    target,
		ErrorMode: validation.Throw,
		CreateError: func(failures schema.Failures) error {
			return failures
		},
	})
	if err != nil {
		return err
	}

	check := w.Wrap(func(_ context.Context, req validation.Request, out io.Writer) error {
		report := checkReport{Valid: true}
		if opts.useDefaults != string(schema.DefaultsOff) {
			report.Document = req[validation.DefaultTarget]
			if opts.target != "" {
				report.Document = map[string]any(req)
			}
		}
		return writeReport(out, report)
	})

	if ctx == nil {
		ctx = context.Background()
	}
	err = check(ctx, req, out)

	var failures schema.Failures
	if errors.As(err, &failures) {
		if err := writeReport(out, checkReport{Failures: failures}); err != nil {
			return err
		}
		return errInvalid
	}
	return err
}

func writeReport(out io.Writer, report checkReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
