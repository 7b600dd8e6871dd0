package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/webkb/internal/importer"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Convert local documents into markdown",
		Long: `Import converts text, markdown, HTML, email (.eml) and mailbox (.mbox)
files into one combined markdown document, or a zip with one file per
document and an index.md.

Examples:
  # Combine notes and a mailbox
  webkb import notes.md archive.mbox -o combined.md

  # One markdown file per document
  webkb import --zip pages/*.html -o documents.zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportCmd,
	}

	cmd.Flags().BoolP("zip", "z", false, "Write a zip archive instead of one combined file")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	asZip, err := cmd.Flags().GetBool("zip")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)

	files := make([]importer.File, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path) //nolint:gosec // paths come from the command line
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, importer.File{Name: filepath.Base(path), Data: data})
	}

	docs, err := importer.New(logger).Parse(files)
	if err != nil {
		return err
	}

	var data []byte
	if asZip {
		var buf bytes.Buffer
		if err := importer.ExportZip(&buf, docs); err != nil {
			return fmt.Errorf("failed to build zip: %w", err)
		}
		data = buf.Bytes()
	} else {
		data = []byte(importer.ExportCombined(docs))
	}

	if err := writeOutput(cmd.OutOrStdout(), output, data); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d documents into %s\n", len(docs), output)
	}
	return nil
}
