package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/brd-generator/internal/schemas"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON artifact against its schema",
	Long: "Validate a source_blocks, chunks or classified_chunks JSON file against the embedded schema, " +
		"or against any schema file given with --schema.",
	RunE: runValidate,
}

var (
	validateArtifact   string
	validateSchemaFile string
	validateJSONFile   string
)

func init() {
	validateCmd.Flags().StringVarP(&validateArtifact, "artifact", "a", "", "Artifact kind: source_blocks, chunks or classified_chunks")
	validateCmd.Flags().StringVar(&validateSchemaFile, "schema", "", "Path to a JSON Schema file")
	validateCmd.Flags().StringVar(&validateJSONFile, "json", "", "Path to the JSON file to validate")

	_ = validateCmd.MarkFlagRequired("json")
	validateCmd.MarkFlagsMutuallyExclusive("artifact", "schema")
	validateCmd.MarkFlagsOneRequired("artifact", "schema")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	var err error
	if validateSchemaFile != "" {
		err = schemas.ValidateJSON(validateSchemaFile, validateJSONFile)
	} else {
		var data []byte
		data, err = os.ReadFile(validateJSONFile)
		if err != nil {
			return fmt.Errorf("failed to read JSON file: %w", err)
		}
		err = schemas.ValidateArtifact(validateArtifact, data)
	}

	var validationErr *schemas.ValidationError
	if errors.As(err, &validationErr) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Validation failed\n%s", validationErr.Error())
		return fmt.Errorf("%s does not match the schema", validateJSONFile)
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Validation passed")
	return nil
}
