package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"Ystore/internal/config"
	"Ystore/internal/model"
)

type schemaOptions struct {
	output    string
	modelsDir string
}

func newSchemaCmd() *cobra.Command {
	opts := schemaOptions{}
	cmd := &cobra.Command{
		Use:   "schema <model>",
		Short: "Print the schema of a registered model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.modelsDir
			if dir == "" {
				dir = config.LoadConfig().ModelsDir
			}
			if err := model.InitRegistry(dir); err != nil {
				return err
			}
			m, ok := model.Lookup(args[0])
			if !ok {
				return fmt.Errorf("model %s not found in %s", args[0], dir)
			}
			return writeSchema(cmd, model.Schema(m), opts.output)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	fs.StringVar(&opts.modelsDir, "models-dir", "", "model directory (overrides MODELS_DIR)")
	return cmd
}

func writeSchema(cmd *cobra.Command, d model.Description, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(d)
	}
	return fmt.Errorf("unknown output format %q", format)
}
