package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/models"
)

var saveModelsFlag bool

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List the models a provider offers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envConfig, err := loadEnv()
		if err != nil {
			return err
		}

		var name string
		if len(args) == 1 {
			name = args[0]
		}
		provider, err := models.ResolveProvider(envConfig, name)
		if err != nil {
			return err
		}

		ids, err := models.NewClient(nil).ListModels(cmd.Context(), provider)
		if err != nil {
			return fmt.Errorf("error listing models for %s: %w", provider.Endpoint(), err)
		}

		out := cmd.OutOrStdout()
		current := provider.ResolvedModel()
		for _, id := range ids {
			marker := " "
			if id == current {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, id)
		}

		if saveModelsFlag {
			stored, ok := envConfig.Providers[provider.Name]
			if !ok {
				return fmt.Errorf("provider %s is not stored in the configuration", provider.Name)
			}
			stored.Models = ids
			if err := config.SaveEnvConfig(config.GetEnvPath(), envConfig); err != nil {
				return fmt.Errorf("error saving configuration: %w", err)
			}
			fmt.Fprintf(out, "Saved %d models for %s\n", len(ids), provider.Name)
		}
		return nil
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&saveModelsFlag, "save", false, "store the list in the provider configuration")
	rootCmd.AddCommand(modelsCmd)
}
