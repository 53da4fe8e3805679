package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start an HTTP server exposing story generation, refactoring and document download.
Use the subcommands to manage the server configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		envConfig, err := loadEnv()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("port") {
			serverConfig := envConfig.GetServerConfig()
			serverConfig.Port = servePort
			envConfig.UpdateServerConfig(*serverConfig)
		}
		return server.Run(envConfig)
	},
}

var showServerCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current server configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		envConfig, err := loadEnv()
		if err != nil {
			return err
		}

		serverConfig := envConfig.GetServerConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "\nServer Configuration:")
		fmt.Fprintf(out, "Port: %d\n", serverConfig.Port)
		fmt.Fprintf(out, "Max Upload Bytes: %d\n", serverConfig.MaxUploadBytes)
		fmt.Fprintf(out, "Authentication Enabled: %v\n", serverConfig.Enabled)
		if serverConfig.BearerToken != "" {
			fmt.Fprintf(out, "Bearer Token: %s\n", config.MaskKey(serverConfig.BearerToken))
		}
		fmt.Fprintln(out)
		return nil
	},
}

var updatePortCmd = &cobra.Command{
	Use:   "port [port]",
	Short: "Update server port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[0])
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port number: %s", args[0])
		}
		return updateServerConfig(cmd, func(s *config.ServerConfig) (string, error) {
			s.Port = port
			return fmt.Sprintf("Server port updated to %d", port), nil
		})
	},
}

var toggleAuthCmd = &cobra.Command{
	Use:   "auth [on|off]",
	Short: "Toggle authentication",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enable := strings.ToLower(args[0])
		if enable != "on" && enable != "off" {
			return fmt.Errorf("please specify either 'on' or 'off'")
		}

		return updateServerConfig(cmd, func(s *config.ServerConfig) (string, error) {
			s.Enabled = enable == "on"
			if s.Enabled && s.BearerToken == "" {
				token, err := config.GenerateBearerToken()
				if err != nil {
					return "", err
				}
				s.BearerToken = token
				fmt.Fprintf(cmd.OutOrStdout(), "Generated new bearer token: %s\n", token)
			}
			return fmt.Sprintf("Server authentication %s", map[bool]string{true: "enabled", false: "disabled"}[s.Enabled]), nil
		})
	},
}

var newTokenCmd = &cobra.Command{
	Use:   "newtoken",
	Short: "Generate new bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateServerConfig(cmd, func(s *config.ServerConfig) (string, error) {
			token, err := config.GenerateBearerToken()
			if err != nil {
				return "", err
			}
			s.BearerToken = token
			return fmt.Sprintf("Generated new bearer token: %s", token), nil
		})
	},
}

// updateServerConfig loads the configuration, applies change and saves it
func updateServerConfig(cmd *cobra.Command, change func(*config.ServerConfig) (string, error)) error {
	configPath := config.GetEnvPath()
	envConfig, err := config.LoadOrEmpty(configPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	serverConfig := envConfig.GetServerConfig()
	message, err := change(serverConfig)
	if err != nil {
		return err
	}
	envConfig.UpdateServerConfig(*serverConfig)

	if err := config.SaveEnvConfig(configPath, envConfig); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), message)
	return nil
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultServerPort, "port to listen on (overrides the configuration)")
	serveCmd.AddCommand(showServerCmd)
	serveCmd.AddCommand(updatePortCmd)
	serveCmd.AddCommand(toggleAuthCmd)
	serveCmd.AddCommand(newTokenCmd)
	rootCmd.AddCommand(serveCmd)
}
