package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	v := viper.New()
	return newRootCmd(v).Execute()
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arc-skill",
		Short: "Arc skill - arithmetic voice assistant backend",
		Long: `Arc skill server and local tooling.

Server:
  arc-skill serve        Serve the skill over HTTP, websocket and gRPC

Local:
  arc-skill invoke       Dispatch one request envelope
  arc-skill console      Talk to the skill interactively
  arc-skill test         Run YAML dialog scenarios
  arc-skill routes       Show the handler chain
  arc-skill audit list   Query the audit log`,
		SilenceUsage: true,
	}

	config.BindCommonFlags(rootCmd, v)
	rootCmd.PersistentFlags().StringP("output", "o", "text", "output format (text, json, yaml, markdown)")
	_ = v.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(
		newServeCmd(v),
		newInvokeCmd(v),
		newConsoleCmd(v),
		newTestCmd(v),
		newRoutesCmd(v),
		newAuditCmd(v),
		newConfigCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the merged configuration using the --config flag.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
