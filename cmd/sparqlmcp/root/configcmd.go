package root

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sparqlmcp/internal/config"
)

var (
	cfgEndpoint string
	cfgForce    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tool provider configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a minimal tools config at the default location",
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir := defaultConfigDir()
		if configDir == "" {
			return fmt.Errorf("could not resolve config directory")
		}
		cfgPath := filepath.Join(configDir, "tools.toml")

		endpoint := cfgEndpoint
		if endpoint == "" {
			endpoint = config.DefaultEndpoint
		}

		content := fmt.Sprintf(`# Minimal tools config for sparqlmcp
# Uncomment and adjust options as needed

[[tools.providers]]
provider = "echo"

[[tools.providers]]
provider = "sparql"
endpoint = "%s"
# timeout_seconds = 20
# cache_path = "%s"
# cache_ttl = "5m"
`, endpoint, filepath.Join(configDir, "cache.db"))

		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return err
		}
		if _, err := os.Stat(cfgPath); err == nil && !cfgForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
		}
		if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
			return err
		}
		logrus.WithField("path", cfgPath).Info("wrote tools config")
		fmt.Printf("Created %s\n", cfgPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&cfgEndpoint, "endpoint", "", "SPARQL endpoint URL to write into the config")
	configInitCmd.Flags().BoolVar(&cfgForce, "force", false, "Overwrite existing config if present")
}
