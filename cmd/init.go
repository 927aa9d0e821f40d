package cmd

import (
	"fmt"
	"os"

	"github.com/davebream/olaunch/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default olaunch config",
	Long: `Writes config.json with the default settings: start 'ollama serve' when no
ollama process is running, wait for http://127.0.0.1:11434/ to answer, then
run 'python main.py' from ./venv.

Use --force to overwrite an existing config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, err := config.ConfigFilePath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfgPath); err == nil && !initForce {
			fmt.Printf("Config already exists at %s (use --force to overwrite)\n", cfgPath)
			return nil
		}

		cfgDir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		if err := config.EnsureDir(cfgDir, 0700); err != nil {
			return err
		}

		if err := config.DefaultConfig().Save(cfgPath); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Created %s\n", cfgPath)
		fmt.Println("Run 'olaunch doctor' to check the setup.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config")
	rootCmd.AddCommand(initCmd)
}
