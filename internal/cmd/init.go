package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tuannvm/engai/internal/config"
)

const configHeader = `# EngAi Configuration
# GEMINI_API_KEY is read from the environment (or .env), never from this file.
# Prompt templates can be overridden per agent under prompts.dir.

`

func initMain(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	var force bool
	fs.BoolVar(&force, "f", false, "overwrite an existing config")
	fs.BoolVar(&force, "force", false, "overwrite an existing config")
	parseGlobalFlags(fs)

	fs.Usage = func() {
		fmt.Print(`Usage: engai init [-f]

Create a .engai/config.yaml file in the current directory
with the default model, server and pipeline settings.
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	configFile := filepath.Join(".engai", "config.yaml")
	if err := writeDefaultConfig(configFile, force); err != nil {
		return err
	}

	logInfo("Created %s", configFile)
	logInfo("")
	logInfo("Set GEMINI_API_KEY, then run:")
	logInfo("  engai generate -d \"A todo list app\"")
	return nil
}

// writeDefaultConfig writes the default config to path, creating its
// directory. An existing file is kept unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
