package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/config"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/project"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Manage relkit configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write .relkit.yaml with the default settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			FatalError("%v", err)
		}
		emit(configInit(cwd))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			FatalError("%v", err)
		}
		out, err := configShow(cwd)
		if err != nil {
			FatalError("%v", err)
		}
		emit(out)
	},
}

// configInit writes the default config next to the project manifest, or in
// dir when no project is found.
func configInit(dir string) *output.Output {
	root, err := project.FindRoot(dir)
	if err != nil {
		root = dir
	}
	path, err := config.WriteDefaults(root)
	if errors.Is(err, config.ErrExists) {
		return output.Fail("%s already exists", config.FileName).
			Text("Refusing to overwrite %s", path).
			Next("Edit " + config.FileName + " directly")
	}
	if err != nil {
		return output.Fail("Cannot write %s", config.FileName).Text("%v", err)
	}
	return output.OK("Created %s", config.FileName).
		With("path", path).
		Next("Adjust checks.* commands for your toolchain")
}

// configShow lists the effective value of every key. The token secret is
// never printed.
func configShow(dir string) (*output.Output, error) {
	root, err := project.FindRoot(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	source := "defaults"
	if cfg.File() != "" {
		source = cfg.File()
	}
	out := output.OK("Configuration for %s", root).KV("Source", source)
	for _, key := range config.Keys() {
		value := cfg.GetString(key)
		if list := cfg.GetStringSlice(key); len(list) > 1 {
			value = fmt.Sprint(list)
		}
		if key == "token.secret" && value != "" {
			value = "(set)"
		}
		out.KV(key, value)
	}
	return out, nil
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
