// SPDX-License-Identifier: Apache-2.0

// Package cli implements the enthier command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gemaraproj/entity-hierarchy/internal/config"
	"github.com/gemaraproj/entity-hierarchy/internal/intent"
	"github.com/gemaraproj/entity-hierarchy/internal/logging"
	"github.com/gemaraproj/entity-hierarchy/internal/pipeline"
)

// Version is injected at build time.
var Version = "dev"

// app carries the state initialized before every subcommand.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRootCommand creates the root command with every subcommand.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:   "enthier",
		Short: "Compile entity hierarchies and extract their entities from text",
		Long: "enthier compiles hierarchical entity definitions (values, alternative spellings,\n" +
			"references and composite templates) into keyword tables and annotates texts with\n" +
			"the entities they contain.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logging.Cleanup(a.logger)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file path")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("entity-file", "", "entity definition file or glob pattern, e.g. entities/**/*.yml")
	pf.String("model-file", "", "compiled tables file")
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("entity_file", pf.Lookup("entity-file"))
	_ = a.v.BindPFlag("model_file", pf.Lookup("model-file"))

	cmd.AddCommand(
		newCompileCmd(a),
		newExtractCmd(a),
		newKeywordsCmd(a),
		newServeCmd(a),
	)
	return cmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log.Level, logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	return nil
}

func (a *app) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		EntityFile: a.cfg.EntityFile,
		Compiler:   a.cfg.CompilerOptions(),
		Extraction: a.cfg.ExtractionOptions(),
	}
}

// modelLocation splits the model file into the directory and component name
// used by Persist and Load.
func (a *app) modelLocation() (dir, name string) {
	dir, file := filepath.Split(a.cfg.ModelFile)
	if dir == "" {
		dir = "."
	}
	return dir, strings.TrimSuffix(file, ".json")
}

// hierarchy compiles the definition files when an entity file is configured
// and loads the compiled model file otherwise.
func (a *app) hierarchy() (*pipeline.EntityHierarchy, error) {
	opts := a.pipelineOptions()
	if opts.EntityFile != "" {
		eh, err := pipeline.NewEntityHierarchy(opts, a.logger)
		if err != nil {
			return nil, err
		}
		if err := eh.Train(); err != nil {
			return nil, err
		}
		return eh, nil
	}
	dir, name := a.modelLocation()
	return pipeline.Load(pipeline.Meta{File: name + ".json"}, dir, opts, a.logger)
}

// components returns the components that run after the entity hierarchy.
func (a *app) components() ([]pipeline.Component, error) {
	if a.cfg.Intent.Name == "" {
		return nil, nil
	}
	eo, err := intent.NewEntityOnly(intent.Options{
		Name:                a.cfg.Intent.Name,
		ConfidenceThreshold: a.cfg.Intent.ConfidenceThreshold,
		AlwaysReplace:       a.cfg.Intent.AlwaysReplace,
		Stopwords:           a.cfg.Intent.Stopwords,
		MaxStopwords:        a.cfg.Intent.MaxStopwords,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	return []pipeline.Component{pipeline.IntentComponent{EntityOnly: eo}}, nil
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return data, nil
}
