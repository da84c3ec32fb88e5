// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
	"github.com/gemaraproj/entity-hierarchy/internal/pipeline"
	"github.com/gemaraproj/entity-hierarchy/internal/service"
	"github.com/gemaraproj/entity-hierarchy/internal/tool"
)

func newCompileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Compile the entity definition files into the model file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.EntityFile == "" {
				return errors.New("no entity file configured, set --entity-file or entity_file")
			}
			eh, err := pipeline.NewEntityHierarchy(a.pipelineOptions(), a.logger)
			if err != nil {
				return err
			}
			if err := eh.Train(); err != nil {
				return err
			}
			dir, name := a.modelLocation()
			meta, err := eh.Persist(dir, name)
			if err != nil {
				return err
			}
			tables := eh.Extractor().Tables()
			if meta.File == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no keywords compiled, nothing written")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compiled %d keywords and %d alternatives into %s\n",
				len(tables.Entities), len(tables.Alternatives), a.cfg.ModelFile)
			return nil
		},
	}
}

func newExtractCmd(a *app) *cobra.Command {
	var entitiesPath, intentName string
	var confidence float64

	cmd := &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract entities from text and print the resulting message as JSON",
		Long: "Extract entities from the text given as arguments or on stdin. Entities from\n" +
			"--entities are merged with the matches. With intent.name configured the\n" +
			"entity-only intent heuristic runs afterwards.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			msg := &extraction.Message{Text: text}
			if entitiesPath != "" {
				data, err := readFile(entitiesPath)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &msg.Entities); err != nil {
					return fmt.Errorf("failed to parse entities %q: %w", entitiesPath, err)
				}
			}
			if intentName != "" {
				msg.Intent = &extraction.Intent{Name: intentName, Confidence: confidence}
				msg.IntentRanking = []extraction.Intent{*msg.Intent}
			}

			eh, err := a.hierarchy()
			if err != nil {
				return err
			}
			extra, err := a.components()
			if err != nil {
				return err
			}
			if err := pipeline.New(append([]pipeline.Component{eh}, extra...)...).Run(cmd.Context(), msg); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(msg)
		},
	}
	cmd.Flags().StringVar(&entitiesPath, "entities", "", "JSON file with the existing entity list")
	cmd.Flags().StringVar(&intentName, "intent", "", "classified intent of the text")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "confidence of --intent")
	return cmd
}

func newKeywordsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "List the keywords the entity hierarchy matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eh, err := a.hierarchy()
			if err != nil {
				return err
			}
			keywords := eh.Extractor().Keywords()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(keywords)
			}

			names := make([]string, 0, len(keywords))
			for kw := range keywords {
				names = append(names, kw)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			for _, kw := range names {
				var pairs []string
				for _, typ := range sortedTypes(keywords[kw]) {
					pairs = append(pairs, fmt.Sprintf("%s=%v", typ, keywords[kw][typ]))
				}
				fmt.Fprintf(out, "%s\t%s\n", kw, strings.Join(pairs, ","))
			}
			fmt.Fprintf(out, "%d keywords\n", len(names))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print keywords as JSON")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction tools over MCP on stdio",
		Long: "Serve extract_entities, annotate_document and list_keywords over MCP on\n" +
			"stdio. When an entity file is configured, definition changes are compiled\n" +
			"and swapped in without a restart.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			eh, err := a.hierarchy()
			if err != nil {
				return err
			}
			extra, err := a.components()
			if err != nil {
				return err
			}
			svc := service.New(eh, a.pipelineOptions(), a.logger, extra...)

			if !noWatch && a.cfg.EntityFile != "" {
				go func() {
					if err := svc.Watch(ctx, service.DefaultDebounce); err != nil {
						a.logger.Error("definition watcher stopped", zap.Error(err))
					}
				}()
			}

			a.logger.Info("serving MCP tools on stdio", zap.String("version", Version))
			return tool.NewServer(svc, Version).Run(ctx, &mcp.StdioTransport{})
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload on definition changes")
	return cmd
}

func sortedTypes(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
