// SPDX-License-Identifier: Apache-2.0

// Package service holds the live entity hierarchy of a long-running server
// and replaces it when definition files change.
package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
	"github.com/gemaraproj/entity-hierarchy/internal/pipeline"
)

// Service serves extraction requests from the current entity hierarchy.
// Reloads swap the hierarchy atomically; in-flight requests finish on the
// hierarchy they started with.
type Service struct {
	opts    pipeline.Options
	extra   []pipeline.Component
	logger  *zap.Logger
	current atomic.Pointer[pipeline.EntityHierarchy]
	reloads atomic.Int64
}

// New creates a Service starting with initial. extra components run after
// the entity hierarchy for every processed message.
func New(initial *pipeline.EntityHierarchy, opts pipeline.Options, logger *zap.Logger, extra ...pipeline.Component) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{opts: opts, extra: extra, logger: logger}
	s.current.Store(initial)
	return s
}

// Extractor returns the extractor of the current hierarchy.
func (s *Service) Extractor() *extraction.Extractor {
	return s.current.Load().Extractor()
}

// Process runs msg through the current hierarchy and the extra components.
func (s *Service) Process(ctx context.Context, msg *extraction.Message) error {
	components := append([]pipeline.Component{s.current.Load()}, s.extra...)
	return pipeline.New(components...).Run(ctx, msg)
}

// Reload recompiles the definition files. On failure the current hierarchy
// stays in place.
func (s *Service) Reload() error {
	next, err := pipeline.NewEntityHierarchy(s.opts, s.logger)
	if err != nil {
		return err
	}
	if err := next.Train(); err != nil {
		s.logger.Error("reloading entity hierarchy failed, keeping previous version", zap.Error(err))
		return err
	}
	s.current.Store(next)
	n := s.reloads.Add(1)
	s.logger.Info("reloaded entity hierarchy",
		zap.Int64("reload", n),
		zap.Int("keywords", len(next.Extractor().Keywords())))
	return nil
}

// Reloads returns the number of successful reloads.
func (s *Service) Reloads() int64 {
	return s.reloads.Load()
}
