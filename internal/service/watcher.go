// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for further events before
// reloading.
const DefaultDebounce = 500 * time.Millisecond

// ErrNothingToWatch is returned when no entity file pattern is configured.
var ErrNothingToWatch = errors.New("no entity file pattern to watch")

// Watch reloads s whenever a file matching the entity file pattern is
// written, created, removed or renamed. It blocks until ctx is done.
func (s *Service) Watch(ctx context.Context, debounce time.Duration) error {
	if s.opts.EntityFile == "" {
		return ErrNothingToWatch
	}
	pattern := filepath.Clean(s.opts.EntityFile)
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	if err := addTree(watcher, filepath.FromSlash(base)); err != nil {
		return err
	}
	s.logger.Info("watching entity definitions", zap.String("pattern", pattern), zap.String("dir", base))

	var mu sync.Mutex
	var timer *time.Timer
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			if ctx.Err() != nil {
				return
			}
			_ = s.Reload()
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						s.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if event.Has(fsnotify.Chmod) {
				continue
			}
			match, err := doublestar.PathMatch(pattern, filepath.Clean(event.Name))
			if err != nil || !match {
				continue
			}
			s.logger.Debug("entity definition changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// addTree watches dir and every directory below it.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %q: %w", path, err)
		}
		return nil
	})
}
