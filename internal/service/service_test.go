// SPDX-License-Identifier: Apache-2.0

package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
	"github.com/gemaraproj/entity-hierarchy/internal/hierarchy"
	"github.com/gemaraproj/entity-hierarchy/internal/pipeline"
	"github.com/gemaraproj/entity-hierarchy/internal/service"
)

func setup(t *testing.T, content string) (*service.Service, string) {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "devices.yml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	opts := pipeline.Options{
		EntityFile: filepath.Join(dir, "*.yml"),
		Compiler:   hierarchy.DefaultCompilerOptions(),
		Extraction: extraction.DefaultOptions(),
	}
	eh, err := pipeline.NewEntityHierarchy(opts, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, eh.Train())
	return service.New(eh, opts, zap.NewNop()), file
}

func TestService_Reload(t *testing.T) {
	svc, file := setup(t, "device:\n  - examples:\n      - text: handy\n")
	assert.Len(t, svc.Extractor().Extract("tablet"), 0)

	require.NoError(t, os.WriteFile(file, []byte("device:\n  - examples:\n      - text: tablet\n"), 0o600))
	require.NoError(t, svc.Reload())
	assert.Len(t, svc.Extractor().Extract("tablet"), 1)
	assert.Equal(t, int64(1), svc.Reloads())
}

func TestService_ReloadKeepsPreviousOnError(t *testing.T) {
	svc, file := setup(t, "device:\n  - examples:\n      - text: handy\n")

	require.NoError(t, os.WriteFile(file, []byte("device:\n  - examples:\n      - ref: missing\n"), 0o600))
	require.Error(t, svc.Reload())
	assert.Len(t, svc.Extractor().Extract("handy"), 1)
	assert.Equal(t, int64(0), svc.Reloads())
}

func TestService_Process(t *testing.T) {
	svc, _ := setup(t, "device:\n  - value: smartphone\n    examples:\n      - text: handy\n")
	msg := &extraction.Message{Text: "ein handy"}
	require.NoError(t, svc.Process(context.Background(), msg))
	require.Len(t, msg.Entities, 1)
	assert.Equal(t, "smartphone", msg.Entities[0].Entity.Value)
}

func TestService_Watch(t *testing.T) {
	svc, file := setup(t, "device:\n  - examples:\n      - text: handy\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx, 20*time.Millisecond) }()

	// Rewrite until the watcher has picked up a change; the first write may
	// race with watcher registration.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(file, []byte("device:\n  - examples:\n      - text: tablet\n"), 0o600)
		return len(svc.Extractor().Extract("tablet")) == 1
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestService_WatchWithoutPattern(t *testing.T) {
	eh, err := pipeline.NewEntityHierarchy(pipeline.Options{}, nil)
	require.NoError(t, err)
	svc := service.New(eh, pipeline.Options{}, nil)
	assert.ErrorIs(t, svc.Watch(context.Background(), 0), service.ErrNothingToWatch)
}
