package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/manifold/pkg/adapters/file"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/ports"
	contract "github.com/aretw0/manifold/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.ManifestProvider = (*file.Provider)(nil)
	_ ports.Watchable        = (*file.Provider)(nil)
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestFileProvider_Contract(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "v1.yaml", "- {kind: Workflow, id: wf, states: [open]}\n")
	writeFile(t, dir, "v2.yml", "defs:\n  - {kind: Workflow, id: wf, states: [open]}\n  - {kind: TaskType, id: bug, workflow_id: wf}\n")
	writeFile(t, dir, "v3.json", `[{"kind": "Workflow", "id": "wf", "states": ["open"]}]`)
	writeFile(t, dir, "README.md", "not a manifest")
	writeFile(t, dir, ".hidden.yaml", "- {kind: X, id: y}")

	contract.ManifestProviderContractTest(t, file.NewProvider(dir), map[string]int{"v1": 1, "v2": 2, "v3": 1})
}

func TestFileProvider_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "- id: no-kind\n")

	_, err := file.NewProvider(dir).Get(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestFileProvider_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	_, err := file.NewProvider(dir).Get(context.Background(), "../etc/passwd")
	assert.True(t, errors.Is(err, domain.ErrManifestNotFound))
}

func TestFileProvider_Watch(t *testing.T) {
	dir := t.TempDir()
	p := file.NewProvider(dir, file.WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	writeFile(t, dir, "v7.yaml", "- {kind: Workflow, id: wf, states: [open]}\n")
	writeFile(t, dir, "notes.txt", "ignored")

	select {
	case v := <-ch:
		assert.Equal(t, "v7", v)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch signal")
	}

	cancel()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
