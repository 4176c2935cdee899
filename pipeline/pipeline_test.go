package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/git"
	"github.com/input-output-hk/catalyst-forge-release/publish"
	"github.com/input-output-hk/catalyst-forge-release/secrets"
	"github.com/input-output-hk/catalyst-forge-release/secrets/providers/memory"
	"github.com/input-output-hk/catalyst-forge-release/store"
)

var testSig = git.Signature{Name: "release-bot", Email: "bot@example.com"}

// fakePublisher records publish calls.
type fakePublisher struct {
	mu    sync.Mutex
	name  string
	err   error
	calls []string
}

func (f *fakePublisher) Name() string { return f.name }
func (f *fakePublisher) Kind() string { return "fake" }

func (f *fakePublisher) Publish(ctx context.Context, req *publish.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Tag)
	return f.err
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// newTestRepo builds a project checkout with conventional commits and the
// given tags, all pointing at the latest commit except earlier ones.
func newTestRepo(t *testing.T, tags ...string) string {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	repo, err := git.Init(ctx, &git.Options{Path: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	_, err = repo.CommitAll(ctx, "chore: initial commit", testSig)
	require.NoError(t, err)

	for i, tag := range tags {
		name := fmt.Sprintf("change-%d.txt", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(tag+"\n"), 0o644))
		hash, err := repo.CommitAll(ctx, fmt.Sprintf("feat: changes for %s", tag), testSig)
		require.NoError(t, err)
		require.NoError(t, repo.CreateTag(ctx, tag, hash))
	}

	return dir
}

func testConfig() *config.Config {
	cfg := &config.Config{Project: "hyprtool"}
	cfg.ApplyDefaults()
	return cfg
}

func newMemoryManager(t *testing.T) *secrets.Manager {
	t.Helper()

	manager := secrets.NewManager(&secrets.Config{DefaultProvider: "memory"})
	require.NoError(t, manager.Register("memory", memory.New()))
	return manager
}

// newTestEngine builds an engine with fake primary and gated publishers.
func newTestEngine(t *testing.T, cfg *config.Config, opts ...Option) (*Engine, *fakePublisher, *fakePublisher) {
	t.Helper()

	primary := &fakePublisher{name: "crates"}
	gated := &fakePublisher{name: "aur"}

	opts = append(opts,
		WithSecretsManager(newMemoryManager(t)),
		WithPublishers([]BoundPublisher{
			{Publisher: primary},
			{Publisher: gated, Gated: true},
		}),
	)

	engine, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return engine, primary, gated
}

func TestRunStableTagRunsEveryStep(t *testing.T) {
	ctx := context.Background()
	repoPath := newTestRepo(t, "v1.2.0")
	engine, primary, gated := newTestEngine(t, testConfig())

	run, err := engine.Run(ctx, RunRequest{
		RepoPath:    repoPath,
		Tag:         "v1.2.0",
		TriggeredBy: "tester",
		TriggerType: "manual",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, run.Status)
	assert.Empty(t, run.HaltReason)
	assert.NotEmpty(t, run.CommitSHA)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, gated.callCount())
	assert.Contains(t, run.Notes, "## Release v1.2.0")
}

func TestRunPrereleaseTagHaltsBeforeGatedSteps(t *testing.T) {
	tests := []string{"v1.2.0-rc1", "v1.2.0-alpha", "v2.0.0-alpha.1"}

	for _, tag := range tests {
		t.Run(tag, func(t *testing.T) {
			ctx := context.Background()
			repoPath := newTestRepo(t, tag)
			engine, primary, gated := newTestEngine(t, testConfig())

			run, err := engine.Run(ctx, RunRequest{
				RepoPath: repoPath,
				Tag:      tag,
			})
			require.NoError(t, err)

			// Halted, not failed: the primary publisher ran, the gated
			// one never did.
			assert.Equal(t, domain.StatusHalted, run.Status)
			assert.NotEmpty(t, run.HaltReason)
			assert.Equal(t, 1, primary.callCount())
			assert.Equal(t, 0, gated.callCount())
		})
	}
}

func TestRunRejectsNonMatchingTag(t *testing.T) {
	repoPath := newTestRepo(t, "v1.0.0")
	engine, primary, _ := newTestEngine(t, testConfig())

	_, err := engine.Run(context.Background(), RunRequest{
		RepoPath: repoPath,
		Tag:      "nightly",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeTriggerRejected, errors.CodeOf(err))
	assert.Equal(t, 0, primary.callCount())
}

func TestRunUnparseableTagHaltsBeforeAnyStep(t *testing.T) {
	repoPath := newTestRepo(t)
	engine, primary, gated := newTestEngine(t, testConfig())

	run, err := engine.Run(context.Background(), RunRequest{
		RepoPath: repoPath,
		Tag:      "vnext",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusHalted, run.Status)
	assert.Contains(t, run.HaltReason, "not a valid version tag")
	assert.Equal(t, 0, primary.callCount())
	assert.Equal(t, 0, gated.callCount())
}

func TestRunFailingProvisionStepFailsFast(t *testing.T) {
	ctx := context.Background()
	repoPath := newTestRepo(t, "v1.0.0")

	cfg := testConfig()
	cfg.Provision = []config.StepConfig{
		{Name: "broken-toolchain", Command: []string{"/bin/sh", "-c", "echo setup failed >&2; exit 1"}},
	}
	engine, primary, gated := newTestEngine(t, cfg)

	run, err := engine.Run(ctx, RunRequest{RepoPath: repoPath, Tag: "v1.0.0"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeExecutionFailed, errors.CodeOf(err))
	assert.Equal(t, domain.StatusFailed, run.Status)
	assert.Equal(t, 0, primary.callCount())
	assert.Equal(t, 0, gated.callCount())
}

func TestRunFailingPrimaryPublisherSkipsRemainder(t *testing.T) {
	ctx := context.Background()
	repoPath := newTestRepo(t, "v1.0.0")
	engine, primary, gated := newTestEngine(t, testConfig())
	primary.err = fmt.Errorf("registry rejected the upload")

	run, err := engine.Run(ctx, RunRequest{RepoPath: repoPath, Tag: "v1.0.0"})
	require.Error(t, err)
	assert.Equal(t, domain.StatusFailed, run.Status)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 0, gated.callCount())
}

func TestRunJournalsStepsWithGateSkips(t *testing.T) {
	ctx := context.Background()
	repoPath := newTestRepo(t, "v1.0.0-rc1")

	journal, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	cfg := testConfig()
	cfg.Provision = []config.StepConfig{
		{Name: "prepare", Command: []string{"/bin/sh", "-c", "echo ready"}},
	}
	engine, _, _ := newTestEngine(t, cfg, WithStore(journal))

	run, err := engine.Run(ctx, RunRequest{RepoPath: repoPath, Tag: "v1.0.0-rc1"})
	require.NoError(t, err)

	stored, steps, err := journal.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHalted, stored.Status)

	// prepare, publish-crates, gate, publish-aur.
	require.Len(t, steps, 4)
	assert.Equal(t, domain.StatusSuccess, steps[0].Status)
	assert.Contains(t, steps[0].Output, "ready")
	assert.Equal(t, domain.StatusSuccess, steps[1].Status)
	assert.Equal(t, domain.StatusHalted, steps[2].Status)
	assert.Equal(t, domain.StepKindGate, steps[2].Kind)
	assert.Equal(t, domain.StatusSkipped, steps[3].Status)
}

func TestRunPromotionOnlyForStableTags(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.Promotion.Enabled = true
	cfg.Promotion.CreateMissing = true

	t.Run("pre-release skips promotion", func(t *testing.T) {
		repoPath := newTestRepo(t, "v1.0.0-rc1")

		journal, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
		require.NoError(t, err)
		t.Cleanup(func() { journal.Close() })

		engine, _, _ := newTestEngine(t, cfg, WithStore(journal))

		run, err := engine.Run(ctx, RunRequest{RepoPath: repoPath, Tag: "v1.0.0-rc1"})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusHalted, run.Status)

		_, steps, err := journal.GetRun(ctx, run.ID)
		require.NoError(t, err)
		last := steps[len(steps)-1]
		assert.Equal(t, domain.StepKindPromote, last.Kind)
		assert.Equal(t, domain.StatusSkipped, last.Status)
	})

	t.Run("stable tag attempts promotion", func(t *testing.T) {
		repoPath := newTestRepo(t, "v1.0.0")
		engine, _, _ := newTestEngine(t, cfg)

		// The branch moves locally; the push fails because the test
		// checkout has no origin remote.
		run, err := engine.Run(ctx, RunRequest{RepoPath: repoPath, Tag: "v1.0.0"})
		require.Error(t, err)
		assert.Equal(t, domain.StatusFailed, run.Status)

		repo, err := git.Open(ctx, &git.Options{Path: repoPath})
		require.NoError(t, err)
		head, err := repo.BranchHead(ctx, "stable")
		require.NoError(t, err)
		assert.Equal(t, run.CommitSHA, head)
	})
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
}

func TestBuildPublishersFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Publishers = []config.PublisherConfig{
		{Name: "crates", Kind: config.KindRegistry, Command: []string{"cargo", "publish"}},
		{
			Name: "aur", Kind: config.KindPkgRepo, Gated: true,
			RemoteURL:      "ssh://aur@aur.example.org/hyprtool.git",
			UpdateCommands: [][]string{{"./update.sh"}},
		},
		{
			Name: "ghcr", Kind: config.KindOCI,
			Repository: "ghcr.io/org/hyprtool", ArtifactPath: "dist/hyprtool.tar.gz",
		},
	}

	engine, err := New(cfg, WithSecretsManager(newMemoryManager(t)))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	require.Len(t, engine.publishers, 3)
	assert.Equal(t, "registry", engine.publishers[0].Publisher.Kind())
	assert.False(t, engine.publishers[0].Gated)
	assert.Equal(t, "pkgrepo", engine.publishers[1].Publisher.Kind())
	assert.True(t, engine.publishers[1].Gated)
	assert.Equal(t, "oci", engine.publishers[2].Publisher.Kind())
}
