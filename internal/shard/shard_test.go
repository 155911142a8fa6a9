package shard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/config"
)

func TestSplitRoundRobin(t *testing.T) {
	t.Parallel()

	shards, err := Split([]string{"a", "b", "c", "d", "e"}, 2)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a", "c", "e"}, {"b", "d"}}, shards)
}

func TestSplitDropsEmptyShards(t *testing.T) {
	t.Parallel()

	shards, err := Split([]string{"a", "b"}, 5)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a"}, {"b"}}, shards)

	shards, err = Split(nil, 3)
	require.NoError(t, err)
	require.Empty(t, shards)
}

func TestSplitBalancedAndComplete(t *testing.T) {
	t.Parallel()

	seeds := make([]string, 23)
	for i := range seeds {
		seeds[i] = fmt.Sprintf("https://s%d.test/", i)
	}
	shards, err := Split(seeds, 4)
	require.NoError(t, err)
	require.Len(t, shards, 4)

	var all []string
	minLen, maxLen := len(seeds), 0
	for _, s := range shards {
		all = append(all, s...)
		minLen = min(minLen, len(s))
		maxLen = max(maxLen, len(s))
	}
	require.ElementsMatch(t, seeds, all)
	require.LessOrEqual(t, maxLen-minLen, 1)
}

func TestSplitRejectsInvalidCount(t *testing.T) {
	t.Parallel()

	_, err := Split([]string{"a"}, 0)
	require.ErrorIs(t, err, ErrInvalidShardCount)
}

func TestSeedsRoundTripOverPipe(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	require.NoError(t, WriteSeeds(&sb, []string{"https://a.test/", "https://b.test/"}))
	seeds, err := ReadSeeds(strings.NewReader(sb.String() + "\n  \n"))
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.test/", "https://b.test/"}, seeds)
}

type staticSeeds []string

func (s staticSeeds) BuildSeeds(context.Context, config.JobConfig) ([]string, error) {
	return s, nil
}

type failingSeeds struct{}

func (failingSeeds) BuildSeeds(context.Context, config.JobConfig) ([]string, error) {
	return nil, errors.New("search unavailable")
}

type fakeLauncher struct {
	mu    sync.Mutex
	jobs  []Job
	crash map[int]bool
}

func (f *fakeLauncher) Launch(_ context.Context, job Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	if f.crash[job.Index] {
		return errors.New("exit status 2")
	}
	return nil
}

func TestRunDistributedToleratesCrashedShards(t *testing.T) {
	t.Parallel()

	cfg := config.JobConfig{JobName: "cpi", Output: config.OutputConfig{Dir: "/data/cpi"}}
	launcher := &fakeLauncher{crash: map[int]bool{1: true}}
	s := NewSharder(staticSeeds{"a", "b", "c", "d", "e"}, launcher, nil, zap.NewNop())

	report, err := s.RunDistributed(context.Background(), cfg, "run-9", 3)
	require.NoError(t, err)
	require.Equal(t, "run-9", report.RunID)
	require.Len(t, report.Shards, 3)
	require.Len(t, launcher.jobs, 3)

	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, 1, failed[0].Index)

	require.Equal(t, filepath.Join("/data/cpi", "shard_0"), report.Shards[0].OutputDir)
	require.Equal(t, 2, report.Shards[0].Seeds)
	require.Equal(t, 1, report.Shards[2].Seeds)
}

func TestRunDistributedWithoutSeeds(t *testing.T) {
	t.Parallel()

	launcher := &fakeLauncher{}
	s := NewSharder(staticSeeds{}, launcher, nil, nil)
	report, err := s.RunDistributed(context.Background(), config.JobConfig{}, "run", 4)
	require.NoError(t, err)
	require.Empty(t, report.Shards)
	require.Empty(t, launcher.jobs)
}

func TestRunDistributedErrors(t *testing.T) {
	t.Parallel()

	_, err := NewSharder(failingSeeds{}, &fakeLauncher{}, nil, nil).
		RunDistributed(context.Background(), config.JobConfig{}, "run", 2)
	require.Error(t, err)

	_, err = NewSharder(staticSeeds{"a"}, &fakeLauncher{}, nil, nil).
		RunDistributed(context.Background(), config.JobConfig{}, "run", 0)
	require.ErrorIs(t, err, ErrInvalidShardCount)
}

func TestProcessLauncherPipesSeedsToChild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	launcher := &ProcessLauncher{
		Executable: os.Args[0],
		Args:       []string{"-test.run=TestHelperProcess", "--"},
		Env:        []string{"GO_WANT_HELPER_PROCESS=1"},
		Logger:     zap.NewNop(),
	}
	job := Job{RunID: "run-1", Index: 0, Seeds: []string{"https://a.test/", "https://b.test/"}, OutputDir: dir}
	require.NoError(t, launcher.Launch(context.Background(), job))

	got, err := os.ReadFile(filepath.Join(dir, "seeds.txt"))
	require.NoError(t, err)
	require.Equal(t, "run-1|0|https://a.test/,https://b.test/", string(got))
}

func TestProcessLauncherReportsCrash(t *testing.T) {
	t.Parallel()

	launcher := &ProcessLauncher{
		Executable: os.Args[0],
		Args:       []string{"-test.run=TestHelperProcess", "--"},
		Env:        []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_CRASH=1"},
	}
	err := launcher.Launch(context.Background(), Job{RunID: "run-1", Index: 3, OutputDir: t.TempDir()})
	require.Error(t, err)
	require.Contains(t, err.Error(), "shard 3 process")
}

// TestHelperProcess stands in for the shard subcommand when re-executed by
// the launcher tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("HELPER_CRASH") == "1" {
		os.Exit(2)
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	// -- shard --index N --output-dir D --run-id R
	if len(args) != 8 || args[1] != "shard" {
		fmt.Fprintf(os.Stderr, "unexpected args %v\n", args)
		os.Exit(3)
	}
	index, outDir, runID := args[3], args[5], args[7]
	seeds, err := ReadSeeds(os.Stdin)
	if err != nil {
		os.Exit(4)
	}
	payload := runID + "|" + index + "|" + strings.Join(seeds, ",")
	if err := os.WriteFile(filepath.Join(outDir, "seeds.txt"), []byte(payload), 0o600); err != nil {
		os.Exit(5)
	}
	os.Exit(0)
}
