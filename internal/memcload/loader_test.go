package memcload

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/G-Research/memcload/internal/memcload/configuration"
	"github.com/G-Research/memcload/internal/memcload/convert"
	"github.com/G-Research/memcload/internal/memcload/store"
	"github.com/G-Research/memcload/internal/memcload/testfixtures"
)

// withLoader runs action against a loader whose partitions are backed by in memory stores
func withLoader(t *testing.T, dir string, action func(l *Loader, stores map[string]*testfixtures.FakeStore)) {
	config := configuration.Default()
	config.Pattern = filepath.Join(dir, "*.tsv.gz")
	config.ChunkLines = 2

	stores := map[string]*testfixtures.FakeStore{}
	for partition, target := range config.Partitions {
		stores[partition] = testfixtures.NewFakeStore(target.Address)
	}
	l := NewLoader(config)
	l.newStore = func(partition string, _ configuration.TargetConfig) (store.CacheStore, error) {
		return stores[partition], nil
	}
	l.clock = clocktesting.NewFakeClock(time.Now())
	action(l, stores)
}

func TestRun_LoadsAndClaimsShard(t *testing.T) {
	dir := t.TempDir()
	path := testfixtures.WriteShard(t, dir, "a.tsv.gz", testfixtures.SampleLines())

	withLoader(t, dir, func(l *Loader, stores map[string]*testfixtures.FakeStore) {
		report, err := l.Run(context.Background())
		require.NoError(t, err)

		assert.NotEmpty(t, report.RunId)
		assert.Equal(t, 1, report.Shards)
		assert.Nil(t, report.ShardFailures.ErrorOrNil())
		assert.Equal(t, 6, report.Processed)
		assert.Zero(t, report.Errors())
		assert.True(t, report.Acceptable)
		assert.Equal(t, 6, report.Sent())
		assert.Zero(t, report.Lost())
		require.Len(t, report.Writers, 4)
		assert.Equal(t, "adid", report.Writers[0].Partition)

		assert.Len(t, stores["idfa"].Items(), 3)
		assert.Len(t, stores["gaid"].Items(), 3)
		assert.Empty(t, stores["adid"].Items())
		assert.Empty(t, stores["dvid"].Items())
		for _, s := range stores {
			assert.True(t, s.Closed())
		}

		value := stores["gaid"].Items()["gaid:7rfw452y52g2gq4g"]
		decoded, err := convert.Decode(value)
		require.NoError(t, err)
		assert.Equal(t, []uint32{7423, 424}, decoded.Apps)

		assert.NoFileExists(t, path)
		assert.FileExists(t, testfixtures.Claimed(path))
	})
}

func TestRun_RerunSkipsClaimedShards(t *testing.T) {
	dir := t.TempDir()
	testfixtures.WriteShard(t, dir, "a.tsv.gz", testfixtures.SampleLines())

	withLoader(t, dir, func(l *Loader, _ map[string]*testfixtures.FakeStore) {
		_, err := l.Run(context.Background())
		require.NoError(t, err)
	})
	withLoader(t, dir, func(l *Loader, stores map[string]*testfixtures.FakeStore) {
		report, err := l.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, report.Shards)
		assert.Zero(t, report.Processed)
		assert.True(t, report.Acceptable)
		for _, s := range stores {
			assert.Zero(t, s.Calls())
		}
	})
}

func TestRun_CorruptShardIsLeftInPlace(t *testing.T) {
	dir := t.TempDir()
	good := testfixtures.WriteShard(t, dir, "a.tsv.gz", testfixtures.SampleLines())
	bad := testfixtures.WriteCorruptShard(t, dir, "b.tsv.gz", testfixtures.SampleLines())

	withLoader(t, dir, func(l *Loader, _ map[string]*testfixtures.FakeStore) {
		report, err := l.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, report.Shards)
		require.NotNil(t, report.ShardFailures)
		assert.Len(t, report.ShardFailures.Errors, 1)
		assert.FileExists(t, testfixtures.Claimed(good))
		assert.FileExists(t, bad)
		assert.NoFileExists(t, testfixtures.Claimed(bad))
	})
}

func TestRun_HighErrorRateFails(t *testing.T) {
	dir := t.TempDir()
	testfixtures.WriteShard(t, dir, "a.tsv.gz", []string{
		testfixtures.IdfaLine1,
		"idfa\tbroken",
		"unknown\t123\t1\t2\t3",
	})

	withLoader(t, dir, func(l *Loader, stores map[string]*testfixtures.FakeStore) {
		report, err := l.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		assert.Equal(t, 1, report.ParseErrors)
		assert.Equal(t, 1, report.UnknownDevice)
		assert.False(t, report.Acceptable)
		assert.Len(t, stores["idfa"].Items(), 1)
	})
}

func TestRun_LostKeysAreReported(t *testing.T) {
	dir := t.TempDir()
	testfixtures.WriteShard(t, dir, "a.tsv.gz", testfixtures.SampleLines())

	withLoader(t, dir, func(l *Loader, stores map[string]*testfixtures.FakeStore) {
		stores["idfa"].Reject["idfa:e7e1a50c0ec2747ca56cd9e1558c0d7c"] = true
		report, err := l.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5, report.Sent())
		assert.Equal(t, 1, report.Lost())
		assert.True(t, report.Acceptable)
	})
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := testfixtures.WriteShard(t, dir, "a.tsv.gz", testfixtures.SampleLines())

	withLoader(t, dir, func(l *Loader, stores map[string]*testfixtures.FakeStore) {
		l.config.Dry = true
		report, err := l.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, report.Sent())
		for _, s := range stores {
			assert.Zero(t, s.Calls())
		}
		assert.FileExists(t, testfixtures.Claimed(path))
	})
}

func TestRun_CancelledLeavesShardsUnclaimed(t *testing.T) {
	dir := t.TempDir()
	path := testfixtures.WriteShard(t, dir, "a.tsv.gz", testfixtures.SampleLines())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	withLoader(t, dir, func(l *Loader, _ map[string]*testfixtures.FakeStore) {
		report, err := l.Run(ctx)
		require.NoError(t, err)
		require.NotNil(t, report.ShardFailures)
		assert.ErrorIs(t, report.ShardFailures.Errors[0], context.Canceled)
		assert.FileExists(t, path)
	})
}

func TestRun_BoundedReaders(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.tsv.gz", "b.tsv.gz", "c.tsv.gz"} {
		testfixtures.WriteShard(t, dir, name, testfixtures.SampleLines())
	}

	withLoader(t, dir, func(l *Loader, stores map[string]*testfixtures.FakeStore) {
		l.config.MaxOpenShards = 1
		report, err := l.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, report.Shards)
		assert.Equal(t, 18, report.Processed)
		// The same six devices appear in every shard
		assert.Len(t, stores["idfa"].Items(), 3)
	})
}

func TestRun_BadPattern(t *testing.T) {
	withLoader(t, t.TempDir(), func(l *Loader, _ map[string]*testfixtures.FakeStore) {
		l.config.Pattern = "["
		_, err := l.Run(context.Background())
		assert.Error(t, err)
	})
}
