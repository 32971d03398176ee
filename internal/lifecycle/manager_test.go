package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pluginhost/internal/dynload/dynloadtest"
)

const libPath = "/opt/plugins/libfoo.so"

func newTestManager(t *testing.T) (*Manager, *dynloadtest.FakeLoader) {
	t.Helper()
	loader := dynloadtest.NewFakeLoader()
	loader.AddLibrary(libPath, map[string]func() any{
		"foo::Foo": func() any { return struct{}{} },
	})
	return New(loader), loader
}

func TestAcquireLoadsOnFirstClaim(t *testing.T) {
	mgr, loader := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.Acquire(ctx, libPath)

	require.NoError(t, err)
	require.Equal(t, Loaded, rec.State())
	require.Equal(t, 1, rec.Refcount())
	require.Equal(t, 1, loader.OpenCount(libPath))
	require.True(t, mgr.IsLoaded(libPath))
	require.Equal(t, []string{libPath}, mgr.LoadedPaths())
}

func TestAcquireReusesLoadedLibrary(t *testing.T) {
	mgr, loader := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)
	rec, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)

	require.Equal(t, 2, rec.Refcount())
	require.Equal(t, 1, loader.OpenCount(libPath), "second acquire must not reopen")
}

func TestReleaseUnloadsAtZero(t *testing.T) {
	mgr, loader := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)
	_, err = mgr.Acquire(ctx, libPath)
	require.NoError(t, err)

	remaining, err := mgr.Release(ctx, libPath)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
	require.True(t, mgr.IsLoaded(libPath), "library must stay loaded while claims remain")
	require.Zero(t, loader.CloseCount(libPath))

	remaining, err = mgr.Release(ctx, libPath)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)
	require.False(t, mgr.IsLoaded(libPath))
	require.Equal(t, 1, loader.CloseCount(libPath))
	require.Empty(t, mgr.LoadedPaths())
}

func TestReleaseWithoutAcquireFails(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Release(ctx, libPath)

	var notLoaded *NotLoadedError
	require.ErrorAs(t, err, &notLoaded)
	require.Equal(t, libPath, notLoaded.Path)
}

func TestDoubleReleaseFails(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)
	_, err = mgr.Release(ctx, libPath)
	require.NoError(t, err)

	_, err = mgr.Release(ctx, libPath)

	var notLoaded *NotLoadedError
	require.ErrorAs(t, err, &notLoaded)
}

func TestFailedOpenLeavesRecordUnloaded(t *testing.T) {
	mgr, loader := newTestManager(t)
	ctx := context.Background()
	loader.FailOpen(libPath, errors.New("missing symbol"))

	_, err := mgr.Acquire(ctx, libPath)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, libPath, loadErr.Path)
	require.False(t, mgr.IsLoaded(libPath))

	// The record is retryable: clearing the fault lets the next acquire load.
	loader.FailOpen(libPath, nil)
	loader.AddLibrary(libPath, map[string]func() any{})
	rec, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Refcount())
}

func TestFailedCloseResetsRecordForRetry(t *testing.T) {
	mgr, loader := newTestManager(t)
	ctx := context.Background()
	loader.FailClose(libPath, errors.New("busy"))

	rec, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)

	_, err = mgr.Release(ctx, libPath)

	var unloadErr *UnloadError
	require.ErrorAs(t, err, &unloadErr)
	// The caller relinquished its claim: the record must not stay Loaded at
	// refcount zero even though the close itself failed.
	require.Equal(t, Unloaded, rec.State())
	require.Equal(t, 0, rec.Refcount())

	// Next acquire retries the physical load.
	loader.FailClose(libPath, nil)
	_, err = mgr.Acquire(ctx, libPath)
	require.NoError(t, err)
	require.Equal(t, 2, loader.OpenCount(libPath))
}

func TestConcurrentAcquiresShareOneOpen(t *testing.T) {
	mgr, loader := newTestManager(t)
	ctx := context.Background()
	const claims = 32

	var wg sync.WaitGroup
	errs := make([]error, claims)
	for i := 0; i < claims; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = mgr.Acquire(ctx, libPath)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, loader.OpenCount(libPath), "exactly one physical open")

	rec, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)
	require.Equal(t, claims+1, rec.Refcount(), "no refcount update may be lost")

	for n := 0; n < claims+1; n++ {
		_, err := mgr.Release(ctx, libPath)
		require.NoError(t, err)
	}
	require.Equal(t, 1, loader.CloseCount(libPath), "exactly one physical close")
	require.False(t, mgr.IsLoaded(libPath))
	require.Equal(t, 0, rec.Refcount())
}

func TestReloadAfterFullReleaseAlternatesStrictly(t *testing.T) {
	mgr, loader := newTestManager(t)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		_, err := mgr.Acquire(ctx, libPath)
		require.NoError(t, err)
		_, err = mgr.Release(ctx, libPath)
		require.NoError(t, err)
	}

	// Three full cycles: opens and closes interleave with no consecutive
	// opens for the same path.
	require.Equal(t, 3, loader.OpenCount(libPath))
	require.Equal(t, 3, loader.CloseCount(libPath))
}

func TestSnapshotReportsRecords(t *testing.T) {
	mgr, loader := newTestManager(t)
	ctx := context.Background()
	otherPath := "/opt/plugins/libbar.so"
	loader.AddLibrary(otherPath, map[string]func() any{})

	_, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)
	_, err = mgr.Acquire(ctx, otherPath)
	require.NoError(t, err)
	_, err = mgr.Release(ctx, otherPath)
	require.NoError(t, err)

	snapshot := mgr.Snapshot()
	require.Equal(t, []Info{
		{Path: otherPath, State: "unloaded", Refcount: 0},
		{Path: libPath, State: "loaded", Refcount: 1},
	}, snapshot)
}

func TestLibraryAccessor(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, ok := mgr.Library(libPath)
	require.False(t, ok)

	_, err := mgr.Acquire(ctx, libPath)
	require.NoError(t, err)

	lib, ok := mgr.Library(libPath)
	require.True(t, ok)
	instance, err := lib.Instantiate("foo::Foo")
	require.NoError(t, err)
	require.NotNil(t, instance)

	_, err = lib.Instantiate("foo::Missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), fmt.Sprintf("%q", "foo::Missing"))
}
