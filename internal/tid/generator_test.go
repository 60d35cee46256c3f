package tid

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsys/internal/testutil"
)

func createTestGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()
	return NewGenerator(filepath.Join(t.TempDir(), "tid.lock"), opts...)
}

func TestGenerate_UsesClock(t *testing.T) {
	clock := testutil.NewManualClock(1_700_000_000_000)
	gen := createTestGenerator(t, WithClock(clock))

	id, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000_000), id)
}

func TestGenerate_SameMillisecond(t *testing.T) {
	clock := testutil.NewManualClock(1_700_000_000_000)
	gen := createTestGenerator(t, WithClock(clock))

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := gen.Generate()
		require.NoError(t, err)
		ids = append(ids, id)
	}

	assert.Equal(t, []int64{
		1_700_000_000_000,
		1_700_000_000_001,
		1_700_000_000_002,
		1_700_000_000_003,
		1_700_000_000_004,
	}, ids)
}

func TestGenerate_ClockGoesBackwards(t *testing.T) {
	clock := testutil.NewManualClock(1_700_000_000_000)
	gen := createTestGenerator(t, WithClock(clock))

	first, err := gen.Generate()
	require.NoError(t, err)

	clock.Set(1_600_000_000_000)
	second, err := gen.Generate()
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestGenerate_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tid.lock")
	clock := testutil.NewManualClock(1_700_000_000_000)

	first, err := NewGenerator(path, WithClock(clock)).Generate()
	require.NoError(t, err)

	// A fresh generator on the same file must not reissue the value.
	second, err := NewGenerator(path, WithClock(clock)).Generate()
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1700000000001", string(data))
}

func TestGenerate_ConcurrentGeneratorsShareFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tid.lock")
	clock := testutil.NewManualClock(1_700_000_000_000)

	const workers = 8
	const perWorker = 25

	var mu sync.Mutex
	var all []int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen := NewGenerator(path, WithClock(clock))
			var local []int64
			for i := 0; i < perWorker; i++ {
				id, err := gen.Generate()
				if err != nil {
					t.Errorf("Generate() failed: %v", err)
					return
				}
				if len(local) > 0 && id <= local[len(local)-1] {
					t.Errorf("non-increasing id %d after %d", id, local[len(local)-1])
				}
				local = append(local, id)
			}
			mu.Lock()
			all = append(all, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, all, workers*perWorker)
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i := 1; i < len(all); i++ {
		if all[i] == all[i-1] {
			t.Fatalf("duplicate id %d", all[i])
		}
	}
}

func TestGenerate_SystemClock(t *testing.T) {
	gen := createTestGenerator(t)

	a, err := gen.Generate()
	require.NoError(t, err)
	b, err := gen.Generate()
	require.NoError(t, err)

	assert.Greater(t, b, a)
	assert.True(t, Valid(a))
	decoded, err := FromString(ToBase36(a))
	require.NoError(t, err)
	assert.Equal(t, a, decoded)
}

func TestGenerate_CorruptCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tid.lock")
	require.NoError(t, os.WriteFile(path, []byte("not a number"), 0o644))

	_, err := NewGenerator(path).Generate()
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "read", ge.Op)
}

func TestGenerate_UnopenableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "tid.lock")

	_, err := NewGenerator(path).Generate()
	require.Error(t, err)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "open", ge.Op)
	assert.Equal(t, path, ge.Path)
}

func TestGenerate_OutOfRange(t *testing.T) {
	clock := testutil.NewManualClock(Max + 1)
	gen := createTestGenerator(t, WithClock(clock))

	_, err := gen.Generate()
	require.Error(t, err)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "range", ge.Op)
}
