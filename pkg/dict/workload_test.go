package dict

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/kvlog/pkg/broker"
	"github.com/cuemby/kvlog/pkg/types"
)

// TestRandomWorkloadEquivalence drives a large number of randomly
// chosen insert/update/delete operations against both a dict instance
// and a plain Go map acting as the reference, over a small universe of
// keys so collisions (updates and deletes of existing keys) are
// common. After the run, every key's presence and value must agree.
func TestRandomWorkloadEquivalence(t *testing.T) {
	const opCount = 10000
	const keyUniverse = 64

	ctx := context.Background()
	d := newTestDict(t, broker.NewMemoryLog(), Options{CatchupDelay: 0})

	reference := make(map[string][]byte)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < opCount; i++ {
		key := []byte{byte(rng.Intn(keyUniverse))}

		switch rng.Intn(3) {
		case 0, 1: // insert / update, weighted same as a blind write
			value := make([]byte, 16)
			rng.Read(value)
			require.NoError(t, d.Set(ctx, key, value, nil))
			reference[string(key)] = value
		case 2: // delete
			require.NoError(t, d.Delete(ctx, key))
			delete(reference, string(key))
		}
	}

	keys, err := d.Keys(ctx)
	require.NoError(t, err)

	gotKeys := make([]string, len(keys))
	for i, k := range keys {
		gotKeys[i] = string(k)
	}
	sort.Strings(gotKeys)

	wantKeys := make([]string, 0, len(reference))
	for k := range reference {
		wantKeys = append(wantKeys, k)
	}
	sort.Strings(wantKeys)

	require.Equal(t, wantKeys, gotKeys)

	for k, want := range reference {
		got, err := d.Get(ctx, []byte(k))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	for _, k := range gotKeys {
		if _, stillWanted := reference[k]; !stillWanted {
			_, err := d.Get(ctx, []byte(k))
			require.ErrorIs(t, err, types.ErrNotFound)
		}
	}
}
