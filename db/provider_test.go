package db

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProviders(t *testing.T) map[string]DatabaseProvider {
	t.Helper()
	bolt, err := NewBoltProvider(t.TempDir())
	require.NoError(t, err)
	level, err := NewLevelDBProvider(t.TempDir())
	require.NoError(t, err)

	providers := map[string]DatabaseProvider{"bolt": bolt, "leveldb": level}
	t.Cleanup(func() {
		for _, p := range providers {
			_ = p.Close()
		}
	})
	return providers
}

func TestProviderBasicOperations(t *testing.T) {
	for name, p := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			value, err := p.Get([]byte("missing"))
			require.NoError(t, err)
			assert.Nil(t, value)

			require.NoError(t, p.Put([]byte("k1"), []byte("v1")))
			require.NoError(t, p.Put([]byte("k2"), []byte("v2")))

			value, err = p.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), value)

			ok, err := p.Has([]byte("k2"))
			require.NoError(t, err)
			assert.True(t, ok)

			values, err := p.GetBatch([][]byte{[]byte("k1"), []byte("k2"), []byte("k3")})
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"k1": []byte("v1"), "k2": []byte("v2")}, values)

			require.NoError(t, p.Delete([]byte("k1")))
			ok, err = p.Has([]byte("k1"))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBatchAppliesAllOrNothing(t *testing.T) {
	for name, p := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, p.Put([]byte("stale"), []byte("x")))
			tm := NewDBTxManager(p)

			err := tm.WithBatch(func(batch DatabaseBatch) error {
				batch.Put([]byte("a"), []byte("1"))
				batch.Put([]byte("b"), []byte("2"))
				batch.Delete([]byte("stale"))
				return nil
			})
			require.NoError(t, err)

			values, err := p.GetBatch([][]byte{[]byte("a"), []byte("b"), []byte("stale")})
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, values)

			err = tm.WithBatch(func(batch DatabaseBatch) error {
				batch.Put([]byte("a"), []byte("overwritten"))
				return fmt.Errorf("abort")
			})
			require.Error(t, err)

			value, err := p.Get([]byte("a"))
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), value)
		})
	}
}

func TestBoltReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	p, err := NewBoltProvider(dir)
	require.NoError(t, err)
	require.NoError(t, p.Put([]byte("k"), []byte("v")))
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "second close is a no-op")

	p, err = NewBoltProvider(dir)
	require.NoError(t, err)
	defer p.Close()

	value, err := p.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestConvertKeyToHumanReadable(t *testing.T) {
	key := make([]byte, len("tx_log:")+8)
	copy(key, "tx_log:")
	binary.BigEndian.PutUint64(key[len("tx_log:"):], 42)

	assert.Equal(t, "tx_log:42", convertKeyToHumanReadable(key))
	assert.Equal(t, "stack_state:levels", convertKeyToHumanReadable([]byte("stack_state:levels")))
	assert.Equal(t, "tx_log:short", convertKeyToHumanReadable([]byte("tx_log:short")))
}
