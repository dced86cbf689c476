package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mezonai/cubix/digest"
	stackerrors "github.com/mezonai/cubix/errors"
	"github.com/mezonai/cubix/stack"
	"github.com/mezonai/cubix/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTx(i int) types.Transaction {
	return types.Transaction{
		From:      []string{fmt.Sprintf("from%d", i)},
		To:        []string{fmt.Sprintf("to%d", i)},
		Meta:      types.TransactionMeta{TxType: types.TxTypeTransfer, Signature: []byte(fmt.Sprintf("sig%d", i))},
		Timestamp: uint64(1700000000 + i),
	}
}

func TestStackStoreRoundTrip(t *testing.T) {
	for _, kind := range []StoreType{BoltStoreType, LevelDBStoreType} {
		t.Run(string(kind), func(t *testing.T) {
			cfg := &StoreConfig{Type: kind, Directory: filepath.Join(t.TempDir(), "state")}

			s, err := OpenStackStore(cfg)
			require.NoError(t, err)
			stacks, found, err := s.Load()
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, stacks)

			m, err := stack.NewManager(s)
			require.NoError(t, err)
			for i := 0; i < 60; i++ {
				require.NoError(t, m.AddTransaction(context.Background(), testTx(i)))
			}
			want := m.Snapshot()
			require.NoError(t, m.Close())

			s, err = OpenStackStore(cfg)
			require.NoError(t, err)
			restored, err := stack.NewManager(s)
			require.NoError(t, err)
			defer restored.Close()

			assert.Equal(t, want, restored.Snapshot())
			assert.Equal(t, 60, restored.BlockCount())

			// the restored manager keeps appending where the log left off
			require.NoError(t, restored.AddTransaction(context.Background(), testTx(60)))
			count, err := s.TxLog().Count()
			require.NoError(t, err)
			assert.Equal(t, uint64(61), count)
		})
	}
}

func TestRoundTripKeepsIdentifiersAndDigests(t *testing.T) {
	cfg := &StoreConfig{Type: BoltStoreType, Directory: t.TempDir()}
	s, err := OpenStackStore(cfg)
	require.NoError(t, err)
	m, err := stack.NewManager(s)
	require.NoError(t, err)

	bad := types.Transaction{From: []string{"\xff\xfeabc"}, To: []string{"bob"}, Meta: types.TransactionMeta{TxType: types.TxTypeTransfer}}
	err = m.AddTransaction(context.Background(), bad)
	assert.True(t, stderrors.Is(err, stackerrors.ErrInvalidTransaction))
	assert.Equal(t, 0, m.BlockCount())

	unsigned := types.Transaction{
		From: []string{"héllo", "日本"},
		To:   []string{"bob"},
		Meta: types.TransactionMeta{TxType: types.TxTypeAsset, Signature: []byte{}},
	}
	require.NoError(t, m.AddTransaction(context.Background(), unsigned))
	require.NoError(t, m.AddTransaction(context.Background(), testTx(1)))
	want := m.Snapshot()
	require.NoError(t, m.Close())

	s, err = OpenStackStore(cfg)
	require.NoError(t, err)
	restored, err := stack.NewManager(s)
	require.NoError(t, err)
	defer restored.Close()

	got := restored.Snapshot()
	require.Equal(t, want, got)
	base := got[0]
	for i := range base.Blocks {
		h := base.Blocks[i].Hash()
		placed := false
		for j := range base.Faces {
			placed = placed || base.Faces[j].Slots[digest.FaceSlot(h)] == h
		}
		assert.True(t, placed, "block %d digest no longer matches a face slot", i)
	}
}

func TestTxLogRecordsAcceptedOrder(t *testing.T) {
	s, err := OpenStackStore(&StoreConfig{Type: BoltStoreType, Directory: t.TempDir()})
	require.NoError(t, err)
	m, err := stack.NewManager(s)
	require.NoError(t, err)
	defer m.Close()

	const n = txLogReadChunk + 10
	for i := 0; i < n; i++ {
		require.NoError(t, m.AddTransaction(context.Background(), testTx(i)))
	}

	log := s.TxLog()
	count, err := log.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(n), count)

	tx, ok, err := log.Get(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testTx(3), *tx)

	_, ok, err = log.Get(n)
	require.NoError(t, err)
	assert.False(t, ok)

	var seen []uint64
	err = log.Iterate(func(seq uint64, tx *types.Transaction) bool {
		want := testTx(int(seq))
		assert.Equal(t, want.Hash(), tx.Hash())
		seen = append(seen, seq)
		return true
	})
	require.NoError(t, err)
	assert.Len(t, seen, n)
	assert.Equal(t, uint64(n-1), seen[n-1])

	visited := 0
	err = log.Iterate(func(uint64, *types.Transaction) bool {
		visited++
		return visited < 5
	})
	require.NoError(t, err)
	assert.Equal(t, 5, visited)
}

func TestCreateProviderOnUnwritablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := CreateProvider(&StoreConfig{Type: BoltStoreType, Directory: filepath.Join(blocker, "sub")})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, stackerrors.ErrIO), "got %v", err)
}

func TestCreateProviderRedisUnreachable(t *testing.T) {
	_, err := CreateProvider(&StoreConfig{Type: RedisStoreType, RedisAddr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, stackerrors.ErrDatabase), "got %v", err)
}

func TestStoreConfigValidate(t *testing.T) {
	cases := []struct {
		cfg     StoreConfig
		wantErr bool
	}{
		{StoreConfig{Type: BoltStoreType, Directory: "data"}, false},
		{StoreConfig{Type: LevelDBStoreType, Directory: "data"}, false},
		{StoreConfig{Type: RedisStoreType, RedisAddr: "localhost:6379"}, false},
		{StoreConfig{Type: BoltStoreType}, true},
		{StoreConfig{Type: RedisStoreType}, true},
		{StoreConfig{Directory: "data"}, true},
		{StoreConfig{Type: "rocksdb", Directory: "data"}, true},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if c.wantErr {
			assert.Error(t, err, "%+v", c.cfg)
		} else {
			assert.NoError(t, err, "%+v", c.cfg)
		}
	}
}

func TestCorruptSnapshotIsDatabaseError(t *testing.T) {
	provider, err := CreateProvider(&StoreConfig{Type: LevelDBStoreType, Directory: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, provider.Put([]byte(KeyStackState), []byte("{not json")))

	s, err := NewGenericStackStore(provider)
	require.NoError(t, err)
	defer s.Close()

	_, err = stack.NewManager(s)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, stackerrors.ErrDatabase), "got %v", err)
}
