package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mezonai/cubix/common"
	"github.com/mezonai/cubix/digest"
	"github.com/mezonai/cubix/jsonx"
	"github.com/mezonai/cubix/mempool"
	"github.com/mezonai/cubix/ratelimit"
	"github.com/mezonai/cubix/stack"
	"github.com/mezonai/cubix/store"
	"github.com/mezonai/cubix/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu  sync.Mutex
	txs []types.Transaction
	err error
}

func (f *fakeWriter) TrySubmit(tx types.Transaction) (<-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.txs = append(f.txs, tx)
	done := make(chan error, 1)
	done <- nil
	return done, nil
}

type fakeInspector []stack.LevelReport

func (f fakeInspector) Inspect() []stack.LevelReport { return f }

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/txs", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitTransaction(t *testing.T) {
	writer := &fakeWriter{}
	s := NewAPIServer(writer, fakeInspector{}, nil, nil, "")
	sig := common.EncodeBytesToBase58([]byte("signature"))

	rec := post(t, s.Handler(), `{"from":["alice"],"to":["bob"],"tx_type":"transfer","signature":"`+sig+`","timestamp":42}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, writer.txs, 1)
	want := types.Transaction{
		From:      []string{"alice"},
		To:        []string{"bob"},
		Meta:      types.TransactionMeta{TxType: types.TxTypeTransfer, Signature: []byte("signature")},
		Timestamp: 42,
	}
	assert.Equal(t, want, writer.txs[0])

	var resp TxResp
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, want.Hash(), resp.Hash)
	assert.Equal(t, "queued", resp.Status)
}

func TestSubmitRejectsMalformedBodies(t *testing.T) {
	writer := &fakeWriter{}
	h := NewAPIServer(writer, fakeInspector{}, digest.SHA256, nil, "").Handler()

	for name, body := range map[string]string{
		"empty":         ``,
		"not json":      `{"from":`,
		"missing to":    `{"from":["a"],"tx_type":"transfer"}`,
		"missing type":  `{"from":["a"],"to":["b"]}`,
		"bad signature": `{"from":["a"],"to":["b"],"tx_type":"transfer","signature":"0OIl"}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, post(t, h, body).Code)
		})
	}
	assert.Empty(t, writer.txs)
}

func TestSubmitQueueFull(t *testing.T) {
	h := NewAPIServer(&fakeWriter{err: mempool.ErrQueueFull}, fakeInspector{}, nil, nil, "").Handler()
	rec := post(t, h, `{"from":["a"],"to":["b"],"tx_type":"transfer"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubmitRateLimited(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(&ratelimit.RateLimiterConfig{MaxRequests: 2, WindowSize: time.Minute})
	defer limiter.Stop()
	h := NewAPIServer(&fakeWriter{}, fakeInspector{}, nil, limiter, "").Handler()

	body := `{"from":["a"],"to":["b"],"tx_type":"transfer"}`
	assert.Equal(t, http.StatusAccepted, post(t, h, body).Code)
	assert.Equal(t, http.StatusAccepted, post(t, h, body).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(t, h, body).Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewAPIServer(&fakeWriter{}, fakeInspector{}, nil, nil, "").Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/txs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stacks", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSubmitThroughWriterAndInspect(t *testing.T) {
	st, err := store.OpenStackStore(&store.StoreConfig{Type: store.BoltStoreType, Directory: t.TempDir()})
	require.NoError(t, err)
	manager, err := stack.NewManager(st)
	require.NoError(t, err)
	defer manager.Close()

	writer := mempool.NewWriter(manager, 8)
	writer.Start()
	h := NewAPIServer(writer, manager, manager.Hasher(), nil, "").Handler()

	for _, from := range []string{"a", "b", "c"} {
		rec := post(t, h, `{"from":["`+from+`"],"to":["z"],"tx_type":"asset","timestamp":1}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	writer.Stop()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stacks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var reports []stack.LevelReport
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, 3, reports[0].Blocks)
	assert.Equal(t, 3, reports[0].FilledFaceSlots)
}
