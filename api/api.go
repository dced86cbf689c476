package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mezonai/cubix/common"
	"github.com/mezonai/cubix/digest"
	"github.com/mezonai/cubix/exception"
	"github.com/mezonai/cubix/jsonx"
	"github.com/mezonai/cubix/logx"
	"github.com/mezonai/cubix/mempool"
	"github.com/mezonai/cubix/monitoring"
	"github.com/mezonai/cubix/ratelimit"
	"github.com/mezonai/cubix/stack"
	"github.com/mezonai/cubix/types"
)

const maxBodyBytes = 1 << 20

// TxReq is the body of POST /txs. Signature is base58 and may be empty.
type TxReq struct {
	From      []string `json:"from"`
	To        []string `json:"to"`
	TxType    string   `json:"tx_type"`
	Signature string   `json:"signature"`
	Timestamp uint64   `json:"timestamp"`
}

type TxResp struct {
	Hash   digest.Hash `json:"hash"`
	Status string      `json:"status"`
}

// Submitter queues transactions for the single writer.
type Submitter interface {
	TrySubmit(tx types.Transaction) (<-chan error, error)
}

// Inspector reports the current per-level state.
type Inspector interface {
	Inspect() []stack.LevelReport
}

type APIServer struct {
	Writer     Submitter
	Stacks     Inspector
	Hasher     digest.Hasher
	Limiter    *ratelimit.RateLimiter
	ListenAddr string

	server *http.Server
}

func NewAPIServer(writer Submitter, stacks Inspector, hasher digest.Hasher, limiter *ratelimit.RateLimiter, addr string) *APIServer {
	if hasher == nil {
		hasher = digest.SHA256
	}
	return &APIServer{
		Writer:     writer,
		Stacks:     stacks,
		Hasher:     hasher,
		Limiter:    limiter,
		ListenAddr: addr,
	}
}

// Handler returns the routes served by the API.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/txs", s.handleTxs)
	mux.HandleFunc("/stacks", s.handleStacks)
	mux.HandleFunc("/health", s.handleHealth)
	monitoring.RegisterMetrics(mux)
	return mux
}

func (s *APIServer) Start() {
	s.server = &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logx.Info("API", "API listen on", s.ListenAddr)
	exception.SafeGo("APIServer", func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error("API", "API server stopped:", err)
		}
	})
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *APIServer) handleTxs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := clientAddress(r)
	if s.Limiter != nil {
		if err := s.Limiter.Check(clientIP); err != nil {
			monitoring.RecordRejectedTx(monitoring.TxRateLimited)
			logx.Warn("API", err.Error())
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
	}

	tx, err := decodeTx(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		monitoring.RecordRejectedTx(monitoring.TxMalformed)
		http.Error(w, fmt.Sprintf("Invalid tx: %v", err), http.StatusBadRequest)
		return
	}

	txHash := tx.HashWith(s.Hasher)
	if _, err := s.Writer.TrySubmit(tx); err != nil {
		if !errors.Is(err, mempool.ErrQueueFull) {
			monitoring.RecordRejectedTx(monitoring.TxRejectedUnknown)
		}
		logx.Warn("API", fmt.Sprintf("Submission refused | tx=%s | ip=%s | err=%v", txHash.Short(), clientIP, err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, TxResp{Hash: txHash, Status: "queued"})
}

func decodeTx(body io.Reader) (types.Transaction, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return types.Transaction{}, err
	}
	if len(data) == 0 {
		return types.Transaction{}, fmt.Errorf("empty body")
	}

	var req TxReq
	if err := jsonx.Unmarshal(data, &req); err != nil {
		return types.Transaction{}, err
	}
	if len(req.From) == 0 || len(req.To) == 0 {
		return types.Transaction{}, fmt.Errorf("from and to are required")
	}
	if req.TxType == "" {
		return types.Transaction{}, fmt.Errorf("tx_type is required")
	}
	sig, err := common.DecodeSignature(req.Signature)
	if err != nil {
		return types.Transaction{}, err
	}

	tx := types.Transaction{
		From:      req.From,
		To:        req.To,
		Meta:      types.TransactionMeta{TxType: req.TxType, Signature: sig},
		Timestamp: req.Timestamp,
	}
	if err := tx.Validate(); err != nil {
		return types.Transaction{}, err
	}
	return tx, nil
}

func (s *APIServer) handleStacks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.Stacks.Inspect())
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(v); err != nil {
		logx.Error("API", "Failed to encode response:", err)
	}
}

func clientAddress(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
