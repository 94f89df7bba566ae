package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/axewallet/internal/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, metrics.NewIndexerClient("test"), zap.NewNop())
}

func TestClient_Balance(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    uint64
		wantErr error
	}{
		{name: "ok", status: http.StatusOK, body: `{"balance":123456789}`, want: 123456789},
		{name: "missing field is zero", status: http.StatusOK, body: `{}`, want: 0},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: ErrUnavailable},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/api/address/SaddrX/balance" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			got, err := c.Balance(context.Background(), "SaddrX")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClient_UTXOs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/address/axe1qabc/utxos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[
			{"txid":"aa","vout":1,"value":5000,"scriptPubKey":"76a914"},
			{"txid":"bb","vout":0,"value":7000,"script_pubkey":"0014"},
			{"txid":"cc","vout":2,"value":9000}
		]`)
	})

	got, err := c.UTXOs(context.Background(), "axe1qabc")
	require.NoError(t, err)
	require.Equal(t, []UTXO{
		{TxID: "aa", Vout: 1, Value: 5000, ScriptPubKey: "76a914"},
		{TxID: "bb", Vout: 0, Value: 7000, ScriptPubKey: "0014"},
		{TxID: "cc", Vout: 2, Value: 9000},
	}, got)
}

func TestClient_Broadcast(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		want         string
		wantErr      error
		wantRejected string
	}{
		{name: "accepted", status: http.StatusOK, body: `{"txid":"abcd"}`, want: "abcd"},
		{name: "rejected", status: http.StatusOK, body: `{"error":"bad-txns-inputs-missingorspent"}`, wantErr: ErrRejected, wantRejected: "bad-txns-inputs-missingorspent"},
		{name: "rejected with 400", status: http.StatusBadRequest, body: `{"error":"dust"}`, wantErr: ErrRejected, wantRejected: "dust"},
		{name: "gateway error", status: http.StatusBadGateway, body: `upstream down`, wantErr: ErrUnavailable},
		{name: "no txid", status: http.StatusOK, body: `{}`, wantErr: ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/broadcast" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("unexpected content type %q", ct)
				}
				var req broadcastRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Hex != "0100" {
					t.Errorf("unexpected body %+v, err %v", req, err)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			got, err := c.Broadcast(context.Background(), "0100")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var rejected *RejectedError
				if tt.wantRejected != "" {
					require.True(t, errors.As(err, &rejected))
					require.Equal(t, tt.wantRejected, rejected.Message)
				} else {
					require.False(t, errors.As(err, &rejected))
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClient_AddressInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/address/Saddr" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{
			"address":"Saddr","balance":10,"received":30,"sent":20,
			"transactions":[
				{"txid":"t1","value":30,"is_input":false,"block_height":12,"block_time":1700000000},
				{"txid":"t2","value":20,"is_input":true,"block_height":null,"block_time":null}
			]
		}`)
	})

	info, err := c.AddressInfo(context.Background(), "Saddr")
	require.NoError(t, err)
	require.Equal(t, uint64(10), info.Balance)
	require.Len(t, info.Transactions, 2)
	require.False(t, info.Transactions[0].Pending())
	require.True(t, info.Transactions[1].Pending())
	require.True(t, info.Transactions[1].IsInput)
}

func TestClient_Health(t *testing.T) {
	var healthy atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	require.ErrorIs(t, c.Health(context.Background()), ErrUnavailable)
	healthy.Store(true)
	require.NoError(t, c.Health(context.Background()))
}

func TestClient_TransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond, RPS: 100}, metrics.NewIndexerClient("test"), zap.NewNop())
	_, err := c.Balance(context.Background(), "Saddr")
	require.ErrorIs(t, err, ErrUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.UTXOs(ctx, "Saddr")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, context.Canceled)

	closed := New(Config{BaseURL: "http://127.0.0.1:1"}, metrics.NewIndexerClient("test"), zap.NewNop())
	_, err = closed.Broadcast(context.Background(), "00")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{}, metrics.NewIndexerClient(""), zap.NewNop())
	require.Equal(t, DefaultBaseURL, c.baseURL)
	require.Equal(t, "/api/address/a%2Fb/utxos", addressPath("a/b", "/utxos"))
}
