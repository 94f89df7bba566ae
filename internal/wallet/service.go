// Package wallet holds the single-key wallet session: key lifecycle,
// combined legacy and segwit balances, spending and encrypted persistence.
package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/axewallet/internal/address"
	"github.com/goodnatureofminers/axewallet/internal/chain"
	"github.com/goodnatureofminers/axewallet/internal/clock"
	"github.com/goodnatureofminers/axewallet/internal/indexer"
	"github.com/goodnatureofminers/axewallet/internal/keys"
	"github.com/goodnatureofminers/axewallet/internal/store"
	"github.com/goodnatureofminers/axewallet/internal/txbuilder"
	"github.com/goodnatureofminers/axewallet/pkg/safe"
	"github.com/goodnatureofminers/axewallet/pkg/workerpool"
)

var (
	// ErrNoWallet is returned by operations that need a key when none is loaded.
	ErrNoWallet = errors.New("no wallet loaded")
	// ErrNoStoredWallet is returned by Load when the storage slot is empty.
	ErrNoStoredWallet = errors.New("no stored wallet")
)

// Balance is the confirmed balance of both addresses of the key.
type Balance struct {
	Legacy uint64 `json:"legacy"`
	SegWit uint64 `json:"segwit"`
	Total  uint64 `json:"total"`
}

func (b Balance) String() string {
	return fmt.Sprintf("%s (legacy %s, segwit %s)", toAmount(b.Total), toAmount(b.Legacy), toAmount(b.SegWit))
}

func toAmount(satoshis uint64) btcutil.Amount {
	v, err := safe.Int64(satoshis)
	if err != nil {
		return btcutil.MaxSatoshi
	}
	return btcutil.Amount(v)
}

// HistoryEntry is one transaction touching either address.
type HistoryEntry struct {
	Address string `json:"address"`
	indexer.AddressTx
}

type storedWallet struct {
	WIF     string `json:"wif"`
	Address string `json:"address"`
}

type target struct {
	address string
	kind    txbuilder.InputType
}

// Option customises a Service.
type Option func(*Service)

// WithRandom replaces the entropy source used by Generate.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.rand = r }
}

// Service is a single wallet session. All methods serialise on one mutex.
type Service struct {
	mu      sync.Mutex
	params  chain.Params
	indexer Indexer
	storage Storage
	vault   *store.Vault
	metrics Metrics
	logger  *zap.Logger
	rand    io.Reader
	key     *keys.Key
}

// NewService constructs an empty session.
func NewService(
	params chain.Params,
	indexer Indexer,
	storage Storage,
	vault *store.Vault,
	metrics Metrics,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		params:  params,
		indexer: indexer,
		storage: storage,
		vault:   vault,
		metrics: metrics,
		logger:  logger.Named("wallet").With(zap.String("network", params.Name)),
		rand:    rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) setKey(k *keys.Key) {
	if s.key != nil && s.key != k {
		s.key.Zero()
	}
	s.key = k
}

// Generate replaces the session key with a freshly generated one.
func (s *Service) Generate() (addrs keys.Addresses, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("generate", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	k, err := keys.Generate(s.rand)
	if err != nil {
		return keys.Addresses{}, err
	}
	s.setKey(k)
	addrs = k.Addresses(s.params)
	s.logger.Info("generated wallet", zap.String("legacy", addrs.Legacy), zap.String("segwit", addrs.SegWit))
	return addrs, nil
}

// ImportWIF replaces the session key with the one encoded in wif.
func (s *Service) ImportWIF(wif string) (addrs keys.Addresses, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("import", err, started)
	}()

	k, err := keys.FromWIF(wif, s.params)
	if err != nil {
		return keys.Addresses{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setKey(k)
	addrs = k.Addresses(s.params)
	s.logger.Info("imported wallet", zap.String("legacy", addrs.Legacy))
	return addrs, nil
}

// Current returns the addresses of the loaded key.
func (s *Service) Current() (keys.Addresses, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return keys.Addresses{}, ErrNoWallet
	}
	return s.key.Addresses(s.params), nil
}

// ExportWIF returns the loaded key in wallet import format.
func (s *Service) ExportWIF() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return "", ErrNoWallet
	}
	return s.key.WIF(s.params), nil
}

func (s *Service) targets() []target {
	return []target{
		{address: s.key.LegacyAddress(s.params).String(), kind: txbuilder.Legacy},
		{address: s.key.SegWitAddress(s.params).String(), kind: txbuilder.SegWit},
	}
}

// CombinedBalance sums the balances of both addresses. An address the
// indexer fails to answer for counts as zero.
func (s *Service) CombinedBalance(ctx context.Context) (bal Balance, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("balance", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return Balance{}, ErrNoWallet
	}
	return s.combinedBalance(ctx)
}

func (s *Service) combinedBalance(ctx context.Context) (Balance, error) {
	targets := s.targets()
	values, err := workerpool.Map(ctx, len(targets), targets, func(ctx context.Context, t target) (uint64, error) {
		v, err := s.indexer.Balance(ctx, t.address)
		if err != nil {
			s.logger.Warn("balance unavailable", zap.String("address", t.address), zap.Error(err))
			return 0, nil
		}
		return v, nil
	})
	if err != nil {
		return Balance{}, err
	}

	total, err := safe.Add(values[0], values[1])
	if err != nil {
		return Balance{}, fmt.Errorf("sum balances: %w", err)
	}
	bal := Balance{Legacy: values[0], SegWit: values[1], Total: total}
	s.metrics.ObserveBalance(bal.Total)
	return bal, nil
}

// AllUTXOs lists the spendable outputs of both addresses, legacy first.
// An address the indexer fails to answer for contributes nothing.
func (s *Service) AllUTXOs(ctx context.Context) (utxos []txbuilder.UTXO, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("utxos", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrNoWallet
	}
	return s.allUTXOs(ctx)
}

func (s *Service) allUTXOs(ctx context.Context) ([]txbuilder.UTXO, error) {
	targets := s.targets()
	lists, err := workerpool.Map(ctx, len(targets), targets, func(ctx context.Context, t target) ([]txbuilder.UTXO, error) {
		raw, err := s.indexer.UTXOs(ctx, t.address)
		if err != nil {
			s.logger.Warn("utxos unavailable", zap.String("address", t.address), zap.Error(err))
			return nil, nil
		}
		out := make([]txbuilder.UTXO, 0, len(raw))
		for _, u := range raw {
			converted, err := convertUTXO(u, t)
			if err != nil {
				s.logger.Warn("skipping utxo",
					zap.String("address", t.address),
					zap.String("txid", u.TxID),
					zap.Uint32("vout", u.Vout),
					zap.Error(err),
				)
				continue
			}
			out = append(out, converted)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	var all []txbuilder.UTXO
	for _, l := range lists {
		all = append(all, l...)
	}
	return all, nil
}

// convertUTXO tags an indexer output with the address it was listed for.
// A reported script that contradicts the tag is rejected.
func convertUTXO(u indexer.UTXO, t target) (txbuilder.UTXO, error) {
	if _, err := txbuilder.ParseTxID(u.TxID); err != nil {
		return txbuilder.UTXO{}, err
	}
	out := txbuilder.UTXO{
		TxID:    u.TxID,
		Vout:    u.Vout,
		Value:   u.Value,
		Address: t.address,
		Type:    t.kind,
	}
	if u.ScriptPubKey == "" {
		return out, nil
	}
	script, err := hex.DecodeString(u.ScriptPubKey)
	if err != nil {
		return txbuilder.UTXO{}, fmt.Errorf("decode script: %w", err)
	}
	kind, err := txbuilder.ClassifyScript(script)
	if err != nil {
		return txbuilder.UTXO{}, err
	}
	if kind != t.kind {
		return txbuilder.UTXO{}, fmt.Errorf("%w: %s script listed for %s address", txbuilder.ErrScriptMismatch, kind, t.kind)
	}
	out.ScriptPubKey = script
	return out, nil
}

// CreateTransaction selects inputs from both addresses, pays amount to
// the destination and returns change to the legacy address.
func (s *Service) CreateTransaction(ctx context.Context, to string, amount, feeRate uint64) (tx *txbuilder.SignedTx, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("sign", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTransaction(ctx, to, amount, feeRate)
}

func (s *Service) createTransaction(ctx context.Context, to string, amount, feeRate uint64) (*txbuilder.SignedTx, error) {
	if s.key == nil {
		return nil, ErrNoWallet
	}
	payScript, err := address.ToScriptPubKey(to, s.params)
	if err != nil {
		return nil, fmt.Errorf("destination %q: %w", to, err)
	}
	changeScript, err := s.key.LegacyAddress(s.params).ScriptPubKey()
	if err != nil {
		return nil, fmt.Errorf("change script: %w", err)
	}

	utxos, err := s.allUTXOs(ctx)
	if err != nil {
		return nil, err
	}
	sel, err := txbuilder.Select(utxos, amount, feeRate)
	if err != nil {
		return nil, err
	}
	unsigned, err := txbuilder.BuildUnsigned(sel, payScript, changeScript)
	if err != nil {
		return nil, err
	}
	signed, err := txbuilder.Sign(unsigned, s.key)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSigned(len(sel.Inputs), unsigned.Fee)
	s.logger.Info("signed transaction",
		zap.String("txid", signed.TxID()),
		zap.Int("inputs", len(sel.Inputs)),
		zap.Uint64("amount", sel.Amount),
		zap.Uint64("fee", unsigned.Fee),
		zap.Uint64("estimated_fee", sel.EstimatedFee),
		zap.Uint64("change", sel.Change),
	)
	return signed, nil
}

// Send creates, signs and broadcasts a payment and returns the indexer's txid.
func (s *Service) Send(ctx context.Context, to string, amount, feeRate uint64) (txid string, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("send", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	signed, err := s.createTransaction(ctx, to, amount, feeRate)
	if err != nil {
		return "", err
	}
	return s.broadcast(ctx, signed)
}

// Broadcast submits an already signed transaction.
func (s *Service) Broadcast(ctx context.Context, signed *txbuilder.SignedTx) (txid string, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("broadcast", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broadcast(ctx, signed)
}

func (s *Service) broadcast(ctx context.Context, signed *txbuilder.SignedTx) (string, error) {
	txid, err := s.indexer.Broadcast(ctx, signed.Hex())
	if err != nil {
		return "", fmt.Errorf("broadcast %s: %w", signed.TxID(), err)
	}
	if txid != signed.TxID() {
		s.logger.Warn("indexer reported a different txid", zap.String("local", signed.TxID()), zap.String("remote", txid))
	}
	return txid, nil
}

// History merges the transaction lists of both addresses, pending first,
// then newest first.
func (s *Service) History(ctx context.Context) (entries []HistoryEntry, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("history", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrNoWallet
	}

	targets := s.targets()
	lists, err := workerpool.Map(ctx, len(targets), targets, func(ctx context.Context, t target) ([]HistoryEntry, error) {
		info, err := s.indexer.AddressInfo(ctx, t.address)
		if err != nil {
			s.logger.Warn("history unavailable", zap.String("address", t.address), zap.Error(err))
			return nil, nil
		}
		out := make([]HistoryEntry, 0, len(info.Transactions))
		for _, tx := range info.Transactions {
			out = append(out, HistoryEntry{Address: t.address, AddressTx: tx})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	for _, l := range lists {
		entries = append(entries, l...)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Pending() != b.Pending() {
			return a.Pending()
		}
		return a.BlockHeight > b.BlockHeight
	})
	return entries, nil
}

// Save encrypts the loaded key with password and writes it to storage,
// replacing any previous blob.
func (s *Service) Save(ctx context.Context, password string) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("save", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return ErrNoWallet
	}

	payload, err := json.Marshal(storedWallet{
		WIF:     s.key.WIF(s.params),
		Address: s.key.LegacyAddress(s.params).String(),
	})
	if err != nil {
		return fmt.Errorf("encode wallet: %w", err)
	}
	blob, err := s.vault.Seal(payload, password)
	if err != nil {
		return fmt.Errorf("seal wallet: %w", err)
	}
	if err := s.storage.Set(ctx, blob); err != nil {
		return fmt.Errorf("store wallet: %w", err)
	}
	s.logger.Info("wallet saved")
	return nil
}

// Load decrypts the stored blob and makes its key the session key.
func (s *Service) Load(ctx context.Context, password string) (addrs keys.Addresses, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("load", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok, err := s.storage.Get(ctx)
	if err != nil {
		return keys.Addresses{}, fmt.Errorf("read wallet: %w", err)
	}
	if !ok {
		return keys.Addresses{}, ErrNoStoredWallet
	}
	payload, err := s.vault.Open(blob, password)
	if err != nil {
		return keys.Addresses{}, err
	}

	var stored storedWallet
	if err := json.Unmarshal(payload, &stored); err != nil {
		return keys.Addresses{}, store.ErrInvalidPasswordOrCorruptedData
	}
	k, err := keys.FromWIF(stored.WIF, s.params)
	if err != nil {
		return keys.Addresses{}, fmt.Errorf("%w: %v", store.ErrInvalidPasswordOrCorruptedData, err)
	}
	addrs = k.Addresses(s.params)
	if stored.Address != "" && stored.Address != addrs.Legacy {
		k.Zero()
		return keys.Addresses{}, fmt.Errorf("%w: stored address does not match key", store.ErrInvalidPasswordOrCorruptedData)
	}

	s.setKey(k)
	s.logger.Info("wallet loaded", zap.String("legacy", addrs.Legacy))
	return addrs, nil
}

// HasStored reports whether the storage slot holds a wallet.
func (s *Service) HasStored(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok, err := s.storage.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("read wallet: %w", err)
	}
	return ok, nil
}

// Delete clears the storage slot and forgets the session key.
func (s *Service) Delete(ctx context.Context) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("delete", err, started)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Delete(ctx); err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if s.key != nil {
		s.key.Zero()
		s.key = nil
	}
	s.logger.Info("wallet deleted")
	return nil
}

// WatchBalance polls the combined balance every interval and calls
// onChange with the first reading and whenever it changes. It returns
// when ctx is done.
func (s *Service) WatchBalance(ctx context.Context, interval time.Duration, onChange func(Balance)) error {
	var (
		last  Balance
		first = true
	)
	return clock.Every(ctx, interval, func(ctx context.Context) error {
		bal, err := s.CombinedBalance(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if first || bal != last {
			onChange(bal)
		}
		first, last = false, bal
		return nil
	})
}
