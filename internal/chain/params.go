// Package chain holds the per-network address prefixes the wallet is parameterised by.
package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// ErrUnsupportedNetwork is returned for a network name with no registered parameters.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// Params is the immutable set of version bytes and prefixes used for encoding.
type Params struct {
	Name             string
	PubKeyHashAddrID byte
	ScriptHashAddrID byte
	WIFAddrID        byte
	Bech32HRP        string
}

// SuperAxe is the default network.
var SuperAxe = Params{
	Name:             "superaxe",
	PubKeyHashAddrID: 63,
	ScriptHashAddrID: 75,
	WIFAddrID:        191,
	Bech32HRP:        "axe",
}

func fromChainCfg(name string, p *chaincfg.Params) Params {
	return Params{
		Name:             name,
		PubKeyHashAddrID: p.PubKeyHashAddrID,
		ScriptHashAddrID: p.ScriptHashAddrID,
		WIFAddrID:        p.PrivateKeyID,
		Bech32HRP:        p.Bech32HRPSegwit,
	}
}

// ForNetwork resolves a network name or alias to its parameters.
func ForNetwork(network string) (Params, error) {
	switch strings.ToLower(network) {
	case "", "superaxe", "axe":
		return SuperAxe, nil
	case "main", "mainnet", "bitcoin":
		return fromChainCfg("bitcoin", &chaincfg.MainNetParams), nil
	case "testnet", "testnet3":
		return fromChainCfg("testnet3", &chaincfg.TestNet3Params), nil
	case "regtest":
		return fromChainCfg("regtest", &chaincfg.RegressionNetParams), nil
	case "signet":
		return fromChainCfg("signet", &chaincfg.SigNetParams), nil
	default:
		return Params{}, fmt.Errorf("%w %q", ErrUnsupportedNetwork, network)
	}
}

// Overrides replaces individual prefixes of a base parameter set. Nil fields keep the base value.
type Overrides struct {
	PubKeyHashAddrID *byte
	ScriptHashAddrID *byte
	WIFAddrID        *byte
	Bech32HRP        string
}

// Apply returns a copy of p with the non-empty overrides applied.
func (p Params) Apply(o Overrides) Params {
	out := p
	if o.PubKeyHashAddrID != nil {
		out.PubKeyHashAddrID = *o.PubKeyHashAddrID
	}
	if o.ScriptHashAddrID != nil {
		out.ScriptHashAddrID = *o.ScriptHashAddrID
	}
	if o.WIFAddrID != nil {
		out.WIFAddrID = *o.WIFAddrID
	}
	if o.Bech32HRP != "" {
		out.Bech32HRP = strings.ToLower(o.Bech32HRP)
	}
	if out != p {
		out.Name = p.Name + "-custom"
	}
	return out
}

// ChainConfig returns btcd network parameters carrying the same prefixes,
// for interoperating with btcutil address and WIF types.
func (p Params) ChainConfig() *chaincfg.Params {
	cfg := chaincfg.MainNetParams
	cfg.Name = p.Name
	cfg.PubKeyHashAddrID = p.PubKeyHashAddrID
	cfg.ScriptHashAddrID = p.ScriptHashAddrID
	cfg.PrivateKeyID = p.WIFAddrID
	cfg.Bech32HRPSegwit = p.Bech32HRP
	return &cfg
}
