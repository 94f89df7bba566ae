package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/axewallet/internal/chain"
	"github.com/goodnatureofminers/axewallet/internal/keys"
	"github.com/goodnatureofminers/axewallet/internal/wallet"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{ctx: context.Background(), logger: zap.NewNop(), out: &out}
	parser := flags.NewParser(&a.cfg, flags.HelpFlag)
	require.NoError(t, registerCommands(parser, a))
	_, err := parser.ParseArgs(args)
	return out.String(), err
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "1", want: 100_000_000},
		{in: "0.00000546", want: 546},
		{in: "12.5", want: 1_250_000_000},
		{in: "0.00000001", want: 1},
		{in: "1e-8", want: 1},
		{in: "0.000000019", wantErr: true},
		{in: "1.123456789", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "NaN", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("parseAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestNetworkParams(t *testing.T) {
	cfg := config{Network: "superaxe", PubKeyHashID: -1, ScriptHashID: -1, WIFID: -1}
	got, err := networkParams(cfg)
	require.NoError(t, err)
	require.Equal(t, chain.SuperAxe, got)

	cfg.PubKeyHashID = 30
	cfg.Bech32HRP = "TAXE"
	got, err = networkParams(cfg)
	require.NoError(t, err)
	require.Equal(t, byte(30), got.PubKeyHashAddrID)
	require.Equal(t, chain.SuperAxe.WIFAddrID, got.WIFAddrID)
	require.Equal(t, "taxe", got.Bech32HRP)

	cfg.WIFID = 256
	_, err = networkParams(cfg)
	require.Error(t, err)

	_, err = networkParams(config{Network: "dogecoin", PubKeyHashID: -1, ScriptHashID: -1, WIFID: -1})
	require.ErrorIs(t, err, chain.ErrUnsupportedNetwork)
}

func TestConvertCommand(t *testing.T) {
	out, err := execute(t, "--network", "bitcoin", "convert", "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn")
	require.NoError(t, err)

	var got keys.Addresses
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", got.Legacy)
	require.Equal(t, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", got.SegWit)

	_, err = execute(t, "convert", "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn")
	require.ErrorIs(t, err, keys.ErrInvalidVersion)
}

// TestWalletLifecycle drives the offline commands against one database file.
func TestWalletLifecycle(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "wallet.db")
	png := filepath.Join(dir, "address.png")

	out, err := execute(t, "--db", db, "--password", "p1", "generate", "--save")
	require.NoError(t, err)
	legacy := fieldValue(t, out, "legacy:")
	wif := fieldValue(t, out, "wif:")
	require.True(t, strings.HasPrefix(fieldValue(t, out, "segwit:"), "axe1q"))

	_, err = execute(t, "--db", db, "--password", "p2", "address")
	require.Error(t, err)

	out, err = execute(t, "--db", db, "--password", "p1", "address", "--qr", "--png", png)
	require.NoError(t, err)
	require.Equal(t, legacy, fieldValue(t, out, "legacy:"))
	info, err := os.Stat(png)
	require.NoError(t, err)
	require.Positive(t, info.Size())

	_, err = execute(t, "--db", db, "address")
	require.ErrorIs(t, err, errPasswordRequired)

	_, err = execute(t, "--db", db, "delete")
	require.NoError(t, err)
	_, err = execute(t, "--db", db, "delete")
	require.ErrorIs(t, err, wallet.ErrNoStoredWallet)

	out, err = execute(t, "--db", db, "--password", "p3", "import", "--save", wif)
	require.NoError(t, err)
	require.Equal(t, legacy, fieldValue(t, out, "legacy:"))

	out, err = execute(t, "--db", db, "--password", "p3", "address")
	require.NoError(t, err)
	require.Equal(t, legacy, fieldValue(t, out, "legacy:"))
}

func TestCommandValidation(t *testing.T) {
	db := filepath.Join(t.TempDir(), "wallet.db")

	_, err := execute(t, "--db", db, "generate", "--save")
	require.ErrorIs(t, err, errPasswordRequired)

	_, err = execute(t, "--db", db, "send", "axe1qxyz", "zero")
	require.Error(t, err)

	_, err = execute(t, "--db", db, "watch", "--interval", "0s")
	require.Error(t, err)

	_, err = execute(t, "--db", db, "convert")
	var ferr *flags.Error
	require.True(t, errors.As(err, &ferr))
	require.Equal(t, flags.ErrRequired, ferr.Type)
}

func fieldValue(t *testing.T, out, label string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, label) {
			return strings.TrimSpace(strings.TrimPrefix(line, label))
		}
	}
	t.Fatalf("no %q line in output:\n%s", label, out)
	return ""
}
