package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/axewallet/internal/keys"
	"github.com/goodnatureofminers/axewallet/internal/txbuilder"
	"github.com/goodnatureofminers/axewallet/internal/wallet"
	"github.com/goodnatureofminers/axewallet/pkg/safe"
)

var errPasswordRequired = errors.New("password required, set --password or AXEWALLET_PASSWORD")

type app struct {
	cfg    config
	ctx    context.Context
	logger *zap.Logger
	out    io.Writer
}

// run builds the environment for one command and releases it afterwards.
func (a *app) run(fn func(ctx context.Context, e *env) error) (err error) {
	e, err := newEnv(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close storage: %w", cerr)
		}
	}()
	return fn(a.ctx, e)
}

func (a *app) unlock(ctx context.Context, e *env) (keys.Addresses, error) {
	if a.cfg.Password == "" {
		return keys.Addresses{}, errPasswordRequired
	}
	return e.wallet.Load(ctx, a.cfg.Password)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printAddresses(addrs keys.Addresses) {
	fmt.Fprintf(a.out, "legacy:  %s\nsegwit:  %s\npubkey:  %s\n", addrs.Legacy, addrs.SegWit, addrs.PublicKeyHex)
}

func registerCommands(parser *flags.Parser, a *app) error {
	commands := []struct {
		name, short, long string
		data              any
	}{
		{"generate", "Generate a new key", "Generate a new key, print its addresses and WIF and optionally save it encrypted", &generateCommand{app: a}},
		{"import", "Import a WIF key", "Import a key in wallet import format and optionally save it encrypted", &importCommand{app: a}},
		{"convert", "Derive addresses from a WIF", "Print the legacy and segwit addresses of a WIF key without touching storage", &convertCommand{app: a}},
		{"address", "Show the stored wallet addresses", "Show the addresses of the stored wallet, optionally as a QR code", &addressCommand{app: a}},
		{"balance", "Show the combined balance", "Show the confirmed balance of the legacy and segwit addresses", &balanceCommand{app: a}},
		{"utxos", "List spendable outputs", "List the unspent outputs of both addresses in selection order", &utxosCommand{app: a}},
		{"history", "List transactions", "List transactions touching either address, pending first", &historyCommand{app: a}},
		{"send", "Send coins", "Build, sign and broadcast a payment", &sendCommand{app: a}},
		{"broadcast", "Broadcast a raw transaction", "Submit a signed transaction hex to the indexer", &broadcastCommand{app: a}},
		{"delete", "Delete the stored wallet", "Remove the encrypted wallet from storage", &deleteCommand{app: a}},
		{"watch", "Watch the balance", "Poll the balance, print changes and serve metrics", &watchCommand{app: a}},
		{"health", "Check the indexer", "Check that the indexer API answers", &healthCommand{app: a}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return fmt.Errorf("add command %s: %w", c.name, err)
		}
	}
	return nil
}

var errSubSatoshi = errors.New("amount has more than 8 decimal places")

// parseAmount converts a decimal coin amount to satoshis. Amounts finer than
// one satoshi are rejected rather than rounded.
func parseAmount(s string) (uint64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if r, ok := new(big.Rat).SetString(s); !ok || !r.Mul(r, big.NewRat(btcutil.SatoshiPerBitcoin, 1)).IsInt() {
		return 0, fmt.Errorf("parse amount %q: %w", s, errSubSatoshi)
	}
	amt, err := btcutil.NewAmount(f)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if amt <= 0 {
		return 0, fmt.Errorf("amount %q must be positive", s)
	}
	return safe.Uint64(amt)
}

func formatSats(v uint64) string {
	n, err := safe.Int64(v)
	if err != nil {
		return strconv.FormatUint(v, 10) + " sat"
	}
	return btcutil.Amount(n).String()
}

type generateCommand struct {
	app  *app
	Save bool `long:"save" description:"encrypt and store the new key"`
}

func (c *generateCommand) Execute(_ []string) error {
	if c.Save && c.app.cfg.Password == "" {
		return errPasswordRequired
	}
	return c.app.run(func(ctx context.Context, e *env) error {
		addrs, err := e.wallet.Generate()
		if err != nil {
			return err
		}
		wif, err := e.wallet.ExportWIF()
		if err != nil {
			return err
		}
		c.app.printAddresses(addrs)
		fmt.Fprintf(c.app.out, "wif:     %s\n", wif)
		if !c.Save {
			return nil
		}
		return e.wallet.Save(ctx, c.app.cfg.Password)
	})
}

type importCommand struct {
	app  *app
	Save bool `long:"save" description:"encrypt and store the imported key"`
	Args struct {
		WIF string `positional-arg-name:"wif" required:"yes"`
	} `positional-args:"yes"`
}

func (c *importCommand) Execute(_ []string) error {
	if c.Save && c.app.cfg.Password == "" {
		return errPasswordRequired
	}
	return c.app.run(func(ctx context.Context, e *env) error {
		addrs, err := e.wallet.ImportWIF(c.Args.WIF)
		if err != nil {
			return err
		}
		c.app.printAddresses(addrs)
		if !c.Save {
			return nil
		}
		return e.wallet.Save(ctx, c.app.cfg.Password)
	})
}

type convertCommand struct {
	app  *app
	Args struct {
		WIF string `positional-arg-name:"wif" required:"yes"`
	} `positional-args:"yes"`
}

func (c *convertCommand) Execute(_ []string) error {
	params, err := networkParams(c.app.cfg)
	if err != nil {
		return err
	}
	addrs, err := keys.ConvertWIFToAddresses(c.Args.WIF, params)
	if err != nil {
		return err
	}
	return c.app.printJSON(addrs)
}

type addressCommand struct {
	app    *app
	QR     bool   `long:"qr" description:"print the address as a QR code"`
	SegWit bool   `long:"segwit" description:"use the segwit address for the QR code"`
	PNG    string `long:"png" description:"also write the QR code to this PNG file"`
}

func (c *addressCommand) Execute(_ []string) error {
	return c.app.run(func(ctx context.Context, e *env) error {
		addrs, err := c.app.unlock(ctx, e)
		if err != nil {
			return err
		}
		c.app.printAddresses(addrs)
		if !c.QR && c.PNG == "" {
			return nil
		}

		target := addrs.Legacy
		if c.SegWit {
			target = addrs.SegWit
		}
		if c.QR {
			qr, err := qrcode.New(target, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("create QR code: %w", err)
			}
			fmt.Fprint(c.app.out, qr.ToSmallString(false))
		}
		if c.PNG != "" {
			if err := qrcode.WriteFile(target, qrcode.Medium, 256, c.PNG); err != nil {
				return fmt.Errorf("write QR code: %w", err)
			}
		}
		return nil
	})
}

type balanceCommand struct {
	app *app
}

func (c *balanceCommand) Execute(_ []string) error {
	return c.app.run(func(ctx context.Context, e *env) error {
		if _, err := c.app.unlock(ctx, e); err != nil {
			return err
		}
		bal, err := e.wallet.CombinedBalance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, bal)
		return nil
	})
}

type utxosCommand struct {
	app *app
}

func (c *utxosCommand) Execute(_ []string) error {
	return c.app.run(func(ctx context.Context, e *env) error {
		if _, err := c.app.unlock(ctx, e); err != nil {
			return err
		}
		utxos, err := e.wallet.AllUTXOs(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.app.out, 0, 4, 2, ' ', 0)
		for _, u := range utxos {
			fmt.Fprintf(w, "%s:%d\t%s\t%s\t%s\n", u.TxID, u.Vout, formatSats(u.Value), u.Type, u.Address)
		}
		return w.Flush()
	})
}

type historyCommand struct {
	app *app
}

func (c *historyCommand) Execute(_ []string) error {
	return c.app.run(func(ctx context.Context, e *env) error {
		if _, err := c.app.unlock(ctx, e); err != nil {
			return err
		}
		entries, err := e.wallet.History(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.app.out, 0, 4, 2, ' ', 0)
		for _, h := range entries {
			direction, when := "in", "pending"
			if h.IsInput {
				direction = "out"
			}
			if !h.Pending() {
				when = time.Unix(h.BlockTime, 0).UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", when, direction, formatSats(h.Value), h.TxID, h.Address)
		}
		return w.Flush()
	})
}

type sendCommand struct {
	app     *app
	FeeRate uint64 `long:"fee-rate" description:"fee rate in satoshis per byte" default:"1"`
	Verify  bool   `long:"verify" description:"run every input through the script engine before broadcasting"`
	DryRun  bool   `long:"dry-run" description:"print the signed transaction instead of broadcasting it"`
	Args    struct {
		To     string `positional-arg-name:"address" required:"yes"`
		Amount string `positional-arg-name:"amount" required:"yes"`
	} `positional-args:"yes"`
}

func (c *sendCommand) Execute(_ []string) error {
	amount, err := parseAmount(c.Args.Amount)
	if err != nil {
		return err
	}
	return c.app.run(func(ctx context.Context, e *env) error {
		if _, err := c.app.unlock(ctx, e); err != nil {
			return err
		}
		signed, err := e.wallet.CreateTransaction(ctx, c.Args.To, amount, c.FeeRate)
		if err != nil {
			return err
		}
		if c.Verify {
			if err := txbuilder.Verify(signed); err != nil {
				return fmt.Errorf("verify signed transaction: %w", err)
			}
		}
		fmt.Fprintf(c.app.out, "fee:   %s\n", formatSats(signed.Unsigned().Fee))
		if c.DryRun {
			fmt.Fprintf(c.app.out, "txid:  %s\nhex:   %s\n", signed.TxID(), signed.Hex())
			return nil
		}
		txid, err := e.wallet.Broadcast(ctx, signed)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "txid:  %s\n", txid)
		return nil
	})
}

type broadcastCommand struct {
	app  *app
	Args struct {
		Hex string `positional-arg-name:"hex" required:"yes"`
	} `positional-args:"yes"`
}

func (c *broadcastCommand) Execute(_ []string) error {
	return c.app.run(func(ctx context.Context, e *env) error {
		txid, err := e.client.Broadcast(ctx, c.Args.Hex)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, txid)
		return nil
	})
}

type deleteCommand struct {
	app *app
}

func (c *deleteCommand) Execute(_ []string) error {
	return c.app.run(func(ctx context.Context, e *env) error {
		ok, err := e.wallet.HasStored(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return wallet.ErrNoStoredWallet
		}
		return e.wallet.Delete(ctx)
	})
}

type watchCommand struct {
	app      *app
	Interval time.Duration `long:"interval" description:"polling interval" default:"30s"`
}

func (c *watchCommand) Execute(_ []string) error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	return c.app.run(func(ctx context.Context, e *env) error {
		addrs, err := c.app.unlock(ctx, e)
		if err != nil {
			return err
		}
		startMetricsServer(ctx, c.app.cfg.MetricsAddr, c.app.logger)

		c.app.logger.Info("watching balance", zap.String("legacy", addrs.Legacy), zap.Duration("interval", c.Interval))
		err = e.wallet.WatchBalance(ctx, c.Interval, func(b wallet.Balance) {
			fmt.Fprintf(c.app.out, "%s  %s\n", time.Now().UTC().Format(time.RFC3339), b)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

type healthCommand struct {
	app *app
}

func (c *healthCommand) Execute(_ []string) error {
	return c.app.run(func(ctx context.Context, e *env) error {
		if err := e.client.Health(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.app.out, "ok")
		return nil
	})
}
