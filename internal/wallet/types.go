package wallet

import (
	"context"
	"time"

	"github.com/goodnatureofminers/axewallet/internal/indexer"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Indexer interface {
		Balance(ctx context.Context, addr string) (uint64, error)
		UTXOs(ctx context.Context, addr string) ([]indexer.UTXO, error)
		AddressInfo(ctx context.Context, addr string) (indexer.AddressInfo, error)
		Broadcast(ctx context.Context, txHex string) (string, error)
	}
	Storage interface {
		Get(ctx context.Context) (string, bool, error)
		Set(ctx context.Context, value string) error
		Delete(ctx context.Context) error
	}
	Metrics interface {
		Observe(operation string, err error, started time.Time)
		ObserveSigned(inputs int, fee uint64)
		ObserveBalance(satoshis uint64)
	}
)
