package indexer

import "encoding/json"

// UTXO is an unspent output as reported by the indexer.
type UTXO struct {
	TxID  string `json:"txid"`
	Vout  uint32 `json:"vout"`
	Value uint64 `json:"value"`
	// ScriptPubKey is hex; the API uses either scriptPubKey or script_pubkey.
	ScriptPubKey string `json:"scriptPubKey"`
}

// UnmarshalJSON accepts both spellings of the script field.
func (u *UTXO) UnmarshalJSON(data []byte) error {
	var raw struct {
		TxID         string `json:"txid"`
		Vout         uint32 `json:"vout"`
		Value        uint64 `json:"value"`
		ScriptPubKey string `json:"scriptPubKey"`
		ScriptSnake  string `json:"script_pubkey"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = UTXO{TxID: raw.TxID, Vout: raw.Vout, Value: raw.Value, ScriptPubKey: raw.ScriptPubKey}
	if u.ScriptPubKey == "" {
		u.ScriptPubKey = raw.ScriptSnake
	}
	return nil
}

// AddressTx is one history entry of an address.
type AddressTx struct {
	TxID        string `json:"txid"`
	Value       uint64 `json:"value"`
	IsInput     bool   `json:"is_input"`
	BlockHeight uint64 `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
}

// Pending reports whether the transaction is not yet in a block.
func (t AddressTx) Pending() bool { return t.BlockHeight == 0 && t.BlockTime == 0 }

// AddressInfo is the GET /api/address/{addr} response.
type AddressInfo struct {
	Address      string      `json:"address"`
	Balance      uint64      `json:"balance"`
	Received     uint64      `json:"received"`
	Sent         uint64      `json:"sent"`
	Transactions []AddressTx `json:"transactions"`
	UTXOs        []UTXO      `json:"utxos"`
}

type broadcastRequest struct {
	Hex string `json:"hex"`
}

type broadcastResponse struct {
	TxID  string `json:"txid"`
	Error string `json:"error"`
}
