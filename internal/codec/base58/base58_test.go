package base58

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"testing"

	btcbase58 "github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "single zero", in: "00", want: "1"},
		{name: "leading zeros", in: "00000001", want: "1112"},
		{name: "hello world", in: hex.EncodeToString([]byte("Hello World!")), want: "2NEpo7TZRRrLZSi2U"},
		{
			name: "long payload with many carries",
			in:   hex.EncodeToString([]byte("The quick brown fox jumps over the lazy dog.")),
			want: "USm3fpXnKG5EUBx2ndxBDMPVciP5hGey2Jh4NDv6gmeo1LkMeiKrLJUUBk6Z",
		},
		{name: "all ff", in: "ffffffff", want: "7YXq9G"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := hex.DecodeString(tt.in)
			require.NoError(t, err)

			got := Encode(in)
			require.Equal(t, tt.want, got)

			back, err := Decode(got)
			require.NoError(t, err)
			require.True(t, bytes.Equal(in, back), "Decode(%q) = %x, want %x", got, back, in)
		})
	}
}

func TestEncodeMatchesBtcutil(t *testing.T) {
	rng := rand.New(rand.NewSource(58))
	for i := 0; i < 200; i++ {
		buf := make([]byte, rng.Intn(80))
		rng.Read(buf)
		for j := 0; j < rng.Intn(4); j++ {
			if j < len(buf) {
				buf[j] = 0
			}
		}
		require.Equal(t, btcbase58.Encode(buf), Encode(buf))
	}
}

func TestDecodeInvalidCharacter(t *testing.T) {
	for _, s := range []string{"0", "O", "I", "l", "abc+", "11 1"} {
		_, err := Decode(s)
		require.ErrorIs(t, err, ErrInvalidCharacter, "input %q", s)
	}
}

func TestCheckRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		version := byte(rng.Intn(256))
		payload := make([]byte, rng.Intn(40))
		rng.Read(payload)

		encoded := CheckEncode(version, payload)
		require.Equal(t, btcbase58.CheckEncode(payload, version), encoded)

		gotVersion, gotPayload, err := CheckDecode(encoded)
		require.NoError(t, err)
		require.Equal(t, version, gotVersion)
		require.True(t, bytes.Equal(payload, gotPayload))
	}
}

func TestCheckDecodeCorruption(t *testing.T) {
	encoded := CheckEncode(63, bytes.Repeat([]byte{0x42}, 20))
	for i := 0; i < len(encoded); i++ {
		for _, c := range []byte{'1', 'z', 'A'} {
			if encoded[i] == c {
				continue
			}
			corrupted := []byte(encoded)
			corrupted[i] = c
			_, _, err := CheckDecode(string(corrupted))
			if err == nil {
				t.Fatalf("corrupting position %d with %q was accepted", i, c)
			}
			if !errors.Is(err, ErrInvalidChecksum) && !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("corrupting position %d: unexpected error %v", i, err)
			}
		}
	}
}

func TestCheckDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "empty", in: "", wantErr: ErrInvalidFormat},
		{name: "too short", in: "1111", wantErr: ErrInvalidFormat},
		{name: "bad alphabet", in: "0OIl", wantErr: ErrInvalidCharacter},
		{name: "bad checksum", in: "2NEpo7TZRRrLZSi2U", wantErr: ErrInvalidChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := CheckDecode(tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
