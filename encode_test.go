package cryptotax

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"
)

func TestDecodeTransactions(t *testing.T) {
	input := `{"id":"t1","timestamp":"2023-01-10T09:00:00Z","type":"BUY","chain":"bitcoin","token_in":{"symbol":"EUR","chain":"fiat"},"amount_in":"100","token_out":{"symbol":"BTC","chain":"bitcoin"},"amount_out":"0.005"}

{"id":"t2","timestamp":"2023-01-11T09:00:00Z","type":"SELL","source":"kraken","token_in":{"symbol":"BTC","chain":"bitcoin"},"amount_in":0.001}
{"id":"t3", not json
`
	txs, diags, err := DecodeTransactions(strings.NewReader(input), "ledger")
	if err != nil {
		t.Fatalf("DecodeTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("DecodeTransactions() = %d transactions, want 2", len(txs))
	}
	if txs[0].Source != "ledger" || txs[1].Source != "kraken" {
		t.Errorf("sources = %q, %q, want ledger, kraken", txs[0].Source, txs[1].Source)
	}
	if !txs[0].AmountOut.Equal(Q(0.005)) || !txs[1].AmountIn.Equal(Q(0.001)) {
		t.Errorf("amounts = %v, %v", txs[0].AmountOut, txs[1].AmountIn)
	}
	if txs[0].TokenIn.Key() != "fiat:EUR" || txs[1].TokenOut != nil {
		t.Errorf("tokens = %v, %v", txs[0].TokenIn, txs[1].TokenOut)
	}
	if len(diags) != 1 || diags[0].Kind != AuditSkippedInput || !strings.HasPrefix(diags[0].Message, "ledger:4:") {
		t.Errorf("diagnostics = %v, want one skipped entry for line 4", diags)
	}
}

func TestDecodeTransactions_ReadError(t *testing.T) {
	boom := errors.New("boom")
	if _, _, err := DecodeTransactions(iotest.ErrReader(boom), "ledger"); !errors.Is(err, boom) {
		t.Errorf("DecodeTransactions() error = %v, want %v", err, boom)
	}
}

func TestDecodeTransactions_LongLine(t *testing.T) {
	valid := `{"id":"t1","timestamp":"2023-01-10T09:00:00Z","type":"BUY","chain":"bitcoin","token_in":{"symbol":"EUR","chain":"fiat"},"amount_in":"100","token_out":{"symbol":"BTC","chain":"bitcoin"},"amount_out":"0.005"}`
	long := `{"id":"` + strings.Repeat("x", maxLineSize) + `"}`
	input := long + "\n" + valid + "\n" + long

	txs, diags, err := DecodeTransactions(strings.NewReader(input), "ledger")
	if err != nil {
		t.Fatalf("DecodeTransactions() error = %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "t1" {
		t.Fatalf("DecodeTransactions() = %d transactions, want t1 only", len(txs))
	}
	if len(diags) != 2 || !strings.HasPrefix(diags[0].Message, "ledger:1:") || !strings.HasPrefix(diags[1].Message, "ledger:3:") {
		t.Errorf("diagnostics = %v, want skipped lines 1 and 3", diags)
	}
}
