package cryptotax

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxLineSize is the longest line DecodeTransactions decodes.
const maxLineSize = 1 << 20

var errLineTooLong = fmt.Errorf("line longer than %d bytes", maxLineSize)

// DecodeTransactions reads transactions from a JSON Lines stream, one
// transaction per line. Records without a source get source.
//
// Lines that cannot be decoded, too long ones included, are skipped and
// reported as diagnostics. The error is only for a failing reader.
func DecodeTransactions(r io.Reader, source string) ([]Transaction, []AuditEntry, error) {
	var (
		txs         []Transaction
		diagnostics []AuditEntry
	)
	skip := func(n int, err error) {
		diagnostics = append(diagnostics, AuditEntry{
			Kind:    AuditSkippedInput,
			Message: fmt.Sprintf("%s:%d: %v", source, n, err),
		})
	}
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := readLine(br)
		if err == io.EOF {
			break
		}
		if errors.Is(err, errLineTooLong) {
			skip(n, err)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", source, err)
		}
		if len(line) == 0 {
			continue // Skip empty lines
		}
		var tx Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			skip(n, err)
			continue
		}
		if tx.Source == "" {
			tx.Source = source
		}
		txs = append(txs, tx)
	}
	return txs, diagnostics, nil
}

// readLine returns the next line without its end of line. A line over
// maxLineSize is consumed entirely and reported as errLineTooLong.
func readLine(br *bufio.Reader) ([]byte, error) {
	var line []byte
	tooLong, started := false, false
	for {
		chunk, more, err := br.ReadLine()
		if err == io.EOF && started {
			break
		}
		if err != nil {
			return nil, err
		}
		started = true
		if !tooLong && len(line)+len(chunk) > maxLineSize {
			tooLong, line = true, nil
		}
		if !tooLong {
			line = append(line, chunk...)
		}
		if !more {
			break
		}
	}
	if tooLong {
		return nil, errLineTooLong
	}
	if line == nil {
		line = []byte{}
	}
	return line, nil
}
