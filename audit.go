package cryptotax

import (
	"fmt"
	"strings"
)

// AuditKind names a condition recorded in the audit trail.
type AuditKind string

const (
	AuditPolicy           AuditKind = "policy"
	AuditSkippedInput     AuditKind = "skipped_input"
	AuditDuplicate        AuditKind = "duplicate"
	AuditInternalTransfer AuditKind = "possible_internal_transfer"
	AuditClassification   AuditKind = "classification"
	AuditMissingPrice     AuditKind = "missing_price"
	AuditAssumedBasis     AuditKind = "assumed_basis"
	AuditAssetFailure     AuditKind = "asset_failure"
)

// kindOrder sorts entries of the same transaction.
var kindOrder = map[AuditKind]int{
	AuditPolicy:           0,
	AuditSkippedInput:     1,
	AuditDuplicate:        2,
	AuditInternalTransfer: 3,
	AuditClassification:   4,
	AuditMissingPrice:     5,
	AuditAssumedBasis:     6,
	AuditAssetFailure:     7,
}

// AuditEntry is one line of the audit trail.
type AuditEntry struct {
	TransactionID string    `json:"transaction_id,omitempty"`
	Kind          AuditKind `json:"kind"`
	Message       string    `json:"message"`
}

func (e AuditEntry) String() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.TransactionID, e.Message)
}

// auditLog holds at most one entry per kind. Repeated conditions of the same
// kind are merged into the existing entry.
type auditLog []AuditEntry

func (l *auditLog) add(id string, kind AuditKind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	for i := range *l {
		e := &(*l)[i]
		if e.Kind != kind {
			continue
		}
		if !strings.Contains(e.Message, msg) {
			e.Message += "; " + msg
		}
		return
	}
	*l = append(*l, AuditEntry{TransactionID: id, Kind: kind, Message: msg})
}

func (l auditLog) has(kind AuditKind) bool {
	for _, e := range l {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
