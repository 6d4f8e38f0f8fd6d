package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// PermissionLevel is an actor@permission authorization.
type PermissionLevel struct {
	Actor      string `json:"actor"`
	Permission string `json:"permission"`
}

// RawAction is an action whose data is already ABI-serialized.
type RawAction struct {
	Account       string
	Name          string
	Authorization []PermissionLevel
	Data          []byte
}

// Extension is a transaction extension entry.
type Extension struct {
	Type uint16
	Data []byte
}

// Transaction is the unsigned transaction envelope a signature covers.
type Transaction struct {
	Expiration         time.Time
	RefBlockNum        uint16
	RefBlockPrefix     uint32
	MaxNetUsageWords   uint32
	MaxCPUUsageMS      uint8
	DelaySec           uint32
	ContextFreeActions []RawAction
	Actions            []RawAction
	Extensions         []Extension
}

// Pack serializes the transaction into its signed binary form.
func (t Transaction) Pack() []byte {
	var e encoder
	e.uint32(uint32(t.Expiration.Unix()))
	e.uint16(t.RefBlockNum)
	e.uint32(t.RefBlockPrefix)
	e.varuint32(t.MaxNetUsageWords)
	e.uint8(t.MaxCPUUsageMS)
	e.varuint32(t.DelaySec)
	packActions(&e, t.ContextFreeActions)
	packActions(&e, t.Actions)
	e.varuint32(uint32(len(t.Extensions)))
	for _, ext := range t.Extensions {
		e.uint16(ext.Type)
		e.bytes(ext.Data)
	}
	return e.buf.Bytes()
}

func packActions(e *encoder, actions []RawAction) {
	e.varuint32(uint32(len(actions)))
	for _, a := range actions {
		e.name(a.Account)
		e.name(a.Name)
		e.varuint32(uint32(len(a.Authorization)))
		for _, auth := range a.Authorization {
			e.name(auth.Actor)
			e.name(auth.Permission)
		}
		e.bytes(a.Data)
	}
}

// UnpackTransaction parses a packed transaction. Trailing bytes are rejected.
func UnpackTransaction(packed []byte) (Transaction, error) {
	d := &decoder{data: packed}
	var t Transaction

	exp, err := d.uint32()
	if err != nil {
		return Transaction{}, fmt.Errorf("expiration: %w", err)
	}
	t.Expiration = time.Unix(int64(exp), 0).UTC()
	if t.RefBlockNum, err = d.uint16(); err != nil {
		return Transaction{}, fmt.Errorf("ref_block_num: %w", err)
	}
	if t.RefBlockPrefix, err = d.uint32(); err != nil {
		return Transaction{}, fmt.Errorf("ref_block_prefix: %w", err)
	}
	if t.MaxNetUsageWords, err = d.varuint32(); err != nil {
		return Transaction{}, fmt.Errorf("max_net_usage_words: %w", err)
	}
	if t.MaxCPUUsageMS, err = d.uint8(); err != nil {
		return Transaction{}, fmt.Errorf("max_cpu_usage_ms: %w", err)
	}
	if t.DelaySec, err = d.varuint32(); err != nil {
		return Transaction{}, fmt.Errorf("delay_sec: %w", err)
	}
	if t.ContextFreeActions, err = unpackActions(d); err != nil {
		return Transaction{}, fmt.Errorf("context_free_actions: %w", err)
	}
	if t.Actions, err = unpackActions(d); err != nil {
		return Transaction{}, fmt.Errorf("actions: %w", err)
	}
	n, err := d.varuint32()
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction_extensions: %w", err)
	}
	for i := uint32(0); i < n; i++ {
		typ, err := d.uint16()
		if err != nil {
			return Transaction{}, fmt.Errorf("transaction_extensions: %w", err)
		}
		data, err := d.bytes()
		if err != nil {
			return Transaction{}, fmt.Errorf("transaction_extensions: %w", err)
		}
		t.Extensions = append(t.Extensions, Extension{Type: typ, Data: data})
	}
	if d.remaining() != 0 {
		return Transaction{}, fmt.Errorf("%d trailing bytes after transaction", d.remaining())
	}
	return t, nil
}

func unpackActions(d *decoder) ([]RawAction, error) {
	n, err := d.varuint32()
	if err != nil {
		return nil, err
	}
	if int(n) > d.remaining() {
		return nil, errShortBuffer
	}
	actions := make([]RawAction, 0, n)
	for i := uint32(0); i < n; i++ {
		var a RawAction
		if a.Account, err = d.name(); err != nil {
			return nil, err
		}
		if a.Name, err = d.name(); err != nil {
			return nil, err
		}
		authCount, err := d.varuint32()
		if err != nil {
			return nil, err
		}
		if int(authCount) > d.remaining() {
			return nil, errShortBuffer
		}
		for j := uint32(0); j < authCount; j++ {
			actor, err := d.name()
			if err != nil {
				return nil, err
			}
			perm, err := d.name()
			if err != nil {
				return nil, err
			}
			a.Authorization = append(a.Authorization, PermissionLevel{Actor: actor, Permission: perm})
		}
		if a.Data, err = d.bytes(); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// TransactionID is the ledger id of a packed transaction.
func TransactionID(packed []byte) string {
	sum := sha256.Sum256(packed)
	return hex.EncodeToString(sum[:])
}
