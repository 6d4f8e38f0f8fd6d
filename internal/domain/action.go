package domain

import (
	"bytes"
	"encoding/json"
	"math/big"
	"reflect"
	"strings"
)

// Action is a ledger action descriptor. Authorization is supplied by the
// signer and is not part of the proposal.
type Action struct {
	Account string          `json:"account"`
	Name    string          `json:"name"`
	Data    json.RawMessage `json:"data"`
}

// SignedEnvelope is a decoded signed transaction: its actions plus the
// header fields that change when or alongside what the ledger applies them.
type SignedEnvelope struct {
	Actions            []Action `json:"actions"`
	ContextFreeActions []Action `json:"context_free_actions,omitempty"`
	DelaySec           uint32   `json:"delay_sec,omitempty"`
	Extensions         int      `json:"extensions,omitempty"`
}

// Immediate reports whether the ledger applies the actions as soon as the
// transaction is accepted, with nothing else carried along.
func (e SignedEnvelope) Immediate() bool {
	return e.DelaySec == 0 && len(e.ContextFreeActions) == 0 && e.Extensions == 0
}

// NewAction marshals data into an Action.
func NewAction(account, name string, data any) (Action, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Action{}, err
	}
	return Action{Account: account, Name: name, Data: raw}, nil
}

// SameActions reports whether two action lists carry the same content,
// ignoring order. Multiplicity matters.
func SameActions(a, b []Action) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for j, y := range b {
			if used[j] || !x.Equal(y) {
				continue
			}
			used[j] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}

// Equal compares account, name and the decoded data of two actions.
func (a Action) Equal(b Action) bool {
	if a.Account != b.Account || a.Name != b.Name {
		return false
	}
	av, err := normalizeJSON(a.Data)
	if err != nil {
		return false
	}
	bv, err := normalizeJSON(b.Data)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

// normalizeJSON decodes raw JSON with numbers reduced to a canonical decimal
// string so that 1, 1.0 and 1e0 compare equal. Plain decimal strings are folded
// in as well because the ledger renders 64-bit integers and doubles as JSON
// strings.
func normalizeJSON(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return canonicalNumbers(v), nil
}

func canonicalNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return canonicalNumber(t.String())
	case string:
		if isDecimal(t) {
			return canonicalNumber(t)
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = canonicalNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = canonicalNumbers(val)
		}
		return t
	}
	return v
}

func canonicalNumber(s string) string {
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok {
		return s
	}
	return f.Text('g', -1)
}

func isDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) {
		return false
	}
	return !hasDot || (frac != "" && allDigits(frac))
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
