package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

// Token describes a fungible token contract and its symbol.
type Token struct {
	Contract  string
	Symbol    string
	Precision int32
}

// Round brings amount to the token's precision, the way FormatQuantity
// renders it.
func (t Token) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(t.Precision)
}

// Exact reports whether amount needs no more decimals than the token has.
func (t Token) Exact(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(t.Precision))
}

// FormatQuantity renders amount as an asset string such as "10.0000 SYS".
func (t Token) FormatQuantity(amount decimal.Decimal) string {
	return amount.StringFixed(t.Precision) + " " + t.Symbol
}

// ParseQuantity parses an asset string of this token. The symbol and the
// precision must both match.
func (t Token) ParseQuantity(s string) (decimal.Decimal, error) {
	amount, symbol, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || symbol != t.Symbol {
		return decimal.Decimal{}, fmt.Errorf("quantity %q: want symbol %s", s, t.Symbol)
	}
	_, frac, _ := strings.Cut(amount, ".")
	if int32(len(frac)) != t.Precision {
		return decimal.Decimal{}, fmt.Errorf("quantity %q: want precision %d", s, t.Precision)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("quantity %q: %w", s, err)
	}
	return d, nil
}

// TransferData is the argument set of a token transfer action.
type TransferData struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Quantity string `json:"quantity"`
	Memo     string `json:"memo"`
}

func (t Token) Transfer(from, to string, amount decimal.Decimal, memo string) domain.Action {
	return mustAction(t.Contract, "transfer", TransferData{
		From: from, To: to, Quantity: t.FormatQuantity(amount), Memo: memo,
	})
}

var errNotTransfer = errors.New("action is not a transfer of this token")

// DecodeTransfer reads a transfer action of this token contract.
func (t Token) DecodeTransfer(a domain.Action) (TransferData, decimal.Decimal, error) {
	if a.Account != t.Contract || a.Name != "transfer" {
		return TransferData{}, decimal.Decimal{}, errNotTransfer
	}
	var data TransferData
	if err := json.Unmarshal(a.Data, &data); err != nil {
		return TransferData{}, decimal.Decimal{}, fmt.Errorf("decode transfer: %w", err)
	}
	amount, err := t.ParseQuantity(data.Quantity)
	if err != nil {
		return TransferData{}, decimal.Decimal{}, err
	}
	return data, amount, nil
}
