package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func act(account, name, data string) Action {
	return Action{Account: account, Name: name, Data: json.RawMessage(data)}
}

func TestSameActions(t *testing.T) {
	transfer := act("eosio.token", "transfer", `{"from":"alice","to":"nfticket","quantity":"10.0000 SYS","memo":"m"}`)
	templ := act("atomicassets", "createtempl", `{"collection_name":"nftikalice11","max_supply":0}`)

	tests := []struct {
		name string
		a, b []Action
		want bool
	}{
		{name: "both empty", a: nil, b: []Action{}, want: true},
		{name: "same order", a: []Action{transfer, templ}, b: []Action{transfer, templ}, want: true},
		{name: "reordered", a: []Action{transfer, templ}, b: []Action{templ, transfer}, want: true},
		{
			name: "key order ignored",
			a:    []Action{templ},
			b:    []Action{act("atomicassets", "createtempl", `{"max_supply":0,"collection_name":"nftikalice11"}`)},
			want: true,
		},
		{
			name: "number forms",
			a:    []Action{act("a", "b", `{"n":1}`)},
			b:    []Action{act("a", "b", `{"n":1.0}`)},
			want: true,
		},
		{
			name: "large integer as string",
			a:    []Action{act("a", "b", `{"asset_id":"1099511627776"}`)},
			b:    []Action{act("a", "b", `{"asset_id":1099511627776}`)},
			want: true,
		},
		{
			name: "double rendered as string",
			a:    []Action{act("atomicassets", "createcol", `{"market_fee":0}`)},
			b:    []Action{act("atomicassets", "createcol", `{"market_fee":"0.00000000000000000"}`)},
			want: true,
		},
		{
			name: "amount changed",
			a:    []Action{transfer},
			b:    []Action{act("eosio.token", "transfer", `{"from":"alice","to":"nfticket","quantity":"0.0001 SYS","memo":"m"}`)},
			want: false,
		},
		{name: "extra action", a: []Action{transfer}, b: []Action{transfer, transfer}, want: false},
		{name: "multiplicity", a: []Action{transfer, transfer}, b: []Action{transfer, templ}, want: false},
		{name: "different contract", a: []Action{transfer}, b: []Action{act("fake.token", "transfer", string(transfer.Data))}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SameActions(tc.a, tc.b))
			assert.Equal(t, tc.want, SameActions(tc.b, tc.a))
		})
	}
}

func TestPendingTransactionExpiredAt(t *testing.T) {
	p := PendingTransaction{ExpiresAt: mustTime(t, "2024-01-01T10:00:00Z")}
	assert.False(t, p.ExpiredAt(mustTime(t, "2024-01-01T09:59:59Z")))
	assert.True(t, p.ExpiredAt(mustTime(t, "2024-01-01T10:00:00Z")))
	assert.True(t, p.ExpiredAt(mustTime(t, "2024-01-01T10:00:01Z")))
}

func TestSignedEnvelopeImmediate(t *testing.T) {
	transfer := act("eosio.token", "transfer", `{}`)

	tests := []struct {
		name string
		env  SignedEnvelope
		want bool
	}{
		{"plain", SignedEnvelope{Actions: []Action{transfer}}, true},
		{"no actions", SignedEnvelope{}, true},
		{"delayed", SignedEnvelope{Actions: []Action{transfer}, DelaySec: 1}, false},
		{"context free action", SignedEnvelope{Actions: []Action{transfer}, ContextFreeActions: []Action{act("eosio.null", "nonce", `"00"`)}}, false},
		{"extension", SignedEnvelope{Actions: []Action{transfer}, Extensions: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.env.Immediate())
		})
	}
}
