package chain

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

const defaultExpiration = 30 * time.Second

// headBlockTimeLayout is the nodeos timestamp format (UTC, no zone suffix).
const headBlockTimeLayout = "2006-01-02T15:04:05.000"

// TransactionBuilder assembles packed transactions with a TAPOS header taken
// from the current head block.
type TransactionBuilder struct {
	rpc        *Client
	expiration time.Duration
}

func NewTransactionBuilder(rpc *Client, expiration time.Duration) *TransactionBuilder {
	if expiration <= 0 {
		expiration = defaultExpiration
	}
	return &TransactionBuilder{rpc: rpc, expiration: expiration}
}

// Build serializes each action's data through the ABI and packs the result.
// It returns the chain id alongside the packed transaction.
func (b *TransactionBuilder) Build(ctx context.Context, auth []PermissionLevel, actions ...domain.Action) ([]byte, []byte, error) {
	info, err := b.rpc.GetInfo(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get info: %w", err)
	}
	chainID, err := hex.DecodeString(info.ChainID)
	if err != nil {
		return nil, nil, fmt.Errorf("decode chain id: %w", err)
	}
	header, err := tapos(info, b.expiration)
	if err != nil {
		return nil, nil, err
	}

	for _, a := range actions {
		data, err := b.rpc.ABIJSONToBin(ctx, a.Account, a.Name, a.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("serialize %s::%s: %w", a.Account, a.Name, err)
		}
		header.Actions = append(header.Actions, RawAction{
			Account:       a.Account,
			Name:          a.Name,
			Authorization: auth,
			Data:          data,
		})
	}
	return header.Pack(), chainID, nil
}

func tapos(info Info, expiration time.Duration) (Transaction, error) {
	head, err := time.Parse(headBlockTimeLayout, info.HeadBlockTime)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse head block time: %w", err)
	}
	blockID, err := hex.DecodeString(info.HeadBlockID)
	if err != nil {
		return Transaction{}, fmt.Errorf("decode head block id: %w", err)
	}
	if len(blockID) < 12 {
		return Transaction{}, errors.New("head block id too short")
	}
	return Transaction{
		Expiration:     head.Add(expiration),
		RefBlockNum:    uint16(info.HeadBlockNum & 0xffff),
		RefBlockPrefix: binary.LittleEndian.Uint32(blockID[8:12]),
	}, nil
}

// Submitter pushes transactions authorized and signed by the platform
// account itself.
type Submitter struct {
	builder *TransactionBuilder
	signer  Signer
	rpc     *Client
	auth    []PermissionLevel
}

func NewSubmitter(builder *TransactionBuilder, signer Signer, rpc *Client, account string) *Submitter {
	return &Submitter{
		builder: builder,
		signer:  signer,
		rpc:     rpc,
		auth:    []PermissionLevel{{Actor: account, Permission: "active"}},
	}
}

func (s *Submitter) Submit(ctx context.Context, actions ...domain.Action) (PushResult, error) {
	packed, chainID, err := s.builder.Build(ctx, s.auth, actions...)
	if err != nil {
		return PushResult{}, err
	}
	sigs, err := s.signer.Sign(chainID, packed)
	if err != nil {
		return PushResult{}, fmt.Errorf("sign transaction: %w", err)
	}
	return s.rpc.PushTransaction(ctx, domain.SignedProposal{Signatures: sigs, SerializedTransaction: packed})
}
