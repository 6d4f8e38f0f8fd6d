package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

// AtomicAssets reads and builds actions for the atomicassets NFT contract.
type AtomicAssets struct {
	rpc      *Client
	contract string
}

func NewAtomicAssets(rpc *Client, contract string) *AtomicAssets {
	return &AtomicAssets{rpc: rpc, contract: contract}
}

// Actions returns the action builder for the same contract.
func (a *AtomicAssets) Actions() AtomicActions {
	return AtomicActions{Contract: a.contract}
}

// AtomicActions builds atomicassets actions. It needs no node access.
type AtomicActions struct {
	Contract string
}

// TemplateRow is a row of the templates table.
type TemplateRow struct {
	TemplateID              int64  `json:"template_id"`
	SchemaName              string `json:"schema_name"`
	Transferable            bool   `json:"transferable"`
	Burnable                bool   `json:"burnable"`
	MaxSupply               uint32 `json:"max_supply"`
	IssuedSupply            uint32 `json:"issued_supply"`
	ImmutableSerializedData Bytes  `json:"immutable_serialized_data"`
}

// AssetRow is a row of the assets table, scoped by owner.
type AssetRow struct {
	AssetID                 Uint64 `json:"asset_id"`
	CollectionName          string `json:"collection_name"`
	SchemaName              string `json:"schema_name"`
	TemplateID              int64  `json:"template_id"`
	RAMPayer                string `json:"ram_payer"`
	ImmutableSerializedData Bytes  `json:"immutable_serialized_data"`
	MutableSerializedData   Bytes  `json:"mutable_serialized_data"`
}

func (a *AtomicAssets) CollectionExists(ctx context.Context, collection string) (bool, error) {
	resp, err := a.rpc.GetTableRows(ctx, TableRowsRequest{
		Code: a.contract, Scope: a.contract, Table: "collections",
		LowerBound: collection, UpperBound: collection, Limit: 1, JSON: true,
	})
	if err != nil {
		return false, fmt.Errorf("query collections: %w", err)
	}
	return len(resp.Rows) == 1, nil
}

func (a *AtomicAssets) SchemaExists(ctx context.Context, collection, schema string) (bool, error) {
	resp, err := a.rpc.GetTableRows(ctx, TableRowsRequest{
		Code: a.contract, Scope: collection, Table: "schemas",
		LowerBound: schema, UpperBound: schema, Limit: 1, JSON: true,
	})
	if err != nil {
		return false, fmt.Errorf("query schemas: %w", err)
	}
	return len(resp.Rows) == 1, nil
}

// Templates returns up to limit templates of a collection, newest first.
func (a *AtomicAssets) Templates(ctx context.Context, collection string, limit int) ([]TemplateRow, error) {
	resp, err := a.rpc.GetTableRows(ctx, TableRowsRequest{
		Code: a.contract, Scope: collection, Table: "templates",
		Limit: limit, Reverse: true, JSON: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	rows := make([]TemplateRow, 0, len(resp.Rows))
	for _, raw := range resp.Rows {
		var row TemplateRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode template row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Asset returns the asset if owner holds it, nil otherwise.
func (a *AtomicAssets) Asset(ctx context.Context, owner, assetID string) (*AssetRow, error) {
	resp, err := a.rpc.GetTableRows(ctx, TableRowsRequest{
		Code: a.contract, Scope: owner, Table: "assets",
		LowerBound: assetID, UpperBound: assetID, Limit: 1, JSON: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	if len(resp.Rows) == 0 {
		return nil, nil
	}
	var row AssetRow
	if err := json.Unmarshal(resp.Rows[0], &row); err != nil {
		return nil, fmt.Errorf("decode asset row: %w", err)
	}
	if row.AssetID.String() != assetID {
		return nil, nil
	}
	return &row, nil
}

// CreateCollection proposes a collection authored by author with the
// platform as co-authorized account.
func (a AtomicActions) CreateCollection(author, collection string, authorized []string) domain.Action {
	return mustAction(a.Contract, "createcol", struct {
		Author             string           `json:"author"`
		CollectionName     string           `json:"collection_name"`
		AllowNotify        bool             `json:"allow_notify"`
		AuthorizedAccounts []string         `json:"authorized_accounts"`
		NotifyAccounts     []string         `json:"notify_accounts"`
		MarketFee          float64          `json:"market_fee"`
		Data               []AttributeEntry `json:"data"`
	}{author, collection, true, authorized, []string{}, 0, []AttributeEntry{}})
}

func (a AtomicActions) CreateSchema(creator, collection, schema string, format []SchemaAttribute) domain.Action {
	return mustAction(a.Contract, "createschema", struct {
		AuthorizedCreator string            `json:"authorized_creator"`
		CollectionName    string            `json:"collection_name"`
		SchemaName        string            `json:"schema_name"`
		SchemaFormat      []SchemaAttribute `json:"schema_format"`
	}{creator, collection, schema, format})
}

// CreateTicketTemplate proposes an unlimited, transferable and burnable
// template carrying the ticket's immutable fingerprint.
func (a AtomicActions) CreateTicketTemplate(creator, collection string, data domain.TemplateData) domain.Action {
	return mustAction(a.Contract, "createtempl", struct {
		AuthorizedCreator string           `json:"authorized_creator"`
		CollectionName    string           `json:"collection_name"`
		SchemaName        string           `json:"schema_name"`
		Transferable      bool             `json:"transferable"`
		Burnable          bool             `json:"burnable"`
		MaxSupply         uint32           `json:"max_supply"`
		ImmutableData     []AttributeEntry `json:"immutable_data"`
	}{creator, collection, TicketSchemaName, true, true, 0, TemplateAttributes(data)})
}

// MintTicket mints a ticket asset from a template with fresh mutable data.
func (a AtomicActions) MintTicket(minter, collection string, templateID int64, owner string) domain.Action {
	return mustAction(a.Contract, "mintasset", struct {
		AuthorizedMinter string           `json:"authorized_minter"`
		CollectionName   string           `json:"collection_name"`
		SchemaName       string           `json:"schema_name"`
		TemplateID       int64            `json:"template_id"`
		NewAssetOwner    string           `json:"new_asset_owner"`
		ImmutableData    []AttributeEntry `json:"immutable_data"`
		MutableData      []AttributeEntry `json:"mutable_data"`
		TokensToBack     []string         `json:"tokens_to_back"`
	}{minter, collection, TicketSchemaName, templateID, owner, []AttributeEntry{}, MutableAttributes(domain.TicketMutableData{}), []string{}})
}

func (a AtomicActions) Transfer(from, to string, assetIDs []string, memo string) domain.Action {
	return mustAction(a.Contract, "transfer", struct {
		From     string   `json:"from"`
		To       string   `json:"to"`
		AssetIDs []string `json:"asset_ids"`
		Memo     string   `json:"memo"`
	}{from, to, assetIDs, memo})
}

// SetTicketData replaces the whole mutable data of a ticket asset.
func (a AtomicActions) SetTicketData(editor, owner, assetID string, data domain.TicketMutableData) domain.Action {
	return mustAction(a.Contract, "setassetdata", struct {
		AuthorizedEditor string           `json:"authorized_editor"`
		AssetOwner       string           `json:"asset_owner"`
		AssetID          string           `json:"asset_id"`
		NewMutableData   []AttributeEntry `json:"new_mutable_data"`
	}{editor, owner, assetID, MutableAttributes(data)})
}

// MintedAssetID extracts the asset id from the logmint notification in a
// mint transaction trace.
func (a AtomicActions) MintedAssetID(res PushResult) (string, bool) {
	data, ok := res.FindAction(a.Contract, "logmint")
	if !ok {
		return "", false
	}
	var log struct {
		AssetID Uint64 `json:"asset_id"`
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return "", false
	}
	return log.AssetID.String(), true
}

func TemplateAttributes(d domain.TemplateData) []AttributeEntry {
	return []AttributeEntry{
		StringAttribute("name", d.EventName),
		StringAttribute("locationName", d.LocationName),
		StringAttribute("originalDateTime", d.OriginalDateTime),
		StringAttribute("originalPrice", d.OriginalPrice),
		StringAttribute("categoryName", d.CategoryName),
	}
}

func MutableAttributes(d domain.TicketMutableData) []AttributeEntry {
	var signed uint8
	if d.Signed {
		signed = 1
	}
	return []AttributeEntry{
		Uint8Attribute("signed", signed),
		Uint8Attribute("used", d.Used),
	}
}

// DecodeTemplateData reads the immutable fingerprint of a ticket template.
func DecodeTemplateData(serialized []byte) (domain.TemplateData, error) {
	values, err := DeserializeAttributes(serialized, TicketSchema)
	if err != nil {
		return domain.TemplateData{}, err
	}
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	return domain.TemplateData{
		EventName:        str("name"),
		LocationName:     str("locationName"),
		OriginalDateTime: str("originalDateTime"),
		OriginalPrice:    str("originalPrice"),
		CategoryName:     str("categoryName"),
	}, nil
}

// DecodeTicketMutableData reads the mutable data of a ticket asset. Missing
// fields take their zero value.
func DecodeTicketMutableData(serialized []byte) (domain.TicketMutableData, error) {
	values, err := DeserializeAttributes(serialized, TicketSchema)
	if err != nil {
		return domain.TicketMutableData{}, err
	}
	var out domain.TicketMutableData
	out.Signed, _ = values["signed"].(bool)
	if used, ok := values["used"].(uint64); ok {
		if used > 255 {
			used = 255
		}
		out.Used = uint8(used)
	}
	return out, nil
}

// mustAction builds an action from a fixed struct type, which always
// marshals.
func mustAction(account, name string, data any) domain.Action {
	a, err := domain.NewAction(account, name, data)
	if err != nil {
		panic(fmt.Sprintf("marshal %s::%s: %v", account, name, err))
	}
	return a
}
