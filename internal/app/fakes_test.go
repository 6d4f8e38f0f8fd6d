package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/chain"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

type fakePending struct {
	mu      sync.Mutex
	records map[string]domain.PendingTransaction
	deleted []string
	getErr  error
}

func newFakePending() *fakePending {
	return &fakePending{records: map[string]domain.PendingTransaction{}}
}

func (f *fakePending) CreatePending(ctx context.Context, p domain.PendingTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[p.ID] = p
	return nil
}

func (f *fakePending) GetPending(ctx context.Context, id string) (domain.PendingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.PendingTransaction{}, f.getErr
	}
	p, ok := f.records[id]
	if !ok {
		return domain.PendingTransaction{}, domain.ErrPendingNotFound
	}
	return p, nil
}

func (f *fakePending) DeletePending(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePending) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, p := range f.records {
		if p.ExpiredAt(now) {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *fakePending) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok
}

// fakeStore backs both the reservation and the catalog interfaces.
type fakeStore struct {
	mu            sync.Mutex
	events        map[string]domain.Event
	categories    map[string]domain.Category
	tickets       map[string]domain.Ticket
	decrements    map[string]int
	beforeReserve func(ticketID string)
	sellErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:     map[string]domain.Event{},
		categories: map[string]domain.Category{},
		tickets:    map[string]domain.Ticket{},
		decrements: map[string]int{},
	}
}

func (f *fakeStore) addCategory(c domain.Category, ticketIDs ...string) {
	f.categories[c.ID] = c
	for _, id := range ticketIDs {
		f.tickets[id] = domain.Ticket{ID: id, CategoryID: c.ID, EventID: c.EventID}
	}
}

func (f *fakeStore) ticket(id string) domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickets[id]
}

func (f *fakeStore) ListAvailableTickets(ctx context.Context, categoryID string, now time.Time, limit int) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.tickets {
		if t.CategoryID == categoryID && t.AvailableAt(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ReserveTicket(ctx context.Context, ticketID string, now, until time.Time) (bool, error) {
	if f.beforeReserve != nil {
		f.beforeReserve(ticketID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok || !t.AvailableAt(now) {
		return false, nil
	}
	t.ReservedUntil = &until
	f.tickets[ticketID] = t
	return true, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeStore) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeStore) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeStore) GetTicketByAssetID(ctx context.Context, assetID string) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.AssetID != nil && *t.AssetID == assetID {
			return t, nil
		}
	}
	return domain.Ticket{}, domain.ErrTicketNotFound
}

func (f *fakeStore) AttachAsset(ctx context.Context, ticketID, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[ticketID]
	t.AssetID = &assetID
	f.tickets[ticketID] = t
	return nil
}

func (f *fakeStore) MarkTicketSold(ctx context.Context, ticketID, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sellErr != nil {
		return false, f.sellErr
	}
	t := f.tickets[ticketID]
	if t.IsSold {
		return false, nil
	}
	t.IsSold = true
	t.OwnerAccount = &owner
	t.ReservedUntil = nil
	f.tickets[ticketID] = t
	return true, nil
}

func (f *fakeStore) DecrementRemaining(ctx context.Context, categoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.categories[categoryID]
	c.RemainingQuantity--
	f.categories[categoryID] = c
	f.decrements[categoryID]++
	return nil
}

type fakeLedger struct {
	mu          sync.Mutex
	collections map[string]bool
	schemas     map[string]bool
	templates   map[string][]chain.TemplateRow
	assets      map[string]map[string]domain.TicketMutableData
	assetErr    error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		collections: map[string]bool{},
		schemas:     map[string]bool{},
		templates:   map[string][]chain.TemplateRow{},
		assets:      map[string]map[string]domain.TicketMutableData{},
	}
}

func (f *fakeLedger) give(owner, assetID string, data domain.TicketMutableData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assets[owner] == nil {
		f.assets[owner] = map[string]domain.TicketMutableData{}
	}
	f.assets[owner][assetID] = data
}

func (f *fakeLedger) owned(owner, assetID string) (domain.TicketMutableData, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.assets[owner][assetID]
	return d, ok
}

func (f *fakeLedger) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return f.collections[collection], nil
}

func (f *fakeLedger) SchemaExists(ctx context.Context, collection, schema string) (bool, error) {
	return f.schemas[collection+"/"+schema], nil
}

func (f *fakeLedger) Templates(ctx context.Context, collection string, limit int) ([]chain.TemplateRow, error) {
	rows := f.templates[collection]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeLedger) Asset(ctx context.Context, owner, assetID string) (*chain.AssetRow, error) {
	if f.assetErr != nil {
		return nil, f.assetErr
	}
	data, ok := f.owned(owner, assetID)
	if !ok {
		return nil, nil
	}
	raw, err := chain.SerializeAttributes(map[string]any{"signed": data.Signed, "used": data.Used}, chain.TicketSchema)
	if err != nil {
		return nil, err
	}
	id, _ := strconv.ParseUint(assetID, 10, 64)
	return &chain.AssetRow{AssetID: chain.Uint64(id), SchemaName: chain.TicketSchemaName, MutableSerializedData: raw}, nil
}

func (f *fakeLedger) addTemplate(collection string, id int64, data domain.TemplateData) {
	raw, err := chain.SerializeAttributes(map[string]any{
		"name":             data.EventName,
		"locationName":     data.LocationName,
		"originalDateTime": data.OriginalDateTime,
		"originalPrice":    data.OriginalPrice,
		"categoryName":     data.CategoryName,
	}, chain.TicketSchema)
	if err != nil {
		panic(err)
	}
	row := chain.TemplateRow{TemplateID: id, SchemaName: chain.TicketSchemaName, ImmutableSerializedData: raw}
	f.templates[collection] = append([]chain.TemplateRow{row}, f.templates[collection]...)
}

// fakeDecoder treats the serialized transaction as a JSON action list, or as
// a JSON envelope when it starts with an object.
type fakeDecoder struct {
	calls int
}

func (d *fakeDecoder) DecodeTransaction(ctx context.Context, packed []byte) (domain.SignedEnvelope, error) {
	d.calls++
	var env domain.SignedEnvelope
	if bytes.HasPrefix(packed, []byte("{")) {
		if err := json.Unmarshal(packed, &env); err != nil {
			return domain.SignedEnvelope{}, err
		}
		return env, nil
	}
	if err := json.Unmarshal(packed, &env.Actions); err != nil {
		return domain.SignedEnvelope{}, err
	}
	return env, nil
}

// fakeRecoverer reads "sig:<key>" signatures.
type fakeRecoverer struct {
	calls int
}

func (r *fakeRecoverer) RecoverPublicKeys(signatures []string, payload []byte) ([]string, error) {
	r.calls++
	keys := make([]string, 0, len(signatures))
	for _, s := range signatures {
		k, ok := strings.CutPrefix(s, "sig:")
		if !ok {
			return nil, errors.New("malformed signature")
		}
		keys = append(keys, k)
	}
	return keys, nil
}

type fakeAccounts map[string][]string

func (f fakeAccounts) GetAccount(ctx context.Context, name string) (chain.Account, error) {
	keys, ok := f[name]
	if !ok {
		return chain.Account{}, errors.New("unknown key")
	}
	acc := chain.Account{AccountName: name}
	for i, k := range keys {
		perm := "active"
		if i == 0 {
			perm = "owner"
		}
		acc.Permissions = append(acc.Permissions, chain.Permission{
			PermName:     perm,
			RequiredAuth: chain.Authority{Threshold: 1, Keys: []chain.KeyWeight{{Key: k, Weight: 1}}},
		})
	}
	return acc, nil
}

type fakeBroadcaster struct {
	calls int
	err   error
}

func (b *fakeBroadcaster) PushTransaction(ctx context.Context, signed domain.SignedProposal) (chain.PushResult, error) {
	b.calls++
	if b.err != nil {
		return chain.PushResult{}, b.err
	}
	return chain.PushResult{TransactionID: chain.TransactionID(signed.SerializedTransaction)}, nil
}

// fakePlatform applies platform-signed atomicassets actions to fakeLedger.
type fakePlatform struct {
	ledger    *fakeLedger
	submitted []domain.Action
	nextAsset uint64
	failOn    string
	err       error
}

func (p *fakePlatform) Submit(ctx context.Context, actions ...domain.Action) (chain.PushResult, error) {
	var res chain.PushResult
	for _, a := range actions {
		if a.Name == p.failOn {
			return chain.PushResult{}, p.err
		}
		p.submitted = append(p.submitted, a)
		switch a.Name {
		case "mintasset":
			var d struct {
				Owner string `json:"new_asset_owner"`
			}
			if err := json.Unmarshal(a.Data, &d); err != nil {
				return chain.PushResult{}, err
			}
			p.nextAsset++
			id := strconv.FormatUint(p.nextAsset, 10)
			p.ledger.give(d.Owner, id, domain.TicketMutableData{})
			trace := fmt.Sprintf(`{"transaction_id":"mint-%s","processed":{"action_traces":[{"act":{"account":%q,"name":"mintasset","data":{}},"inline_traces":[{"act":{"account":%q,"name":"logmint","data":{"asset_id":%q}}}]}]}}`, id, a.Account, a.Account, id)
			if err := json.Unmarshal([]byte(trace), &res); err != nil {
				return chain.PushResult{}, err
			}
		case "transfer":
			var d struct {
				From     string   `json:"from"`
				To       string   `json:"to"`
				AssetIDs []string `json:"asset_ids"`
			}
			if err := json.Unmarshal(a.Data, &d); err != nil {
				return chain.PushResult{}, err
			}
			for _, id := range d.AssetIDs {
				data, ok := p.ledger.owned(d.From, id)
				if !ok {
					return chain.PushResult{}, fmt.Errorf("%s does not own %s", d.From, id)
				}
				p.ledger.mu.Lock()
				delete(p.ledger.assets[d.From], id)
				p.ledger.mu.Unlock()
				p.ledger.give(d.To, id, data)
			}
		case "setassetdata":
			var d struct {
				Owner   string `json:"asset_owner"`
				AssetID string `json:"asset_id"`
				Data    []struct {
					Key   string `json:"key"`
					Value [2]any `json:"value"`
				} `json:"new_mutable_data"`
			}
			if err := json.Unmarshal(a.Data, &d); err != nil {
				return chain.PushResult{}, err
			}
			// Whole replacement: fields not sent are reset.
			var next domain.TicketMutableData
			for _, e := range d.Data {
				n, _ := e.Value[1].(float64)
				switch e.Key {
				case "signed":
					next.Signed = n == 1
				case "used":
					next.Used = uint8(n)
				}
			}
			p.ledger.give(d.Owner, d.AssetID, next)
		}
	}
	return res, nil
}

func (p *fakePlatform) count(name string) int {
	n := 0
	for _, a := range p.submitted {
		if a.Name == name {
			n++
		}
	}
	return n
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (p *fakePublisher) Publish(ctx context.Context, key, value []byte) error {
	var ev LifecycleEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
