package chain

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// attributeIDOffset is the number of identifiers atomicassets reserves before
// the first schema attribute.
const attributeIDOffset = 4

// SchemaAttribute is one entry of an atomicassets schema format.
type SchemaAttribute struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TicketSchemaName is the schema every ticket asset is minted under.
const TicketSchemaName = "ticket"

// TicketSchema is the attribute format of TicketSchemaName. Order matters:
// identifiers are positional.
var TicketSchema = []SchemaAttribute{
	{Name: "name", Type: "string"},
	{Name: "locationName", Type: "string"},
	{Name: "originalDateTime", Type: "string"},
	{Name: "originalPrice", Type: "string"},
	{Name: "categoryName", Type: "string"},
	{Name: "signed", Type: "bool"},
	{Name: "used", Type: "uint8"},
}

// AttributeEntry is the JSON form of one ATTRIBUTE_MAP pair in action data.
type AttributeEntry struct {
	Key   string `json:"key"`
	Value [2]any `json:"value"`
}

func StringAttribute(key, value string) AttributeEntry {
	return AttributeEntry{Key: key, Value: [2]any{"string", value}}
}

// Uint8Attribute also carries bool schema fields, which the contract
// accepts as 0 or 1.
func Uint8Attribute(key string, value uint8) AttributeEntry {
	return AttributeEntry{Key: key, Value: [2]any{"uint8", value}}
}

// SerializeAttributes encodes values in schema order, skipping absent keys.
func SerializeAttributes(values map[string]any, schema []SchemaAttribute) ([]byte, error) {
	var out []byte
	for i, attr := range schema {
		v, ok := values[attr.Name]
		if !ok {
			continue
		}
		out = appendVaruint(out, uint64(i+attributeIDOffset))
		enc, err := encodeAttribute(attr.Type, v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", attr.Name, err)
		}
		out = append(out, enc...)
	}
	return out, nil
}

func encodeAttribute(typ string, v any) ([]byte, error) {
	switch typ {
	case "string", "image", "ipfs":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		out := appendVaruint(nil, uint64(len(s)))
		return append(out, s...), nil
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", v)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case "uint8", "uint16", "uint32", "uint64":
		n, err := toUint64(v)
		if err != nil {
			return nil, err
		}
		return appendVaruint(nil, n), nil
	case "int8", "int16", "int32", "int64":
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return appendVaruint(nil, uint64((n<<1)^(n>>63))), nil
	}
	return nil, fmt.Errorf("unsupported attribute type %q", typ)
}

// DeserializeAttributes decodes serialized atomicassets data against schema.
// Strings decode to string, bool to bool, unsigned types to uint64 and signed
// types to int64.
func DeserializeAttributes(data []byte, schema []SchemaAttribute) (map[string]any, error) {
	values := make(map[string]any)
	d := &decoder{data: data}
	for d.remaining() > 0 {
		id, err := readVaruint(d)
		if err != nil {
			return nil, err
		}
		idx := int(id) - attributeIDOffset
		if id < attributeIDOffset || idx >= len(schema) {
			return nil, fmt.Errorf("attribute identifier %d outside schema", id)
		}
		attr := schema[idx]
		v, err := decodeAttribute(d, attr.Type)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", attr.Name, err)
		}
		values[attr.Name] = v
	}
	return values, nil
}

func decodeAttribute(d *decoder, typ string) (any, error) {
	switch typ {
	case "string", "image", "ipfs":
		n, err := readVaruint(d)
		if err != nil {
			return nil, err
		}
		if n > uint64(d.remaining()) {
			return nil, errShortBuffer
		}
		b, err := d.take(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case "bool":
		b, err := d.uint8()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case "uint8", "uint16", "uint32", "uint64":
		return readVaruint(d)
	case "int8", "int16", "int32", "int64":
		n, err := readVaruint(d)
		if err != nil {
			return nil, err
		}
		return int64(n>>1) ^ -int64(n&1), nil
	}
	return nil, fmt.Errorf("unsupported attribute type %q", typ)
}

func appendVaruint(out []byte, v uint64) []byte {
	for v >= 0x80 {
		out = append(out, byte(v)|0x80)
		v >>= 7
	}
	return append(out, byte(v))
}

func readVaruint(d *decoder) (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := d.uint8()
		if err != nil {
			return 0, err
		}
		if shift > 63 {
			return 0, errors.New("varint overflow")
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("want unsigned integer, got %T", v)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("want integer, got %T", v)
}

// Uint64 decodes a 64-bit integer the ledger may render as a JSON number or
// as a string.
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("decode uint64 %s: %w", b, err)
	}
	*u = Uint64(n)
	return nil
}

func (u Uint64) String() string {
	return strconv.FormatUint(uint64(u), 10)
}

// Bytes decodes serialized data that table rows return either as a hex string
// or as an array of byte values.
type Bytes []byte

func (b *Bytes) UnmarshalJSON(raw []byte) error {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		decoded, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("decode hex bytes: %w", err)
		}
		*b = decoded
		return nil
	}
	var nums []int
	if err := json.Unmarshal(raw, &nums); err != nil {
		return fmt.Errorf("decode byte array: %w", err)
	}
	out := make([]byte, 0, len(nums))
	for _, n := range nums {
		if n < 0 || n > 255 {
			return fmt.Errorf("byte value %d out of range", n)
		}
		out = append(out, byte(n))
	}
	*b = out
	return nil
}
