package chain

import "strings"

const nameCharmap = ".12345abcdefghijklmnopqrstuvwxyz"

// NameToUint64 encodes an account or action name into its 64-bit ledger form.
// Characters outside [a-z1-5.] encode as '.'.
func NameToUint64(name string) uint64 {
	var value uint64
	for i := 0; i <= 12; i++ {
		var c uint64
		if i < len(name) {
			c = nameSymbol(name[i])
		}
		if i < 12 {
			c &= 0x1f
			c <<= 64 - 5*(i+1)
		} else {
			c &= 0x0f
		}
		value |= c
	}
	return value
}

// Uint64ToName decodes a 64-bit ledger name.
func Uint64ToName(value uint64) string {
	out := make([]byte, 13)
	tmp := value
	for i := 0; i <= 12; i++ {
		var c byte
		if i == 0 {
			c = nameCharmap[tmp&0x0f]
			tmp >>= 4
		} else {
			c = nameCharmap[tmp&0x1f]
			tmp >>= 5
		}
		out[12-i] = c
	}
	return strings.TrimRight(string(out), ".")
}

func nameSymbol(c byte) uint64 {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 6
	case c >= '1' && c <= '5':
		return uint64(c-'1') + 1
	}
	return 0
}
