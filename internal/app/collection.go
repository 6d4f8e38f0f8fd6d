package app

import "strings"

const collNameLen = 12

// CollNameForUser derives the atomicassets collection name an account's
// events are minted under. Names are exactly 12 characters: long account
// names are truncated, short ones are prefixed and padded with '1'.
func CollNameForUser(account, prefix string) string {
	if len(account) >= collNameLen {
		return account[:collNameLen]
	}
	name := prefix + account
	if len(name) >= collNameLen {
		return name[:collNameLen]
	}
	return name + strings.Repeat("1", collNameLen-len(name))
}
