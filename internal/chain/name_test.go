package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameEncoding(t *testing.T) {
	assert.Equal(t, uint64(6138663577826885632), NameToUint64("eosio"))
	assert.Equal(t, "eosio", Uint64ToName(6138663577826885632))
	assert.Equal(t, uint64(0), NameToUint64(""))
	assert.Equal(t, "", Uint64ToName(0))

	for _, n := range []string{"atomicassets", "eosio.token", "nfticket", "nftikalice11", "a", "z1.x5"} {
		t.Run(n, func(t *testing.T) {
			assert.Equal(t, n, Uint64ToName(NameToUint64(n)))
		})
	}
}
