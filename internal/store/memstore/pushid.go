package memstore

import (
	"math/rand"
	"sync"
	"time"
)

// pushChars is ordered by ASCII value so that keys sort lexically in the
// order they were generated.
const pushChars = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// keyGen produces 20-char Firebase-style push keys: 8 chars of millisecond
// timestamp followed by 12 chars that are random for a new millisecond and
// incremented for keys generated within the same one.
type keyGen struct {
	mu       sync.Mutex
	now      func() time.Time
	rnd      *rand.Rand
	lastTime int64
	lastRand [12]int
}

func newKeyGen(now func() time.Time, seed int64) *keyGen {
	return &keyGen{now: now, rnd: rand.New(rand.NewSource(seed))}
}

func (g *keyGen) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms < g.lastTime {
		// clock went backwards, stay monotonic
		ms = g.lastTime
	}
	if ms != g.lastTime {
		for i := range g.lastRand {
			g.lastRand[i] = g.rnd.Intn(len(pushChars))
		}
	} else {
		i := len(g.lastRand) - 1
		for ; i >= 0 && g.lastRand[i] == len(pushChars)-1; i-- {
			g.lastRand[i] = 0
		}
		if i >= 0 {
			g.lastRand[i]++
		}
	}
	g.lastTime = ms

	var key [20]byte
	for i := 7; i >= 0; i-- {
		key[i] = pushChars[ms%int64(len(pushChars))]
		ms /= int64(len(pushChars))
	}
	for i, r := range g.lastRand {
		key[8+i] = pushChars[r]
	}
	return string(key[:])
}
