package matching

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killthisworld/vybrix/internal/model"
)

func testEngine() *Engine {
	cfg := DefaultConfig()
	cfg.Jitter = false
	cfg.Workers = 1
	return NewEngine(cfg)
}

func mkCandidate(id string, order int, sentiment float64) Candidate {
	return Candidate{
		ID:        id,
		CreatedAt: time.Unix(int64(order), 0),
		Sentiment: sentiment,
		Intent:    model.IntentSharing,
		Energy:    0.5,
	}
}

func asMap(assignments []Assignment) map[string]string {
	out := make(map[string]string, len(assignments))
	for _, a := range assignments {
		out[a.MessageID] = a.PartnerID
	}
	return out
}

func TestRunCycleEmptyPool(t *testing.T) {
	got := testEngine().RunCycle(nil)
	assert.Empty(t, got)
}

func TestRunCycleSingleCandidate(t *testing.T) {
	got := testEngine().RunCycle([]Candidate{mkCandidate("only", 0, 0.3)})
	assert.Empty(t, got)
}

// 两条情绪相反的消息应互相选中
func TestRunCycleTwoCompatible(t *testing.T) {
	a := mkCandidate("a", 0, -0.8)
	b := mkCandidate("b", 1, 0.8)
	got := asMap(testEngine().RunCycle([]Candidate{a, b}))
	assert.Equal(t, map[string]string{"a": "b", "b": "a"}, got)
}

func TestRunCycleNoSelfMatch(t *testing.T) {
	candidates := make([]Candidate, 12)
	rng := rand.New(rand.NewSource(7))
	for i := range candidates {
		candidates[i] = mkCandidate(fmt.Sprintf("m%02d", i), i, rng.Float64()*2-1)
	}
	for _, a := range testEngine().RunCycle(candidates) {
		assert.NotEqual(t, a.MessageID, a.PartnerID)
	}
}

func TestRunCycleAtMostOneOutgoing(t *testing.T) {
	candidates := make([]Candidate, 20)
	rng := rand.New(rand.NewSource(11))
	for i := range candidates {
		candidates[i] = mkCandidate(fmt.Sprintf("m%02d", i), i, rng.Float64()*2-1)
	}
	seen := make(map[string]bool)
	for _, a := range testEngine().RunCycle(candidates) {
		assert.False(t, seen[a.MessageID], "message %s assigned twice", a.MessageID)
		seen[a.MessageID] = true
	}
}

// 全部配对分数都不过线时，本周期不产生任何指派
func TestRunCycleFloorEnforcement(t *testing.T) {
	// 同号远距情绪（双向都落最低档）+ 能量两极 → 0.45 < 0.55
	a := Candidate{ID: "a", CreatedAt: time.Unix(0, 0), Sentiment: 0.1, Intent: model.IntentSharing, Energy: 0.0}
	b := Candidate{ID: "b", CreatedAt: time.Unix(1, 0), Sentiment: 0.9, Intent: model.IntentSharing, Energy: 1.0}
	got := testEngine().RunCycle([]Candidate{a, b})
	assert.Empty(t, got)

	for _, asg := range testEngine().RunCycle([]Candidate{a, b, mkCandidate("c", 2, -0.5)}) {
		assert.GreaterOrEqual(t, asg.Score, DefaultConfig().MinAcceptableScore)
	}
}

// 争抢场景：M1、M2 都最想要 M3；M2 处理在后，应改派到更空闲的次优 M1
func TestRunCycleContentionRedirect(t *testing.T) {
	m1 := mkCandidate("m1", 0, -0.8)
	m2 := mkCandidate("m2", 1, -0.8)
	m3 := mkCandidate("m3", 2, 0.8)

	got := testEngine().RunCycle([]Candidate{m1, m2, m3})
	require.Len(t, got, 3)

	assert.Equal(t, "m1", got[0].MessageID)
	assert.Equal(t, "m3", got[0].PartnerID)
	// m2 的最优 m3 已被 m1 占用，次优 m1 分数过线且更空闲 → 改派
	assert.Equal(t, "m1", got[1].PartnerID)
	assert.Equal(t, "m2", got[1].MessageID)
	// m3 的最优 m1 也已被占用，对称改派到 m2
	assert.Equal(t, "m2", got[2].PartnerID)
}

// 关扰动时结果完全确定
func TestRunCycleDeterministicWithoutJitter(t *testing.T) {
	candidates := make([]Candidate, 30)
	rng := rand.New(rand.NewSource(3))
	for i := range candidates {
		candidates[i] = mkCandidate(fmt.Sprintf("m%02d", i), i, rng.Float64()*2-1)
	}
	first := testEngine().RunCycle(candidates)
	second := testEngine().RunCycle(candidates)
	assert.Equal(t, first, second)
}

// 固定种子时，扰动结果与并行度无关（扰动源按扫描槽位独立派生）
func TestRunCycleSeededJitterParallelStable(t *testing.T) {
	candidates := make([]Candidate, 100)
	rng := rand.New(rand.NewSource(5))
	intents := []string{model.IntentVenting, model.IntentSeekingAdvice, model.IntentSharing}
	for i := range candidates {
		candidates[i] = Candidate{
			ID:        fmt.Sprintf("m%03d", i),
			CreatedAt: time.Unix(int64(i), 0),
			Sentiment: rng.Float64()*2 - 1,
			Intent:    intents[rng.Intn(len(intents))],
			Energy:    rng.Float64(),
		}
	}

	serialCfg := DefaultConfig()
	serialCfg.Jitter = true
	serialCfg.Seed = 99
	serialCfg.Workers = 1

	parallelCfg := serialCfg
	parallelCfg.Workers = 8

	serial := NewEngine(serialCfg).RunCycle(candidates)
	parallel := NewEngine(parallelCfg).RunCycle(candidates)
	assert.Equal(t, serial, parallel)
}

func BenchmarkRunCycle(b *testing.B) {
	for _, n := range []int{100, 500, 2000} {
		candidates := make([]Candidate, n)
		rng := rand.New(rand.NewSource(17))
		for i := range candidates {
			candidates[i] = mkCandidate(fmt.Sprintf("m%05d", i), i, rng.Float64()*2-1)
		}
		cfg := DefaultConfig()
		cfg.Seed = 17
		engine := NewEngine(cfg)
		b.Run(fmt.Sprintf("pool_%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = engine.RunCycle(candidates)
			}
		})
	}
}
