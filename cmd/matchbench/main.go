package main

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/killthisworld/vybrix/internal/matching"
	"github.com/killthisworld/vybrix/internal/model"
)

// 匹配引擎离线压测：合成候选池，重复跑周期，看 O(n²) 扫描的耗时分布
func main() {
	N := 2000
	if s := os.Getenv("N"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			N = n
		}
	}
	ROUNDS := 10
	if s := os.Getenv("ROUNDS"); s != "" {
		if r, err := strconv.Atoi(s); err == nil && r > 0 {
			ROUNDS = r
		}
	}
	WORKERS := 4
	if s := os.Getenv("WORKERS"); s != "" {
		if w, err := strconv.Atoi(s); err == nil && w > 0 {
			WORKERS = w
		}
	}

	cfg := matching.DefaultConfig()
	cfg.Workers = WORKERS
	cfg.Seed = time.Now().UnixNano()
	engine := matching.NewEngine(cfg)

	intents := []string{model.IntentVenting, model.IntentSeekingAdvice, model.IntentSharing}
	rng := rand.New(rand.NewSource(42))
	base := time.Now().Add(-2 * time.Hour)
	candidates := make([]matching.Candidate, N)
	for i := range candidates {
		candidates[i] = matching.Candidate{
			ID:        uuid.New().String(),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			Sentiment: rng.Float64()*2 - 1,
			Intent:    intents[rng.Intn(len(intents))],
			Energy:    rng.Float64(),
		}
	}

	durations := make([]time.Duration, 0, ROUNDS)
	var lastAssigned int
	for r := 0; r < ROUNDS; r++ {
		start := time.Now()
		assignments := engine.RunCycle(candidates)
		durations = append(durations, time.Since(start))
		lastAssigned = len(assignments)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p := func(q float64) time.Duration {
		idx := int(q * float64(len(durations)-1))
		return durations[idx]
	}

	fmt.Printf("pool=%d workers=%d rounds=%d\n", N, WORKERS, ROUNDS)
	fmt.Printf("assignments per cycle: %d (%.1f%% of pool)\n", lastAssigned, float64(lastAssigned)/float64(N)*100)
	fmt.Printf("cycle latency p50=%v p90=%v p99=%v max=%v\n", p(0.5), p(0.9), p(0.99), durations[len(durations)-1])
}
