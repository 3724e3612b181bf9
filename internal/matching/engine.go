package matching

import (
	"math/rand"
	"sync"
)

// Config 引擎参数；零值无意义，用 DefaultConfig 起步
type Config struct {
	SentimentWeight float64
	IntentWeight    float64
	EnergyWeight    float64
	// MinAcceptableScore 低于该分不建立任何指派
	MinAcceptableScore float64
	// SecondBestThreshold 次优分须达到最优分的该比例才允许改派
	SecondBestThreshold float64
	// Workers 打分阶段并行度，<=1 时串行
	Workers int
	// Jitter 开启档位内随机扰动；关闭时打分完全确定（测试用）
	Jitter bool
	Seed   int64
}

func DefaultConfig() Config {
	return Config{
		SentimentWeight:     0.5,
		IntentWeight:        0.3,
		EnergyWeight:        0.2,
		MinAcceptableScore:  0.55,
		SecondBestThreshold: 0.75,
		Workers:             4,
		Jitter:              true,
	}
}

// Assignment A 在本周期选定的伙伴（有向，落库时才做双向归并）
type Assignment struct {
	MessageID string
	PartnerID string
	Score     float64
}

// Engine 批式匹配引擎：纯计算，周期之间无状态
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine { return &Engine{cfg: cfg} }

// selection 单条消息扫描全池后的最优/次优结果，下标指向候选切片
type selection struct {
	best        int
	bestScore   float64
	second      int
	secondScore float64
}

// RunCycle 对一个队列（同池日、均已过最早投递时间、均未匹配）的候选集
// 跑一轮匹配，按处理顺序返回有向指派。调用方保证候选按创建时间升序。
//
// 少于两条候选时返回空结果；候选自身永远不会被指派给自己。
func (e *Engine) RunCycle(candidates []Candidate) []Assignment {
	if len(candidates) < 2 {
		return nil
	}

	selections := e.selectPartners(candidates)

	// 指派阶段有顺序依赖（matchCount 随先前决策更新），必须串行折叠
	counts := make(map[string]int, len(candidates))
	assignments := make([]Assignment, 0, len(candidates))
	for i, a := range candidates {
		sel := selections[i]
		if sel.best < 0 {
			continue
		}
		if sel.bestScore < e.cfg.MinAcceptableScore {
			// 全场分数不过线，本周期放弃，投递窗口内下次重试
			continue
		}

		chosen, score := sel.best, sel.bestScore
		if counts[candidates[sel.best].ID] != 0 &&
			sel.second >= 0 &&
			sel.secondScore >= sel.bestScore*e.cfg.SecondBestThreshold &&
			sel.secondScore >= e.cfg.MinAcceptableScore &&
			counts[candidates[sel.second].ID] < counts[candidates[sel.best].ID] {
			// 最优目标已被抢，次优分数够硬且更空闲，改派降热点
			chosen, score = sel.second, sel.secondScore
		}

		assignments = append(assignments, Assignment{
			MessageID: a.ID,
			PartnerID: candidates[chosen].ID,
			Score:     score,
		})
		counts[candidates[chosen].ID]++
	}
	return assignments
}

// selectPartners O(n²) 逐对打分，每条消息独立可并行。
// 每个扫描槽位使用独立种子的扰动源，结果与并行调度顺序无关。
func (e *Engine) selectPartners(candidates []Candidate) []selection {
	selections := make([]selection, len(candidates))

	scan := func(i int) {
		s := e.newScorer(int64(i))
		sel := selection{best: -1, bestScore: -1, second: -1, secondScore: -1}
		for j, b := range candidates {
			if i == j {
				continue
			}
			score := s.Score(candidates[i], b)
			// 严格大于：平分时保留先见者，保证稳定
			if score > sel.bestScore {
				sel.second, sel.secondScore = sel.best, sel.bestScore
				sel.best, sel.bestScore = j, score
			} else if score > sel.secondScore {
				sel.second, sel.secondScore = j, score
			}
		}
		selections[i] = sel
	}

	workers := e.cfg.Workers
	if workers <= 1 || len(candidates) < 64 {
		for i := range candidates {
			scan(i)
		}
		return selections
	}

	var wg sync.WaitGroup
	idxCh := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				scan(i)
			}
		}()
	}
	for i := range candidates {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()
	return selections
}

func (e *Engine) newScorer(slot int64) *scorer {
	s := &scorer{
		sentimentWeight: e.cfg.SentimentWeight,
		intentWeight:    e.cfg.IntentWeight,
		energyWeight:    e.cfg.EnergyWeight,
		jitter:          fixedJitter,
	}
	if e.cfg.Jitter {
		rng := rand.New(rand.NewSource(e.cfg.Seed + slot))
		s.jitter = rng.Float64
	}
	return s
}
