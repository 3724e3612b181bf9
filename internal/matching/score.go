package matching

import (
	"time"

	"github.com/killthisworld/vybrix/internal/model"
)

// Candidate 参与匹配的候选消息（只携带打分所需特征）
type Candidate struct {
	ID        string
	CreatedAt time.Time
	// Sentiment ∈ [-1,1]
	Sentiment float64
	Intent    string
	// Energy ∈ [0,1]
	Energy float64
}

// 意图组合加成表，有向：intent(A)→intent(B)
var intentAffinity = map[[2]string]float64{
	{model.IntentVenting, model.IntentSharing}:       0.8,
	{model.IntentSeekingAdvice, model.IntentSharing}: 0.9,
}

const neutralIntentScore = 0.5

// scorer 计算有向对 (A,B) 的兼容度。jitter 返回 [0,1) 内的扰动，
// 同一档位内打散平局；确定性模式固定取 0.5。
type scorer struct {
	sentimentWeight float64
	intentWeight    float64
	energyWeight    float64
	jitter          func() float64
}

func fixedJitter() float64 { return 0.5 }

// Score 返回 [0,1] 内的兼容度。
// 情绪档位：负遇正（倾诉遇抚慰）> 情绪相近 > 其余。
func (s *scorer) Score(a, b Candidate) float64 {
	var sentiment float64
	switch {
	case a.Sentiment < 0 && b.Sentiment > 0:
		sentiment = 0.9 + s.jitter()*0.1
	case abs(a.Sentiment-b.Sentiment) < 0.3:
		sentiment = 0.7 + s.jitter()*0.2
	default:
		sentiment = 0.5 + s.jitter()*0.2
	}

	intent, ok := intentAffinity[[2]string{intentOrDefault(a.Intent), intentOrDefault(b.Intent)}]
	if !ok {
		intent = neutralIntentScore
	}

	energy := 1 - abs(a.Energy-b.Energy)

	score := sentiment*s.sentimentWeight + intent*s.intentWeight + energy*s.energyWeight
	return clamp01(score)
}

func intentOrDefault(intent string) string {
	if intent == "" {
		return model.IntentSharing
	}
	return intent
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
