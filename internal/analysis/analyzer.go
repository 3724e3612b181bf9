package analysis

import (
	"strings"

	"github.com/killthisworld/vybrix/internal/model"
)

// Result 提交时一次性产出的消息特征。
// 纯启发式占位实现：关键词打分 + 文本形态，不做真实 NLP 推断。
type Result struct {
	SentimentScore  float64
	EmotionMap      model.EmotionMap
	Intent          string
	EnergyScalar    float64
	PolarityYinYang float64
	LexicalDepth    float64
	TopicTags       model.StringList
}

var positiveWords = []string{
	"happy", "love", "great", "grateful", "thank", "excited", "hope",
	"amazing", "wonderful", "better", "proud", "joy",
}

var negativeWords = []string{
	"sad", "tired", "alone", "lonely", "hate", "angry", "lost", "hurt",
	"anxious", "scared", "cry", "worst", "awful", "depressed",
}

var ventingWords = []string{
	"can't take", "fed up", "sick of", "so tired of", "i hate", "why me",
	"exhausted", "nobody understands", "i just need to",
}

var adviceWords = []string{
	"should i", "what do i do", "how do i", "any advice", "help me",
	"what would you", "i don't know what",
}

// Analyze 从正文推导情绪特征。同一正文永远得到同一结果。
func Analyze(content string) Result {
	text := strings.ToLower(content)

	sentiment := keywordSentiment(text)
	energy := energyScalar(content, text)
	intent := detectIntent(text)

	depth := float64(len(content)) / 500
	if depth > 1 {
		depth = 1
	}

	return Result{
		SentimentScore:  sentiment,
		EmotionMap:      emotionMap(sentiment, energy),
		Intent:          intent,
		EnergyScalar:    energy,
		PolarityYinYang: sentiment,
		LexicalDepth:    depth,
		TopicTags:       model.StringList{"general"},
	}
}

func keywordSentiment(text string) float64 {
	var pos, neg int
	for _, w := range positiveWords {
		pos += strings.Count(text, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(text, w)
	}
	if pos == 0 && neg == 0 {
		// 无情绪词时退回长度启发：长文偏正向，短文偏负向
		if len(text) > 50 {
			return 0.5
		}
		return -0.2
	}
	score := float64(pos-neg) / float64(pos+neg)
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}

func detectIntent(text string) string {
	for _, w := range adviceWords {
		if strings.Contains(text, w) {
			return model.IntentSeekingAdvice
		}
	}
	for _, w := range ventingWords {
		if strings.Contains(text, w) {
			return model.IntentVenting
		}
	}
	return model.IntentSharing
}

// energyScalar 以感叹号与大写占比近似唤醒度
func energyScalar(raw, text string) float64 {
	energy := 0.6
	energy += 0.1 * float64(strings.Count(text, "!"))
	var upper, letters int
	for _, r := range raw {
		if r >= 'A' && r <= 'Z' {
			upper++
		}
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			letters++
		}
	}
	if letters > 0 && float64(upper)/float64(letters) > 0.5 {
		energy += 0.2
	}
	if energy > 1 {
		energy = 1
	}
	return energy
}

func emotionMap(sentiment, energy float64) model.EmotionMap {
	joy := clamp01Range((sentiment + 1) / 2)
	sadness := clamp01Range((1 - sentiment) / 2 * 0.8)
	anger := clamp01Range(energy * (1 - (sentiment+1)/2) * 0.5)
	calm := clamp01Range(1 - energy)
	return model.EmotionMap{"joy": joy, "sadness": sadness, "anger": anger, "calm": calm}
}

func clamp01Range(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
