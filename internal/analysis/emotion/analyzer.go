package emotion

import (
	"math"
	"strings"
)

// Label 表示对话中识别出的情绪类别。
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Excited  Label = "excited"
	Tender   Label = "tender"
	Comfort  Label = "comfort"
	Magnetic Label = "magnetic"
)

// Decision 给出情绪识别结果以及推荐情绪强度。
type Decision struct {
	Emotion Label
	Scale   float32
	Score   int
}

var keywordBuckets = map[Label][]string{
	Happy: {
		"happy", "glad", "great", "awesome", "amazing", "wonderful", "fantastic", "thanks", "thank you",
		"love", "enjoy", "delighted", "pleased", "nice", "lol", "haha", "congratulations",
	},
	Sad: {
		"sad", "unhappy", "cry", "crying", "depressed", "lonely", "upset", "hurt", "sorrow", "miss",
		"disappointed", "heartbroken", "lost", "tragedy", "grief",
	},
	Angry: {
		"angry", "furious", "rage", "mad", "annoyed", "pissed", "outrage", "hate", "sick of", "fed up",
		"ridiculous", "unacceptable",
	},
	Excited: {
		"excited", "can't wait", "cannot wait", "wow", "incredible", "unbelievable", "superb", "thrilled",
		"hype", "epic", "let's go",
	},
	Tender: {
		"gentle", "softly", "soft", "calm", "quiet", "relax", "peaceful", "slowly", "warm", "cozy",
	},
	Comfort: {
		"don't worry", "it's okay", "it's ok", "i understand", "i'm here", "i am here", "you're safe",
		"take it easy", "breathe", "calm down", "for you", "support you", "it will be fine",
	},
	Magnetic: {
		"important", "serious", "must", "critical", "focus", "remember", "make sure", "be careful",
		"essential", "warning",
	},
}

var punctuationBoost = map[Label]int{
	Happy:   2,
	Excited: 3,
}

// Analyze 根据用户话语与AI回复推断应使用的语音情绪。
func Analyze(userUtterance, aiUtterance string) Decision {
	userScore := scoreText(userUtterance)
	aiScore := scoreText(aiUtterance)

	finalScore := aiScore
	// 若AI回复缺少明显情感，则根据用户情绪进行映射，从而提供安抚或共情。
	if finalScore.Score == 0 && userScore.Score > 0 {
		finalScore = coerceEmotionFromUser(userScore)
	}

	if finalScore.Score == 0 {
		return Decision{Emotion: Neutral, Scale: 3, Score: 0}
	}

	scale := 2 + float32(finalScore.Score)/4
	if finalScore.Emotion == Excited {
		scale += 1
	}
	if finalScore.Emotion == Magnetic {
		scale = float32(math.Min(4.0, float64(scale)))
	}
	if finalScore.Emotion == Comfort || finalScore.Emotion == Tender {
		scale = float32(math.Min(3.5, float64(scale)))
	}

	if scale < 1 {
		scale = 1
	}
	if scale > 5 {
		scale = 5
	}

	return Decision{Emotion: finalScore.Emotion, Scale: scale, Score: finalScore.Score}
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Emotion: Neutral}
	}
	words := tokenize(normalized)

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, keyword := range keywords {
			if matches(normalized, words, keyword) {
				scores[label] += 3
			}
		}
	}

	exclamations := strings.Count(text, "!")
	if exclamations > 0 {
		scores[Excited] += exclamations * punctuationBoost[Excited]
		if exclamations == 1 {
			scores[Happy] += punctuationBoost[Happy]
		}
	}

	bestLabel := Neutral
	bestScore := 0
	for _, label := range labelOrder {
		if s := scores[label]; s > bestScore {
			bestScore = s
			bestLabel = label
		}
	}

	if bestScore == 0 {
		return Decision{Emotion: Neutral}
	}
	return Decision{Emotion: bestLabel, Score: bestScore}
}

// labelOrder 保证同分时结果稳定。
var labelOrder = []Label{Comfort, Sad, Angry, Excited, Happy, Tender, Magnetic}

// matches 单词关键词按整词匹配，短语按子串匹配，避免 "mad" 命中 "made"。
func matches(normalized string, words map[string]struct{}, keyword string) bool {
	if strings.ContainsRune(keyword, ' ') || strings.ContainsRune(keyword, '\'') {
		return strings.Contains(normalized, keyword)
	}
	_, ok := words[keyword]
	return ok
}

func tokenize(normalized string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(normalized, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	}) {
		words[w] = struct{}{}
	}
	return words
}

func coerceEmotionFromUser(user Decision) Decision {
	switch user.Emotion {
	case Sad:
		return Decision{Emotion: Comfort, Score: user.Score}
	case Angry:
		return Decision{Emotion: Magnetic, Score: user.Score}
	case Excited:
		return Decision{Emotion: Excited, Score: user.Score}
	case Happy:
		return Decision{Emotion: Happy, Score: user.Score}
	case Tender, Comfort:
		return Decision{Emotion: Tender, Score: user.Score}
	default:
		return user
	}
}
