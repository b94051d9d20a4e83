package model

type SentimentCategory string

const (
	SentimentPositive SentimentCategory = "positive"
	SentimentNegative SentimentCategory = "negative"
	SentimentNeutral  SentimentCategory = "neutral"

	// SentimentFamily is a special category applied when a message
	// mentions a person but scores neutral.
	SentimentFamily SentimentCategory = "family"
)

// Sentiment is the result of analyzing one patient message.
type Sentiment struct {
	Score     float64           `json:"score"`
	Magnitude float64           `json:"magnitude"`
	Category  SentimentCategory `json:"category"`
	Entities  Entities          `json:"entities"`
}

const (
	positiveThreshold = 0.25
	negativeThreshold = -0.25
)

// CategorizeSentiment maps a sentiment score and extracted entities to a
// category. The family override only applies in the neutral band: a
// strongly positive or negative score wins over a person mention.
func CategorizeSentiment(score float64, entities Entities) SentimentCategory {
	switch {
	case score > positiveThreshold:
		return SentimentPositive
	case score < negativeThreshold:
		return SentimentNegative
	case len(entities.People) > 0:
		return SentimentFamily
	default:
		return SentimentNeutral
	}
}
