package companion

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/repository"
)

const maxInsightTopics = 5

// TopicCount is one entry in the topic ranking of an insights report.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Insights summarizes a patient's conversation activity over a period.
type Insights struct {
	Period          string                          `json:"period"`
	TotalMessages   int                             `json:"totalMessages"`
	PatientMessages int                             `json:"patientMessages"`
	MessagesPerDay  float64                         `json:"messagesPerDay"`
	TopTopics       []TopicCount                    `json:"topTopics"`
	SentimentCounts map[model.SentimentCategory]int `json:"sentimentCounts"`
}

// ConversationInsights aggregates the patient's messages within the
// period ("day", "week" or "month") into topic, sentiment and frequency
// summaries. Only patient messages carry sentiment and topics.
func (u *UseCase) ConversationInsights(ctx context.Context, patientID model.PatientID, period string) (*Insights, error) {
	var days int
	switch period {
	case "day":
		days = 1
	case "week":
		days = 7
	case "month":
		days = 30
	default:
		return nil, goerr.Wrap(model.ErrInvalidInput, "invalid insights period", goerr.V("period", period))
	}

	since := time.Now().AddDate(0, 0, -days)
	messages, err := u.repo.ListMessages(ctx, patientID, repository.ListMessagesInput{Since: since})
	if err != nil {
		return nil, err
	}

	insights := &Insights{
		Period:          period,
		TotalMessages:   len(messages),
		SentimentCounts: map[model.SentimentCategory]int{},
	}

	topicCounts := map[string]int{}
	for _, msg := range messages {
		if msg.Sender != model.SenderPatient {
			continue
		}
		insights.PatientMessages++
		if msg.Sentiment != "" {
			insights.SentimentCounts[msg.Sentiment]++
		}
		for _, topic := range msg.Topics {
			topicCounts[topic]++
		}
	}

	insights.MessagesPerDay = math.Round(float64(len(messages))/float64(days)*100) / 100

	for topic, count := range topicCounts {
		insights.TopTopics = append(insights.TopTopics, TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(insights.TopTopics, func(i, j int) bool {
		if insights.TopTopics[i].Count != insights.TopTopics[j].Count {
			return insights.TopTopics[i].Count > insights.TopTopics[j].Count
		}
		return insights.TopTopics[i].Topic < insights.TopTopics[j].Topic
	})
	if len(insights.TopTopics) > maxInsightTopics {
		insights.TopTopics = insights.TopTopics[:maxInsightTopics]
	}

	return insights, nil
}
