package adapter

import (
	"context"

	language "cloud.google.com/go/language/apiv1"
	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
)

// SentimentAnalyzer analyzes a patient message for sentiment and named
// entities.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (*model.Sentiment, error)
}

type languageClient struct {
	client *language.Client
}

// NewSentimentAnalyzer creates a Cloud Natural Language backed analyzer.
func NewSentimentAnalyzer(ctx context.Context) (SentimentAnalyzer, error) {
	client, err := language.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create language client")
	}

	return &languageClient{client: client}, nil
}

func (l *languageClient) Analyze(ctx context.Context, text string) (*model.Sentiment, error) {
	doc := &languagepb.Document{
		Source: &languagepb.Document_Content{Content: text},
		Type:   languagepb.Document_PLAIN_TEXT,
	}

	sentimentResp, err := l.client.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{
		Document: doc,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze sentiment")
	}

	entitiesResp, err := l.client.AnalyzeEntities(ctx, &languagepb.AnalyzeEntitiesRequest{
		Document: doc,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze entities")
	}

	var entities model.Entities
	for _, entity := range entitiesResp.Entities {
		switch entity.Type {
		case languagepb.Entity_PERSON:
			entities.People = append(entities.People, entity.Name)
		case languagepb.Entity_LOCATION, languagepb.Entity_ADDRESS:
			entities.Locations = append(entities.Locations, entity.Name)
		case languagepb.Entity_ORGANIZATION:
			entities.Organizations = append(entities.Organizations, entity.Name)
		default:
			entities.Other = append(entities.Other, entity.Name)
		}
	}

	score := float64(sentimentResp.DocumentSentiment.GetScore())

	return &model.Sentiment{
		Score:     score,
		Magnitude: float64(sentimentResp.DocumentSentiment.GetMagnitude()),
		Category:  model.CategorizeSentiment(score, entities),
		Entities:  entities,
	}, nil
}
