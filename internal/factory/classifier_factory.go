package factory

import (
	"fmt"

	"github.com/mikey/llm-feed-filter/internal/adapters/bedrock"
	"github.com/mikey/llm-feed-filter/internal/adapters/classifier"
	"github.com/mikey/llm-feed-filter/internal/adapters/gemini"
	"github.com/mikey/llm-feed-filter/internal/adapters/openai"
	"github.com/mikey/llm-feed-filter/internal/config"
	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/mikey/llm-feed-filter/internal/utils"
	"go.uber.org/zap"
)

// ClassifierFactory creates classification gateways
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a classifier based on the configuration
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	provider := f.cfg.GetClassifier().Provider
	f.logger.Info("Creating classifier", zap.String("provider", provider))

	switch provider {
	case "http":
		httpCfg, err := f.cfg.GetHTTP()
		if err != nil {
			return nil, err
		}
		return classifier.NewHTTPClassifier(httpCfg.Endpoint, httpCfg.Timeout, f.logger), nil
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", provider)
	}
}
