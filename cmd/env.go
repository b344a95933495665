package main

import (
	"go.uber.org/zap"

	"github.com/sells-group/sustainfire/internal/config"
	"github.com/sells-group/sustainfire/internal/dashboard"
	"github.com/sells-group/sustainfire/internal/scorer"
)

// initPipeline loads the model once and builds the render pipeline. A model
// that cannot be loaded is logged and scoring falls back to random labels.
func initPipeline(c *config.Config) *dashboard.Pipeline {
	var model scorer.Predictor
	forest, err := scorer.Load(c.Model.Path)
	if err != nil {
		zap.L().Warn("no saved model found, using random predictions",
			zap.String("path", c.Model.Path),
			zap.Error(err),
		)
	} else {
		model = forest
	}

	return dashboard.NewPipeline(c, scorer.NewScorer(model, nil))
}
