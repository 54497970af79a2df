package provider

import (
	"log/slog"

	"pixie/model"
)

func logSuccess(log *slog.Logger, modelName, text string, usage model.Usage) {
	log.Info("LLM response generated successfully",
		"model", modelName,
		"tokens", usage.InputTokens+usage.OutputTokens,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"finish_reason", usage.FinishReason,
		"response_length", len(text),
	)
}
