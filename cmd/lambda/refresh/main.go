// Command refresh is an AWS Lambda handler that runs the pipeline once per
// invocation, typically from an EventBridge schedule.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"StoryScanner/internal/app"
	"StoryScanner/internal/config"
	"StoryScanner/internal/logging"
)

// Response summarizes one refresh.
type Response struct {
	StatusCode  int    `json:"statusCode"`
	Message     string `json:"message"`
	Records     int    `json:"records"`
	Stories     int    `json:"stories"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

// Handler builds the application from the environment and runs it once.
func Handler(ctx context.Context, _ any) (Response, error) {
	cfg := config.Load("")
	logger := logging.New(cfg.Logging.Level, "json")

	application, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return Response{StatusCode: 500, Message: err.Error()}, err
	}
	defer application.Close()

	payload, err := application.RunOnce(ctx)
	if err != nil {
		return Response{StatusCode: 500, Message: err.Error()}, fmt.Errorf("refresh: %w", err)
	}

	records, nested := payload.Count()
	logger.Info("refresh complete", "records", records, "stories", nested)
	return Response{
		StatusCode:  200,
		Message:     "ok",
		Records:     records,
		Stories:     nested,
		LastUpdated: payload.LastUpdated.Format(time.RFC3339),
	}, nil
}

func main() {
	_ = godotenv.Load()
	lambda.Start(Handler)
}
