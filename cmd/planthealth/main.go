package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"greenhouse-assistant/backend/internal/planthealth"
	"greenhouse-assistant/backend/pkg/logger"
	"greenhouse-assistant/backend/pkg/secrets"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	model := flag.String("model", planthealth.DefaultModel, "classifier model")
	top := flag.Int("top", 5, "predictions to print")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: planthealth [flags] IMAGE_URL")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	if err := secrets.Init(logger.Discard()); err != nil {
		fmt.Fprintln(os.Stderr, "secrets:", err)
		os.Exit(1)
	}
	client, err := planthealth.NewClient(planthealth.Options{
		Model: *model,
		Token: secrets.GetSecretWithDefault(ctx, secrets.KeyHuggingFaceToken, ""),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v (set %s)\n", err, secrets.KeyHuggingFaceToken)
		os.Exit(1)
	}

	result, err := client.Classify(ctx, flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "classify:", err)
		os.Exit(1)
	}

	fmt.Printf("Top: %s (%.2f%%)\n", result.Top.Label, result.Top.ConfidencePercent)
	for i, p := range result.Predictions {
		if i >= *top {
			break
		}
		fmt.Printf("%2d. %-50s %6.2f%%\n", i+1, p.Label, p.ConfidencePercent)
	}
}
