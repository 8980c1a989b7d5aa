package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgewright/planloom/internal/classify"
	"github.com/forgewright/planloom/internal/llm"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text...]",
	Short: "Run the pre-classifier cascade (C3) against a single requirement",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		return err
	}
	cascade, err := classify.NewCascadeFromConfig(ctx, cfg, client, nil)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	result, err := cascade.Classify(ctx, text)
	if err != nil {
		return err
	}

	fmt.Printf("category:   %s\n", result.Category)
	fmt.Printf("confidence: %.2f\n", result.Confidence)
	fmt.Printf("method:     %s\n", result.Method)
	fmt.Printf("routing:    %s\n", result.RoutingDecision)
	return nil
}
