package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	orderflow "github.com/goliatone/go-orderflow"
	"github.com/goliatone/go-orderflow/pkg/backend"
	"github.com/goliatone/go-orderflow/pkg/order"
	"github.com/goliatone/go-orderflow/pkg/renderers/tui"
)

type config struct {
	BaseURL  string   `yaml:"base_url"`
	Token    string   `yaml:"token"`
	Timeout  duration `yaml:"timeout"`
	Debounce duration `yaml:"debounce"`
}

// duration accepts Go duration strings like "750ms" in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

func main() {
	configPath := flag.String("config", "orderflow.yaml", "YAML client configuration")
	product := flag.String("product", "", "product ID to order")
	sell := flag.Bool("sell", false, "sell instead of buy")
	currency := flag.String("currency", "NGN", "local currency code")
	flag.Parse()

	if *product == "" {
		log.Fatal("a -product ID is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := []backend.Option{}
	if cfg.Token != "" {
		opts = append(opts, backend.WithTokenSource(backend.StaticToken(cfg.Token)))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, backend.WithTimeout(time.Duration(cfg.Timeout)))
	}
	client, err := backend.New(cfg.BaseURL, opts...)
	if err != nil {
		log.Fatalf("Failed to build client: %v", err)
	}

	direction := orderflow.Buy
	if *sell {
		direction = orderflow.Sell
	}

	ctx := context.Background()

	var pipelineOpts []orderflow.Option
	if cfg.Debounce > 0 {
		pipelineOpts = append(pipelineOpts, orderflow.WithDebounce(time.Duration(cfg.Debounce)))
	}
	pipeline, page, err := orderflow.Load(ctx, client, *product, direction, pipelineOpts...)
	if err != nil {
		log.Fatalf("Failed to load product page: %v", err)
	}
	defer pipeline.Close()

	walkthrough, err := tui.New(tui.Options{
		Driver:   tui.NewSurveyDriver(),
		Pipeline: pipeline,
		Product: order.Product{
			ID:     page.Product.ID,
			Name:   page.Product.Name,
			Symbol: page.Product.Symbol,
		},
		Currency: *currency,
	})
	if err != nil {
		log.Fatalf("Failed to start walkthrough: %v", err)
	}

	result, err := walkthrough.Run(ctx)
	if err != nil {
		if err == tui.ErrAborted {
			fmt.Println("Order cancelled.")
			os.Exit(1)
		}
		log.Fatalf("Order failed: %v", err)
	}

	fmt.Printf("Order %s completed.\n", result.Reference)
}

func loadConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, err
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
