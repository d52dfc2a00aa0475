package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matria/clinical-engine/internal/config"
	"github.com/matria/clinical-engine/internal/core"
	"github.com/matria/clinical-engine/internal/corpus"
	"github.com/matria/clinical-engine/internal/di"
	"github.com/matria/clinical-engine/internal/logging"
	"github.com/matria/clinical-engine/internal/ports"
	"go.uber.org/zap"
)

var (
	// Operation flags
	mode      = flag.String("mode", "classify", "Operation mode (classify, retrieve, add)")
	message   = flag.String("message", "", "Message to classify")
	pregnancy = flag.Bool("pregnancy", false, "Use the pregnancy taxonomy instead of the infant one")

	// Retrieval flags
	topK     = flag.Int("top-k", 0, "Number of cases to retrieve (0 uses the configured default)")
	features = flag.String("features", "", "Comma-separated feature pairs, e.g. age_months=6,temp_c=38.5")
	label    = flag.String("label", "", "Severity label (low, mid, high or a known synonym)")

	// Filter flags
	filterLabel = flag.String("filter-label", "", "Restrict retrieval to cases with this severity label")
	minAge      = flag.Float64("min-age", 0, "Minimum age_months filter for retrieval")
	maxAge      = flag.Float64("max-age", 0, "Maximum age_months filter for retrieval")

	// Logging flags
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	// Console logger for everything before the container is up
	bootLogger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer bootLogger.Sync()

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		bootLogger.Fatal("Failed to build dependency container", zap.Error(err))
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		bootLogger.Fatal("Application error", zap.Error(err))
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	engine ports.Engine,
	retrieval *core.RetrievalService,
	fallback core.FallbackClient,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	ctx := context.Background()

	// Load the seed corpus before serving any retrieval request
	if err := loadSeedCorpus(ctx, cfg, retrieval, logger); err != nil {
		logger.Error("Failed to load seed corpus", zap.Error(err))
		return err
	}

	var runErr error
	switch *mode {
	case "classify":
		runErr = runClassify(ctx, engine)
	case "retrieve":
		runErr = runRetrieve(ctx, cfg, engine)
	case "add":
		runErr = runAdd(ctx, engine)
	default:
		runErr = fmt.Errorf("unknown mode: %s", *mode)
	}

	// Close any resources that need closing
	if closer, ok := fallback.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close fallback client", zap.Error(err))
		}
	}

	// Stop the cache if needed
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	return runErr
}

func loadSeedCorpus(ctx context.Context, cfg *config.Config, retrieval *core.RetrievalService, logger *zap.Logger) error {
	seeds, err := corpus.LoadSeed(cfg.GetCorpus().SeedPath)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}

	inputs := make([]core.CaseInput, 0, len(seeds))
	for _, seed := range seeds {
		inputs = append(inputs, core.CaseInput{
			Features: seed.Features,
			Label:    seed.Label,
		})
	}
	if err := retrieval.Bootstrap(ctx, inputs); err != nil {
		return err
	}
	logger.Info("Loaded seed corpus", zap.Int("cases", len(inputs)))
	return nil
}

func runClassify(ctx context.Context, engine ports.Engine) error {
	if *message != "" {
		fmt.Printf("Category: %s\n", engine.Classify(ctx, *message, *pregnancy))
		return nil
	}

	// no -message: classify messages from stdin, one per line
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fmt.Printf("%s\t%s\n", engine.Classify(ctx, line, *pregnancy), line)
	}
	return scanner.Err()
}

func runRetrieve(ctx context.Context, cfg *config.Config, engine ports.Engine) error {
	feats, err := parseFeatures(*features)
	if err != nil {
		return err
	}
	if len(feats) == 0 {
		return fmt.Errorf("retrieve mode requires -features")
	}

	k := *topK
	if k <= 0 {
		k = cfg.GetRetrieval().TopK
	}

	var filters core.Filters
	if *filterLabel != "" {
		filters.Label = core.NormalizeLabel(*filterLabel)
	}
	if *minAge > 0 || *maxAge > 0 {
		filters.AgeRange = &core.Range{Min: *minAge, Max: *maxAge}
	}

	results := engine.Retrieve(ctx, core.ClinicalQuery{Features: feats, Label: *label}, k, filters)
	if len(results) == 0 {
		fmt.Println("No matching cases")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. case=%d fused=%.6f sparse=%.4f dense=%.4f\n",
			i+1, r.CaseID, r.FusedScore, r.SparseScore, r.DenseScore)
	}
	return nil
}

func runAdd(ctx context.Context, engine ports.Engine) error {
	feats, err := parseFeatures(*features)
	if err != nil {
		return err
	}
	if len(feats) == 0 {
		return fmt.Errorf("add mode requires -features")
	}

	id, err := engine.AddCase(ctx, feats, *label)
	if err != nil {
		return err
	}
	fmt.Printf("Added case %d\n", id)
	return nil
}

// parseFeatures converts "k=v,k=v" flag syntax to a feature map.
func parseFeatures(raw string) (map[string]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	feats := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid feature pair: %q", pair)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid feature value in %q: %w", pair, err)
		}
		feats[strings.TrimSpace(parts[0])] = value
	}
	return feats, nil
}
