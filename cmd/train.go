package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/modelsmith/tailor-cli/internal/runs"
	"github.com/modelsmith/tailor-cli/internal/trainer"
	"github.com/spf13/cobra"
)

var (
	flagTrainModel       string
	flagTrainDecoderOnly bool
	flagTrainData        []string
	flagTrainVal         []string
	flagTrainConfig      string
	flagTrainSeed        int64
	flagTrainMaxLength   int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fine-tune a base model on JSONL example sets",
	Long: `Prepare training batches from JSONL datasets of {"input", "output"}
pairs and submit them to the configured training runner. Every run is
recorded in the run registry; see 'tailor runs'.

Encoder-decoder models hold out 15% of the shuffled training data for
validation when no --val sets are given. Decoder-only models cannot
evaluate during training.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&flagTrainModel, "model", "", "Base model to fine-tune (required)")
	trainCmd.Flags().BoolVar(&flagTrainDecoderOnly, "decoder-only", false, "The base model is decoder-only (GPT-style)")
	trainCmd.Flags().StringArrayVar(&flagTrainData, "data", nil, "Training dataset, JSONL of {input, output}; repeatable (required)")
	trainCmd.Flags().StringArrayVar(&flagTrainVal, "val", nil, "Validation dataset, JSONL; repeatable")
	trainCmd.Flags().StringVar(&flagTrainConfig, "config", "", "Hyperparameter overrides, YAML; unknown keys are rejected")
	trainCmd.Flags().Int64Var(&flagTrainSeed, "seed", 2023, "Shuffle and validation-split seed")
	trainCmd.Flags().IntVar(&flagTrainMaxLength, "max-length", 512, "Token length limit per example (0 = unlimited)")
	_ = trainCmd.MarkFlagRequired("model")
	_ = trainCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	hasEncoder := !flagTrainDecoderOnly

	// ── 1. Load datasets ──────────────────────────────────────────────────────
	trainSets, trainTotal, err := loadExampleSets(flagTrainData)
	if err != nil {
		return err
	}
	valSets, valTotal, err := loadExampleSets(flagTrainVal)
	if err != nil {
		return err
	}
	printInfo("", fmt.Sprintf("loaded %d training and %d validation example(s)", trainTotal, valTotal))

	// ── 2. Resolve hyperparameters ────────────────────────────────────────────
	tcfg := trainer.DefaultConfig(hasEncoder)
	if flagTrainConfig != "" {
		data, err := os.ReadFile(flagTrainConfig)
		if err != nil {
			return fmt.Errorf("cannot read training config: %w", err)
		}
		tcfg, err = trainer.ParseConfig(data, tcfg)
		if err != nil {
			return err
		}
	}

	// ── 3. Register the run ───────────────────────────────────────────────────
	store, err := runs.Open(cfg.RunsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Create(flagTrainModel, hasEncoder, tcfg, trainTotal, valTotal)
	if err != nil {
		return err
	}
	printInfo("", fmt.Sprintf("run registered: %s", run.ID))

	if err := tcfg.Validate(); err != nil {
		_ = store.Fail(run.ID, err)
		return err
	}

	// ── 4. Train via the runner ───────────────────────────────────────────────
	tr, err := trainer.New(
		trainer.NewModel(flagTrainModel, hasEncoder),
		trainer.ByteTokenizer{},
		trainer.NewRunnerClient(cfg.Runner.BaseURL),
		trainer.Options{ModelMaxLength: flagTrainMaxLength, Seed: flagTrainSeed},
	)
	if err != nil {
		_ = store.Fail(run.ID, err)
		return err
	}

	if err := store.MarkRunning(run.ID); err != nil {
		return err
	}

	ctx := context.Background()
	if cfg.Runner.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Runner.Timeout)
		defer cancel()
	}

	printInfo("", fmt.Sprintf("training %s via %s", flagTrainModel, cfg.Runner.BaseURL))
	res, err := tr.Train(ctx, tcfg, trainSets, valSets)
	if err != nil {
		_ = store.Fail(run.ID, err)
		printErr("", fmt.Sprintf("run %s failed", run.ID))
		return err
	}
	if err := store.Complete(run.ID, res.Artifacts.FinalLoss); err != nil {
		return err
	}

	// ── 5. Report ─────────────────────────────────────────────────────────────
	fmt.Println()
	printOK("", fmt.Sprintf("run %s completed", run.ID))
	printOK("", fmt.Sprintf("model: %s", res.Model.Name()))
	if res.Artifacts.ModelPath != "" {
		printOK("", fmt.Sprintf("artifacts: %s", res.Artifacts.ModelPath))
	}
	printOK("", fmt.Sprintf("final loss: %.4f", res.Artifacts.FinalLoss))
	printMetrics(res.Artifacts.Metrics)
	return nil
}

// loadExampleSets reads each JSONL path into its own example set.
func loadExampleSets(paths []string) ([][]trainer.Example, int, error) {
	var sets [][]trainer.Example
	total := 0
	for _, p := range paths {
		examples, err := trainer.LoadExamples(p)
		if err != nil {
			return nil, 0, err
		}
		sets = append(sets, examples)
		total += len(examples)
	}
	return sets, total, nil
}

// printMetrics prints metric scores in a stable order.
func printMetrics(scores map[string]float64) {
	if len(scores) == 0 {
		return
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printInfo("", fmt.Sprintf("%s: %.4f", name, scores[name]))
	}
}
