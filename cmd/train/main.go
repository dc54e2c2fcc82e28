// Command train fits the linear score model from a CSV file or synthetic
// data and writes the model bundle used by the server and predict. With
// -classify it instead compares pass/fail classifiers and prints their
// accuracy and confusion matrices.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/okian/grader/internal/adapters/artifact"
	"github.com/okian/grader/internal/domain/grading"
	"github.com/okian/grader/internal/domain/training"
	"github.com/okian/grader/pkg/logger"
)

// Default training constants.
const (
	defaultOut              = "models/model.json"
	defaultTestSize         = 0.2
	defaultClassifyTestSize = 0.25
	defaultSeed             = 42
	defaultMaxDepth         = 5
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	csvPath      string
	synthetic    int
	seed         int64
	target       string
	features     string
	preferred    string
	testSize     float64
	noScaler     bool
	out          string
	featuresOut  string
	cleanOut     string
	labelingName string
	classify     bool
	maxDepth     int
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return exitUsage
	}

	if err := logger.Init(logger.WithOutput(stderr)); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	log := logger.Named("train")

	if opts.classify {
		if err := classify(ctx, opts, stdout, log); err != nil {
			log.Error(ctx, "classification failed", logger.Error(err))
			return exitError
		}
		return exitOK
	}

	if err := train(ctx, opts, log); err != nil {
		log.Error(ctx, "training failed", logger.Error(err))
		return exitError
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.csvPath, "csv", "", "Students CSV to train on")
	fs.IntVar(&o.synthetic, "synthetic", 0, "Generate this many synthetic rows instead of reading -csv")
	fs.Int64Var(&o.seed, "seed", defaultSeed, "Seed for synthetic data and the train/test split")
	fs.StringVar(&o.target, "target", "", "Column to predict (default average, or score for synthetic data)")
	fs.StringVar(&o.features, "features", "", "Comma-separated feature columns, in order")
	fs.StringVar(&o.preferred, "preferred", "", "Comma-separated preferred features used when -features is empty")
	fs.Float64Var(&o.testSize, "test-size", defaultTestSize, "Held-out fraction in [0, 1) (0.25 by default with -classify)")
	fs.BoolVar(&o.noScaler, "no-scaler", false, "Fit on raw feature values")
	fs.StringVar(&o.out, "out", defaultOut, "Model bundle to write (.json or .yaml)")
	fs.StringVar(&o.featuresOut, "features-out", "", "Optional feature_order.json to write")
	fs.StringVar(&o.cleanOut, "clean-out", "", "Optional path for the cleaned CSV")
	fs.StringVar(&o.labelingName, "label-scale", grading.LabelingName, "Scale used to derive the grade column")
	fs.BoolVar(&o.classify, "classify", false, "Compare pass/fail classifiers instead of fitting the score model")
	fs.IntVar(&o.maxDepth, "max-depth", defaultMaxDepth, "Decision tree depth limit for -classify")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if (o.csvPath == "") == (o.synthetic <= 0) {
		fmt.Fprintln(stderr, "exactly one of -csv or -synthetic is required")
		fs.Usage()
		return options{}, flag.ErrHelp
	}
	if o.classify && !flagSet(fs, "test-size") {
		o.testSize = defaultClassifyTestSize
	}
	return o, nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func train(ctx context.Context, o options, log logger.Logger) error {
	ds, err := loadDataset(ctx, o, log)
	if err != nil {
		return err
	}

	trainOpts := []training.Option{
		training.WithTarget(o.target),
		training.WithTestSize(o.testSize),
		training.WithSeed(o.seed),
	}
	if names := splitList(o.features); len(names) > 0 {
		trainOpts = append(trainOpts, training.WithFeatures(names...))
	}
	if names := splitList(o.preferred); len(names) > 0 {
		trainOpts = append(trainOpts, training.WithPreferredFeatures(names...))
	}
	if o.synthetic > 0 {
		if o.target == "" {
			trainOpts = append(trainOpts, training.WithTarget(training.ColumnScore))
		}
		if o.features == "" {
			trainOpts = append(trainOpts, training.WithFeatures(training.SyntheticFeatures...))
		}
	}
	if o.noScaler {
		trainOpts = append(trainOpts, training.WithoutScaler())
	}

	out, err := training.Train(ctx, ds, trainOpts...)
	if err != nil {
		return err
	}

	bundle := artifact.NewBundle(out.Target, out.Features, out.Model, out.Scaler, out.Metrics.Map())
	if err := artifact.Save(o.out, bundle); err != nil {
		return err
	}
	if o.featuresOut != "" {
		if err := artifact.SaveFeatureOrder(o.featuresOut, out.Features); err != nil {
			return err
		}
	}

	log.Info(ctx, "model trained",
		logger.String("out", o.out),
		logger.String("target", out.Target),
		logger.Any("features", out.Features),
		logger.Int("train_rows", out.TrainRows),
		logger.Int("test_rows", out.TestRows),
		logger.Float64("mae", out.Metrics.MAE),
		logger.Float64("rmse", out.Metrics.RMSE),
	)
	return nil
}

func classify(ctx context.Context, o options, stdout io.Writer, log logger.Logger) error {
	ds, err := loadDataset(ctx, o, log)
	if err != nil {
		return err
	}

	classifyOpts := []training.Option{
		training.WithTarget(o.target),
		training.WithTestSize(o.testSize),
		training.WithSeed(o.seed),
		training.WithMaxDepth(o.maxDepth),
	}
	if names := splitList(o.features); len(names) > 0 {
		classifyOpts = append(classifyOpts, training.WithFeatures(names...))
	} else if o.synthetic > 0 {
		classifyOpts = append(classifyOpts, training.WithFeatures(training.SyntheticFeatures...))
	}
	if names := splitList(o.preferred); len(names) > 0 {
		classifyOpts = append(classifyOpts, training.WithPreferredFeatures(names...))
	}
	if o.noScaler {
		classifyOpts = append(classifyOpts, training.WithoutScaler())
	}

	out, err := training.Classify(ctx, ds, classifyOpts...)
	if err != nil {
		return err
	}
	if !out.Stratified {
		log.Warn(ctx, "not enough rows per class to stratify; split without stratification")
	}
	log.Info(ctx, "classifiers compared",
		logger.String("target", out.Target),
		logger.Int("train_rows", out.TrainRows),
		logger.Int("test_rows", out.TestRows),
		logger.Int("k", out.Neighbors),
	)
	return writeClassification(stdout, out)
}

func writeClassification(w io.Writer, c training.Classification) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Features: %s\n", strings.Join(c.Features, ", "))
	fmt.Fprintf(tw, "Train size: %d, Test size: %d\n", c.TrainRows, c.TestRows)

	for _, r := range c.Results {
		fmt.Fprintf(tw, "\n=== %s ===\n", r.Name)
		fmt.Fprintf(tw, "Accuracy: %.4f\n", r.Accuracy)
		fmt.Fprintln(tw, "ACTUAL/PREDICTED\tfail\tpass")
		fmt.Fprintf(tw, "fail\t%d\t%d\n", r.Confusion[training.LabelFail][training.LabelFail], r.Confusion[training.LabelFail][training.LabelPass])
		fmt.Fprintf(tw, "pass\t%d\t%d\n", r.Confusion[training.LabelPass][training.LabelFail], r.Confusion[training.LabelPass][training.LabelPass])
		fmt.Fprintln(tw, "CLASS\tPRECISION\tRECALL\tF1\tSUPPORT")
		for _, label := range []int{training.LabelFail, training.LabelPass} {
			rep := r.Confusion.Report(label)
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\n", labelName(label), rep.Precision, rep.Recall, rep.F1, rep.Support)
		}
	}

	fmt.Fprintln(tw, "\n=== Model Comparison (Accuracy) ===")
	for _, r := range c.Results {
		fmt.Fprintf(tw, "%s\t%.4f\n", r.Name, r.Accuracy)
	}
	return tw.Flush()
}

func labelName(label int) string {
	if label == training.LabelPass {
		return "pass"
	}
	return "fail"
}

func loadDataset(ctx context.Context, o options, log logger.Logger) (*training.Dataset, error) {
	if o.synthetic > 0 {
		return training.Synthesize(o.synthetic, o.seed), nil
	}

	f, err := os.Open(o.csvPath)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := training.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	scale, err := grading.Lookup(o.labelingName)
	if err != nil {
		return nil, err
	}

	filled := ds.Clean()
	added := ds.Derive(scale)
	log.Info(ctx, "dataset prepared",
		logger.String("csv", o.csvPath),
		logger.Int("rows", ds.Rows()),
		logger.Any("filled", filled),
		logger.Any("derived", added),
	)

	if o.cleanOut != "" {
		if err := writeCleaned(o.cleanOut, ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func writeCleaned(path string, ds *training.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cleaned csv: %w", err)
	}
	if err := ds.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
