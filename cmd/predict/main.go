// Command predict reads one JSON object of feature values from stdin and
// prints the predicted score.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/okian/grader/internal/adapters/artifact"
	"github.com/okian/grader/internal/config"
	"github.com/okian/grader/internal/domain/grading"
	"github.com/okian/grader/internal/domain/prediction"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modelPath := fs.String("model", cfg.ModelPath, "Path to the model bundle (.json or .yaml)")
	featuresPath := fs.String("features", cfg.FeaturesPath, "Optional JSON list overriding the feature order")
	scaleName := fs.String("scale", "", "Grade scale: report_card or labeling (default from config)")
	showGrade := fs.Bool("grade", false, "Also print the letter grade")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	scale, err := cfg.Scale()
	if *scaleName != "" {
		scale, err = grading.Lookup(*scaleName)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	p, err := artifact.LoadPredictor(*modelPath, *featuresPath, prediction.WithGradeScale(scale))
	if err != nil {
		fmt.Fprintf(stderr, "model not loaded: %v\n", err)
		return exitError
	}

	raw, err := readInput(stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	res, err := p.Predict(ctx, raw)
	if err != nil {
		if ve, ok := prediction.AsValidationError(err); ok {
			if missing := ve.Missing(); len(missing) > 0 {
				fmt.Fprintf(stderr, "missing required fields: %v\n", missing)
			}
			if invalid := ve.Invalid(); len(invalid) > 0 {
				fmt.Fprintf(stderr, "invalid fields: %v\n", invalid)
			}
			return exitError
		}
		fmt.Fprintln(stderr, err)
		return exitError
	}

	if *showGrade {
		fmt.Fprintf(stdout, "%s %s\n", prediction.FormatScore(res.Score), res.Grade)
		return exitOK
	}
	fmt.Fprintln(stdout, prediction.FormatScore(res.Score))
	return exitOK
}

var errNotObject = errors.New("input must be a single JSON object")

func readInput(r io.Reader) (prediction.RawInput, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errNotObject
	}
	return prediction.RawInput(obj), nil
}
