package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/utils"
	"github.com/vybium/vybium-p2record/pkg/vybium-p2record"
)

// Summary is written to stdout after a successful build
type Summary struct {
	Stats       vybiump2record.Stats  `json:"stats"`
	Layout      vybiump2record.Layout `json:"layout"`
	Fingerprint string                `json:"fingerprint"`
	Valid       bool                  `json:"valid"`
	Verified    bool                  `json:"verified"`
	Fixture     string                `json:"fixture,omitempty"`
}

type options struct {
	configPath         string
	inputsPath         string
	randomHashes       int
	randomCompressions int
	seed               uint64
	parallel           bool
	corrupt            bool
	out                string
}

func main() {
	opts, v := parseFlags()

	if opts.configPath != "" {
		v.SetConfigFile(opts.configPath)
		if err := v.ReadInConfig(); err != nil {
			fatal(fmt.Sprintf("Failed to read config %s: %v", opts.configPath, err))
		}
	}
	config, err := utils.ConfigFromViper(v)
	if err != nil {
		fatal(fmt.Sprintf("Invalid configuration: %v", err))
	}

	log := utils.NewLogger(config.LogLevel, config.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, config, log); err != nil {
		log.WithError(err).Error("record construction failed")
		stop()
		os.Exit(1)
	}
}

func parseFlags() (*options, *viper.Viper) {
	opts := &options{}
	fs := pflag.NewFlagSet("vybium-p2record", pflag.ExitOnError)

	fs.StringVar(&opts.configPath, "config", "", "configuration file (yaml, json or toml)")
	fs.StringVar(&opts.inputsPath, "inputs", "", "JSON inputs file; random inputs are generated when empty")
	fs.IntVar(&opts.randomHashes, "random-hashes", 1000, "number of random hash inputs")
	fs.IntVar(&opts.randomCompressions, "random-compressions", 1000, "number of random compress inputs")
	fs.Uint64Var(&opts.seed, "seed", 1, "seed for random inputs and corruption")
	fs.BoolVar(&opts.parallel, "parallel", false, "build with the configured number of workers")
	fs.BoolVar(&opts.corrupt, "corrupt", false, "record random permutation outputs")
	fs.StringVar(&opts.out, "out", "", "write a record fixture to this path")
	fs.String("log-level", "info", "log level")
	fs.Int("workers", 0, "worker limit for --parallel (defaults to the CPU count)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fatal(err.Error())
	}

	v := utils.NewViper()
	// flags override file and environment only when set explicitly
	if f := fs.Lookup("log-level"); f.Changed {
		if err := v.BindPFlag("log_level", f); err != nil {
			fatal(err.Error())
		}
	}
	if f := fs.Lookup("workers"); f.Changed {
		if err := v.BindPFlag("workers", f); err != nil {
			fatal(err.Error())
		}
	}
	return opts, v
}

func run(ctx context.Context, opts *options, config *vybiump2record.Config, log *logrus.Logger) error {
	recorder, err := vybiump2record.New(config, log)
	if err != nil {
		return err
	}

	inputs, err := loadInputs(opts, log)
	if err != nil {
		return err
	}

	var buildOpts []vybiump2record.BuildOption
	if opts.corrupt {
		buildOpts = append(buildOpts, vybiump2record.WithCorruption(opts.seed))
	}

	var rec *vybiump2record.ExecutionRecord
	if opts.parallel {
		rec, err = recorder.BuildParallel(ctx, inputs, buildOpts...)
	} else {
		rec, err = recorder.Build(inputs, buildOpts...)
	}
	if err != nil {
		return err
	}
	rec.Freeze()

	summary := Summary{
		Stats:       rec.Stats(),
		Layout:      rec.Layout(),
		Fingerprint: hexutil.Encode(vybiump2record.FingerprintBytes(rec.Fingerprint())),
		Valid:       rec.Validate() == nil,
	}
	if err := recorder.Verify(rec); err != nil {
		if !opts.corrupt {
			return err
		}
		log.WithError(err).Warn("corrupted record fails verification")
	} else {
		summary.Verified = true
	}

	if opts.out != "" {
		f, err := vybiump2record.NewRecordFixture(rec, opts.corrupt)
		if err != nil {
			return err
		}
		if err := f.Save(opts.out); err != nil {
			return err
		}
		summary.Fixture = opts.out
		log.WithFields(logrus.Fields{"id": f.ID, "path": opts.out}).Info("fixture written")
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
	return nil
}

func loadInputs(opts *options, log logrus.FieldLogger) (vybiump2record.Inputs, error) {
	if opts.inputsPath != "" {
		log.WithField("path", opts.inputsPath).Info("reading inputs")
		return vybiump2record.ReadInputs(opts.inputsPath)
	}

	log.WithFields(logrus.Fields{
		"hashes":       opts.randomHashes,
		"compressions": opts.randomCompressions,
		"seed":         opts.seed,
	}).Info("generating random inputs")
	return vybiump2record.RandomInputs(opts.seed, opts.randomHashes, opts.randomCompressions), nil
}

func fatal(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}
