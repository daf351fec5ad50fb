package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/test-jitcomp/Artemis/pkg/jfuzz"
)

const appName = jfuzz.GeneratorName

type negBoolBinding struct {
	target *bool
	neg    *bool
}

func addBoolPair(cmd *cobra.Command, bindings *[]negBoolBinding, target *bool, name string, usage string) {
	neg := new(bool)
	cmd.Flags().BoolVar(target, name, *target, usage)
	cmd.Flags().BoolVar(neg, "no-"+name, false, "disable "+name)
	*bindings = append(*bindings, negBoolBinding{target: target, neg: neg})
}

func applyNegBindings(bindings []negBoolBinding) {
	for _, b := range bindings {
		if *b.neg {
			*b.target = false
		}
	}
}

func NewRootCmd() *cobra.Command {
	opts := jfuzz.Defaults()
	seedSet := false
	outputPath := ""
	outputDir := ""
	configPath := ""
	showVersion := false
	verify := false
	verbose := false
	count := 1
	workers := 0
	negBindings := make([]negBoolBinding, 0, 4)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Random Java program generator for stressing JIT compilers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}

			if showVersion {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, jfuzz.GeneratorVersion)
				return err
			}

			if configPath != "" {
				if err := loadConfig(cmd, &opts, configPath); err != nil {
					return err
				}
				applyNegBindings(negBindings)
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			if !seedSet {
				opts.Seed = uint64(time.Now().UnixNano())
			}

			if count > 1 || outputDir != "" {
				if outputPath != "" {
					return fmt.Errorf("options conflict: --output writes one program, use --output-dir with --count")
				}
				if outputDir == "" {
					return fmt.Errorf("--count %d needs --output-dir", count)
				}
				return runBatch(cmd.Context(), opts, count, workers, outputDir, verify)
			}

			program, err := jfuzz.Generate(opts)
			if err != nil {
				return err
			}
			if verify {
				if err := program.Verify(); err != nil {
					return fmt.Errorf("seed %d: verification failed: %w", program.Seed, err)
				}
			}

			if outputPath == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), program.Source)
				return err
			}
			if err := os.WriteFile(outputPath, []byte(program.Source), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath, err)
			}
			opts.Logger.Info("program.written", "path", outputPath, "seed", program.Seed,
				"size", humanize.Bytes(uint64(len(program.Source))), "attempts", program.Attempts)
			return nil
		},
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print version")
	cmd.Flags().Uint64VarP(&opts.Seed, "seed", "s", 0, "seed for deterministic generation")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the generated program to file")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file overriding the default parameters")
	cmd.Flags().BoolVar(&verify, "verify", false, "check call graph, containment and loop budget of every program")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log generation events")

	cmd.Flags().IntVarP(&count, "count", "n", count, "number of programs, one per consecutive seed")
	cmd.Flags().IntVarP(&workers, "workers", "j", workers, "programs generated in parallel (0: one per CPU)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "directory receiving one subdirectory per program")

	cmd.Flags().StringVar(&opts.Mode, "mode", opts.Mode, "generation mode: default or MM_extreme")
	cmd.Flags().StringVar(&opts.MainClassName, "main-class", opts.MainClassName, "name of the public test class")
	cmd.Flags().StringVar(&opts.Package, "package", opts.Package, "package of the generated classes")
	cmd.Flags().IntVar(&opts.MaxSize, "max-size", opts.MaxSize, "array length and loop bound N")
	cmd.Flags().IntVar(&opts.MaxNestedSize, "max-nested-size", opts.MaxNestedSize, "iteration ceiling of nested loops in mainTest")
	cmd.Flags().IntVar(&opts.MaxNestedSizeNotMainTest, "max-nested-size-not-main-test", opts.MaxNestedSizeNotMainTest, "iteration ceiling of nested loops elsewhere")
	cmd.Flags().IntVar(&opts.MaxStmts, "max-stmts", opts.MaxStmts, "statement budget of mainTest")
	cmd.Flags().IntVar(&opts.MaxMeths, "max-meths", opts.MaxMeths, "limit methods per class")
	cmd.Flags().IntVar(&opts.MaxClasses, "max-classes", opts.MaxClasses, "limit number of classes")
	cmd.Flags().IntVar(&opts.MaxCallersChain, "max-callers-chain", opts.MaxCallersChain, "limit call chain depth")
	cmd.Flags().IntVar(&opts.MaxLoopDepth, "max-loop-depth", opts.MaxLoopDepth, "limit loop nesting")
	cmd.Flags().IntVar(&opts.MaxExpDepth, "max-exp-depth", opts.MaxExpDepth, "limit expression depth")
	cmd.Flags().IntVar(&opts.MaxThreads, "max-threads", opts.MaxThreads, "limit background threads")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", opts.MaxAttempts, "limit regenerations of a weak program")
	cmd.Flags().IntVar(&opts.Width, "width", opts.Width, "wrap lines wider than this")
	addBoolPair(cmd, &negBindings, &opts.OuterControl, "outer-control", "seed runtime values through FuzzerUtils")

	_ = cmd.MarkFlagFilename("output", "java")
	_ = cmd.MarkFlagFilename("config", "yaml", "yml")
	_ = cmd.MarkFlagDirname("output-dir")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		seedSet = cmd.Flags().Changed("seed")
		applyNegBindings(negBindings)
	}

	return cmd
}

// loadConfig layers the configuration file under the flags given on the
// command line: the file replaces the defaults, then every explicitly set
// flag is applied again.
func loadConfig(cmd *cobra.Command, opts *jfuzz.Options, path string) error {
	set := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		set[f.Name] = f.Value.String()
	})
	loaded, err := jfuzz.LoadOptionsFile(path, jfuzz.Defaults())
	if err != nil {
		return err
	}
	*opts = loaded
	for name, v := range set {
		if err := cmd.Flags().Set(name, v); err != nil {
			return fmt.Errorf("reapply --%s: %w", name, err)
		}
	}
	return nil
}

func runBatch(ctx context.Context, opts jfuzz.Options, count, workers int, dir string, verify bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	stats, err := jfuzz.GenerateBatch(ctx, opts, count, workers, func(p *jfuzz.Program) error {
		if verify {
			if err := p.Verify(); err != nil {
				return fmt.Errorf("seed %d: verification failed: %w", p.Seed, err)
			}
		}
		sub := filepath.Join(dir, strconv.FormatUint(p.Seed, 10))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", sub, err)
		}
		path := filepath.Join(sub, p.FileName())
		if err := os.WriteFile(path, []byte(p.Source), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	opts.Logger.Info("batch.written", "dir", dir,
		"programs", humanize.Comma(int64(stats.Generated)),
		"duplicates", stats.Duplicates,
		"size", humanize.Bytes(uint64(stats.Bytes)),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
