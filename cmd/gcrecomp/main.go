package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/cli"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/config"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/diag"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/dol"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/pipeline"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/symbols"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/validate"
)

func main() {
	app := cli.NewApp("gcrecomp")
	app.Synopsis = "[options] <image.dol> <symbols.ndjson> <output-dir>"
	app.Description = "Translates a GameCube DOL executable into Rust source, function by function."
	app.Authors = []string{"KaiserGranatapfel"}
	app.Repository = "<https://github.com/KaiserGranatapfel/gcrecomp>"
	app.Since = 2026

	var (
		profile      string
		jobsStr      string
		warningFlags []string
		featureFlags []string
	)

	fs := app.FlagSet
	fs.String(&profile, "optimize", "O", "fast", "Select the optimization profile (fast, debug, strict).", "profile")
	fs.String(&jobsStr, "jobs", "j", "0", "Worker-pool size (0 means GOMAXPROCS).", "n")
	fs.List(&warningFlags, "warning", "W", []string{}, "Toggle a diagnostic category, e.g. -Wno-decode-unknown.", "name")
	fs.List(&featureFlags, "feature", "F", []string{}, "Toggle an optimizer pass, e.g. -Fno-peephole.", "name")

	app.Action = func(args []string) error {
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "gcrecomp: expected <image.dol> <symbols.ndjson> <output-dir>")
			os.Exit(1)
		}
		imagePath, symbolsPath, outDir := args[0], args[1], args[2]

		cfg := config.NewConfig()
		if err := cfg.ApplyProfile(profile); err != nil {
			fmt.Fprintln(os.Stderr, "gcrecomp:", err)
			os.Exit(1)
		}
		cfg.ProcessFlags(func(fn func(name string)) {
			for _, w := range warningFlags {
				fn("W" + w)
			}
			for _, f := range featureFlags {
				fn("F" + f)
			}
		})
		jobs, err := parseJobs(jobsStr)
		if err != nil {
			jobs = 0
		}

		imgData, err := os.ReadFile(imagePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gcrecomp: could not read image:", err)
			os.Exit(1)
		}
		img, err := dol.Load(imgData)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gcrecomp: invalid image:", err)
			os.Exit(1)
		}

		symFile, err := os.Open(symbolsPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gcrecomp: could not read symbols:", err)
			os.Exit(1)
		}
		table, err := symbols.Load(symFile)
		symFile.Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, "gcrecomp: invalid symbols:", err)
			os.Exit(1)
		}

		progress := make(chan pipeline.Progress, 16)
		driver := pipeline.NewDriver(img, table, cfg, jobs)
		driver.Progress = progress

		go func() {
			for p := range progress {
				fmt.Fprintf(os.Stderr, "\r%s: %d/%d (%s)\033[K", p.Stage, p.Done, p.Total, p.Current)
			}
			fmt.Fprintln(os.Stderr)
		}()

		report, err := driver.Run(context.Background())
		close(progress)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gcrecomp: run failed:", err)
			os.Exit(2)
		}

		reporter := diag.NewReporter(cfg)
		for _, fr := range report.Functions {
			for _, d := range fr.Diagnostics {
				reporter.Warn(d)
			}
			if fr.State == pipeline.Failed {
				reporter.Fatal(diag.Diagnostic{
					Kind: diag.KindDisjointFunction, Address: fr.Symbol.EntryAddress, Stage: fr.FailedAt.String(),
					Message: fr.Cause.Error(),
				})
			}
		}
		reporter.Print()

		if len(report.FailedFunctions()) > 0 {
			_ = writeOutput(outDir, report)
			os.Exit(2)
		}

		errs := validate.Validate(report.Output)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, "gcrecomp: validation:", e)
			}
			os.Exit(3)
		}

		if err := writeOutput(outDir, report); err != nil {
			fmt.Fprintln(os.Stderr, "gcrecomp: writing output:", err)
			os.Exit(2)
		}

		fmt.Printf("gcrecomp: translated %d function(s), run %s\n", len(report.Functions), report.RunID)
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func parseJobs(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func writeOutput(outDir string, report *pipeline.Report) error {
	if report.Output == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Join(outDir, "fn"), 0o755); err != nil {
		return err
	}
	for _, name := range report.Output.Order {
		path := filepath.Join(outDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, report.Output.Files[name], 0o644); err != nil {
			return err
		}
	}
	return nil
}
