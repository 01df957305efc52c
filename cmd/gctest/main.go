// indentation logic: vibecoded
// bad logic: written by me
// sucks: absolutely, but instead of bitching about it, open a PR. Thanks.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

// FileTestResult is one emitted file's comparison outcome against its
// golden counterpart.
type FileTestResult struct {
	File    string `json:"file"`
	Status  string `json:"status"` // PASS, FAIL, MISSING, EXTRA
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// TestSuiteResults is the on-disk report shape, keyed by file path
// relative to the output tree root.
type TestSuiteResults map[string]*FileTestResult

var (
	goldenDir      = flag.String("golden", "", "Path to the golden output tree to compare against.")
	actualDir      = flag.String("actual", "", "Path to the output tree produced by a gcrecomp run.")
	generateGolden = flag.String("generate-golden", "", "Copy --actual into this path as the new golden tree.")
	outputJSON     = flag.String("output", ".gctest_results.json", "Output file for the JSON test report.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()

	if *generateGolden != "" {
		handleGenerateGolden()
		return
	}

	if *goldenDir == "" || *actualDir == "" {
		log.Fatalf("%s[ERROR]%s --golden and --actual are both required (or use --generate-golden).\n", cRed, cNone)
	}

	results := compareTree(*goldenDir, *actualDir)
	printSummary(results)
	writeJSONReport(results)

	if hasFailures(results) {
		os.Exit(1)
	}
}

// hashFile fingerprints a file's contents with xxhash.
func hashFile(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func handleGenerateGolden() {
	if *actualDir == "" {
		log.Fatalf("%s[ERROR]%s --actual is required with --generate-golden.\n", cRed, cNone)
	}
	if err := os.RemoveAll(*generateGolden); err != nil {
		log.Fatalf("%s[ERROR]%s could not clear destination %s: %v\n", cRed, cNone, *generateGolden, err)
	}
	if err := copyTree(*actualDir, *generateGolden); err != nil {
		log.Fatalf("%s[ERROR]%s could not copy %s to %s: %v\n", cRed, cNone, *actualDir, *generateGolden, err)
	}
	log.Printf("%s[SUCCESS]%s Golden tree written to %s\n", cGreen, cNone, *generateGolden)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// compareTree walks both trees and returns one FileTestResult per
// relative path seen in either.
func compareTree(golden, actual string) []*FileTestResult {
	goldenFiles, err := listFiles(golden)
	if err != nil {
		log.Fatalf("%s[ERROR]%s could not walk golden tree %s: %v\n", cRed, cNone, golden, err)
	}
	actualFiles, err := listFiles(actual)
	if err != nil {
		log.Fatalf("%s[ERROR]%s could not walk actual tree %s: %v\n", cRed, cNone, actual, err)
	}

	all := map[string]bool{}
	for rel := range goldenFiles {
		all[rel] = true
	}
	for rel := range actualFiles {
		all[rel] = true
	}

	var rels []string
	for rel := range all {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	var results []*FileTestResult
	for _, rel := range rels {
		results = append(results, compareFile(rel, golden, actual, goldenFiles, actualFiles))
	}
	return results
}

func listFiles(root string) (map[string]bool, error) {
	out := map[string]bool{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = true
		return nil
	})
	if os.IsNotExist(err) {
		return out, nil
	}
	return out, err
}

func compareFile(rel, golden, actual string, goldenFiles, actualFiles map[string]bool) *FileTestResult {
	res := &FileTestResult{File: rel}

	inGolden, inActual := goldenFiles[rel], actualFiles[rel]
	switch {
	case inGolden && !inActual:
		res.Status = "MISSING"
		res.Message = "present in golden tree, missing from actual output"
		return res
	case !inGolden && inActual:
		res.Status = "EXTRA"
		res.Message = "present in actual output, not in golden tree"
		return res
	}

	goldenPath := filepath.Join(golden, rel)
	actualPath := filepath.Join(actual, rel)

	goldenHash, err := hashFile(goldenPath)
	if err != nil {
		res.Status = "FAIL"
		res.Message = fmt.Sprintf("could not hash golden file: %v", err)
		return res
	}
	actualHash, err := hashFile(actualPath)
	if err != nil {
		res.Status = "FAIL"
		res.Message = fmt.Sprintf("could not hash actual file: %v", err)
		return res
	}
	if goldenHash == actualHash {
		res.Status = "PASS"
		return res
	}

	goldenText, _ := os.ReadFile(goldenPath)
	actualText, _ := os.ReadFile(actualPath)
	res.Status = "FAIL"
	res.Message = "content differs from golden"
	res.Diff = formatDiff(cmp.Diff(string(goldenText), string(actualText)))
	return res
}

func formatDiff(diff string) string {
	var b strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "-"):
			b.WriteString(cRed)
		case strings.HasPrefix(line, "+"):
			b.WriteString(cGreen)
		}
		b.WriteString(line)
		b.WriteString(cNone)
		b.WriteString("\n")
	}
	return b.String()
}

func printSummary(results []*FileTestResult) {
	var passed, failed, missing, extra int
	for _, r := range results {
		switch r.Status {
		case "PASS":
			passed++
			if *verbose {
				fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.File)
			}
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s: %s\n", cRed, cNone, r.File, r.Message)
			if r.Diff != "" {
				fmt.Println(r.Diff)
			}
		case "MISSING":
			missing++
			fmt.Printf("  [%sMISSING%s] %s\n", cYellow, cNone, r.File)
		case "EXTRA":
			extra++
			fmt.Printf("  [%sEXTRA%s] %s\n", cYellow, cNone, r.File)
		}
	}
	fmt.Printf("\n%sSummary:%s %s%d passed%s, %s%d failed%s, %s%d missing%s, %s%d extra%s (%d files)\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, missing, cNone, cYellow, extra, cNone, len(results))
}

func writeJSONReport(results []*FileTestResult) {
	out := TestSuiteResults{}
	for _, r := range results {
		out[r.File] = r
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return
	}
	if err := os.WriteFile(*outputJSON, data, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, *outputJSON, err)
	}
}

func hasFailures(results []*FileTestResult) bool {
	for _, r := range results {
		if r.Status != "PASS" {
			return true
		}
	}
	return false
}
