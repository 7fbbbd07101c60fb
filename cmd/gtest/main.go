// gtest runs gtac over a set of sources and compares every stage of its
// output against golden files.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// StageRun is one invocation of the compiler (or of a binary it built).
type StageRun struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

type TargetResult struct {
	Hash   string     `json:"hash"`
	Stages []StageRun `json:"stages"`
}

func (r *TargetResult) stage(name string) (StageRun, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageRun{}, false
}

type FileTestResult struct {
	File    string        `json:"file"`
	Status  string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string        `json:"message,omitempty"`
	Diff    string        `json:"diff,omitempty"`
	Golden  *TargetResult `json:"golden,omitempty"`
	Actual  *TargetResult `json:"actual,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	compiler       = flag.String("compiler", "./gtac", "Path to the gtac binary to test.")
	compilerArgs   = flag.String("compiler-args", "", "Extra arguments passed to every compiler invocation (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate golden .json files for the given source files (space-separated globs).")
	testFiles      = flag.String("test-files", "examples/*.tl", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	native         = flag.Bool("native", false, "Also build an executable and check it prints what the interpreter prints.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

// stages are compared against goldens in this order.
var stages = []struct {
	name string
	args []string
}{
	{"tac", []string{"--emit", "tac"}},
	{"run", []string{"--run"}},
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "gtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	if *generateGolden != "" {
		handleGenerateGolden(*generateGolden, tempDir)
		return
	}
	handleRunTestSuite(tempDir)
}

func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

// getJSONPath maps dir/name.tl to dir/.name.tl.json, or into --dir.
func getJSONPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func handleGenerateGolden(patterns, tempDir string) {
	files, err := expandGlobPatterns(patterns)
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Fatalf("%s[ERROR]%s No files match %q\n", cRed, cNone, patterns)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}

	for _, file := range files {
		fileHash, err := hashFile(file)
		if err != nil {
			log.Printf("%s[ERROR]%s Could not hash %s: %v\n", cRed, cNone, file, err)
			continue
		}
		result := runStages(file, tempDir, fileHash)
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Printf("%s[ERROR]%s Failed to marshal golden data for %s: %v\n", cRed, cNone, file, err)
			continue
		}
		goldenPath := getJSONPath(file)
		if err := os.WriteFile(goldenPath, data, 0644); err != nil {
			log.Printf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenPath, err)
			continue
		}
		fmt.Printf("%s[OK]%s Golden file written to %s\n", cGreen, cNone, goldenPath)
	}
}

func handleRunTestSuite(tempDir string) {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Printf("%s[WARN]%s No test files found matching pattern(s): %s\n", cYellow, cNone, *testFiles)
		return
	}

	previousResults := make(TestSuiteResults)
	if prevData, err := os.ReadFile(reportPath()); err == nil {
		if json.Unmarshal(prevData, &previousResults) != nil {
			log.Printf("%s[WARN]%s Could not parse previous report %s. It will not be used as a fallback.\n", cYellow, cNone, reportPath())
			previousResults = make(TestSuiteResults)
		}
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	type task struct{ file, hash string }
	tasks := make(chan task, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				resultsChan <- testFile(t.file, tempDir, t.hash, previousResults)
			}
		}()
	}

	// Identical sources would only repeat the same result.
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- task{file, fileHash}
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	resultsMap := writeJSONReport(allResults)
	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func testFile(file, tempDir, fileHash string, previousResults TestSuiteResults) *FileTestResult {
	golden, err := loadGolden(getJSONPath(file))
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		// A passing entry from the last report for the same content stands in
		// for a missing golden file.
		prev, ok := previousResults[file]
		if !ok || prev.Status != "PASS" || prev.Actual == nil || prev.Actual.Hash != fileHash {
			return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file and no previous passing result for this content"}
		}
		if *verbose {
			log.Printf("[%s] No golden file, comparing against the previous report", file)
		}
		golden = prev.Actual
	default:
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}

	actual := runStages(file, tempDir, fileHash)
	result := compareResults(file, golden, actual)
	if golden.Hash != "" && golden.Hash != fileHash && result.Status == "PASS" {
		result.Message += " (source changed since the golden file was written)"
	}
	return result
}

func loadGolden(path string) (*TargetResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var golden TargetResult
	if err := json.Unmarshal(data, &golden); err != nil {
		return nil, fmt.Errorf("could not parse golden file %s: %w", path, err)
	}
	return &golden, nil
}

// runStages invokes the compiler once per stage. With --native it also
// builds and runs an executable.
func runStages(file, tempDir, fileHash string) *TargetResult {
	extra := strings.Fields(*compilerArgs)
	result := &TargetResult{Hash: fileHash}
	for _, st := range stages {
		args := append(append(append([]string{}, st.args...), extra...), file)
		result.Stages = append(result.Stages, StageRun{Name: st.name, Args: args, Result: runWithTimeout(*compiler, args...)})
	}
	if !*native {
		return result
	}

	binaryPath := filepath.Join(tempDir, fileHash)
	args := append(append([]string{"--emit", "exe", "-o", binaryPath}, extra...), file)
	build := runWithTimeout(*compiler, args...)
	result.Stages = append(result.Stages, StageRun{Name: "build", Args: args, Result: build})
	if build.ExitCode == 0 && !build.TimedOut {
		result.Stages = append(result.Stages, StageRun{Name: "native", Result: runWithTimeout(binaryPath)})
	}
	return result
}

func runWithTimeout(command string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	return executeCommand(ctx, command, args...)
}

func compareResults(file string, golden, actual *TargetResult) *FileTestResult {
	var diffs strings.Builder
	failed := false
	ignored := ignoredSubstrings()

	for _, st := range stages {
		want, ok := golden.stage(st.name)
		if !ok {
			continue
		}
		got, ok := actual.stage(st.name)
		if !ok {
			failed = true
			fmt.Fprintf(&diffs, "Stage '%s' missing in actual results.\n", st.name)
			continue
		}
		if d := diffExecution(st.name, want.Result, got.Result, ignored); d != "" {
			failed = true
			diffs.WriteString(d)
		}
	}

	// The executable must agree with the interpreter.
	if *native {
		run, _ := actual.stage("run")
		if build, ok := actual.stage("build"); ok && build.Result.ExitCode != 0 && run.Result.ExitCode == 0 {
			failed = true
			fmt.Fprintf(&diffs, "Native build failed:\n%s\n", build.Result.Stderr)
		}
		if bin, ok := actual.stage("native"); ok {
			want := filterOutput(run.Result.Stdout, ignored)
			got := filterOutput(bin.Result.Stdout, ignored)
			if want != got {
				failed = true
				fmt.Fprintf(&diffs, "Native output differs from interpreter:\n%s", cmp.Diff(want, got))
			}
		}
	}

	if failed {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String(), Golden: golden, Actual: actual}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "All stages matched", Golden: golden, Actual: actual}
}

func diffExecution(name string, want, got Execution, ignored []string) string {
	var sb strings.Builder
	if want.TimedOut != got.TimedOut {
		fmt.Fprintf(&sb, "Stage '%s' timeout mismatch:\n  - Golden: %v\n  - Actual: %v\n", name, want.TimedOut, got.TimedOut)
	}
	if want.ExitCode != got.ExitCode {
		fmt.Fprintf(&sb, "Stage '%s' exit code mismatch:\n  - Golden: %d\n  - Actual: %d\n", name, want.ExitCode, got.ExitCode)
	}
	if filterOutput(want.Stdout, ignored) != filterOutput(got.Stdout, ignored) {
		fmt.Fprintf(&sb, "Stage '%s' STDOUT mismatch:\n%s", name, cmp.Diff(want.Stdout, got.Stdout))
	}
	if filterOutput(want.Stderr, ignored) != filterOutput(got.Stderr, ignored) {
		fmt.Fprintf(&sb, "Stage '%s' STDERR mismatch:\n%s", name, cmp.Diff(want.Stderr, got.Stderr))
	}
	return sb.String()
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
	} else if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -2
			res.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return res
}

func ignoredSubstrings() []string {
	if *ignoreLines == "" {
		return nil
	}
	return strings.Split(*ignoreLines, ",")
}

// filterOutput removes lines containing any of the given substrings
func filterOutput(output string, ignored []string) string {
	if len(ignored) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		drop := false
		for _, sub := range ignored {
			if sub != "" && strings.Contains(line, sub) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}

		if result.Actual == nil {
			continue
		}
		for _, st := range result.Actual.Stages {
			total += st.Result.Duration
			if *verbose {
				fmt.Printf("    %-8s exit %-3d %s\n", st.Name, st.Result.ExitCode, formatDuration(st.Result.Duration))
			}
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if *verbose {
		fmt.Printf("Time spent in %s: %s\n", filepath.Base(*compiler), total)
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			builder.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line + cNone + "\n")
	}
	return builder.String()
}

func reportPath() string {
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, *outputJSON)
	}
	return *outputJSON
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	if err := os.WriteFile(reportPath(), jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, reportPath(), err)
	} else {
		fmt.Printf("Full test report saved to %s\n", reportPath())
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil || seen[absFile] {
				continue
			}
			if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, absFile)
				seen[absFile] = true
			}
		}
	}
	return allFiles, nil
}
