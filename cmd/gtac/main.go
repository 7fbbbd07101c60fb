package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/xplshn/gtac/pkg/ast"
	"github.com/xplshn/gtac/pkg/cli"
	"github.com/xplshn/gtac/pkg/codegen"
	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/interp"
	"github.com/xplshn/gtac/pkg/ir"
	"github.com/xplshn/gtac/pkg/lexer"
	"github.com/xplshn/gtac/pkg/parser"
	"github.com/xplshn/gtac/pkg/typeChecker"
	"github.com/xplshn/gtac/pkg/util"
)

func main() {
	app := cli.NewApp("gtac")
	app.Synopsis = "[options] <input.tl>"
	app.Description = "Translates programs in a small imperative language into three-address code, with short-circuit boolean control flow, and lowers the result to QBE, LLVM IR, assembly or an executable."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/gtac>"
	app.Since = 2025

	var (
		outFile    string
		emit       string
		target     string
		linkerArgs []string
		setVars    []string
		dumpAST    bool
		run        bool
		verbose    bool
		wall       bool
		wnoall     bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file> (default: stdout, or a.out for --emit=exe).", "file")
	fs.String(&emit, "emit", "e", "tac", "Output kind: tac, qbe, llvm, asm or exe.", "kind")
	fs.String(&target, "target", "t", "", "Set the QBE target ABI for asm and exe output.", "target")
	fs.List(&linkerArgs, "linker-arg", "L", []string{}, "Pass an argument to the linker.", "arg")
	fs.List(&setVars, "set", "s", []string{}, "Seed a variable before --run (name=value).", "name=value")
	fs.Bool(&dumpAST, "dump-ast", "d", false, "Dump the syntax tree and exit.")
	fs.Bool(&run, "run", "r", false, "Interpret the generated code and print the final variable values.")
	fs.Bool(&verbose, "verbose", "v", false, "Report each compilation stage on stderr.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&wnoall, "Wno-all", "", false, "Disable all warnings.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if wall {
			cfg.SetAllWarnings(true)
		}
		if wnoall {
			cfg.SetAllWarnings(false)
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		cfg.Quiet = !verbose
		cfg.LinkerArgs = append(cfg.LinkerArgs, linkerArgs...)

		if len(inputFiles) != 1 {
			util.Fatalf("expected exactly one input file, got %d", len(inputFiles))
		}
		logf := func(format string, args ...interface{}) {
			if verbose {
				fmt.Fprintf(os.Stderr, format+"\n", args...)
			}
		}

		logf("Reading %s...", inputFiles[0])
		root := parseFile(inputFiles[0], cfg)
		if dumpAST {
			return ast.Dump(os.Stdout, root)
		}

		if cfg.IsFeatureEnabled(config.FeatTypeCheck) {
			logf("Type checking...")
			if typeChecker.Report(typeChecker.NewTypeChecker(cfg).Check(root)) {
				os.Exit(1)
			}
		}

		ctx := codegen.NewContext(cfg)
		if emit == "tac" && !run {
			logf("Generating three-address code...")
			return streamTAC(ctx, root, outFile)
		}

		logf("Generating three-address code...")
		prog, err := ctx.GenerateIR(root)
		if err != nil {
			reportCodegenError(err)
		}
		if verbose {
			if live, err := ir.Reachable(prog.Instrs); err == nil {
				n := 0
				for _, ok := range live {
					if ok {
						n++
					}
				}
				logf("%d instructions (%d reachable), %d temporaries, %d labels", len(prog.Instrs), n, prog.TempCount, prog.LabelCount)
			}
		}

		if run {
			logf("Running...")
			return runProgram(prog, setVars)
		}

		backend, err := codegen.SelectBackend(emit)
		if err != nil {
			util.Fatalf("%v", err)
		}
		if emit == "asm" || emit == "exe" {
			cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)
		}
		logf("Generating code with '%s' backend...", emit)
		out, err := backend.Generate(prog, cfg)
		if err != nil {
			util.Fatalf("backend code generation failed: %v", err)
		}

		if emit == "exe" {
			if outFile == "" {
				outFile = "a.out"
			}
			logf("Linking to create '%s'...", outFile)
			if err := assembleAndLink(outFile, out.String(), cfg.LinkerArgs); err != nil {
				util.Fatalf("assembler/linker failed: %v", err)
			}
			return nil
		}
		return writeOutput(outFile, out.String())
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func parseFile(path string, cfg *config.Config) *ast.Node {
	var content []byte
	var err error
	if path == "-" {
		content, err = io.ReadAll(os.Stdin)
		path = "<stdin>"
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		util.Fatalf("could not read file '%s': %v", path, err)
	}

	source := []rune(string(content))
	util.SetSourceFiles([]util.SourceFileRecord{{Name: path, Content: source}})
	root, err := parser.NewParser(lexer.Tokenize(source, 0, cfg), cfg).Parse()
	if err != nil {
		var perr *parser.Error
		if errors.As(err, &perr) {
			util.Error(perr.Tok, "%s", perr.Msg)
		}
		util.Fatalf("%v", err)
	}
	return root
}

func reportCodegenError(err error) {
	var cerr *codegen.Error
	if errors.As(err, &cerr) && cerr.Tok.Line > 0 {
		util.Error(cerr.Tok, "%s", cerr.Error())
	}
	util.Fatalf("%v", err)
}

// streamTAC writes each instruction as soon as it is generated.
func streamTAC(ctx *codegen.Context, root *ast.Node, outFile string) error {
	w := io.Writer(os.Stdout)
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			util.Fatalf("could not create '%s': %v", outFile, err)
		}
		defer f.Close()
		w = f
	}
	sink := ir.NewTextSink(w)
	if err := ctx.Translate(root, sink); err != nil {
		reportCodegenError(err)
	}
	return sink.Err()
}

func runProgram(prog *ir.Program, setVars []string) error {
	env := make(map[string]int64)
	for _, kv := range setVars {
		name, text, ok := strings.Cut(kv, "=")
		if !ok {
			util.Fatalf("--set expects name=value, got '%s'", kv)
		}
		g := prog.FindGlobal(name)
		if g == nil {
			util.Fatalf("--set: '%s' is not a declared variable", name)
		}
		val, err := parseValue(g.Typ, text)
		if err != nil {
			util.Fatalf("--set %s: %v", name, err)
		}
		env[name] = val
	}

	res, err := interp.Run(prog.Instrs, env, interp.Options{})
	if err != nil {
		util.Fatalf("run failed: %v", err)
	}
	for _, g := range prog.Globals {
		fmt.Printf("%s = %d\n", g.Name, res.Env[g.Name])
	}
	return nil
}

func parseValue(typ ir.Type, text string) (int64, error) {
	if typ == ir.TypeBool {
		b, err := strconv.ParseBool(text)
		if err != nil {
			return 0, fmt.Errorf("want true or false, got '%s'", text)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return strconv.ParseInt(text, 10, 64)
}

func writeOutput(outFile, text string) error {
	if outFile == "" {
		_, err := io.WriteString(os.Stdout, text)
		return err
	}
	return os.WriteFile(outFile, []byte(text), 0o644)
}

func assembleAndLink(outFile, asm string, linkerArgs []string) error {
	asmFile, err := os.CreateTemp("", "gtac-main-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for asm: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.WriteString(asm); err != nil {
		asmFile.Close()
		return fmt.Errorf("failed to write temp file for asm: %w", err)
	}
	asmFile.Close()

	ccArgs := append([]string{"-no-pie", "-o", outFile, asmFile.Name()}, linkerArgs...)
	cmd := exec.Command("cc", ccArgs...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}
