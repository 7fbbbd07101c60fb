package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/gtac/pkg/config"
	"github.com/xplshn/gtac/pkg/token"
	"golang.org/x/term"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles []SourceFileRecord
	stderr      io.Writer = os.Stderr
	useColor              = term.IsTerminal(int(os.Stderr.Fd()))
	exit                  = os.Exit
)

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// SetOutput redirects diagnostics, disabling color. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	prev := stderr
	stderr, useColor = w, false
	return prev
}

func paint(code, s string) string {
	if !useColor {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", max(tok.Column-1, 0)), paint("32", caret))
}

func report(w io.Writer, severity, color string, tok token.Token, suffix, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(w, "%s:%d:%d: %s ", filename, line, col, paint(color, severity+":"))
	fmt.Fprintf(w, format, args...)
	fmt.Fprintln(w, suffix)
	printErrorLine(w, tok)
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	Report(tok, format, args...)
	exit(1)
}

// Report prints an error without exiting, for callers that collect several.
func Report(tok token.Token, format string, args ...interface{}) {
	report(stderr, "error", "31", tok, "", format, args...)
}

// Fatalf prints an error that has no source position and exits.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(stderr, "gtac: %s %s\n", paint("31", "error:"), fmt.Sprintf(format, args...))
	exit(1)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	report(stderr, "warning", "33", tok, fmt.Sprintf(" [-W%s]", cfg.Warnings[wt].Name), format, args...)
}
