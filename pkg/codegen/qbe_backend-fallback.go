//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/xplshn/gtac/pkg/config"
)

func (b *qbeBackend) assembleIR(qbeIR string, cfg *config.Config) (*bytes.Buffer, error) {
	fmt.Fprintln(os.Stderr, "gtac: info: self-contained QBE is not supported on Windows, falling back to the system 'qbe'")
	if _, err := exec.LookPath("qbe"); err != nil {
		return nil, fmt.Errorf("QBE not found in PATH: %w", err)
	}

	inputFile, err := os.CreateTemp("", "gtac-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(inputFile.Name())
	if _, err = inputFile.WriteString(qbeIR); err != nil {
		inputFile.Close()
		return nil, err
	}
	inputFile.Close()

	outputName := inputFile.Name() + ".s"
	defer os.Remove(outputName)
	cmd := exec.Command("qbe", "-o", outputName, "-t", cfg.QbeTarget, inputFile.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("\n--- QBE Compilation Failed ---\nGenerated IR:\n%s\n\nError: %w\n%s", qbeIR, err, output)
	}

	outputFile, err := os.Open(outputName)
	if err != nil {
		return nil, err
	}
	defer outputFile.Close()

	var asmBuf bytes.Buffer
	if _, err = io.Copy(&asmBuf, outputFile); err != nil {
		return nil, err
	}
	return &asmBuf, nil
}
