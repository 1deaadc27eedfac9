package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relkit/relkit/internal/debug"
	"github.com/relkit/relkit/internal/output"
	"github.com/relkit/relkit/internal/telemetry"
	"github.com/relkit/relkit/internal/ui"
)

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v interface{}) {
	if err := writeJSON(os.Stdout, v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeOutput renders out as JSON or for the terminal. Quiet mode drops
// successful human output; failures are always shown.
func writeOutput(w io.Writer, out *output.Output, asJSON bool) error {
	if asJSON {
		return writeJSON(w, out)
	}
	if out.Success {
		return debug.PrintNormal(w, "%s", ui.Render(out))
	}
	_, err := io.WriteString(w, ui.Render(out))
	return err
}

// emit prints out and exits 1 when it reports failure.
func emit(out *output.Output) {
	if err := writeOutput(os.Stdout, out, jsonOutput); err != nil {
		FatalError("writing output: %v", err)
	}
	if !out.Success {
		// os.Exit skips PersistentPostRun; flush spans first.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		telemetry.Shutdown(ctx)
		cancel()
		os.Exit(1)
	}
}
