// Command skinguard classifies a single skin image from the terminal.
//
//	skinguard analyze [-endpoint URL] [-labels FILE] [-timeout 30s] [-v] <image>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/skinguard/backend/internal/analysis"
	"github.com/skinguard/backend/internal/classifier"
	"github.com/skinguard/backend/internal/labels"
	"github.com/skinguard/backend/internal/logging"
)

var (
	infoColor  = color.New(color.FgBlue).SprintFunc()
	safeColor  = color.New(color.FgGreen, color.Bold).SprintFunc()
	riskColor  = color.New(color.FgRed, color.Bold).SprintFunc()
	errorColor = color.New(color.FgRed).SprintFunc()
)

// mimeTypes maps file extensions to the declared content type.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  skinguard analyze [-endpoint URL] [-labels FILE] [-timeout DURATION] [-v] <image>")
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "analyze" {
		usage(stderr)
		return 2
	}

	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		endpoint   = fs.String("endpoint", envOr("CLASSIFIER_URL", classifier.DefaultEndpoint), "Classifier endpoint URL")
		labelsFile = fs.String("labels", "", "Label catalog YAML file")
		timeout    = fs.Duration("timeout", 0, "Request timeout (0 = none)")
		verbose    = fs.Bool("v", false, "Log request details to stderr")
	)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		usage(stderr)
		return 2
	}

	logger := logging.New(io.Discard, "error", "text")
	if *verbose {
		logger = logging.New(stderr, "debug", "text")
	}

	catalog, err := labels.LoadOrDefault(*labelsFile)
	if err != nil {
		fmt.Fprintf(stderr, "%s %v\n", errorColor("[-]"), err)
		return 1
	}

	ctrl := analysis.NewController(classifier.NewClient(classifier.Options{Endpoint: *endpoint}), analysis.Options{
		Catalog:        catalog,
		RequestTimeout: *timeout,
		Logger:         logger,
	})
	defer ctrl.Close()

	path := fs.Arg(0)
	if err := acceptPath(ctrl, path); err != nil {
		printFailure(stderr, ctrl, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s Analyzing %s via %s\n", infoColor("[*]"), ctrl.View().ImageInfo, *endpoint)

	if err := ctrl.Submit(context.Background()); err != nil {
		printFailure(stderr, ctrl, err)
		return 1
	}

	result := ctrl.View().Result
	accent := safeColor
	if ctrl.Result().HighRisk {
		accent = riskColor
	}
	fmt.Fprintf(stdout, "%s %s\n", accent("Result:"), accent(result.Label))
	fmt.Fprintln(stdout, result.ConfidenceText)
	if result.Description != "" {
		fmt.Fprintln(stdout, result.Description)
	}
	return 0
}

func acceptPath(ctrl *analysis.Controller, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	return ctrl.AcceptFile(analysis.File{
		Name:     filepath.Base(path),
		MIMEType: mimeTypes[strings.ToLower(filepath.Ext(path))],
		Size:     info.Size(),
		Reader:   f,
	})
}

// printFailure prints the message the user would see, falling back to
// the error itself when no notification was raised.
func printFailure(w io.Writer, ctrl *analysis.Controller, err error) {
	msg := err.Error()
	if n := ctrl.View().Notifications; len(n) > 0 {
		msg = n[len(n)-1].Message
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		msg = err.Error()
	}
	fmt.Fprintf(w, "%s %s\n", errorColor("[-]"), msg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
