// Package cli implements the convert command: one conversion, or a batch file, printed
// one line per result followed by the rate table's update time.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/dalfonso89/currency-converter/internal/config"
	"github.com/dalfonso89/currency-converter/internal/display"
	"github.com/dalfonso89/currency-converter/internal/logger"
	"github.com/dalfonso89/currency-converter/internal/models"
	"github.com/dalfonso89/currency-converter/internal/service"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

const usage = `usage: convert [flags] <amount> <from> <to>
       convert [flags] -batch <file>

Batch files hold one "amount FROM TO" per line; blank lines and lines starting with # are skipped.

Flags:
`

var errorColor = color.New(color.FgRed)

// Run executes the command with args (without the program name) and returns the exit code
func Run(ctx context.Context, args []string, cfg *config.Config, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("convert", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	baseCurrency := flags.String("base", cfg.DefaultBaseCurrency, "base currency of the fetched rate table")
	batchFile := flags.String("batch", "", "convert every line of `file` against one rate table")
	verbose := flags.Bool("v", false, "log rate fetches to stderr")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	// failures already reach stderr as one error line
	logLevel := "error"
	if *verbose {
		logLevel = "debug"
	}
	ratesService := service.NewRatesService(cfg, logger.NewWithOutput(logLevel, stderr), nil)

	if *batchFile != "" {
		if flags.NArg() != 0 {
			return usageError(flags, stderr, "positional arguments cannot be combined with -batch")
		}
		return runBatch(ctx, ratesService, *baseCurrency, *batchFile, stdout, stderr)
	}

	if flags.NArg() != 3 {
		return usageError(flags, stderr, "expected <amount> <from> <to>")
	}
	return runSingle(ctx, ratesService, *baseCurrency, flags.Args(), stdout, stderr)
}

func runSingle(ctx context.Context, ratesService *service.RatesService, baseCurrency string, args []string, stdout, stderr io.Writer) int {
	amount, err := service.ParseAmount(args[0])
	if err != nil {
		return failure(stderr, err)
	}

	request := models.ConversionRequest{Amount: amount, From: args[1], To: args[2]}
	result, table, err := ratesService.Quote(ctx, baseCurrency, request)
	if err != nil {
		return failure(stderr, err)
	}

	fmt.Fprintln(stdout, display.Conversion(result))
	fmt.Fprintln(stdout, display.LastUpdated(table))
	return ExitOK
}

// batchLine is one parsed line of a batch file; lines that do not parse keep their error
// so they can still be reported in place
type batchLine struct {
	number  int
	text    string
	request models.ConversionRequest
	err     error
}

func runBatch(ctx context.Context, ratesService *service.RatesService, baseCurrency, path string, stdout, stderr io.Writer) int {
	file, err := os.Open(path)
	if err != nil {
		return failure(stderr, err)
	}
	defer file.Close()

	lines, err := readBatch(file)
	if err != nil {
		return failure(stderr, fmt.Errorf("reading %s: %w", path, err))
	}
	if len(lines) == 0 {
		return failure(stderr, fmt.Errorf("%s: no conversions", path))
	}

	var requests []models.ConversionRequest
	for _, line := range lines {
		if line.err == nil {
			requests = append(requests, line.request)
		}
	}

	var (
		results []models.ConversionResult
		table   models.RateTable
	)
	if len(requests) > 0 {
		var batchErr *service.BatchError
		results, table, err = ratesService.ConvertBatch(ctx, baseCurrency, requests)
		if err != nil && !errors.As(err, &batchErr) {
			return failure(stderr, err)
		}
	}

	exitCode := ExitOK
	next := 0
	for _, line := range lines {
		if line.err != nil {
			errorColor.Fprintf(stdout, "line %d: %q: %v\n", line.number, line.text, line.err)
			exitCode = ExitFailure
			continue
		}

		result := results[next]
		next++
		if result.Err != nil {
			errorColor.Fprintln(stdout, display.BatchLine(result))
			exitCode = ExitFailure
			continue
		}
		fmt.Fprintln(stdout, display.BatchLine(result))
	}

	if len(requests) > 0 {
		fmt.Fprintln(stdout, display.LastUpdated(table))
	}
	return exitCode
}

func readBatch(r io.Reader) ([]batchLine, error) {
	var lines []batchLine
	scanner := bufio.NewScanner(r)
	for number := 1; scanner.Scan(); number++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		line := batchLine{number: number, text: text}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			line.err = errors.New("expected: amount FROM TO")
			lines = append(lines, line)
			continue
		}

		amount, err := service.ParseAmount(fields[0])
		if err != nil {
			line.err = err
		}
		line.request = models.ConversionRequest{Amount: amount, From: fields[1], To: fields[2]}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func usageError(flags *flag.FlagSet, stderr io.Writer, message string) int {
	errorColor.Fprintf(stderr, "error: %s\n", message)
	flags.Usage()
	return ExitUsage
}

func failure(stderr io.Writer, err error) int {
	errorColor.Fprintf(stderr, "error: %v\n", err)
	return ExitFailure
}
