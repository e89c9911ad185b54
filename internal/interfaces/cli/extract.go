package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	extractor "github.com/turtacn/Serial-Intelligence/internal/intelligence/serial_extractor"
	"github.com/turtacn/Serial-Intelligence/pkg/client"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

type extractOptions struct {
	text      string
	file      string
	ocrFile   string
	barcodes  []string
	productID int64
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract [text|-]",
		Short: "Extract serial numbers from text, OCR output and barcodes",
		Example: `  serialctl extract "Units SN-1000 to SN-1003 shipped"
  serialctl extract --file manifest.txt -p patterns.yaml
  cat scan.txt | serialctl extract -
  serialctl extract --barcode ABC123456@0.97 --barcode XYZ7788`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.text, "text", "", "input text")
	f.StringVarP(&opts.file, "file", "f", "", "read input text from a file, - for stdin")
	f.StringVar(&opts.ocrFile, "ocr-file", "", "read OCR text from a file")
	f.StringArrayVar(&opts.barcodes, "barcode", nil, "barcode value, optionally VALUE@CONFIDENCE (repeatable)")
	f.Int64Var(&opts.productID, "product", 0, "restrict patterns to this product")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string, opts *extractOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	req, err := buildExtractRequest(cmd, args, opts)
	if err != nil {
		return err
	}
	backend, err := cliCtx.Backend()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	res, err := backend.Extract(ctx, req)
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("Extraction finished", logging.Int("serials", res.Statistics.TotalExtracted))

	if cliCtx.OutputFormat != OutputJSON {
		for _, f := range res.Failures {
			printNotes(cmd, "Skipped", []string{fmt.Sprintf("%s: %s", f.Expression, f.Reason)})
		}
		printNotes(cmd, "Hint", res.Suggestions)
	}
	return PrintResult(cmd, extractView{res})
}

// buildExtractRequest merges the positional argument and flags. A positional
// "-" or --file - reads stdin.
func buildExtractRequest(cmd *cobra.Command, args []string, opts *extractOptions) (*client.ExtractRequest, error) {
	req := &client.ExtractRequest{InputText: opts.text}

	if len(args) == 1 {
		if args[0] == "-" {
			opts.file = "-"
		} else {
			req.InputText = joinText(req.InputText, args[0])
		}
	}
	if opts.file != "" {
		data, err := readInput(cmd, opts.file)
		if err != nil {
			return nil, err
		}
		req.InputText = joinText(req.InputText, data)
	}
	if opts.ocrFile != "" {
		data, err := readInput(cmd, opts.ocrFile)
		if err != nil {
			return nil, err
		}
		req.OCRText = data
	}
	for _, raw := range opts.barcodes {
		bc, err := parseBarcodeFlag(raw)
		if err != nil {
			return nil, err
		}
		req.Barcodes = append(req.Barcodes, bc)
	}
	if cmd.Flags().Changed("product") {
		pid := opts.productID
		req.ProductID = &pid
	}

	if strings.TrimSpace(req.InputText) == "" && strings.TrimSpace(req.OCRText) == "" && len(req.Barcodes) == 0 {
		return nil, errors.Validation("nothing to extract: pass text, --file, --ocr-file or --barcode")
	}
	return req, nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCodeSerialValidation, "failed to read %s", path)
	}
	return string(data), nil
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

// parseBarcodeFlag accepts VALUE or VALUE@CONFIDENCE with a confidence in
// [0,1]. Only the last @ separates the confidence.
func parseBarcodeFlag(raw string) (client.Barcode, error) {
	value := raw
	var conf *float64
	if i := strings.LastIndex(raw, "@"); i > 0 {
		c, err := strconv.ParseFloat(raw[i+1:], 64)
		if err == nil {
			if c < 0 || c > 1 {
				return client.Barcode{}, errors.Validation(fmt.Sprintf("barcode confidence %v out of range [0,1]", c))
			}
			value = raw[:i]
			conf = &c
		}
	}
	if strings.TrimSpace(value) == "" {
		return client.Barcode{}, errors.Validation("barcode value is empty")
	}
	return client.Barcode{Value: value, Confidence: conf}, nil
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

type extractView struct {
	*client.ExtractionResult
}

func (v extractView) TableHeaders() []string {
	return []string{"SERIAL", "CONFIDENCE", "PATTERN", "SOURCE"}
}

func (v extractView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.DetailedResults))
	for _, d := range v.DetailedResults {
		pattern := d.Pattern
		if pattern == "" {
			pattern = "-"
		}
		rows = append(rows, []string{d.Serial, confidenceString(d.Confidence), pattern, d.Source})
	}
	return rows
}

func (v extractView) Text() string {
	var b strings.Builder
	for _, s := range v.ExtractedSerials {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}

func confidenceString(c float64) string {
	s := strconv.FormatFloat(c, 'f', 2, 64)
	switch {
	case c >= extractor.HighConfidenceThreshold:
		return color.GreenString(s)
	case c >= 0.5:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

//Personal.AI order the ending
