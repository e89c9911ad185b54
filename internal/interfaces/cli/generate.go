package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/Serial-Intelligence/pkg/client"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

type generateOptions struct {
	patternID int64
	prefix    string
	suffix    string
	padding   int
	start     int64
	end       int64
	step      int64
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a bulk range of serial numbers",
		Long: `Generate serials from start to end inclusive, either from a stored
prefix_suffix pattern (--pattern-id) or from an inline layout given by
--prefix, --suffix and --padding.

In local mode --pattern-id is the 1-based position of the pattern in the
--patterns file.`,
		Example: `  serialctl generate --prefix SN- --padding 6 --start 1 --end 100
  serialctl generate --pattern-id 2 --start 500 --end 520 --step 5 -o text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&opts.patternID, "pattern-id", 0, "prefix_suffix pattern to generate from")
	f.StringVar(&opts.prefix, "prefix", "", "inline serial prefix")
	f.StringVar(&opts.suffix, "suffix", "", "inline serial suffix")
	f.IntVar(&opts.padding, "padding", 0, "zero-pad the number to this width")
	f.Int64Var(&opts.start, "start", 0, "first number (inclusive)")
	f.Int64Var(&opts.end, "end", 0, "last number (inclusive)")
	f.Int64Var(&opts.step, "step", 1, "increment between numbers")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	cmd.MarkFlagsMutuallyExclusive("pattern-id", "prefix")
	cmd.MarkFlagsMutuallyExclusive("pattern-id", "suffix")
	cmd.MarkFlagsMutuallyExclusive("pattern-id", "padding")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	req := &client.GenerateRequest{Start: opts.start, End: opts.end, Step: opts.step}
	if opts.patternID != 0 {
		req.PatternID = opts.patternID
	} else {
		if opts.prefix == "" && opts.suffix == "" {
			return errors.Validation("pass --pattern-id or at least one of --prefix and --suffix")
		}
		req.Config = &client.PrefixSuffixConfig{
			Prefix:  opts.prefix,
			Suffix:  opts.suffix,
			Padding: opts.padding,
		}
	}

	backend, err := cliCtx.Backend()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	res, err := backend.Generate(ctx, req)
	if err != nil {
		return err
	}
	if cliCtx.OutputFormat != OutputJSON {
		printNotes(cmd, "Hint", res.Suggestions)
	}
	return PrintResult(cmd, generateView{res})
}

type generateView struct {
	*client.GenerateResult
}

func (v generateView) TableHeaders() []string { return []string{"#", "SERIAL"} }

func (v generateView) TableRows() [][]string {
	rows := make([][]string, len(v.Serials))
	for i, s := range v.Serials {
		rows[i] = []string{strconv.Itoa(i + 1), s}
	}
	return rows
}

func (v generateView) Text() string {
	if len(v.Serials) == 0 {
		return ""
	}
	return strings.Join(v.Serials, "\n") + "\n"
}

//Personal.AI order the ending
