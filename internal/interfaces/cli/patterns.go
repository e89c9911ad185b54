package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/export"
	"github.com/turtacn/Serial-Intelligence/pkg/client"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

func newPatternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Manage serial patterns",
		Long: `Manage stored serial patterns on the API server. list also works in
local mode against the --patterns file, and validate always runs locally.`,
	}
	cmd.AddCommand(
		newPatternsListCmd(),
		newPatternsGetCmd(),
		newPatternsCreateCmd(),
		newPatternsUpdateCmd(),
		newPatternsDeleteCmd(),
		newPatternsSetActiveCmd(true),
		newPatternsSetActiveCmd(false),
		newPatternsImportCmd(),
		newPatternsExportCmd(),
		newPatternsValidateCmd(),
	)
	return cmd
}

// remoteClient returns the API client or a validation error naming the
// command that needs it.
func remoteClient(cmd *cobra.Command) (*CLIContext, *client.Client, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	if !cliCtx.Remote() {
		return nil, nil, errors.Validation(fmt.Sprintf("%q needs an API server: pass --server or set %s", cmd.CommandPath(), EnvServer))
	}
	return cliCtx, cliCtx.Client, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation(fmt.Sprintf("invalid pattern id %q", arg))
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// list / get
// ---------------------------------------------------------------------------

type listPatternsFlags struct {
	productID  int64
	activeOnly bool
	typ        string
	name       string
	sortBy     string
	asc        bool
	page       int
	pageSize   int
}

func (f *listPatternsFlags) options(cmd *cobra.Command) *client.ListPatternsOptions {
	opts := &client.ListPatternsOptions{
		ActiveOnly: f.activeOnly,
		Type:       f.typ,
		Name:       f.name,
		SortBy:     f.sortBy,
		Ascending:  f.asc,
		Page:       f.page,
		PageSize:   f.pageSize,
	}
	if cmd.Flags().Changed("product") {
		pid := f.productID
		opts.ProductID = &pid
	}
	return opts
}

func newPatternsListCmd() *cobra.Command {
	f := &listPatternsFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			opts := f.options(cmd)
			if !cliCtx.Remote() {
				return listLocalPatterns(cmd, cliCtx, opts)
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()
			list, err := cliCtx.Client.Patterns().List(ctx, opts)
			if err != nil {
				return err
			}
			return PrintResult(cmd, patternsView{Items: list.Items, Total: list.Total, Page: list.Page, TotalPages: list.TotalPages})
		},
	}
	fl := cmd.Flags()
	fl.Int64Var(&f.productID, "product", 0, "only patterns applicable to this product")
	fl.BoolVar(&f.activeOnly, "active", false, "only active patterns")
	fl.StringVar(&f.typ, "type", "", "filter by pattern type")
	fl.StringVar(&f.name, "name", "", "filter by name substring")
	fl.StringVar(&f.sortBy, "sort", "", "sort field (name, created_at, id)")
	fl.BoolVar(&f.asc, "asc", false, "ascending order")
	fl.IntVar(&f.page, "page", 1, "page number")
	fl.IntVar(&f.pageSize, "page-size", client.DefaultPageSize, "page size")
	return cmd
}

// listLocalPatterns lists the --patterns file. Paging and sorting do not
// apply; the file order is the ID order.
func listLocalPatterns(cmd *cobra.Command, cliCtx *CLIContext, opts *client.ListPatternsOptions) error {
	if cliCtx.PatternFile == "" {
		return errors.Validation("no pattern file: pass --patterns, --server or set " + EnvPatternFile)
	}
	fp, err := loadFilePatterns(cliCtx.PatternFile)
	if err != nil {
		return err
	}

	items := make([]client.Pattern, 0, len(fp.patterns))
	for _, p := range fp.patterns {
		if opts.ActiveOnly && !p.IsActive {
			continue
		}
		if opts.ProductID != nil && !p.AppliesTo(opts.ProductID) {
			continue
		}
		if opts.Type != "" && string(p.Type) != opts.Type {
			continue
		}
		if opts.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(opts.Name)) {
			continue
		}
		cliCtx.Logger.Debug("Pattern from file: " + describePattern(p))
		items = append(items, toClientPattern(p))
	}
	return PrintResult(cmd, patternsView{Items: items, Total: int64(len(items)), Page: 1, TotalPages: 1})
}

func toClientPattern(p *serial.SerialPattern) client.Pattern {
	raw, _ := json.Marshal(p.Config.Variant())
	return client.Pattern{
		ID:        p.ID,
		Name:      p.Name,
		Type:      string(p.Type),
		Config:    raw,
		ProductID: p.ProductID,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func newPatternsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cliCtx, c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			p, err := c.Patterns().Get(ctx, id)
			if err != nil {
				return err
			}
			return PrintResult(cmd, patternsView{Items: []client.Pattern{*p}})
		},
	}
}

// ---------------------------------------------------------------------------
// create / update / delete / activate
// ---------------------------------------------------------------------------

func newPatternsCreateCmd() *cobra.Command {
	var (
		name, typ, cfg string
		productID      int64
		inactive       bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pattern",
		Example: `  serialctl patterns create --name "Acme SN" --type prefix_suffix \
    --config '{"prefix":"SN-","padding":6}' --product 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			req := &client.CreatePatternRequest{Name: name, Type: typ, Config: json.RawMessage(cfg)}
			if cmd.Flags().Changed("product") {
				req.ProductID = &productID
			}
			if inactive {
				active := false
				req.IsActive = &active
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()
			p, err := c.Patterns().Create(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, patternsView{Items: []client.Pattern{*p}})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "pattern name")
	f.StringVar(&typ, "type", "", "pattern type (prefix_suffix, regex, sequential, alphanumeric)")
	f.StringVar(&cfg, "config", "", "type-specific config as JSON")
	f.Int64Var(&productID, "product", 0, "scope the pattern to a product")
	f.BoolVar(&inactive, "inactive", false, "create the pattern deactivated")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func newPatternsUpdateCmd() *cobra.Command {
	var (
		name, typ, cfg string
		productID      int64
		global         bool
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cliCtx, c, err := remoteClient(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			req := &client.UpdatePatternRequest{Global: global}
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("type") {
				req.Type = &typ
			}
			if flags.Changed("config") {
				req.Config = json.RawMessage(cfg)
			}
			if flags.Changed("product") {
				req.ProductID = &productID
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()
			p, err := c.Patterns().Update(ctx, id, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, patternsView{Items: []client.Pattern{*p}})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "new name")
	f.StringVar(&typ, "type", "", "new pattern type")
	f.StringVar(&cfg, "config", "", "new config as JSON")
	f.Int64Var(&productID, "product", 0, "scope the pattern to a product")
	f.BoolVar(&global, "global", false, "clear the product scope")
	cmd.MarkFlagsMutuallyExclusive("product", "global")
	return cmd
}

func newPatternsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cliCtx, c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			if err := c.Patterns().Delete(ctx, id); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("pattern %d deleted", id))
			return nil
		},
	}
}

func newPatternsSetActiveCmd(active bool) *cobra.Command {
	use, short := "deactivate ID", "Deactivate a pattern"
	if active {
		use, short = "activate ID", "Activate a pattern"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cliCtx, c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			var p *client.Pattern
			if active {
				p, err = c.Patterns().Activate(ctx, id)
			} else {
				p, err = c.Patterns().Deactivate(ctx, id)
			}
			if err != nil {
				return err
			}
			return PrintResult(cmd, patternsView{Items: []client.Pattern{*p}})
		},
	}
}

// ---------------------------------------------------------------------------
// import / export / validate
// ---------------------------------------------------------------------------

func newPatternsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import patterns from a YAML pattern file",
		Long: `Import creates every pattern in FILE that does not already exist on the
server. Patterns whose name and scope are taken are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			res, err := c.Patterns().Import(ctx, []byte(data))
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd, res)
			}
			for _, s := range res.Skipped {
				printNotes(cmd, "Skipped", []string{fmt.Sprintf("%s: %s", s.Name, s.Reason)})
			}
			PrintSuccess(cmd, fmt.Sprintf("%d patterns imported, %d skipped", res.Created, len(res.Skipped)))
			return nil
		},
	}
}

func newPatternsExportCmd() *cobra.Command {
	var (
		out        string
		activeOnly bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export patterns as a YAML pattern file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			data, err := c.Patterns().Export(ctx, &client.ListPatternsOptions{ActiveOnly: activeOnly})
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return errors.Wrapf(err, errors.ErrCodeExportFailed, "failed to write %s", out)
			}
			PrintSuccess(cmd, "patterns written to "+out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file, default stdout")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active patterns")
	return cmd
}

func newPatternsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a YAML pattern file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			patterns, err := export.ParsePatternFile([]byte(data))
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%s: %d valid patterns", args[0], len(patterns)))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

type patternsView struct {
	Items      []client.Pattern `json:"items"`
	Total      int64            `json:"total,omitempty"`
	Page       int              `json:"page,omitempty"`
	TotalPages int              `json:"total_pages,omitempty"`
}

func (v patternsView) TableHeaders() []string {
	return []string{"ID", "NAME", "TYPE", "SCOPE", "ACTIVE", "CONFIG"}
}

func (v patternsView) TableRows() [][]string {
	rows := make([][]string, len(v.Items))
	for i, p := range v.Items {
		scope := "global"
		if p.ProductID != nil {
			scope = "product " + strconv.FormatInt(*p.ProductID, 10)
		}
		active := color.RedString("no")
		if p.IsActive {
			active = color.GreenString("yes")
		}
		rows[i] = []string{strconv.FormatInt(p.ID, 10), p.Name, p.Type, scope, active, string(p.Config)}
	}
	return rows
}

func (v patternsView) Text() string {
	var b strings.Builder
	for _, p := range v.Items {
		fmt.Fprintf(&b, "%d\t%s\t%s\n", p.ID, p.Name, p.Type)
	}
	if v.TotalPages > 1 {
		fmt.Fprintf(&b, "page %d of %d (%d total)\n", v.Page, v.TotalPages, v.Total)
	}
	return b.String()
}

//Personal.AI order the ending
