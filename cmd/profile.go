package cmd

import (
	"fmt"

	"github.com/KaramelBytes/reconcile-cli/internal/parser"
	"github.com/KaramelBytes/reconcile-cli/internal/profile"
	"github.com/KaramelBytes/reconcile-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profOutputPath string
	profSampleRows int
	profTopValues  int
	profGroupBy    string
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Summarize a canonical CSV/XLSX as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfig(); err != nil {
			return err
		}
		s, err := loadSchema()
		if err != nil {
			return err
		}
		lopt, err := loaderOptions()
		if err != nil {
			return err
		}
		b, err := parser.LoadFile(args[0], lopt)
		if err != nil {
			return err
		}
		opt := profile.DefaultOptions()
		if profSampleRows > 0 {
			opt.SampleRows = profSampleRows
		}
		if profTopValues > 0 {
			opt.TopValues = profTopValues
		}
		opt.GroupBy = profGroupBy
		md := profile.Summarize(b, s, opt).Markdown()

		if profOutputPath == "" {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "write Markdown to this file instead of stdout")
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", 0, "number of sample rows to include")
	profileCmd.Flags().IntVar(&profTopValues, "top", 0, "top categorical values listed per column")
	profileCmd.Flags().StringVar(&profGroupBy, "group-by", "", "column to compute per-group numeric means by")
}
