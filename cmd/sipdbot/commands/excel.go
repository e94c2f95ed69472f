package commands

import (
	"context"
	"fmt"
	"strings"

	"sipdbot/lib/cliutil"
	"sipdbot/services/workbook"

	"github.com/spf13/cobra"
)

var (
	compressOut *string
	mergeOut    *string
	mergeMode   *string
	convertOut  *string
)

func init() {
	compressOut = compressCmd.Flags().StringP("out", "o", "", "Output file, defaults to <in>-compressed.xlsx.")
	mergeOut = mergeCmd.Flags().StringP("out", "o", "", "Output file.")
	mergeMode = mergeCmd.Flags().String("mode", "rows", "How to combine the inputs: rows or sheets.")
	mergeCmd.MarkFlagRequired("out")
	convertOut = convertCmd.Flags().StringP("out", "o", "", "Output file, defaults to <in>.xlsx.")

	excelCmd.AddCommand(compressCmd)
	excelCmd.AddCommand(mergeCmd)
	excelCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(excelCmd)
}

var excelCmd = &cobra.Command{
	Use:   "excel",
	Short: "Clean up and combine Excel workbooks locally.",
}

// suffixed derives an output name next to the input when none is given.
func suffixed(in, out, suffix string) string {
	if out != "" {
		return out
	}
	base := strings.TrimSuffix(in, ".xlsx")
	base = strings.TrimSuffix(base, ".xls")
	return base + suffix
}

var compressCmd = &cobra.Command{
	Use:   "compress <in.xlsx> [-o out.xlsx]",
	Short: "Re-save a workbook to shrink and repair its container.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := args[0]
		out := suffixed(in, *compressOut, "-compressed.xlsx")

		result, err := workbook.Compress(cmd.Context(), in, out)
		if err != nil {
			cliutil.Fatal("failed to compress workbook", err)
		}
		if result.Repacked {
			fmt.Println("workbook was unparseable, repacked the raw container instead")
		}
		fmt.Printf("%s: %d bytes -> %s: %d bytes\n", in, result.InBytes, out, result.OutBytes)
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <in...> -o <out.xlsx> [--mode rows|sheets]",
	Short: "Combine several workbooks into one.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := mergeWorkbooks(cmd.Context(), args, *mergeOut, workbook.MergeMode(*mergeMode))
		if err != nil {
			cliutil.Fatal("failed to merge workbooks", err)
		}
	},
}

// mergeWorkbooks is shared between the merge subcommand and the menu.
func mergeWorkbooks(ctx context.Context, inputs []string, out string, mode workbook.MergeMode) error {
	result, err := workbook.Merge(ctx, inputs, out, mode)
	if err != nil {
		return err
	}
	fmt.Printf("merged %d file(s), %d row(s) across %d sheet(s) into %s\n",
		result.Files, result.Rows, result.Sheets, out)
	return nil
}

var convertCmd = &cobra.Command{
	Use:   "convert <in.xls> [-o out.xlsx]",
	Short: "Convert a legacy .xls workbook to .xlsx.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := args[0]
		out := suffixed(in, *convertOut, ".xlsx")

		result, err := workbook.ConvertXLS(cmd.Context(), in, out)
		if err != nil {
			cliutil.Fatal("failed to convert workbook", err)
		}
		fmt.Printf("converted %d sheet(s), %d row(s) into %s\n", result.Sheets, result.Rows, out)
	},
}
