package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/mapping"
)

// directoryCmd represents the directory command
var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Query the directory",
	Long:  `Query the directory without touching local records.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'directory' requires a subcommand (search)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

// directorySearchCmd represents the directory search command
var directorySearchCmd = &cobra.Command{
	Use:   "search <model>",
	Short: "List directory objects of a model",
	Long: `List directory objects of a model matching the --attr filters.

Filters and output use local field names; unmapped names pass through.

Example:
  adsyncctl directory search user --attr login=alice
  adsyncctl directory search group -o json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := searchDirectory(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(directoryCmd)
	addCredentialFlags(directoryCmd)
	directoryCmd.AddCommand(directorySearchCmd)
	directorySearchCmd.Flags().StringArrayP("attr", "a", nil, "filter on a local field, key=value (repeatable)")
	directorySearchCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func searchDirectory(cmd *cobra.Command, model string) error {
	attrs, _ := cmd.Flags().GetStringArray("attr")
	params, err := parseAttrs(attrs)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")

	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	runner, err := app.Runner(model, false)
	if err != nil {
		return err
	}
	attrMap, err := app.Registry.AttributeMap(model)
	if err != nil {
		return err
	}
	objs, err := runner.FindInDirectory(cmd.Context(), params)
	if err != nil {
		return err
	}
	return printObjects(cmd.OutOrStdout(), objs, attrMap, output)
}

type objectOutput struct {
	ExternalID string         `json:"external_id"`
	DN         string         `json:"dn,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

func printObjects(out io.Writer, objs []*directory.Object, attrMap *mapping.AttributeMap, format string) error {
	rows := make([]objectOutput, 0, len(objs))
	for _, obj := range objs {
		rows = append(rows, objectOutput{
			ExternalID: obj.ExternalID,
			DN:         obj.DN,
			Attributes: attrMap.ToLocal(obj.Attributes),
		})
	}

	if format == "json" {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	for _, row := range rows {
		fmt.Fprintf(out, "%s\t%s\n", row.ExternalID, row.DN)
		keys := make([]string, 0, len(row.Attributes))
		for k := range row.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %-20s %s\n", k, formatValue(row.Attributes[k]))
		}
	}
	fmt.Fprintf(out, "%d object(s)\n", len(rows))
	return nil
}

func formatValue(v any) string {
	if values, ok := v.([]string); ok {
		return strings.Join(values, ", ")
	}
	return fmt.Sprint(v)
}
