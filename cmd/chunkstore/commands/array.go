package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/chunkstore/pkg/apiclient"
)

var arrayCmd = &cobra.Command{
	Use:   "array",
	Short: "Manage logical arrays over the REST API",
	Long: `Manage logical arrays on a running chunkstore server.

Examples:
  # Append items read from stdin (a JSON array)
  echo '[1,2,3]' | chunkstore array append events

  # Create an array with a custom batch size
  echo '[1,2,3]' | chunkstore array append events --batch-size 500

  # Read items
  chunkstore array get events
  chunkstore array recent events --count 10
  chunkstore array range events --start 100 --end 200

  # Inspect and delete
  chunkstore array meta events
  chunkstore array drop events`,
}

func init() {
	arrayCmd.PersistentFlags().String("server", "http://localhost:8080", "Server URL")

	arrayAppendCmd.Flags().Int("batch-size", 0, "Batch size for a newly created array")
	arrayAppendCmd.Flags().Bool("rebalance", false, "Re-segment the array to --batch-size before appending")
	arrayRecentCmd.Flags().Int("count", 10, "Number of trailing items to fetch")
	arrayRangeCmd.Flags().Int("start", 0, "Start index (inclusive)")
	arrayRangeCmd.Flags().Int("end", 0, "End index (exclusive)")

	arrayCmd.AddCommand(arrayAppendCmd)
	arrayCmd.AddCommand(arrayGetCmd)
	arrayCmd.AddCommand(arrayRecentCmd)
	arrayCmd.AddCommand(arrayRangeCmd)
	arrayCmd.AddCommand(arrayMetaCmd)
	arrayCmd.AddCommand(arrayDropCmd)
}

func arrayClient(cmd *cobra.Command) *apiclient.Client {
	server, _ := cmd.Flags().GetString("server")
	return apiclient.New(server)
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var arrayAppendCmd = &cobra.Command{
	Use:   "append <key>",
	Short: "Append items to a logical array",
	Long: `Append items to a logical array, creating it on first write.

Items are read from stdin as a single JSON array. Each element is stored
verbatim.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var items []json.RawMessage
		if err := json.NewDecoder(os.Stdin).Decode(&items); err != nil {
			return fmt.Errorf("failed to parse items from stdin: %w", err)
		}

		batchSize, _ := cmd.Flags().GetInt("batch-size")
		rebalance, _ := cmd.Flags().GetBool("rebalance")

		result, err := arrayClient(cmd).AppendItems(args[0], apiclient.AppendRequest{
			Items:     items,
			BatchSize: batchSize,
			Rebalance: rebalance,
		})
		if err != nil {
			return fmt.Errorf("failed to append items: %w", err)
		}

		return printJSON(result)
	},
}

var arrayGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Read the full array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := arrayClient(cmd).GetAll(args[0])
		if err != nil {
			return fmt.Errorf("failed to read array: %w", err)
		}
		return printJSON(items)
	},
}

var arrayRecentCmd = &cobra.Command{
	Use:   "recent <key>",
	Short: "Read the most recent items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")

		items, err := arrayClient(cmd).GetRecent(args[0], count)
		if err != nil {
			return fmt.Errorf("failed to read recent items: %w", err)
		}
		return printJSON(items)
	},
}

var arrayRangeCmd = &cobra.Command{
	Use:   "range <key>",
	Short: "Read a half-open index range [start, end)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetInt("start")
		end, _ := cmd.Flags().GetInt("end")

		items, err := arrayClient(cmd).GetRange(args[0], start, end)
		if err != nil {
			return fmt.Errorf("failed to read range: %w", err)
		}
		return printJSON(items)
	},
}

var arrayMetaCmd = &cobra.Command{
	Use:   "meta <key>",
	Short: "Show array metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := arrayClient(cmd).GetMeta(args[0])
		if err != nil {
			return fmt.Errorf("failed to read metadata: %w", err)
		}

		fmt.Printf("Key:          %s\n", args[0])
		fmt.Printf("Batches:      %d\n", meta.BatchCount)
		fmt.Printf("Total items:  %d\n", meta.TotalItems)
		fmt.Printf("Batch size:   %d\n", meta.BatchSize)
		fmt.Printf("Last updated: %s\n", meta.LastUpdated.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

var arrayDropCmd = &cobra.Command{
	Use:   "drop <key>",
	Short: "Delete an array and all of its segments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := arrayClient(cmd).DropArray(args[0]); err != nil {
			return fmt.Errorf("failed to drop array: %w", err)
		}
		fmt.Printf("Array %q dropped\n", args[0])
		return nil
	},
}
