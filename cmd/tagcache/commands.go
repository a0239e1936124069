package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentkit/tagcache/config"
	"github.com/agentkit/tagcache/tagcache"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add one record and flush it to the store",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cache, _, err := openCache(ctx, cmd)
		if err != nil {
			fatal("%v", err)
		}
		defer cache.Close(ctx)

		key, _ := cmd.Flags().GetString("key")
		tags, _ := cmd.Flags().GetStringArray("tag")
		valueJSON, _ := cmd.Flags().GetString("value-json")
		value := map[string]any{}
		if valueJSON != "" {
			if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
				fatal("invalid --value-json: %v", err)
			}
		}

		id, err := cache.Add(ctx, key, value, tags)
		if err != nil {
			fatal("%v", err)
		}
		result := cache.Flush(ctx)
		if result.Status == tagcache.FlushBackup {
			fatal("store write failed, batch saved to %s: %v", result.BackupFile, result.Err)
		}
		fmt.Println(id)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List records matching tags",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cache, _, err := openCache(ctx, cmd)
		if err != nil {
			fatal("%v", err)
		}
		defer cache.Close(ctx)

		tags, _ := cmd.Flags().GetStringArray("tag")
		matchAll, _ := cmd.Flags().GetBool("all")
		for _, rec := range cache.QueryByTags(ctx, tags, matchAll) {
			if err := printJSON(rec); err != nil {
				fatal("%v", err)
			}
		}
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show the most recently updated record for a key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cache, _, err := openCache(ctx, cmd)
		if err != nil {
			fatal("%v", err)
		}
		defer cache.Close(ctx)

		rec, found := cache.GetByKey(ctx, args[0])
		if !found {
			fatal("no record with key %q", args[0])
		}
		if err := printJSON(rec); err != nil {
			fatal("%v", err)
		}
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace a record's value, and optionally its tags",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cache, _, err := openCache(ctx, cmd)
		if err != nil {
			fatal("%v", err)
		}
		defer cache.Close(ctx)

		valueJSON, _ := cmd.Flags().GetString("value-json")
		var value map[string]any
		if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
			fatal("invalid --value-json: %v", err)
		}
		// Tags are only replaced when --tag was given at least once.
		var tags []string
		if cmd.Flags().Changed("tag") {
			tags, _ = cmd.Flags().GetStringArray("tag")
			if tags == nil {
				tags = []string{}
			}
		}
		if !cache.UpdateItem(ctx, args[0], value, tags) {
			fatal("no record with id %q", args[0])
		}
		fmt.Println("updated", args[0])
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete records older than an age",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cache, _, err := openCache(ctx, cmd)
		if err != nil {
			fatal("%v", err)
		}
		defer cache.Close(ctx)

		age, _ := cmd.Flags().GetString("older-than")
		d, err := config.ParseAge(age)
		if err != nil {
			fatal("%v", err)
		}
		days := int(d.Hours() / 24)
		if days < 1 {
			fatal("minimum age is 1d")
		}
		removed := cache.CleanupOlderThan(ctx, days)
		fmt.Printf("removed %d records older than %s\n", removed, age)
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover <backup.json>",
	Short: "Re-submit a backup file left by a failed flush",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cache, _, err := openCache(ctx, cmd)
		if err != nil {
			fatal("%v", err)
		}
		defer cache.Close(ctx)

		n, err := cache.Recover(ctx, args[0])
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("recovered %d records from %s — delete the file once verified\n", n, args[0])
	},
}

func init() {
	addCmd.Flags().String("key", "", "record key (required)")
	addCmd.Flags().StringArray("tag", nil, "tag to attach (repeatable)")
	addCmd.Flags().String("value-json", "", "record value as a JSON object")
	addCmd.MarkFlagRequired("key")

	queryCmd.Flags().StringArray("tag", nil, "tag to match (repeatable)")
	queryCmd.Flags().Bool("all", false, "require all tags (AND) instead of any (OR)")

	updateCmd.Flags().String("value-json", "", "new value as a JSON object (required)")
	updateCmd.Flags().StringArray("tag", nil, "replacement tags (omit to preserve)")
	updateCmd.MarkFlagRequired("value-json")

	cleanupCmd.Flags().String("older-than", "30d", "age threshold, e.g. 30d, 12h")
}
