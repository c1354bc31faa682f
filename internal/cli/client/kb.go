package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// EntryRequest represents the entry create/update API request.
type EntryRequest struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// EntryResponse represents one knowledge entry in API responses.
type EntryResponse struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags"`
	Enabled    bool     `json:"enabled"`
	Provenance string   `json:"provenance"`
	Embedded   bool     `json:"embedded"`
	UpdatedAt  string   `json:"updated_at"`
}

// EntryListResponse represents the entry list API response.
type EntryListResponse struct {
	Items   []EntryResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

// KBCmd creates the kb command group.
func KBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage knowledge base entries",
	}

	cmd.AddCommand(kbAddCmd())
	cmd.AddCommand(kbListCmd())
	cmd.AddCommand(kbGetCmd())
	cmd.AddCommand(kbUpdateCmd())
	cmd.AddCommand(kbEnableCmd())
	cmd.AddCommand(kbDisableCmd())
	cmd.AddCommand(kbDeleteCmd())
	cmd.AddCommand(kbConfigCmd())
	return cmd
}

func kbAddCmd() *cobra.Command {
	var (
		category string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "add <question> <answer>",
		Short: "Add a knowledge entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Post("/kb/entries", EntryRequest{
				Question: args[0],
				Answer:   args[1],
				Category: category,
				Tags:     tags,
			})
			if err != nil {
				return fmt.Errorf("add failed: %w", err)
			}

			var entry EntryResponse
			if err := json.Unmarshal(resp.Data, &entry); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("Created entry %s\n", entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Entry category")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Entry tags (repeatable)")

	return cmd
}

func kbListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			path := fmt.Sprintf("/kb/entries?limit=%d", limit)
			if cursor != "" {
				path += "&cursor=" + cursor
			}

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			var listResp EntryListResponse
			if err := json.Unmarshal(resp.Data, &listResp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(listResp, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(listResp.Items) == 0 {
				fmt.Println("No entries.")
				return nil
			}

			for _, entry := range listResp.Items {
				status := "enabled"
				if !entry.Enabled {
					status = "disabled"
				}
				embedded := "embedded"
				if !entry.Embedded {
					embedded = "pending embedding"
				}
				fmt.Printf("%s  [%s, %s]\n", entry.ID, status, embedded)
				fmt.Printf("  Q: %s\n", entry.Question)
				if entry.Category != "" {
					fmt.Printf("  category: %s\n", entry.Category)
				}
			}

			if listResp.HasMore && listResp.Cursor != "" {
				fmt.Printf("\nMore entries available. Use --cursor %s\n", listResp.Cursor)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func kbGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one knowledge entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Get("/kb/entries/" + args[0])
			if err != nil {
				return fmt.Errorf("get failed: %w", err)
			}

			var entry EntryResponse
			if err := json.Unmarshal(resp.Data, &entry); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("ID:         %s\n", entry.ID)
			fmt.Printf("Question:   %s\n", entry.Question)
			fmt.Printf("Answer:     %s\n", entry.Answer)
			if entry.Category != "" {
				fmt.Printf("Category:   %s\n", entry.Category)
			}
			if len(entry.Tags) > 0 {
				fmt.Printf("Tags:       %s\n", strings.Join(entry.Tags, ", "))
			}
			fmt.Printf("Enabled:    %t\n", entry.Enabled)
			fmt.Printf("Embedded:   %t\n", entry.Embedded)
			fmt.Printf("Provenance: %s\n", entry.Provenance)
			return nil
		},
	}
}

func kbUpdateCmd() *cobra.Command {
	var (
		category string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "update <id> <question> <answer>",
		Short: "Rewrite a knowledge entry",
		Long:  "Rewrites an entry's content. The stale embedding is dropped and the entry is re-embedded in the background.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			_, err = api.Put("/kb/entries/"+args[0], EntryRequest{
				Question: args[1],
				Answer:   args[2],
				Category: category,
				Tags:     tags,
			})
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			fmt.Printf("Updated entry %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Entry category")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Entry tags (repeatable)")

	return cmd
}

func kbEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a knowledge entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setEntryEnabled(args[0], true)
		},
	}
}

func kbDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a knowledge entry without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setEntryEnabled(args[0], false)
		},
	}
}

func setEntryEnabled(id string, enabled bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	_, err = api.Patch("/kb/entries/"+id+"/enabled", map[string]bool{"enabled": enabled})
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	if enabled {
		fmt.Printf("Enabled entry %s\n", id)
	} else {
		fmt.Printf("Disabled entry %s\n", id)
	}
	return nil
}

func kbDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a knowledge entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			if _, err := api.Delete("/kb/entries/" + args[0]); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}

			fmt.Printf("Deleted entry %s\n", args[0])
			return nil
		},
	}
}

func kbConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the structured shelter configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the current shelter configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Get("/kb/config")
			if err != nil {
				return fmt.Errorf("get failed: %w", err)
			}

			var pretty map[string]any
			if err := json.Unmarshal(resp.Data, &pretty); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			output, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "publish <file.json>",
		Short: "Publish a new shelter configuration from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}

			var values map[string]any
			if err := json.Unmarshal(data, &values); err != nil {
				return fmt.Errorf("invalid config JSON: %w", err)
			}

			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			if _, err := api.Put("/kb/config", values); err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}

			fmt.Println("Configuration published.")
			return nil
		},
	})

	return cmd
}
