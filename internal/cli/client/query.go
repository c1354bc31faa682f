package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the query API request.
type AskRequest struct {
	KioskID          string   `json:"kiosk_id,omitempty"`
	SessionID        string   `json:"session_id,omitempty"`
	Query            string   `json:"query"`
	Language         string   `json:"language,omitempty"`
	SelectedCategory string   `json:"selected_category,omitempty"`
	ExcludeIDs       []string `json:"exclude_ids,omitempty"`
}

// AskResponse represents the query API response.
type AskResponse struct {
	AnswerType       string   `json:"answer_type"`
	AnswerText       string   `json:"answer_text,omitempty"`
	Confidence       float64  `json:"confidence"`
	EntryID          string   `json:"entry_id,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	Intent           string   `json:"intent,omitempty"`
	IntentConfidence float64  `json:"intent_confidence"`
	QueryLogID       string   `json:"query_log_id,omitempty"`
	RewriteApplied   bool     `json:"rewrite_applied"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var (
		language string
		category string
		kioskID  string
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask the hub a question",
		Long:  "Runs a question through the hub's retrieval pipeline and prints the gated answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runQuery(args[0], language, category, kioskID, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Query language code (e.g. en, tl)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Selected category from a clarification prompt")
	cmd.Flags().StringVar(&kioskID, "kiosk", "cli", "Kiosk identifier for logging")

	return cmd
}

func runQuery(question, language, category, kioskID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := AskRequest{
		KioskID:          kioskID,
		Query:            question,
		Language:         language,
		SelectedCategory: category,
	}

	resp, err := api.Post("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse query response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	switch askResp.AnswerType {
	case "DIRECT_MATCH":
		fmt.Println(askResp.AnswerText)
		fmt.Printf("\n(confidence %.2f", askResp.Confidence)
		if askResp.EntryID != "" {
			fmt.Printf(", entry %s", askResp.EntryID)
		}
		fmt.Println(")")
	case "NEEDS_CLARIFICATION":
		fmt.Println("Which of these are you asking about?")
		for _, c := range askResp.Categories {
			fmt.Printf("  - %s\n", c)
		}
		fmt.Printf("\nRe-run with --category <%s>\n", strings.Join(askResp.Categories, "|"))
	default:
		fmt.Println(askResp.AnswerText)
	}

	if askResp.QueryLogID != "" {
		fmt.Printf("query log: %s\n", askResp.QueryLogID)
	}

	return nil
}

// FeedbackCmd creates the feedback command.
func FeedbackCmd() *cobra.Command {
	var negative bool

	cmd := &cobra.Command{
		Use:   "feedback <entry-id>",
		Short: "Record feedback on an answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedback(args[0], negative)
		},
	}

	cmd.Flags().BoolVar(&negative, "negative", false, "Record a thumbs-down instead of a thumbs-up")

	return cmd
}

func runFeedback(entryID string, negative bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	label := 1
	if negative {
		label = -1
	}

	_, err = api.Post("/feedback", map[string]any{
		"entry_id": entryID,
		"kiosk_id": "cli",
		"label":    label,
	})
	if err != nil {
		return fmt.Errorf("feedback failed: %w", err)
	}

	fmt.Println("Feedback recorded.")
	return nil
}
