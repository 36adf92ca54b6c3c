package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send one message to the chatbot",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		conversationID, _ := cmd.Flags().GetString("conversation")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/chat", map[string]string{
			"message":        message,
			"conversationId": conversationID,
		})
		if err != nil {
			return err
		}

		var result struct {
			Response       string `json:"response"`
			QueryType      string `json:"queryType"`
			QueryLevel     string `json:"queryLevel"`
			ProcessingTime int64  `json:"processingTime"`
			ConversationID string `json:"conversationId"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Response)
		fmt.Fprintf(os.Stderr, "\n%s %s/%s in %dms, conversation %s\n",
			colorize(colorCyan, "·"), result.QueryLevel, result.QueryType,
			result.ProcessingTime, result.ConversationID)
		return nil
	},
}

func init() {
	chatCmd.Flags().String("conversation", "", "conversation id to continue")
}

// --- agent ---

var agentCmd = &cobra.Command{
	Use:   "agent <message>",
	Short: "Run a multi-step agent query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/agent", map[string]string{"message": message})
		if err != nil {
			return err
		}

		var result struct {
			Steps []struct {
				Tool   string `json:"tool"`
				Input  string `json:"input"`
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"steps"`
			FinalAnswer string `json:"finalAnswer"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for i, s := range result.Steps {
			line := fmt.Sprintf("step %d: %s(%q) [%s]", i+1, s.Tool, s.Input, s.Status)
			if s.Error != "" {
				line += " " + s.Error
			}
			fmt.Fprintln(os.Stderr, colorize(colorCyan, line))
		}
		fmt.Println(result.FinalAnswer)
		return nil
	},
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a text or PDF file into the knowledge base",
	Long: `Ingest a document into the vector knowledge base.

Examples:
  graphchat ingest ./handbook.pdf
  graphchat ingest ./notes.txt --title "Ghi chú onboarding" --collection documents`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		title, _ := cmd.Flags().GetString("title")
		collection, _ := cmd.Flags().GetString("collection")

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		if title == "" {
			title = filepath.Base(path)
		}

		req := map[string]any{
			"title":      title,
			"collection": collection,
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			req["type"] = "pdf"
			req["contentBase64"] = base64.StdEncoding.EncodeToString(data)
		} else {
			req["type"] = "text"
			req["content"] = string(data)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/documents", req)
		if err != nil {
			return err
		}

		var result struct {
			Chunks     int    `json:"chunks"`
			Collection string `json:"collection"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Indexed %q as %d chunks into %s", title, result.Chunks, result.Collection)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("title", "", "title for the document (default: file name)")
	ingestCmd.Flags().String("collection", "documents", "vector collection to ingest into")
}

// --- conversations ---

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Manage conversation history",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/conversations")
		if err != nil {
			return err
		}

		var result struct {
			Conversations []struct {
				ID        string `json:"id"`
				UpdatedAt string `json:"updatedAt"`
			} `json:"conversations"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Conversations) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}
		for _, c := range result.Conversations {
			fmt.Printf("%s  %s\n", colorize(colorCyan, c.ID), c.UpdatedAt)
		}
		return nil
	},
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/conversations/"+args[0])
		if err != nil {
			return err
		}

		var result any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/conversations/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted conversation %s", result["deleted"])
		return nil
	},
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
}
