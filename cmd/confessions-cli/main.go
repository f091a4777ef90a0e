package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/sugarlabs-app/confessions/backend/internal/ledger"
)

var (
	serverURL  string
	ledgerPath string
)

type confessionRow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Body  string `json:"confession"`
	City  string `json:"city"`
	Date  int64  `json:"date"`
	Likes int64  `json:"likes"`
}

type feedResponse struct {
	Confessions []confessionRow `json:"confessions"`
}

type submitResponse struct {
	Confession confessionRow `json:"confession"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "confessions-cli",
		Short: "Command line client for the confessions feed",
	}

	defaultLedger := "liked.json"
	if home, err := os.UserHomeDir(); err == nil {
		defaultLedger = filepath.Join(home, ".confessions", "liked.json")
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the confessions API")
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", defaultLedger, "Path to the local like ledger file")

	rootCmd.AddCommand(newFeedCommand(), newSubmitCommand(), newLikeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(serverURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
}

func newFeedCommand() *cobra.Command {
	var sortMode string
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the confession feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			liked, err := ledger.Open(ledgerPath)
			if err != nil {
				return err
			}

			var feed feedResponse
			var apiErr errorResponse
			response, err := newClient().R().
				SetQueryParam("sort", sortMode).
				SetResult(&feed).
				SetError(&apiErr).
				Get("/confessions")
			if err != nil {
				return err
			}
			if response.IsError() {
				return fmt.Errorf("feed request failed: %s", apiErr.Error)
			}

			for _, row := range feed.Confessions {
				marker := " "
				if liked.HasLiked(row.ID) {
					marker = "*"
				}
				when := time.Unix(row.Date, 0).UTC().Format("2006-01-02 15:04")
				fmt.Fprintf(cmd.OutOrStdout(), "%s %3d  %s  %s: %s\n", marker, row.Likes, when, row.Name, row.Body)
				fmt.Fprintf(cmd.OutOrStdout(), "        id: %s\n", row.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sortMode, "sort", "newest", "Feed order: newest, most-liked, or hot")
	return cmd
}

func newSubmitCommand() *cobra.Command {
	var name, city, imageFile string
	var age int
	cmd := &cobra.Command{
		Use:   "submit <confession text>",
		Short: "Submit a confession",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"confession": args[0]}
			if name != "" {
				body["name"] = name
			}
			if city != "" {
				body["city"] = city
			}
			if age > 0 {
				body["age"] = age
			}
			if imageFile != "" {
				encoded, err := encodeImageFile(imageFile)
				if err != nil {
					return err
				}
				body["image"] = encoded
			}

			var created submitResponse
			var apiErr errorResponse
			response, err := newClient().R().
				SetBody(body).
				SetResult(&created).
				SetError(&apiErr).
				Post("/confessions")
			if err != nil {
				return err
			}
			if response.IsError() {
				if apiErr.Message != "" {
					return fmt.Errorf("submit rejected: %s", apiErr.Message)
				}
				return fmt.Errorf("submit failed: %s", apiErr.Error)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "submitted %s\n", created.Confession.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Optional display name")
	cmd.Flags().StringVar(&city, "city", "", "Optional city")
	cmd.Flags().IntVar(&age, "age", 0, "Optional age")
	cmd.Flags().StringVar(&imageFile, "image", "", "Optional image file to attach")
	return cmd
}

func newLikeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "like <confession id>",
		Short: "Like a confession once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			liked, err := ledger.Open(ledgerPath)
			if err != nil {
				return err
			}
			if liked.HasLiked(id) {
				fmt.Fprintf(cmd.OutOrStdout(), "already liked %s\n", id)
				return nil
			}

			var apiErr errorResponse
			response, err := newClient().R().
				SetError(&apiErr).
				Post("/confessions/" + id + "/like")
			if err != nil {
				return err
			}
			if response.IsError() {
				return fmt.Errorf("like failed: %s", apiErr.Error)
			}

			if err := liked.RecordLike(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "liked %s\n", id)
			return nil
		},
	}
}

func encodeImageFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
