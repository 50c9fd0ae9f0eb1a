package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

// processCmd runs the ingestion pipeline for one URL
func processCmd(svc func() *services) *cobra.Command {
	var withContent bool

	cmd := &cobra.Command{
		Use:   "process <url>",
		Short: "Fetch a page and store it, or return the stored copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := svc().processor.Process(cmd.Context(), args[0])
			if err != nil {
				return kindError(err)
			}
			return printJSON(cmd.OutOrStdout(), view(*doc, withContent))
		},
	}
	cmd.Flags().BoolVar(&withContent, "content", false, "Include raw and clean markup")
	return cmd
}

// listCmd lists stored documents
func listCmd(svc func() *services) *cobra.Command {
	var status, contentType, category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := svc().library.List(cmd.Context(), domain.DocumentFilter{
				ContentType:     contentType,
				PrimaryCategory: category,
				ReadingStatus:   domain.ReadingStatus(status),
			})
			if err != nil {
				return kindError(err)
			}
			out := make([]domain.Document, 0, len(docs))
			for _, doc := range docs {
				out = append(out, view(doc, false))
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by reading status (UNREAD, IN_PROGRESS, READ)")
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Filter by content type")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by primary category")
	return cmd
}

func showCmd(svc func() *services) *cobra.Command {
	var withContent bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := svc().library.Get(cmd.Context(), args[0])
			if err != nil {
				return kindError(err)
			}
			return printJSON(cmd.OutOrStdout(), view(*doc, withContent))
		},
	}
	cmd.Flags().BoolVar(&withContent, "content", false, "Include raw and clean markup")
	return cmd
}

func statusCmd(svc func() *services) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <UNREAD|IN_PROGRESS|READ>",
		Short: "Set the reading status of a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := svc().library.UpdateReadingStatus(cmd.Context(), args[0], domain.ReadingStatus(args[1]))
			if err != nil {
				return kindError(err)
			}
			return printJSON(cmd.OutOrStdout(), view(*doc, false))
		},
	}
}

func deleteCmd(svc func() *services) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete the stored document for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := svc().library.DeleteByURL(cmd.Context(), args[0]); err != nil {
				return kindError(err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
		},
	}
}

func view(doc domain.Document, withContent bool) domain.Document {
	if !withContent {
		doc.RawContent = ""
		doc.CleanContent = ""
	}
	return doc
}

func kindError(err error) error {
	return fmt.Errorf("%s: %w", domain.ErrorKind(err), err)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
