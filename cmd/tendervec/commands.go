package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bidwerx/tendervec/internal/rag"
	"github.com/bidwerx/tendervec/internal/tender"
	"github.com/bidwerx/tendervec/internal/vectorstore"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show vector store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(a.engine.GetStats(cmd.Context()))
		},
	}
}

func newSearchCmd(configPath *string) *cobra.Command {
	var (
		entityType string
		topK       int
		minScore   float32
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search across indexed tender content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()
			query := strings.Join(args, " ")

			switch entityType {
			case tender.TypeOpportunity:
				hits, err := a.tender.SearchOpportunities(ctx, query, topK)
				if err != nil {
					return err
				}
				return printJSON(hits)
			case tender.TypeWonBid:
				hits, err := a.tender.FindSimilarWonBids(ctx, query, topK)
				if err != nil {
					return err
				}
				return printJSON(hits)
			case tender.TypeProjectDocument:
				hits, err := a.tender.SearchProjectDocuments(ctx, query, topK)
				if err != nil {
					return err
				}
				return printJSON(hits)
			case "":
				results, err := a.rag.Search(ctx, query, vectorstore.SearchOptions{
					TopK:          topK,
					MinSimilarity: minScore,
				})
				if err != nil {
					return err
				}
				return printJSON(results)
			default:
				return fmt.Errorf("unknown --type %q (want %s, %s or %s)",
					entityType, tender.TypeOpportunity, tender.TypeWonBid, tender.TypeProjectDocument)
			}
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "restrict to an entity type")
	cmd.Flags().IntVar(&topK, "top-k", 5, "maximum number of results")
	cmd.Flags().Float32Var(&minScore, "min-score", 0, "minimum similarity score")
	return cmd
}

func newRecommendCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <opportunity-id>",
		Short: "Recommendations from similar winning bids and project documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			rec, err := a.tender.RecommendationsForOpportunity(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
}

func newReindexCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Reindex every tender entity from the relational store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.tender.BulkReindex(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func newRebuildCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index, reclaiming space from deleted documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.RebuildIndex(cmd.Context()); err != nil {
				return err
			}
			return printJSON(a.engine.GetStats(cmd.Context()))
		},
	}
}

func newAddCmd(configPath *string) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "add <id> <content...>",
		Short: "Add a free-form document to the store",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := a.opContext(cmd.Context())
			defer cancel()

			id, err := a.rag.AddDocument(ctx, rag.Document{
				ID:      args[0],
				Content: strings.Join(args[1:], " "),
				Source:  source,
			})
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "manual", "provenance tag for the document")
	return cmd
}
