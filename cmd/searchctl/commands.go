package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/core/usecase"
)

type searchOutput struct {
	ResultCount int                    `json:"result_count"`
	Tier        domain.Tier            `json:"tier"`
	Fallback    bool                   `json:"fallback"`
	Keywords    []string               `json:"keywords"`
	Documents   []domain.DisplayRecord `json:"documents"`
}

func newSearchCmd(load loader) *cobra.Command {
	var (
		keywords []string
		topK     int
	)
	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Run the retrieval cascade for a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			return withServices(cmd, load, func(svc *services) error {
				ctx := cmd.Context()
				kws := keywords
				if !cmd.Flags().Changed("keywords") {
					extracted, err := svc.Keywords.Extract(ctx, question)
					if err != nil {
						return err
					}
					kws = extracted
				}
				if kws == nil {
					kws = []string{}
				}

				result, err := svc.Search.Search(ctx, question, kws, topK)
				if err != nil {
					return err
				}
				usecase.RecordEvent(ctx, svc.Events, usecase.NewSearchEvent(question, kws, result), svc.Logger)

				out := searchOutput{
					ResultCount: len(result.Results),
					Tier:        result.Tier,
					Fallback:    result.FellBack,
					Keywords:    kws,
					Documents:   make([]domain.DisplayRecord, 0, len(result.Results)),
				}
				for _, r := range result.Results {
					out.Documents = append(out.Documents, domain.FormatForDisplay(r))
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "comma separated keywords; skips keyword generation")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of results (0 uses SEARCH_TOP_K)")
	return cmd
}

func newKeywordsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "keywords <question>",
		Short: "Print the keywords generated for a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			return withServices(cmd, load, func(svc *services) error {
				kws, err := svc.Keywords.Extract(cmd.Context(), question)
				if err != nil {
					return err
				}
				if kws == nil {
					kws = []string{}
				}
				return printJSON(cmd.OutOrStdout(), kws)
			})
		},
	}
}

func newSummarizeCmd(load loader) *cobra.Command {
	var (
		contentFile string
		brief       domain.IncidentBrief
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Write a short narrative for one incident",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(contentFile)
			if err != nil {
				return fmt.Errorf("read content file: %w", err)
			}
			brief.Content = string(raw)
			return withServices(cmd, load, func(svc *services) error {
				ctx := cmd.Context()
				summary, err := svc.Summarizer.Summarize(ctx, brief)
				if err != nil {
					return err
				}
				usecase.RecordEvent(ctx, svc.Events, usecase.NewSummaryEvent(brief, summary), svc.Logger)
				_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&contentFile, "content-file", "", "file holding the incident text")
	flags.StringVar(&brief.StoreName, "store", "", "store name")
	flags.StringVar(&brief.Date, "date", "", "incident date")
	flags.StringVar(&brief.FaultMajor, "fault-major", "", "major fault category")
	flags.StringVar(&brief.FaultMid, "fault-mid", "", "middle fault category")
	flags.StringVar(&brief.FaultMinor, "fault-minor", "", "minor fault category")
	flags.StringVar(&brief.OCSCauseMajor, "ocs-cause-major", "", "major OCS cause")
	flags.StringVar(&brief.OCSCauseMid, "ocs-cause-mid", "", "middle OCS cause")
	flags.StringVar(&brief.OCSCauseMinor, "ocs-cause-minor", "", "minor OCS cause")
	flags.StringVar(&brief.DepartmentMain, "department", "", "main department")
	flags.StringVar(&brief.Urgency, "urgency", "", "urgency")
	_ = cmd.MarkFlagRequired("content-file")
	return cmd
}

func newStatsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print persisted search counts per tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, load, func(svc *services) error {
				if svc.Stats == nil {
					return errors.New("stats require POSTGRES_DSN")
				}
				counts, err := svc.Stats.CountByTier(cmd.Context())
				if err != nil {
					return err
				}
				tiers := make([]string, 0, len(counts))
				for tier := range counts {
					tiers = append(tiers, string(tier))
				}
				sort.Strings(tiers)
				for _, tier := range tiers {
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", tier, counts[domain.Tier(tier)]); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
