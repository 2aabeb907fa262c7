package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect a persona's memory store",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent documents of a kind",
		Run:   runMemoryList,
	}
	list.Flags().StringP("persona", "p", "", "Archetype key (required)")
	list.Flags().StringP("kind", "k", string(core.KindMemory), "Document kind: MEMORY, PLAN, FORMER_PLAN or KNOWLEDGE")
	list.Flags().IntP("limit", "l", 20, "Max results")
	_ = list.MarkFlagRequired("persona")

	query := &cobra.Command{
		Use:   "query [query...]",
		Short: "Similarity search, one result list per query",
		Args:  cobra.MinimumNArgs(1),
		Run:   runMemoryQuery,
	}
	query.Flags().StringP("persona", "p", "", "Archetype key (required)")
	query.Flags().IntP("limit", "l", memory.DefaultResults, "Results per query")
	_ = query.MarkFlagRequired("persona")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count documents per kind",
		Run:   runMemoryStats,
	}
	stats.Flags().StringP("persona", "p", "", "Archetype key (required)")
	_ = stats.MarkFlagRequired("persona")

	cmd.AddCommand(list, query, stats)
	RootCmd.AddCommand(cmd)
}

func openMemory(cmd *cobra.Command) (*memory.Store, func()) {
	key, _ := cmd.Flags().GetString("persona")
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	emb, err := core.NewEmbedder(cfg.Embedder)
	if err != nil {
		exitErr("embedder", err)
	}
	s, err := memory.OpenExisting(cmd.Context(), cfg.Store, cfg.PersistenceID(key), emb)
	if err != nil {
		_ = emb.Close()
		exitErr("open store", err)
	}
	return s, func() {
		_ = s.Close()
		_ = emb.Close()
	}
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func runMemoryList(cmd *cobra.Command, args []string) {
	kindFlag, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	kind, err := core.ParseDocumentKind(kindFlag)
	if err != nil {
		exitErr("kind", err)
	}

	s, closeFn := openMemory(cmd)
	defer closeFn()
	printJSON(cmd, s.GetLastN(kind, limit))
}

func runMemoryQuery(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, closeFn := openMemory(cmd)
	defer closeFn()
	results, err := s.QueryMultiple(cmd.Context(), args, limit)
	if err != nil {
		exitErr("query", err)
	}
	printJSON(cmd, results)
}

func runMemoryStats(cmd *cobra.Command, args []string) {
	s, closeFn := openMemory(cmd)
	defer closeFn()

	snap := s.GetAllDocuments()
	counts := map[string]int{}
	for _, m := range snap.Metadata {
		counts[string(m.Kind)]++
	}
	printJSON(cmd, map[string]any{
		"documents": snap.Len(),
		"capacity":  s.Capacity(),
		"kinds":     counts,
	})
}
