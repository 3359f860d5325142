package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/store"
	"docqa/internal/domain"
	"docqa/internal/usecase"
)

var (
	askQuestion string
	askTopK     int
	askSources  bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer questions from the indexed document",
	Long: `Answer a question using the closest indexed chunks as context.
Without -q, questions are read line by line from stdin until EOF or "exit".

Examples:
  docqa ask -q "What is the notice period?"
  docqa ask --sources`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "query", "q", "", "question to answer (interactive when empty)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the chunks the answer used")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

// session answers questions against the persisted index and reloads it
// when a rebuild is detected.
type session struct {
	cfg      *config.Config
	dir      string
	cached   *embedding.CachedEmbedder
	store    *usecase.IndexStore
	answerUC *usecase.AnswerUseCase
	buildID  string
}

func newSession(cfg *config.Config, dir string) (*session, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	cache := embedding.NewEmbeddingCache(cfg.Embedding.CacheSize, time.Duration(cfg.Embedding.CacheTTLMin)*time.Minute)
	cached := embedding.NewCachedEmbedder(embedder, cache)

	st, err := newIndexStore(cfg, cached, nil)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, dir: dir, cached: cached, store: st}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) reload() error {
	idx, err := s.store.Load(s.dir)
	if err != nil {
		return err
	}

	generator, err := newGenerator(s.cfg)
	if err != nil {
		return err
	}

	topK := s.cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	s.buildID = idx.Manifest().BuildID
	s.cached.Invalidate(s.buildID)
	s.answerUC = usecase.NewAnswerUseCase(idx, newPacker(s.cfg, idx.Manifest().ChunkOverlap), generator, usecase.AnswerOptions{
		TopK:         topK,
		SystemPrompt: s.cfg.Answer.SystemPrompt,
		Logger:       logger,
	})
	return nil
}

func (s *session) ask(ctx context.Context, question string) (*domain.Answer, error) {
	if m, err := store.ReadManifest(s.dir); err == nil && m.BuildID != s.buildID {
		logger.Info("index changed, reloading", "build_id", m.BuildID)
		if err := s.reload(); err != nil {
			return nil, err
		}
	}
	return s.answerUC.Ask(ctx, question)
}

func runAsk(cmd *cobra.Command, args []string) error {
	s, err := newSession(GetConfig(), GetConfig().IndexDir(GetRootDir()))
	if err != nil {
		return err
	}

	if askQuestion != "" {
		answer, err := s.ask(cmd.Context(), askQuestion)
		if err != nil {
			return err
		}
		return printAnswer(answer)
	}

	return interactive(cmd.Context(), s, os.Stdin)
}

func interactive(ctx context.Context, s *session, in io.Reader) error {
	fmt.Println(titleStyle.Render("Ask a question about the document") + mutedStyle.Render("  (exit or Ctrl-D to quit)"))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := s.ask(ctx, question)
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
			continue
		}
		if err := printAnswer(answer); err != nil {
			return err
		}
		fmt.Println()
	}
}

func printAnswer(answer *domain.Answer) error {
	if askJSON {
		output, err := json.MarshalIndent(struct {
			*domain.Answer
			Error string `json:"error,omitempty"`
		}{answer, errString(answer.Err)}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}
	fmt.Println(renderAnswer(answer, askSources))
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
