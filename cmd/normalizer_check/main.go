package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"unsent/internal/config"
	"unsent/internal/llm"
	"unsent/internal/repository"
	"unsent/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

func main() {
	live := flag.Bool("live", false, "tambien consulta al LLM configurado y normaliza sus respuestas")
	flag.Parse()

	_ = godotenv.Load()
	_ = os.Setenv("STORAGE_DRIVER", config.StorageMemory)

	parser := service.NewPetResponseParser(zap.NewNop())
	failures := runCorpus(os.Stdout, parser, petCorpus)
	fmt.Printf("\n==== Corpus: %d/%d casos con la estrategia esperada ====\n", len(petCorpus)-failures, len(petCorpus))

	if *live {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatal(err)
		}
		if cfg.LLMAPIKey == "" {
			log.Fatal("LLM_API_KEY requerida para -live")
		}
		logger, _ := zap.NewDevelopment()
		defer logger.Sync()

		client := llm.NewOpenAIClient(llm.Options{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			AppName: cfg.LLMAppName,
			Timeout: time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		}, logger)
		advisor := service.NewPetAdvisorService(repository.NewInMemoryStore().Pets(), client, logger)
		runLive(context.Background(), os.Stdout, advisor, liveQueries)
	}

	if failures > 0 {
		os.Exit(1)
	}
}

// runCorpus normaliza cada caso e imprime la estrategia que lo resolvio.
// Devuelve cuantos casos no coincidieron con la estrategia esperada.
func runCorpus(w io.Writer, parser service.PetResponseParser, corpus []normalizerCase) int {
	failures := 0
	for _, tc := range corpus {
		resp, strategy := parser.ParseLLMOutput(tc.Raw, service.FallbackContext{Query: tc.Query})
		color, mark := colorGreen, "OK"
		if strategy != tc.Expected {
			color, mark = colorRed, "FAIL"
			failures++
		}
		fmt.Fprintf(w, "%s[%s]%s %-18s estrategia=%-16s esperada=%-16s issues=%v tipos=%v\n",
			color, mark, colorReset, tc.Name, strategy, tc.Expected, resp.Issues, resp.RecommendationTypes)
	}
	return failures
}

func runLive(ctx context.Context, w io.Writer, advisor *service.PetAdvisorService, queries []string) {
	fmt.Fprintln(w, "\n==== Consultas en vivo ====")
	counts := make(map[service.ParseStrategy]int)
	for _, q := range queries {
		fmt.Fprintf(w, "%s[Consulta]%s %s\n", colorCyan, colorReset, q)
		res, err := advisor.Chat(ctx, "", q, nil)
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
			continue
		}
		counts[res.Strategy]++
		fmt.Fprintf(w, "  estrategia=%s recomendaciones=%d\n", res.Strategy, len(res.Response.SpecificRecommendations))
	}
	for _, s := range []service.ParseStrategy{service.StrategyDirectClean, service.StrategyCharScanRepair, service.StrategyFieldRegex, service.StrategyFallback} {
		fmt.Fprintf(w, "  %-16s %d\n", s, counts[s])
	}
}
