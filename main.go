package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/pitchside/pitchside-agent/agent/agents/orchestrator"
	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	executorx "github.com/pitchside/pitchside-agent/agent/executor"
	fallbackx "github.com/pitchside/pitchside-agent/agent/fallback"
	interpretx "github.com/pitchside/pitchside-agent/agent/interpret"
	llmx "github.com/pitchside/pitchside-agent/agent/llm"
	memoryx "github.com/pitchside/pitchside-agent/agent/memory"
	paramsx "github.com/pitchside/pitchside-agent/agent/params"
	promptx "github.com/pitchside/pitchside-agent/agent/prompt"
	registryx "github.com/pitchside/pitchside-agent/agent/registry"
	respondx "github.com/pitchside/pitchside-agent/agent/respond"
	selectorx "github.com/pitchside/pitchside-agent/agent/selector"
	suggestx "github.com/pitchside/pitchside-agent/agent/suggest"
	toolx "github.com/pitchside/pitchside-agent/agent/tool"
	configx "github.com/pitchside/pitchside-agent/pkg/config"
	_ "github.com/pitchside/pitchside-agent/pkg/logger/autoload"
	openrouterx "github.com/pitchside/pitchside-agent/pkg/openrouter"
)

type AppConfig struct {
	UserID string `envconfig:"USER_ID" split_words:"true" default:"local-user"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("APP")

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		panic(err)
	}

	extractionCfg := llmCfg.OpenRouterFor(llmx.RoleExtraction)
	chatModel, err := extractionCfg.New(ctx)
	if err != nil {
		panic(err)
	}
	extractor, err := llmx.NewModelExtractor(chatModel)
	if err != nil {
		panic(err)
	}

	sdkClient := openrouterx.NewClient(llmCfg.OpenRouterFor(llmx.RoleGeneration))
	if sdkClient == nil {
		panic("failed to initialize openrouter client")
	}
	generator, err := llmx.NewSDKGenerator(sdkClient, llmCfg.ModelFor(llmx.RoleGeneration), llmCfg.TemperatureFor(llmx.RoleGeneration))
	if err != nil {
		panic(err)
	}

	registry := registryx.New()
	if err := toolx.RegisterBuiltins(registry); err != nil {
		panic(err)
	}
	registry.Seal()

	store := memoryx.NewStore(newProfileStore(), newTurnArchive(), *configx.MustNew[memoryx.Config]("MEMORY"))

	prompts := promptx.LoadPromptSet()
	interpreter := interpretx.New(extractor, prompts.Interpreter, *configx.MustNew[interpretx.Config]("INTERPRET"))
	selector := selectorx.New(registry, *configx.MustNew[selectorx.Config]("SELECTOR"))
	synth := paramsx.New(extractor)
	coordinator := executorx.New(registry, *configx.MustNew[executorx.Config]("EXECUTOR"))
	planner := fallbackx.New(coordinator, registry, synth, *configx.MustNew[fallbackx.Config]("FALLBACK"))
	composer := respondx.New(generator, prompts.Composer)

	orch, err := orchestratorx.New(
		store,
		interpreter,
		selector,
		synth,
		planner,
		suggestx.New(),
		composer,
		*configx.MustNew[orchestratorx.Config]("ORCHESTRATOR"),
	)
	if err != nil {
		panic(err)
	}

	runREPL(ctx, orch, appCfg.UserID)
}

// newProfileStore builds the Upstash-backed profile store, or nil when
// the environment does not configure one. The agent runs fine without
// persistence; profiles just reset on restart.
func newProfileStore() contractx.ProfileStore {
	cfg, err := configx.New[memoryx.UpstashConfig]("UPSTASH_REDIS")
	if err != nil {
		log.Warn().Err(err).Msg("profile persistence disabled")
		return nil
	}
	store, err := memoryx.NewUpstashProfileStore(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("profile persistence disabled")
		return nil
	}
	return store
}

func newTurnArchive() contractx.TurnArchive {
	cfg, err := configx.New[memoryx.ArchiveConfig]("ARCHIVE")
	if err != nil {
		log.Warn().Err(err).Msg("turn archive disabled")
		return nil
	}
	archive, err := memoryx.NewPostgresTurnArchive(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("turn archive disabled")
		return nil
	}
	return archive
}

func runREPL(ctx context.Context, orch *orchestratorx.Orchestrator, userID string) {
	fmt.Println("pitchside agent ready. Ask a football question, or 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		resp, err := orch.HandleQuery(ctx, userID, line)
		if err != nil {
			if errors.Is(err, orchestratorx.ErrTooManyRequests) {
				fmt.Println("Easy! Give it a second before the next question.")
				continue
			}
			log.Error().Err(err).Msg("query failed")
			fmt.Println("Something went wrong on my side. Try again.")
			continue
		}

		fmt.Println(resp.Reply)
		for _, suggestion := range resp.Suggestions {
			fmt.Printf("  ? %s\n", suggestion.Text)
		}
	}
}
