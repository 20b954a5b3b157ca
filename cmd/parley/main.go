// Command parley is a small interactive chat client over the tool registry.
// It wires the configured completion provider, the tool backends and the
// conversation loop, then reads user turns from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"github.com/parley-ai/parley/assistants"
	"github.com/parley-ai/parley/llm"
	"github.com/parley-ai/parley/llmfactory"
	"github.com/parley-ai/parley/registry"
	"github.com/parley-ai/parley/store"
	"github.com/parley-ai/parley/tools"
	"github.com/parley-ai/parley/tools/calculator"
	"github.com/parley-ai/parley/tools/faq"
	"github.com/parley-ai/parley/tools/tavily"
)

func main() {
	var (
		providersFile = flag.String("providers", "providers.json", "path to the provider config")
		registryFile  = flag.String("registry", "registry.json", "path to the tool backend config")
		providerName  = flag.String("provider", "", "provider name; default is the first configured")
		debug         = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *debug {
		xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.ERROR)
	}

	if err := run(*providersFile, *registryFile, *providerName); err != nil {
		fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		os.Exit(1)
	}
}

func run(providersFile, registryFile, providerName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := llmfactory.Load(providersFile)
	if err != nil {
		return err
	}
	provider, err := selectProvider(factory, providerName)
	if err != nil {
		return err
	}

	regCfg, err := registry.LoadConfig(registryFile)
	if err != nil {
		return err
	}
	reg, err := registry.NewRegistry(regCfg, registry.WithLocalTools("builtin", builtinTools()...))
	if err != nil {
		return err
	}
	if err := reg.InitializeAll(ctx); err != nil {
		return err
	}
	defer func() {
		_ = reg.CloseAll(context.Background())
	}()

	assistant := assistants.New(provider, reg,
		assistants.WithStore(store.NewMemoryStore()),
	)

	sessionID := uuid.NewString()
	fmt.Printf("parley ready: %d tools from %d backends (session %s)\n",
		len(reg.ListTools()), len(reg.Backends()), sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			return nil
		}

		for ev := range assistant.ChatStream(ctx, sessionID, input) {
			switch ev.Type {
			case assistants.EventChunk:
				fmt.Print(ev.Content)
			case assistants.EventToolCallStart:
				fmt.Printf("[tool %s ...]\n", ev.ToolName)
			case assistants.EventToolCallEnd:
				fmt.Printf("[tool %s done]\n", ev.ToolName)
			case assistants.EventToolCallError:
				fmt.Printf("[tool %s failed: %s]\n", ev.ToolName, ev.Err)
			case assistants.EventDone:
				fmt.Println()
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func selectProvider(factory llmfactory.Factory, name string) (llm.Provider, error) {
	if name != "" {
		return factory.ProviderByName(name)
	}
	return factory.DefaultProvider()
}

// builtinTools assembles the in-process tool set for the "builtin" local
// backend. The web search tool is included only when its credential is set.
func builtinTools() []tools.ITool {
	list := []tools.ITool{}
	if calc, err := calculator.New(); err == nil {
		list = append(list, calc)
	}
	if lookup, err := faq.New(defaultFAQ); err == nil {
		list = append(list, lookup)
	}
	if search, err := tavily.New(); err == nil {
		list = append(list, search)
	}
	return list
}

var defaultFAQ = []faq.Entry{
	{
		Question: "What can this assistant do?",
		Answer:   "It answers questions and can call tools: a calculator, this FAQ and, when configured, web search.",
		Keywords: []string{"help", "capabilities", "tools"},
	},
	{
		Question: "How do I exit?",
		Answer:   "Type /quit or /exit, or press Ctrl-C.",
		Keywords: []string{"exit", "quit", "close"},
	},
}
