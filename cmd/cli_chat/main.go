package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"deepgpt/internal/config"
	"deepgpt/internal/domain"
	"deepgpt/internal/llm"
	"deepgpt/internal/repository"
	"deepgpt/internal/service"
)

func main() {
	offline := flag.Bool("offline", false, "responder con un cliente simulado, sin llamar a los proveedores")
	flag.Parse()

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	store, err := repository.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	registry := llm.NewRegistry(cfg, logger)
	if *offline {
		registry = offlineRegistry()
	}
	locker := service.NewSessionLocker()
	contextSvc := service.NewTaggedContextService(store.Messages, cfg.HistoryWindow)
	chatSvc := service.NewChatService(logger, store.Sessions, store.Messages, contextSvc, registry, locker)
	historySvc := service.NewHistoryService(store.Sessions, store.Messages, locker)

	model := firstAvailable(registry)
	sessionID := ""

	fmt.Println("===== deepgpt chat =====")
	printHelp()
	for {
		fmt.Printf("[%s] You > ", model)
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			fields := strings.Fields(line)
			switch fields[0] {
			case "/quit", "/exit":
				return
			case "/help":
				printHelp()
			case "/new":
				sessionID = ""
				fmt.Println("New conversation.")
			case "/model":
				if len(fields) < 2 {
					fmt.Println("Usage: /model deepseek|qwen|kimi")
					continue
				}
				m, err := domain.ParseModelType(fields[1])
				if err != nil {
					fmt.Println(err)
					continue
				}
				model = m
				if !registry.Available(model) {
					fmt.Printf("Warning: %s has no API key configured.\n", llm.DisplayName(model))
				}
			case "/sessions":
				listSessions(ctx, historySvc)
			case "/open":
				if len(fields) < 2 {
					fmt.Println("Usage: /open <session_id>")
					continue
				}
				sessionID = fields[1]
				printHistory(ctx, historySvc, sessionID)
			case "/history":
				printHistory(ctx, historySvc, sessionID)
			case "/delete":
				if sessionID == "" {
					fmt.Println("No active session.")
					continue
				}
				if err := historySvc.DeleteSession(ctx, sessionID); err != nil {
					fmt.Printf("delete failed: %v\n", err)
					continue
				}
				fmt.Println("Session deleted.")
				sessionID = ""
			default:
				fmt.Println("Unknown command, /help for the list.")
			}
			continue
		}

		out, err := chatSvc.HandleChat(ctx, service.ChatInput{
			Message:   line,
			SessionID: sessionID,
			ModelType: model.String(),
		})
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		sessionID = out.SessionID
		if !out.Success {
			fmt.Printf("%s failed: %s\n", llm.DisplayName(model), out.Error)
			continue
		}
		fmt.Printf("%s > %s\n", llm.DisplayName(model), out.Response)
	}
}

// offlineRegistry devuelve un registro con clientes simulados para probar el flujo sin API keys.
func offlineRegistry() *llm.Registry {
	clients := make(map[domain.ModelType]llm.ChatClient, len(domain.ModelTypes))
	for _, m := range domain.ModelTypes {
		clients[m] = &llm.MockClient{Result: llm.Result{
			Success:  true,
			Response: fmt.Sprintf("(offline) %s recibió tu mensaje.", llm.DisplayName(m)),
			Model:    "offline-" + m.String(),
		}}
	}
	return llm.NewStaticRegistry(clients)
}

func firstAvailable(registry *llm.Registry) domain.ModelType {
	for _, m := range domain.ModelTypes {
		if registry.Available(m) {
			return m
		}
	}
	return domain.ModelDeepSeek
}

func printHelp() {
	fmt.Println("Commands: /model <deepseek|qwen|kimi>, /new, /sessions, /open <id>, /history, /delete, /quit")
}

func listSessions(ctx context.Context, historySvc *service.HistoryService) {
	sessions, err := historySvc.ListSessions(ctx)
	if err != nil {
		fmt.Printf("list sessions failed: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet.")
		return
	}
	for _, s := range sessions {
		fmt.Printf("%s  %-14s  %s\n", s.ID, s.Title, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func printHistory(ctx context.Context, historySvc *service.HistoryService, sessionID string) {
	if sessionID == "" {
		fmt.Println("No active session.")
		return
	}
	messages, err := historySvc.Messages(ctx, sessionID)
	if err != nil {
		fmt.Printf("history failed: %v\n", err)
		return
	}
	for _, m := range messages {
		who := "You"
		if m.Role == domain.RoleAssistant {
			who = llm.DisplayName(domain.ModelType(m.Model))
		}
		fmt.Printf("%s > %s\n", who, m.Content)
	}
}
