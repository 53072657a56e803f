package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"unsent/internal/config"
	"unsent/internal/crypto"
	"unsent/internal/domain"
	"unsent/internal/llm"
	"unsent/internal/repository"
	"unsent/internal/service"
)

const cliUserID = "cli-user"

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()
	// La CLI siempre trabaja en memoria.
	_ = os.Setenv("STORAGE_DRIVER", config.StorageMemory)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	cipher, err := crypto.NewContentCipher(cfg.EncryptionSecret)
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	var llmClient llm.LLMClient
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewOpenAIClient(llm.Options{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			AppName: cfg.LLMAppName,
			Timeout: time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		}, logger)
	} else {
		fmt.Println("LLM_API_KEY no configurada: sin respuestas del destinatario; el asesor responde por reglas.")
	}

	store := repository.NewInMemoryStore()
	messageSvc := service.NewMessageService(store.Messages(), cipher)
	replySvc := service.NewReplyService(llmClient, messageSvc, service.NewBasicContextService(messageSvc), logger)
	conversationSvc := service.NewConversationService(store.Conversations(), messageSvc, replySvc, nil, logger)
	advisorSvc := service.NewPetAdvisorService(store.Pets(), llmClient, logger)

	for {
		fmt.Println("\n===== Unsent =====")
		fmt.Println("[1] Escribir a un destinatario")
		fmt.Println("[2] Ver etapas")
		fmt.Println("[3] Asesor de mascotas")
		fmt.Println("[4] Salir")
		fmt.Print("Selecciona una opcion: ")
		choice := readLine(reader)

		switch choice {
		case "1":
			conv, err := pickConversation(ctx, reader, conversationSvc)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			if err := writeFlow(ctx, reader, conversationSvc, conv, llmClient != nil); err != nil {
				fmt.Printf("Error en conversacion: %v\n", err)
			}
		case "2":
			printStages()
		case "3":
			if err := petFlow(ctx, reader, advisorSvc); err != nil {
				fmt.Printf("Error en asesor: %v\n", err)
			}
		case "4":
			return
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func pickConversation(ctx context.Context, reader *bufio.Reader, svc *service.ConversationService) (domain.Conversation, error) {
	convs, err := svc.List(ctx, cliUserID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if len(convs) > 0 {
		fmt.Println("Conversaciones:")
		for i, c := range convs {
			fmt.Printf("[%d] %s (%s, puntaje %d, %d mensajes)\n", i+1, c.RecipientName, domain.StageDef(c.CurrentStage).Label, c.EmotionalScore, c.MessageCount)
		}
		fmt.Println("[N] Nuevo destinatario")
		fmt.Print("Selecciona: ")
		choice := readLine(reader)
		if !strings.EqualFold(choice, "N") {
			idx, err := strconv.Atoi(choice)
			if err != nil || idx < 1 || idx > len(convs) {
				return domain.Conversation{}, fmt.Errorf("seleccion invalida")
			}
			return convs[idx-1], nil
		}
	}

	fmt.Print("Nombre del destinatario: ")
	name := readLine(reader)
	fmt.Print("Tipo (real/symbolic, default real): ")
	kind := readLine(reader)
	fmt.Print("Contexto (opcional): ")
	recipientContext := readLine(reader)
	return svc.Create(ctx, cliUserID, service.CreateConversationInput{
		RecipientName:    name,
		RecipientType:    kind,
		RecipientContext: recipientContext,
	})
}

func writeFlow(ctx context.Context, reader *bufio.Reader, svc *service.ConversationService, conv domain.Conversation, canReply bool) error {
	wantReply := false
	fmt.Printf("\n---- Escribiendo a %s ----\n", conv.RecipientName)
	fmt.Println("Comandos: /respuesta (activa o desactiva respuestas), /historial, /salir")

	for {
		fmt.Print("Tu > ")
		start := time.Now()
		text := readLine(reader)

		switch strings.ToLower(text) {
		case "":
			continue
		case "/salir":
			return nil
		case "/respuesta":
			if !canReply {
				fmt.Println("Respuestas no disponibles sin LLM.")
				continue
			}
			wantReply = !wantReply
			fmt.Printf("Respuestas: %v\n", wantReply)
			continue
		case "/historial":
			history, err := svc.History(ctx, cliUserID, conv.ID)
			if err != nil {
				return err
			}
			for _, m := range history {
				who := "Tu"
				if m.Role == domain.RoleRecipient {
					who = conv.RecipientName
				}
				fmt.Printf("  %s > %s\n", who, m.Content)
			}
			continue
		}

		res, err := svc.PostMessage(ctx, cliUserID, conv.ID, service.PostMessageInput{
			Content:          text,
			TimeSpentSeconds: time.Since(start).Seconds(),
			WantReply:        wantReply,
		})
		if err != nil {
			fmt.Printf("error guardando mensaje: %v\n", err)
			continue
		}
		printAnalysis(res)
		if res.Reply != nil {
			fmt.Printf("%s > %s\n", conv.RecipientName, res.Reply.Message.Content)
		} else if res.ReplyError != "" {
			fmt.Printf("(sin respuesta: %s)\n", res.ReplyError)
		}
	}
}

func printAnalysis(res service.PostMessageResult) {
	a := res.Message.Analysis
	if a == nil {
		return
	}
	fmt.Printf("  [%s] puntaje %d, intensidad %.2f, progreso %d%%\n", domain.StageDef(a.Stage).Label, a.Score, a.Intensity, a.ProgressToNext)
	if len(a.Keywords) > 0 {
		fmt.Printf("  palabras clave: %s\n", strings.Join(a.Keywords, ", "))
	}
	fmt.Printf("  conversacion: %s, promedio %d (%d mensajes)\n",
		domain.StageDef(res.Conversation.CurrentStage).Label, res.Conversation.EmotionalScore, res.Conversation.MessageCount)
	if res.NextStepHint != "" {
		fmt.Printf("  siguiente paso: %s\n", res.NextStepHint)
	}
}

func printStages() {
	for _, stage := range domain.StageOrder {
		def := domain.StageDef(stage)
		fmt.Printf("%-11s %3d-%-3d %s\n", def.Label, def.MinScore, def.MaxScore, def.Description)
	}
}

func petFlow(ctx context.Context, reader *bufio.Reader, svc *service.PetAdvisorService) error {
	if _, err := svc.GetProfile(ctx, cliUserID); err != nil {
		fmt.Print("No hay mascota registrada. Registrar una? [s/N]: ")
		if strings.EqualFold(readLine(reader), "s") {
			if err := registerPetFlow(ctx, reader, svc); err != nil {
				fmt.Printf("No se pudo registrar: %v\n", err)
			}
		}
	}

	var history []domain.ChatTurn
	fmt.Println("---- Asesor de mascotas (escribe '/volver' para salir) ----")
	for {
		fmt.Print("Consulta > ")
		query := readLine(reader)
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "/volver") {
			return nil
		}

		res, err := svc.Chat(ctx, cliUserID, query, history)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		r := res.Response
		fmt.Printf("  (estrategia: %s)\n", res.Strategy)
		for _, rec := range r.SpecificRecommendations {
			fmt.Printf("  - %s\n", rec)
		}
		if r.PetVoiceResponse.HasRegisteredPet && r.PetVoiceResponse.VoiceMessage != "" {
			fmt.Printf("  %s > %s\n", r.PetVoiceResponse.PetName, r.PetVoiceResponse.VoiceMessage)
		}
		history = append(history,
			domain.ChatTurn{Role: "user", Content: query},
			domain.ChatTurn{Role: "assistant", Content: strings.Join(r.SpecificRecommendations, " ")},
		)
	}
}

func registerPetFlow(ctx context.Context, reader *bufio.Reader, svc *service.PetAdvisorService) error {
	fmt.Print("Nombre: ")
	name := readLine(reader)
	fmt.Print("Especie: ")
	species := readLine(reader)
	fmt.Print("Raza (opcional): ")
	breed := readLine(reader)
	fmt.Print("Edad en años (opcional): ")
	age, _ := strconv.ParseFloat(readLine(reader), 64)

	pet, err := svc.SaveProfile(ctx, cliUserID, domain.PetProfile{Name: name, Species: species, Breed: breed, AgeYears: age})
	if err != nil {
		return err
	}
	fmt.Printf("Mascota %s registrada.\n", pet.Name)
	return nil
}
