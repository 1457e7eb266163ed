package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wechat-gpt-bridge/internal/biz/usecase"
	"wechat-gpt-bridge/internal/conf"
	"wechat-gpt-bridge/internal/data"
	"wechat-gpt-bridge/internal/infra/wechat"
	"wechat-gpt-bridge/internal/server"
)

var repliesPath string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	root := &cobra.Command{
		Use:   "bridge",
		Short: "WeChat official-account relay to an OpenAI-compatible provider",
	}
	root.PersistentFlags().StringVar(&repliesPath, "replies", "", "path to replies.yaml (default: configs/replies.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(refreshTokenCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and token scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf.LoadFromEnv()
			if err := cfg.Validate(); err != nil {
				return err
			}
			replies, err := conf.LoadRepliesConfig(repliesPath)
			if err != nil {
				return err
			}

			wechatCli := wechat.NewClient(cfg.WeChat.AppID, cfg.WeChat.AppSecret)
			tokenCache := data.NewTokenCache()
			platform := data.NewPlatformRepo(wechatCli, tokenCache)
			aiRepo := data.NewAIRepo(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Temperature)

			convRepo, err := data.NewConversationRepo(cfg.Store.DBPath)
			if err != nil {
				return fmt.Errorf("open conversation store: %w", err)
			}
			defer convRepo.Close()

			registry := usecase.NewCommandRegistry(convRepo, aiRepo, replies, cfg.OpenAI.EnableImage)
			pipeline := usecase.NewReplyPipeline(convRepo, platform, aiRepo, registry, replies, cfg.Pipeline)

			tokenUC := usecase.NewTokenUsecase(tokenCache, wechatCli)
			scheduler := server.NewTokenScheduler(tokenUC, cfg.WeChat.RefreshSpec)
			if err := scheduler.Start(); err != nil {
				return err
			}
			defer scheduler.Stop()

			srv := server.NewWebhookServer(cfg.Server.Addr, pipeline)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Println("\nShutting down...")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					fmt.Printf("[Server] Shutdown: %v\n", err)
				}
			}()

			fmt.Println("Starting WeChat-GPT bridge...")
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func refreshTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-token",
		Short: "Fetch a fresh platform access token once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf.LoadFromEnv()
			if err := cfg.Validate(); err != nil {
				return err
			}
			cli := wechat.NewClient(cfg.WeChat.AppID, cfg.WeChat.AppSecret)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			token, err := cli.FetchToken(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("access_token: %s\n", token)
			return nil
		},
	}
}
