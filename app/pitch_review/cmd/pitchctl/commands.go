package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/biz"
	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/conf"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/engine"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/notify"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/queue"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/storage"
)

// RegisterCommands adds all available commands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(NewSubmitCommand())
	rootCmd.AddCommand(NewReviewCommand("gate", "Run the fast gate on a pitch", engine.ModeFastGate))
	rootCmd.AddCommand(NewReviewCommand("analyze", "Run the deep analysis on a pitch", engine.ModeDeepAnalysis))
	rootCmd.AddCommand(NewPendingCommand())
	rootCmd.AddCommand(NewTokenCommand())
}

// PitchFile submit 命令读取的 YAML 文件
type PitchFile struct {
	StartupName      string    `yaml:"startup_name"`
	OneLiner         string    `yaml:"one_liner"`
	Category         string    `yaml:"category"`
	ProblemStatement string    `yaml:"problem_statement"`
	ProductURL       string    `yaml:"product_url"`
	IsProductLive    bool      `yaml:"is_product_live"`
	ProductStage     string    `yaml:"product_stage"`
	FounderID        string    `yaml:"founder_id"`
	Demo             *DemoFile `yaml:"demo"`
}

type DemoFile struct {
	Title           string `yaml:"title"`
	Description     string `yaml:"description"`
	VideoURL        string `yaml:"video_url"`
	ThumbnailURL    string `yaml:"thumbnail_url"`
	DurationSeconds int    `yaml:"duration_seconds"`
}

// ReadPitchFile 解析项目文件
func ReadPitchFile(path string) (*model.Pitch, *model.Demo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var f PitchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.StartupName == "" {
		return nil, nil, fmt.Errorf("startup_name is required")
	}

	pitch := &model.Pitch{
		StartupName:      f.StartupName,
		OneLiner:         f.OneLiner,
		Category:         f.Category,
		ProblemStatement: f.ProblemStatement,
		ProductURL:       f.ProductURL,
		IsProductLive:    f.IsProductLive,
		ProductStage:     f.ProductStage,
		FounderID:        f.FounderID,
	}
	var demo *model.Demo
	if f.Demo != nil {
		demo = &model.Demo{
			Title:           f.Demo.Title,
			Description:     f.Demo.Description,
			VideoURL:        f.Demo.VideoURL,
			ThumbnailURL:    f.Demo.ThumbnailURL,
			DurationSeconds: f.Demo.DurationSeconds,
		}
	}
	return pitch, demo, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("conf")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitLogger(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewSubmitCommand creates the submit command
func NewSubmitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Insert a pending pitch from a YAML file",
		RunE:  runSubmit,
	}
	cmd.Flags().StringP("file", "f", "", "pitch YAML file (required)")
	cmd.Flags().Bool("enqueue", false, "publish a submission message for the worker")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	pitch, demo, err := ReadPitchFile(file)
	if err != nil {
		return err
	}

	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	id, err := store.CreatePitch(ctx, pitch)
	if err != nil {
		return err
	}
	if demo != nil {
		demo.PitchID = id
		if _, err := store.CreateDemo(ctx, demo); err != nil {
			return err
		}
	}
	fmt.Printf("Created pitch %s\n", id)

	if enqueue, _ := cmd.Flags().GetBool("enqueue"); enqueue {
		mq, err := queue.NewRabbitMQ(cfg.Queue.URL)
		if err != nil {
			return err
		}
		defer mq.Close()
		if err := mq.DeclareQueue(cfg.Queue.Submitted); err != nil {
			return err
		}
		if err := mq.PublishJSON(ctx, "", cfg.Queue.Submitted, id, queue.SubmittedMessage{PitchID: id}); err != nil {
			return err
		}
		fmt.Printf("Enqueued pitch %s to %s\n", id, cfg.Queue.Submitted)
	}
	return nil
}

// NewReviewCommand creates the gate / analyze commands
func NewReviewCommand(use, short string, mode engine.Mode) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <pitch-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, mode, args[0])
		},
	}
}

func runReview(cmd *cobra.Command, mode engine.Mode, pitchID string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, closeNotifier, err := notify.NewNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	eng, err := engine.NewEngine(cfg, store, notifier)
	if err != nil {
		return err
	}
	defer eng.Wait()

	res, err := eng.Run(cmd.Context(), mode, pitchID)
	if err != nil {
		return err
	}
	return printJSON(res)
}

// NewPendingCommand creates the pending command
func NewPendingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List pitches still waiting for review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := storage.NewStorage(cfg.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			ids, err := store.ListPending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 50, "max pitches to list")
	return cmd
}

// NewTokenCommand creates the token command
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the deep analysis endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			user, _ := cmd.Flags().GetString("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			auth, err := biz.NewAuthUseCase(&conf.Auth{JwtKey: cfg.Auth.JWTKey})
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(user, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "operator", "username claim")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	return cmd
}
