package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/musebot/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard()
		},
	}
}

func runOnboard() error {
	cfg := config.Default()

	quizChatID := ""
	quizSchedule := cfg.Quiz.Schedule
	capacity := strconv.Itoa(cfg.Dispatch.LimiterCapacity)
	windowSec := strconv.Itoa(cfg.Dispatch.LimiterWindowSec)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("MuseBot Setup").
				Description("Secrets stay out of the config file. Before starting the bot, export:\n"+
					"  MUSEBOT_TELEGRAM_TOKEN  (required)\n"+
					"  MUSEBOT_DEEPAI_KEY      (required)\n"+
					"  MUSEBOT_DISCORD_TOKEN   (optional)\n"+
					"  MUSEBOT_POSTGRES_DSN    (optional, SQLite is used otherwise)"),
			huh.NewConfirm().
				Title("Enable Telegram channel?").
				Value(&cfg.Telegram.Enabled),
			huh.NewConfirm().
				Title("Enable Discord channel?").
				Description("Text features only").
				Value(&cfg.Discord.Enabled),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Requests per user per window").
				Description("How many feature calls one user gets before queueing").
				Value(&capacity),
			huh.NewInput().
				Title("Window length (seconds)").
				Value(&windowSec),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the scheduled quiz?").
				Value(&cfg.Quiz.Enabled),
			huh.NewInput().
				Title("Quiz group chat ID").
				Description("Telegram group chat to broadcast quiz questions to").
				Value(&quizChatID),
			huh.NewInput().
				Title("Quiz schedule (cron)").
				Description(`e.g. "0 18 * * *" for daily at 18:00`).
				Value(&quizSchedule),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	if v, err := strconv.Atoi(capacity); err == nil && v > 0 {
		cfg.Dispatch.LimiterCapacity = v
	}
	if v, err := strconv.Atoi(windowSec); err == nil && v > 0 {
		cfg.Dispatch.LimiterWindowSec = v
	}
	if v, err := strconv.ParseInt(quizChatID, 10, 64); err == nil {
		cfg.Quiz.ChatID = v
	}
	cfg.Quiz.Schedule = quizSchedule

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	cfgPath := resolveConfigPath()
	if err := os.WriteFile(cfgPath, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", cfgPath)
	fmt.Println("Export your secrets and run: musebot")
	return nil
}
