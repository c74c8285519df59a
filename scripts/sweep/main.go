// Command sweep runs the end-of-day auto-absent job once and exits. Point a
// crontab entry at it, e.g. `55 23 * * * /usr/local/bin/sweep`.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/gommon/log"
	"github.com/spf13/pflag"

	"bus-checkin/bot"
	"bus-checkin/config"
	"bus-checkin/internal/repository"
	"bus-checkin/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var pbURL, pbToken string
	var notify bool

	flagSet := pflag.NewFlagSet("sweep", pflag.ContinueOnError)
	flagSet.StringVar(&pbURL, "url", "", "PocketBase URL (default: POCKETBASE_URL)")
	flagSet.StringVar(&pbToken, "token", "", "PocketBase auth token (default: POCKETBASE_TOKEN)")
	flagSet.BoolVar(&notify, "notify", true, "post the result to the Telegram admin chat")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log.SetLevel(cfg.GommonLevel())
	if pbURL != "" {
		cfg.PocketBaseURL = pbURL
	}
	if pbToken != "" {
		cfg.PocketBaseToken = pbToken
	}
	if cfg.StoreDriver != config.DriverPocketBase {
		return fmt.Errorf("sweep needs STORE_DRIVER=%s, got %s", config.DriverPocketBase, cfg.StoreDriver)
	}

	var notifier services.BotNotifier
	if notify {
		if err := bot.Init(cfg.TelegramBotToken, cfg.AuthorizedChatID); err != nil {
			log.Warnf("Telegram notification disabled: %v", err)
		} else {
			notifier = bot.NewNotifier()
		}
	}

	svc := services.NewAttendanceService(
		repository.NewPocketBaseRESTUserRepository(cfg.PocketBaseURL, cfg.PocketBaseToken, cfg.RequestTimeout),
		repository.NewPocketBaseRESTAttendanceRepository(cfg.PocketBaseURL, cfg.PocketBaseToken, cfg.RequestTimeout),
		notifier,
		services.WithLocation(cfg.Location),
	)

	marked, err := svc.AutoAbsent(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("marked %d riders absent\n", marked)
	return nil
}
