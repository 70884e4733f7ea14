// Command leadbot runs the lead intake Telegram bot.
package main

import (
	"context"
	"fmt"
	"log"

	corebootstrap "github.com/m3rciful/leadbot/core/bootstrap"
	corecmd "github.com/m3rciful/leadbot/core/cmd"
	"github.com/m3rciful/leadbot/internal/bot"
	"github.com/m3rciful/leadbot/internal/config"
	"github.com/m3rciful/leadbot/migrations"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}

func bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}
	res, err := corebootstrap.Run(ctx, corebootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}
	app, err := bot.New(ctx, cfg, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return app, nil
}
