// Package config loads environment-backed configuration structs. A .env
// file, when present, is loaded once per process before parsing; struct
// fields use caarlos0/env tags:
//
//	type WebhookConfig struct {
//	    Secret string `env:"BILLING_WEBHOOK_SECRET,required"`
//	}
//
//	var cfg WebhookConfig
//	config.MustLoad(&cfg)
package config
