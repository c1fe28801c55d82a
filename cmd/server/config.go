package main

import (
	"time"

	"chat-relay/bus"
)

type Config struct {
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	Kafka bus.Config
}
