package main

import (
	"github.com/WinterTamarind/auth_service/config"
	"github.com/WinterTamarind/auth_service/internal/api"
)

func main() {
	cfg := config.LoadConfig()
	api.StartServer(cfg)
}
