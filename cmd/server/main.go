package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"mortality/internal/api"
	"mortality/internal/config"
	"mortality/internal/engine"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.JSONSerializer{}
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Register routes before the data is in: the API is live immediately
	// and answers 503 until both datasets finish loading.
	h := api.NewHandler(nil, cfg.TopK)
	h.RegisterRoutes(e)

	go func() {
		store, err := engine.LoadStore(context.Background(), cfg.RiskPath, cfg.CausesPath)
		if err != nil {
			log.Fatalf("load datasets: %v", err)
		}
		h.SetStore(store)
		log.Printf("datasets ready: %d shared countries, years %d-%d",
			len(store.Countries), store.MinYear, store.MaxYear)
	}()

	e.Logger.Fatal(e.Start(cfg.Addr))
}
