package main

import (
	"flag"
	"log"

	"dripmate/config"
	"dripmate/test"

	"github.com/labstack/echo/v4/middleware"
)

// A local stand-in for the DripMate backend, for trying the CLI and web host
// without the real service.
func main() {
	configFile := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	e := test.NewStubAPI(cfg.StubSecret).Echo()
	e.Use(middleware.Logger())
	log.Printf("stub backend on %s", cfg.StubAddr)
	e.Logger.Fatal(e.Start(cfg.StubAddr))
}
