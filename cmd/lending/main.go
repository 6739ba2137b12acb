package main

import (
	stdLog "log"
	"time"

	"github.com/joho/godotenv"

	"github.com/Astemirdum/book-lending/lending/app"
	"github.com/Astemirdum/book-lending/lending/config"
)

// @title                       Book lending API
// @version                     1.0
// @description                 Peer-to-peer lending of physical book copies.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Println("no .env file, reading environment only")
	}
	cfg := config.NewConfig(
		config.WithWriteTimeout(time.Minute),
	)

	if err := app.Run(cfg); err != nil {
		stdLog.Fatal("app.Run ", err)
	}
}
