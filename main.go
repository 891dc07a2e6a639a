package main

import (
	"github.com/joho/godotenv"

	"github.com/devloops/devloops/config"
	"github.com/devloops/devloops/models"
	"github.com/devloops/devloops/routes"
	"github.com/devloops/devloops/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Question{},
		&models.Answer{},
		&models.Tag{},
		&models.Vote{},
		&models.Loop{},
		&models.LoopMember{},
		&models.Interaction{},
		&models.PageView{},
	)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
