package main

import (
	"os"
	"tradejournal/cmd"
	"tradejournal/internal/logger"
	"tradejournal/internal/util"
)

func main() {
	log := logger.New()
	log.Infof("starting api at commit %s", os.Getenv("commit_hash"))

	apiHandler, err := cmd.InitializeDependencies()
	if err != nil {
		log.Fatal(err)
	}
	defer cmd.CloseDependencies(apiHandler)

	if err := apiHandler.PriceRepairApp.Start(os.Getenv("PRICE_REPAIR_SCHEDULE")); err != nil {
		log.Fatal(err)
	}

	secrets, err := util.LoadSecrets()
	if err != nil {
		log.Fatal(err)
	}
	if err := apiHandler.StartApi(secrets.Port); err != nil {
		log.Fatal(err)
	}
}
