package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"annualcal/internal/catalog"
	"annualcal/internal/config"
	"annualcal/internal/ics"
	handler "annualcal/internal/lambda"
	appLog "annualcal/internal/log"
)

func main() {
	conf, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		appLog.Error("failed to load config", err)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.EffectiveLogLevel()))

	// Parse the catalog before serving any invocation.
	cat, err := catalog.Load(conf.Catalog)
	if err != nil {
		appLog.Error("failed to load catalog", err, "catalog", conf.Catalog)
		os.Exit(1)
	}
	appLog.Info("annualcal lambda starting", "events", cat.Len())

	h := handler.NewHandler(ics.NewEmitter(cat, conf.EmitterOptions()...))
	lambda.Start(h.Invoke)
}
