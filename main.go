/*
Runs one of the registered load test samples inside a GLFW window,
configured through loadtests.toml.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
	"github.com/spaghettifunk/vulkan-loadtests/loadtests"
)

func main() {
	configPath := flag.String("config", "loadtests.toml", "path to the configuration file")
	sampleName := flag.String("sample", "", "sample to run, overrides the configured one")
	flag.Parse()

	config, err := loadtests.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("unable to load configuration: %s", err)
	}
	if *sampleName != "" {
		config.Sample.Name = *sampleName
	}
	core.LogSetLevel(config.LogLevel())

	app, err := loadtests.NewApp(config)
	if err != nil {
		core.LogFatal("unable to create application: %s", err)
	}

	if err := app.Initialize(); err != nil {
		core.LogFatal("initialization failed: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		app.Stop()
	}()

	if err := app.Run(); err != nil {
		core.LogError("run failed: %s", err)
	}

	if err := app.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err)
	}
}
