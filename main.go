/*
Spectra is a multi-window Vulkan renderer. This binary runs the testbed
scene: spinning textured cubes over a ground quad, rendered into two windows
that share one device.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spectralab/spectra/engine"
	"github.com/spectralab/spectra/testbed"
)

func main() {
	game := testbed.NewTestGame()

	app, err := engine.New(game)
	if err != nil {
		panic(err)
	}

	if err := app.Initialize(); err != nil {
		panic(err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		_ = app.Shutdown()
		os.Exit(0)
	}()

	if err := app.Run(); err != nil {
		panic(err)
	}
	if err := app.Shutdown(); err != nil {
		panic(err)
	}
}
