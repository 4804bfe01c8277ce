package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/weberc2/blockfs/pkg/filesystem"
	"github.com/weberc2/blockfs/pkg/server"
	pz "github.com/weberc2/httpeasy"
)

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}
	if err := config.Validate(); err != nil {
		log.Fatal(err)
	}

	fs, err := filesystem.Open(config.Config)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		<-signals
		if err := fs.Unmount(); err != nil {
			log.Fatalf("ERROR unmounting: %v", err)
		}
		log.Printf("INFO unmounted `%s`", config.DevicePath)
		os.Exit(0)
	}()

	service := server.Service{FileSystem: fs}
	log.Printf("INFO listening on %s", config.Addr)
	if err := http.ListenAndServe(
		config.Addr,
		pz.Register(pz.JSONLog(os.Stderr), service.Routes()...),
	); err != nil {
		log.Fatal(err)
	}
}
