package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/memcload/cmd/memcload/cmd"
	"github.com/G-Research/memcload/internal/common"
)

// Config is handled by cmd/root.go
func main() {
	common.ConfigureLogging()
	root := cmd.RootCmd()
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
