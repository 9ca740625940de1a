package main

import (
	"github.com/baoagent/voice-gateway/internal/bootstrap"
)

func main() {
	bootstrap.Run()
}
