package main

import (
	"context"
	"log"
	"os"

	"github.com/videocave/backend/internal/app"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("videocave: ")

	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
