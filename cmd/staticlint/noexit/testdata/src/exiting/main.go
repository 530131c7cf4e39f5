package main

import (
	"log"
	"os"
)

func run() error { return nil }

func main() {
	if err := run(); err != nil {
		log.Fatal(err) // want `avoid using log.Fatal in main.main`
	}
	if len(os.Args) > 3 {
		log.Fatalf("too many arguments: %d", len(os.Args)) // want `avoid using log.Fatalf in main.main`
	}
	log.Println("done")
	os.Exit(0) // want `avoid using os.Exit in main.main`
}

func helper() {
	os.Exit(1)
}
