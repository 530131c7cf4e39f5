package main

import (
	stdlog "log"
	system "os"
)

func main() {
	defer stdlog.Println("cleanup")
	func() {
		system.Exit(2) // want `avoid using os.Exit in main.main`
	}()
	stdlog.Fatalln("unreachable") // want `avoid using log.Fatalln in main.main`
}
