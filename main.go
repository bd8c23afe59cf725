package main

import (
	"os"

	"github.com/inkpress/inkpress/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
