package main

import "promptbatch/internal/app"

func main() {
	app.Run()
}
