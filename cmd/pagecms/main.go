// Command pagecms serves the page settings admin and the public read API.
package main

import (
	"context"
	"log"

	"github.com/dalemusser/pagecms/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
