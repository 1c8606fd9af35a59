package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hitoshi/photoshare/internal/app"
	"github.com/hitoshi/photoshare/internal/model"
)

func main() {
	if err := app.Run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, apiErr.Message)
			if apiErr.Action != "" {
				fmt.Fprintln(os.Stderr, apiErr.Action)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
