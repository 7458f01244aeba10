package main

import (
	"go.uber.org/fx"

	"github.com/smartkubik/kitchenline/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
