package main

import (
	"PlannerEdu/internal/bootstrap"
	pkg "PlannerEdu/pkg/routes"

	"go.uber.org/fx"
)

func main() {
	bootstrap.Loadenv()
	app := fx.New(
		pkg.Options(),
	)

	app.Run()
}
