package main

import (
	"aegis/internal/infra/persistence/model"

	"gorm.io/gen"
)

func main() {
	models := []any{
		model.RefreshTokenModel{},
		model.CredentialModel{},
		model.FlowBlockModel{},
		model.BlockConfigModel{},
		model.LocalUserModel{},
	}

	gen := gen.NewGenerator(gen.Config{
		OutPath: "./internal/infra/persistence/postgres/query",
	})

	gen.ApplyBasic(models...)

	gen.Execute()
}
