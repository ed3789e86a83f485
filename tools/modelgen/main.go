package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gen"
	"gorm.io/gorm"
)

func main() {
	var dsn, out, tables string
	flag.StringVar(&dsn, "dsn", os.Getenv("PILT_DB_DSN"), "postgres dsn")
	flag.StringVar(&out, "out", "internal/adapter/repo/gorm/model", "output dir for generated models")
	flag.StringVar(&tables, "tables", "trial_records", "comma separated tables to generate, empty for all")
	flag.Parse()

	if dsn == "" {
		log.Fatal("missing --dsn or PILT_DB_DSN")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:      out,
		ModelPkgPath: "model",
		Mode:         gen.WithoutContext | gen.WithDefaultQuery,
	})
	g.UseDB(db)
	if strings.TrimSpace(tables) == "" {
		g.ApplyBasic(g.GenerateAllTable()...)
	} else {
		for _, name := range strings.Split(tables, ",") {
			g.ApplyBasic(g.GenerateModel(strings.TrimSpace(name)))
		}
	}
	g.Execute()

	fmt.Printf("generated gorm models at %s\n", out)
}
