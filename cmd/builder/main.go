package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"plan3d/internal/builder/catalog"
	"plan3d/internal/builder/handlers"
	"plan3d/internal/builder/pipeline"
	"plan3d/internal/builder/store"
	"plan3d/internal/common/config"
	"plan3d/internal/common/middleware"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Builder Service
// ============================================================

func main() {
	cfg := config.Load()

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := store.New(db)
	if err := repo.Init(context.Background(), cfg.MigrationsPath); err != nil {
		log.Fatalf("init db: %v", err)
	}

	cat := catalog.New(repo)
	if cfg.SeedCatalog {
		if err := cat.SeedDefaults(context.Background()); err != nil {
			log.Fatalf("seed catalog: %v", err)
		}
	}

	pipe := pipeline.New(repo, cat)
	handler := handlers.NewHandler(repo, cat, pipe)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Builder Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Ingest & Run Routes
	// ============================================================

	app.Post("/docs/:doc/primitives", handler.UploadPrimitives)
	app.Post("/docs/:doc/calibration", handler.UploadCalibration)
	app.Post("/docs/:doc/runs", handler.StartRun)

	app.Get("/runs/:run/walls", handler.RunWalls)
	app.Get("/runs/:run/relationships", handler.RunRelationships)
	app.Get("/runs/:run/objects", handler.RunObjects)

	// ============================================================
	// Catalog Routes (читает хост визуализации)
	// ============================================================

	app.Get("/catalog", handler.ListCatalog)
	app.Get("/catalog/:type", handler.GetCatalogEntry)
	app.Post("/catalog", handler.RegisterEntry)
	app.Post("/catalog/:type/clone", handler.CloneVariant)
	app.Get("/geometry/:hash", handler.GetGeometry)

	// ============================================================
	// Admin Routes
	// ============================================================

	app.Post("/admin/repair/normals", handler.RepairNormals)
	app.Post("/admin/repair/counts", handler.RepairCounts)
	app.Post("/admin/audit/centering", handler.AuditCentering)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Builder Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
