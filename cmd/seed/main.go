package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"ludoforge/internal/auth"
	"ludoforge/internal/config"
	rbSvc "ludoforge/internal/domain/services/rulebook"
	"ludoforge/internal/repository/postgres"
	postgresRulebook "ludoforge/internal/repository/postgres/rulebook"
	serviceRulebook "ludoforge/internal/service/rulebook"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const (
	devUserEmail    = "dev@ludoforge.local"
	devUserPassword = "dev-password-123"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed a rulebook")
	clearData := flag.Bool("clear-data", false, "Clear the test project's rulebook data (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		log.Println("🧹 Clearing rulebook data for the test project...")
		if err := clearProjectData(ctx, pool, tables, cfg.TestProjectID); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Provision a dev auth user when the service role key is available,
	// so seeded rows belong to an account that can actually log in
	userID := cfg.TestUserID
	if cfg.SupabaseKey != "" && cfg.SupabaseURL != "" {
		admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if err := admin.DeleteUserByEmail(devUserEmail); err != nil {
			log.Printf("⚠️  Could not reset dev user: %v", err)
		}
		id, err := admin.CreateUser(devUserEmail, devUserPassword)
		if err != nil {
			log.Printf("⚠️  Could not create dev user, falling back to TEST_USER_ID: %v", err)
		} else {
			userID = id
			log.Printf("✅ Dev user ready: %s (ID: %s)", devUserEmail, id)
		}
	}

	// Ensure test project exists
	if err := ensureTestProject(ctx, pool, tables, cfg.TestProjectID, userID); err != nil {
		log.Fatalf("Failed to ensure test project: %v", err)
	}

	// Create repositories and services
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	projectRepo := postgresRulebook.NewProjectRepository(repoConfig)
	rulebookRepo := postgresRulebook.NewRulebookRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)
	rulebookService := serviceRulebook.NewRulebookService(rulebookRepo, projectRepo, txManager, logger)

	// Seed the rulebook through the service so the title, word count,
	// and version snapshot come out exactly as a real save would produce
	log.Println("📝 Seeding rulebook content...")
	summary := "Initial seed"
	rb, err := rulebookService.Write(ctx, &rbSvc.WriteRequest{
		ProjectID:     cfg.TestProjectID,
		EditorID:      userID,
		Content:       seedRulebookContent(),
		ChangeSummary: &summary,
	})
	if err != nil {
		log.Fatalf("Failed to seed rulebook: %v", err)
	}

	log.Printf("✅ Seeded rulebook %q (ID: %s, version: %d, words: %d, pages: %d)",
		rb.Title, rb.ID, rb.Version, rb.WordCount, rb.PageCount)
	log.Println("🎉 Seeding complete!")
}

// ensureTestProject creates a test project if it doesn't exist
func ensureTestProject(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, projectID, userID string) error {
	query := `
		INSERT INTO ` + tables.Projects + ` (id, user_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := pool.Exec(ctx, query, projectID, userID, "Harvest Valley", time.Now())
	return err
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")
	if err != nil {
		return err
	}

	// Create projects table
	createProjects := `
		CREATE TABLE IF NOT EXISTS ` + tables.Projects + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createProjects); err != nil {
		return err
	}

	// Create rulebooks table (one rulebook per project)
	createRulebooks := `
		CREATE TABLE IF NOT EXISTS ` + tables.Rulebooks + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			project_id UUID NOT NULL REFERENCES ` + tables.Projects + `(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			content JSONB NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			is_published BOOLEAN NOT NULL DEFAULT FALSE,
			word_count INTEGER NOT NULL DEFAULT 0,
			page_count INTEGER NOT NULL DEFAULT 1,
			last_edited_by UUID NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(project_id)
		)
	`
	if _, err := pool.Exec(ctx, createRulebooks); err != nil {
		return err
	}

	// Create rulebook versions table (append-only snapshots)
	createVersions := `
		CREATE TABLE IF NOT EXISTS ` + tables.RulebookVersions + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			rulebook_id UUID NOT NULL REFERENCES ` + tables.Rulebooks + `(id) ON DELETE CASCADE,
			version_number INTEGER NOT NULL,
			content JSONB NOT NULL,
			change_summary TEXT,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(rulebook_id, version_number)
		)
	`
	if _, err := pool.Exec(ctx, createVersions); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `projects_user_id ON ` + tables.Projects + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `rulebook_versions_rulebook ON ` + tables.RulebookVersions + `(rulebook_id, version_number DESC)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.RulebookVersions,
		tables.Rulebooks,
		tables.Projects,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearProjectData removes the test project's rulebook and its versions
func clearProjectData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, projectID string) error {
	// Version rows go with the rulebook via ON DELETE CASCADE
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Rulebooks+" WHERE project_id = $1", projectID)
	return err
}

// seedRulebookContent returns a small but representative rulebook
// document: headings, marks, lists, and a components table.
func seedRulebookContent() json.RawMessage {
	return json.RawMessage(`{
		"type": "doc",
		"content": [
			{
				"type": "heading",
				"attrs": {"level": 1},
				"content": [{"type": "text", "text": "Harvest Valley"}]
			},
			{
				"type": "paragraph",
				"content": [
					{"type": "text", "text": "A farming game for 2-4 players. Plant crops, trade at the market, and fill your barn before the "},
					{"type": "text", "marks": [{"type": "bold"}], "text": "winter"},
					{"type": "text", "text": " arrives."}
				]
			},
			{
				"type": "heading",
				"attrs": {"level": 2},
				"content": [{"type": "text", "text": "Components"}]
			},
			{
				"type": "table",
				"content": [
					{
						"type": "tableRow",
						"content": [
							{"type": "tableHeader", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Component"}]}]},
							{"type": "tableHeader", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Count"}]}]}
						]
					},
					{
						"type": "tableRow",
						"content": [
							{"type": "tableCell", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Crop cards"}]}]},
							{"type": "tableCell", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "60"}]}]}
						]
					},
					{
						"type": "tableRow",
						"content": [
							{"type": "tableCell", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Coin tokens"}]}]},
							{"type": "tableCell", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "40"}]}]}
						]
					}
				]
			},
			{
				"type": "heading",
				"attrs": {"level": 2},
				"content": [{"type": "text", "text": "Setup"}]
			},
			{
				"type": "orderedList",
				"content": [
					{"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Shuffle the crop deck and deal 5 cards to each player."}]}]},
					{"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Place the market board in the center of the table."}]}]},
					{"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "The player who most recently watered a plant goes first."}]}]}
				]
			},
			{
				"type": "heading",
				"attrs": {"level": 2},
				"content": [{"type": "text", "text": "Winning"}]
			},
			{
				"type": "paragraph",
				"content": [
					{"type": "text", "text": "The game ends when the winter card is drawn. The player with the most "},
					{"type": "text", "marks": [{"type": "italic"}], "text": "victory points"},
					{"type": "text", "text": " wins."}
				]
			}
		]
	}`)
}
