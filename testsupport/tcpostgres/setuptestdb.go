//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/karting-sync/pkg/db/migrate"
	database "github.com/mpapenbr/karting-sync/pkg/db/postgres"
)

// create a pg connection pool for the karting testdatabase
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("karting-sync-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())
	return setupPool(ctx, dbURL)
}

// SetupExternalTestDb uses the database given by TESTDB_URL.
func SetupExternalTestDb() *pgxpool.Pool {
	return setupPool(context.Background(), os.Getenv("TESTDB_URL"))
}

func setupPool(ctx context.Context, dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithURL(ctx, dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearRecordHistoryTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from record_history")
}

func ClearWarZoneTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from war_zone")
}

func ClearLapRecordTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from lap_record")
}

func ClearDriverTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from driver")
}

func ClearTrackTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from track")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearRecordHistoryTable(pool)
	ClearWarZoneTable(pool)
	ClearLapRecordTable(pool)
	ClearDriverTable(pool)
	ClearTrackTable(pool)
}
