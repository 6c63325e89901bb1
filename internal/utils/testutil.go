package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTestImage is the server image started when no test URI is configured.
const MongoTestImage = "mongo:7"

// loadTestEnv loads .env from the project root, falling back to the working directory.
func loadTestEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		_ = godotenv.Load()
	}
}

// SetupTestDB returns a database for integration tests and drops the given collections.
// MONGO_URI_TEST selects an existing server; otherwise a throwaway container is started.
// The test is skipped under -short or when no container runtime is available.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	loadTestEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	uri := os.Getenv("MONGO_URI_TEST")
	if uri == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)

		container, err := mongodb.Run(ctx, MongoTestImage)
		require.NoError(t, err, "Failed to start MongoDB container")
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				t.Logf("failed to terminate MongoDB container: %v", err)
			}
		})

		uri, err = container.ConnectionString(ctx)
		require.NoError(t, err, "Failed to read MongoDB connection string")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database(dbName)
	for _, c := range collections {
		_ = db.Collection(c).Drop(ctx)
	}
	return db
}
