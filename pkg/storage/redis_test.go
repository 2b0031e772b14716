//go:build integration

package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedisContainer starts a Redis container for testing
func setupRedisContainer(t *testing.T) (*redis.RedisContainer, string) {
	t.Helper()

	ctx := context.Background()

	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
		redis.WithSnapshotting(10, 1),
		redis.WithLogLevel(redis.LogLevelVerbose),
	)
	require.NoError(t, err, "failed to start redis container")

	endpoint, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get redis endpoint")

	addr := endpoint
	if len(endpoint) > 8 && endpoint[:8] == "redis://" {
		addr = endpoint[8:]
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return redisContainer, addr
}

func sampleRedisRun(locationID string) LocationRun {
	return LocationRun{
		LocationID:  locationID,
		GeneratedAt: time.Now().Truncate(time.Second),
		Audit: RunAudit{
			LocationID:     locationID,
			AlgorithmLabel: "LightGBM_ChampionChallenger",
			Sufficiency:    "high",
			WMAPE:          0.18,
			MASE:           0.9,
			DataPoints:     2016,
			GeneratedAt:    time.Now().Truncate(time.Second),
		},
	}
}

func TestRedisStore_NewRedisStore_Success(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
}

func TestRedisStore_NewRedisStore_InvalidAddr(t *testing.T) {
	_, err := NewRedisStore("invalid:99999", "", 0, 1*time.Minute)
	require.Error(t, err)
}

func TestRedisStore_NewRedisStore_EmptyAddr(t *testing.T) {
	_, err := NewRedisStore("", "", 0, 1*time.Minute)
	require.EqualError(t, err, "redis address cannot be empty")
}

func TestRedisStore_NewRedisStore_InvalidDB(t *testing.T) {
	_, err := NewRedisStore("localhost:6379", "", -1, 1*time.Minute)
	require.EqualError(t, err, "redis database number must be >= 0")
}

func TestRedisStore_Put_Success(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	run := sampleRedisRun("test-location")
	require.NoError(t, store.Put(context.Background(), run))

	exists, err := store.client.Exists(context.Background(), "forecaster:run:test-location").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, exists, "expected key to exist in Redis")
}

func TestRedisStore_Put_EmptyLocationID(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	err = store.Put(context.Background(), LocationRun{LocationID: ""})
	require.EqualError(t, err, "location id required")
}

func TestRedisStore_Put_InvalidLocationID(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	err = store.Put(context.Background(), LocationRun{LocationID: "invalid/location"})
	require.Error(t, err)
}

func TestRedisStore_GetLatest_Success(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	original := sampleRedisRun("test-location")
	require.NoError(t, store.Put(context.Background(), original))

	run, found, err := store.GetLatest(context.Background(), "test-location")
	require.NoError(t, err)
	require.True(t, found, "expected run to be found")

	require.Equal(t, original.LocationID, run.LocationID)
	require.Equal(t, original.Audit.AlgorithmLabel, run.Audit.AlgorithmLabel)
	require.Equal(t, original.Audit.DataPoints, run.Audit.DataPoints)
}

func TestRedisStore_GetLatest_NotFound(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	run, found, err := store.GetLatest(context.Background(), "nonexistent")
	require.NoError(t, err)
	require.False(t, found, "expected run not to be found")
	require.Equal(t, "", run.LocationID, "expected zero-value run")
}

func TestRedisStore_GetLatest_EmptyLocationID(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	_, found, err := store.GetLatest(context.Background(), "")
	require.EqualError(t, err, "location id required")
	require.False(t, found)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 2*time.Second)
	require.NoError(t, err)
	defer store.Close()

	run := sampleRedisRun("test-location")
	require.NoError(t, store.Put(context.Background(), run))

	_, found, err := store.GetLatest(context.Background(), "test-location")
	require.NoError(t, err)
	require.True(t, found, "expected run to be found immediately after Put")

	time.Sleep(3 * time.Second)

	_, found, err = store.GetLatest(context.Background(), "test-location")
	require.NoError(t, err)
	require.False(t, found, "expected run to be expired")
}

func TestRedisStore_Concurrency_MultiplePuts(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	var wg sync.WaitGroup
	numGoroutines := 10
	numPutsPerGoroutine := 10

	for i := range numGoroutines {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()

			for j := range numPutsPerGoroutine {
				locationID := fmt.Sprintf("location-%d-%d", goroutineID, j)
				run := sampleRedisRun(locationID)
				run.Audit.DataPoints = j

				if err := store.Put(context.Background(), run); err != nil {
					t.Errorf("Put failed in goroutine %d: %v", goroutineID, err)
				}
			}
		}(i)
	}

	wg.Wait()

	for i := range numGoroutines {
		for j := range numPutsPerGoroutine {
			locationID := fmt.Sprintf("location-%d-%d", i, j)
			_, found, err := store.GetLatest(context.Background(), locationID)
			require.NoError(t, err)
			require.True(t, found, "run not found for %s", locationID)
		}
	}
}

func TestRedisStore_Concurrency_ReadWrite(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	for i := range 5 {
		locationID := fmt.Sprintf("location-%d", i)
		run := sampleRedisRun(locationID)
		run.Audit.DataPoints = i
		require.NoError(t, store.Put(context.Background(), run), "initial Put failed")
	}

	var wg sync.WaitGroup
	done := make(chan struct{})

	for i := range 5 {
		wg.Add(1)
		go func(writerID int) {
			defer wg.Done()

			for {
				select {
				case <-done:
					return
				default:
					locationID := fmt.Sprintf("location-%d", writerID)
					run := sampleRedisRun(locationID)
					run.Audit.DataPoints = writerID
					if err := store.Put(context.Background(), run); err != nil {
						t.Errorf("Put failed in writer %d: %v", writerID, err)
					}
					time.Sleep(10 * time.Millisecond)
				}
			}
		}(i)
	}

	for i := range 5 {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			for {
				select {
				case <-done:
					return
				default:
					locationID := fmt.Sprintf("location-%d", readerID%5)
					if _, _, err := store.GetLatest(context.Background(), locationID); err != nil {
						t.Errorf("GetLatest failed in reader %d: %v", readerID, err)
					}
					time.Sleep(10 * time.Millisecond)
				}
			}
		}(i)
	}

	time.Sleep(2 * time.Second)
	close(done)
	wg.Wait()
}

func TestRedisStore_Serialization_RoundTrip(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)
	defer store.Close()

	original := sampleRedisRun("complex-location")
	original.Audit.BlendRatio = 0.3
	original.Audit.Bias = -0.02
	original.Audit.DirectionalAccuracy = 0.75
	original.Audit.Calibration = 0.92
	original.Audit.ConformalCoverage = "p95"
	original.Audit.LGBMUsed = true
	original.Audit.HistoryStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	original.Audit.HistoryEnd = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	original.Audit.HorizonDays = 14

	require.NoError(t, store.Put(context.Background(), original))

	retrieved, found, err := store.GetLatest(context.Background(), "complex-location")
	require.NoError(t, err)
	require.True(t, found, "expected run to be found")

	require.Equal(t, original.LocationID, retrieved.LocationID)
	require.Equal(t, original.Audit.BlendRatio, retrieved.Audit.BlendRatio)
	require.Equal(t, original.Audit.Bias, retrieved.Audit.Bias)
	require.Equal(t, original.Audit.DirectionalAccuracy, retrieved.Audit.DirectionalAccuracy)
	require.Equal(t, original.Audit.Calibration, retrieved.Audit.Calibration)
	require.Equal(t, original.Audit.ConformalCoverage, retrieved.Audit.ConformalCoverage)
	require.Equal(t, original.Audit.LGBMUsed, retrieved.Audit.LGBMUsed)
	require.True(t, original.Audit.HistoryStart.Equal(retrieved.Audit.HistoryStart))
	require.Equal(t, original.Audit.HorizonDays, retrieved.Audit.HorizonDays)
}

func TestRedisStore_Close_Idempotent(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Close(), "first Close failed")
	require.NoError(t, store.Close(), "second Close failed")
	require.NoError(t, store.Close(), "third Close failed")
}
