package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		redisClient.Close()
		mr.Close()
	})

	return redisClient, mr
}

func TestRedisCache_PutGetDelete(t *testing.T) {
	redisClient, _ := setupTestRedis(t)
	c := NewRedisCache(redisClient)
	ctx := context.Background()
	url := "https://img.example.com/1700000000000.png"

	miss, err := c.Get(ctx, url)
	if err != nil || miss != nil {
		t.Fatalf("Expected clean miss, got %v, %v", miss, err)
	}

	entry := &Entry{
		Status:      http.StatusOK,
		ContentType: "image/png",
		Headers:     map[string]string{"Content-Disposition": "inline"},
		Body:        []byte("png-bytes"),
	}
	if err := c.Put(ctx, url, entry, time.Minute); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, err := c.Get(ctx, url)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got == nil || string(got.Body) != "png-bytes" || got.ContentType != "image/png" {
		t.Fatalf("Unexpected entry: %+v", got)
	}

	if err := c.Delete(ctx, url); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got, _ := c.Get(ctx, url); got != nil {
		t.Fatal("Expected entry to be gone after delete")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	c := NewRedisCache(redisClient)
	ctx := context.Background()

	c.Put(ctx, "https://d/x", &Entry{Status: http.StatusNotFound}, time.Minute)
	mr.FastForward(2 * time.Minute)

	if got, _ := c.Get(ctx, "https://d/x"); got != nil {
		t.Fatal("Expected entry to expire")
	}
}

func TestRedisCache_SkipsLargeBodies(t *testing.T) {
	redisClient, mr := setupTestRedis(t)
	c := NewRedisCache(redisClient)

	big := &Entry{Status: http.StatusOK, Body: make([]byte, MaxBodySize+1)}
	if err := c.Put(context.Background(), "https://d/big", big, time.Minute); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("Expected nothing cached, got keys %v", mr.Keys())
	}
}

func TestEntry_WriteTo(t *testing.T) {
	rec := httptest.NewRecorder()
	e := &Entry{Status: http.StatusNotFound, ContentType: "text/plain; charset=utf-8", Body: []byte("not found")}
	e.WriteTo(rec)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Fatal("Expected X-Cache header")
	}
	if rec.Body.String() != "not found" {
		t.Fatalf("Unexpected body %q", rec.Body.String())
	}
}
