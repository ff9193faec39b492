package db

import (
	"context"
	"testing"
	"time"
)

func TestPing_NilPoolIsNotReady(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := Ping(ctx, nil); err == nil {
		t.Fatalf("nil pool must not report ready")
	}
	if err := Ping(ctx, &DB{}); err == nil {
		t.Fatalf("unopened pool must not report ready")
	}
}

func TestStats_NilPool(t *testing.T) {
	if got := Stats(nil); got.OpenConnections != 0 {
		t.Fatalf("stats=%+v want zero value for nil pool", got)
	}
}

func TestNowUTC(t *testing.T) {
	if loc := NowUTC().Location(); loc != time.UTC {
		t.Fatalf("location=%v want UTC", loc)
	}
}
